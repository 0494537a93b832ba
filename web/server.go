// ABOUTME: JSON HTTP API over the CRM store and notification bus
// ABOUTME: Serves leads, deals, activities, conversations, dashboards, graphs and /metrics with chi
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/harperreed/leadpipe/metrics"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/pages"
	"github.com/harperreed/leadpipe/store"
	"github.com/harperreed/leadpipe/viz"
)

// ChatControl is the chat assistant state the API reports and toggles.
type ChatControl interface {
	Toggle() error
	Ready() bool
	Disabled() bool
	IsOpen() bool
	Unread() int
}

type Options struct {
	Port       int
	Store      *store.Store
	Bus        *notify.Bus
	Toaster    pages.Toaster
	Activities *pages.Activities
	Metrics    *metrics.Metrics
	Logger     *log.Logger
	Now        func() time.Time
	// Chat is optional; without it the chat endpoints report chat as disabled.
	Chat ChatControl
}

type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	logger     *log.Logger

	store      *store.Store
	bus        *notify.Bus
	leads      *pages.Leads
	deals      *pages.Deals
	activities *pages.Activities
	dashboard  *pages.Dashboard
	reports    *pages.Reports
	metrics    *metrics.Metrics
	chat       ChatControl
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	activities := opts.Activities
	if activities == nil {
		activities = pages.NewActivities(opts.Store, pages.ActivitiesOptions{Toaster: opts.Toaster, Logger: logger, Now: opts.Now})
	}

	s := &Server{
		logger:     logger,
		store:      opts.Store,
		bus:        opts.Bus,
		leads:      pages.NewLeads(opts.Store, opts.Toaster),
		deals:      pages.NewDeals(opts.Store, opts.Toaster),
		activities: activities,
		dashboard:  pages.NewDashboard(opts.Store, opts.Now),
		reports:    pages.NewReports(opts.Store, opts.Now),
		metrics:    opts.Metrics,
		chat:       opts.Chat,
	}
	s.setupRouter()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/reports", s.handleReports)

		r.Get("/leads", s.handleListLeads)
		r.Post("/leads", s.handleCreateLead)
		r.Get("/leads/{id}", s.handleGetLead)
		r.Put("/leads/{id}", s.handleUpdateLead)
		r.Delete("/leads/{id}", s.handleDeleteLead)

		r.Get("/deals", s.handleListDeals)
		r.Post("/deals", s.handleCreateDeal)
		r.Get("/deals/{id}", s.handleGetDeal)
		r.Put("/deals/{id}", s.handleUpdateDeal)
		r.Post("/deals/{id}/move", s.handleMoveDeal)
		r.Delete("/deals/{id}", s.handleDeleteDeal)

		r.Get("/activities", s.handleListActivities)
		r.Post("/activities", s.handleCreateActivity)
		r.Put("/activities/{id}", s.handleUpdateActivity)
		r.Post("/activities/{id}/complete", s.handleCompleteActivity)
		r.Delete("/activities/{id}", s.handleDeleteActivity)

		r.Get("/conversations", s.handleListConversations)
		r.Get("/conversations/{id}", s.handleGetConversation)

		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/read-all", s.handleReadAllNotifications)
		r.Post("/notifications/{id}/read", s.handleReadNotification)
		r.Delete("/notifications/dismissed", s.handleClearDismissed)
		r.Delete("/notifications/{id}", s.handleDismissNotification)

		r.Get("/graphs/pipeline", s.handlePipelineGraph)

		r.Get("/chat", s.handleChatStatus)
		r.Post("/chat/toggle", s.handleChatToggle)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	s.router = r
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", "http://localhost"+s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
	})
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondStoreError maps store and controller errors to status codes.
func (s *Server) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pages.ErrIllegalTransition):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// --- Views ---

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view := s.dashboard.Load(r.Context())
	if view.Error != "" {
		s.respondJSON(w, http.StatusInternalServerError, view)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	view := s.reports.Load(r.Context())
	if view.Error != "" {
		s.respondJSON(w, http.StatusInternalServerError, view)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handlePipelineGraph(w http.ResponseWriter, r *http.Request) {
	deals, err := s.store.ListDeals(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = viz.FormatSVG
	}
	gen, err := viz.NewGraphGenerator(nil, deals, nil).WithFormat(format)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := gen.GeneratePipelineGraph()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if format == viz.FormatSVG {
		w.Header().Set("Content-Type", "image/svg+xml")
	} else {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
	}
	_, _ = w.Write([]byte(out))
}

// --- Leads ---

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := s.leads.Load(r.Context(), pages.LeadFilter{Search: q.Get("q"), Status: q.Get("status"), Source: q.Get("source")})
	if view.Error != "" {
		s.respondJSON(w, http.StatusInternalServerError, view)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var draft models.Lead
	if !s.decode(w, r, &draft) {
		return
	}
	if draft.FirstName == "" || draft.LastName == "" || draft.Email == "" {
		s.respondError(w, http.StatusBadRequest, "firstName, lastName and email are required")
		return
	}
	lead, err := s.leads.Create(r.Context(), draft)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, lead)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, lead)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var patch models.LeadPatch
	if !s.decode(w, r, &patch) {
		return
	}
	lead, err := s.leads.Update(r.Context(), id, patch)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, lead)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.leads.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Deals ---

func (s *Server) handleListDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := pages.DealFilter{Search: q.Get("q"), Stage: q.Get("stage")}
	if v := q.Get("assignee"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid assignee")
			return
		}
		f.AssigneeID = id
	}
	view := s.deals.Load(r.Context(), f)
	if view.Error != "" {
		s.respondJSON(w, http.StatusInternalServerError, view)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateDeal(w http.ResponseWriter, r *http.Request) {
	var draft models.Deal
	if !s.decode(w, r, &draft) {
		return
	}
	if draft.Title == "" {
		s.respondError(w, http.StatusBadRequest, "title is required")
		return
	}
	if draft.Stage != "" && !models.IsValidStage(draft.Stage) {
		s.respondError(w, http.StatusBadRequest, "invalid stage: "+draft.Stage)
		return
	}
	if draft.Stage == "" {
		draft.Stage = models.StageProspecting
	}
	draft.Probability, _ = models.StageProbability(draft.Stage)
	deal, err := s.deals.Create(r.Context(), draft)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, deal)
}

func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	deal, err := s.store.GetDeal(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deal)
}

func (s *Server) handleUpdateDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var patch models.DealPatch
	if !s.decode(w, r, &patch) {
		return
	}
	if patch.Stage != nil || patch.Probability != nil {
		s.respondError(w, http.StatusBadRequest, "stage changes go through POST /deals/{id}/move")
		return
	}
	deal, err := s.deals.Update(r.Context(), id, patch)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deal)
}

type moveRequest struct {
	Stage string `json:"stage"`
}

func (s *Server) handleMoveDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !models.IsValidStage(req.Stage) {
		s.respondError(w, http.StatusBadRequest, "invalid stage: "+req.Stage)
		return
	}
	deal, err := s.deals.MoveStage(r.Context(), id, req.Stage)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, deal)
}

func (s *Server) handleDeleteDeal(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.deals.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Activities ---

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := s.activities.Load(r.Context(), pages.ActivityFilter{Search: q.Get("q"), Type: q.Get("type"), Status: q.Get("status")})
	if view.Error != "" {
		s.respondJSON(w, http.StatusInternalServerError, view)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var draft models.Activity
	if !s.decode(w, r, &draft) {
		return
	}
	if draft.Subject == "" {
		s.respondError(w, http.StatusBadRequest, "subject is required")
		return
	}
	if !models.Contains(models.ActivityTypes, draft.Type) {
		s.respondError(w, http.StatusBadRequest, "invalid type: "+draft.Type)
		return
	}
	act, err := s.activities.Create(r.Context(), draft)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, act)
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var patch models.ActivityPatch
	if !s.decode(w, r, &patch) {
		return
	}
	act, err := s.activities.Update(r.Context(), id, patch)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, act)
}

func (s *Server) handleCompleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	res, err := s.activities.MarkComplete(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.activities.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Conversations ---

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.ListConversations(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	s.respondJSON(w, http.StatusOK, convs)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.GetConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, conv)
}

// --- Notifications ---

type notificationsResponse struct {
	Notifications []models.Notification    `json:"notifications"`
	Stats         models.NotificationStats `json:"stats"`
}

func (s *Server) notificationList(unreadOnly bool) notificationsResponse {
	list := s.bus.List()
	if unreadOnly {
		list = s.bus.Unread()
	}
	if list == nil {
		list = []models.Notification{}
	}
	return notificationsResponse{Notifications: list, Stats: s.bus.Stats()}
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.notificationList(r.URL.Query().Get("unread") == "true"))
}

func (s *Server) handleReadNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.bus.MarkAsRead(id)
	s.respondJSON(w, http.StatusOK, s.notificationList(false))
}

func (s *Server) handleReadAllNotifications(w http.ResponseWriter, r *http.Request) {
	s.bus.MarkAllAsRead()
	s.respondJSON(w, http.StatusOK, s.notificationList(false))
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	s.bus.Dismiss(id)
	s.respondJSON(w, http.StatusOK, s.notificationList(false))
}

func (s *Server) handleClearDismissed(w http.ResponseWriter, r *http.Request) {
	s.bus.ClearDismissed()
	s.respondJSON(w, http.StatusOK, s.notificationList(false))
}

// --- Chat assistant ---

type chatStatus struct {
	Enabled bool `json:"enabled"`
	Ready   bool `json:"ready"`
	Open    bool `json:"open"`
	Unread  int  `json:"unread"`
}

func (s *Server) currentChat() chatStatus {
	if s.chat == nil || s.chat.Disabled() {
		return chatStatus{}
	}
	return chatStatus{
		Enabled: true,
		Ready:   s.chat.Ready(),
		Open:    s.chat.IsOpen(),
		Unread:  s.chat.Unread(),
	}
}

func (s *Server) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.currentChat())
}

// handleChatToggle asks the widget to show or hide. Visibility changes once
// the widget reports back, so the reply is the state at the time of asking.
func (s *Server) handleChatToggle(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		s.respondError(w, http.StatusServiceUnavailable, "chat assistant disabled")
		return
	}
	if err := s.chat.Toggle(); err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, s.currentChat())
}
