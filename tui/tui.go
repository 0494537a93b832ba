// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Tabs for the dashboard, leads, pipeline board, activities and notifications with live toasts
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/pages"
	"github.com/harperreed/leadpipe/store"
	"golang.org/x/sync/errgroup"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewEdit
	ViewGraph
	ViewConfirmDelete
)

// Tab is one top-level page.
type Tab int

const (
	TabDashboard Tab = iota
	TabLeads
	TabPipeline
	TabActivities
	TabNotifications
)

var tabNames = []string{"Dashboard", "Leads", "Pipeline", "Activities", "Notifications"}

const (
	maxToasts = 3
	toastTTL  = 4 * time.Second
)

// ChatControl is the chat assistant as the TUI sees it.
type ChatControl interface {
	Toggle() error
	Ready() bool
	Disabled() bool
	IsOpen() bool
	Unread() int
}

// chatRefresh is how often the chat status line is redrawn.
const chatRefresh = time.Second

type Options struct {
	Ctx        context.Context
	Store      *store.Store
	Bus        *notify.Bus
	Toaster    pages.Toaster
	Activities *pages.Activities
	Now        func() time.Time
	// Chat is optional; without it the status line and toggle key are hidden.
	Chat ChatControl
}

// Model is the main bubbletea model
type Model struct {
	ctx        context.Context
	store      *store.Store
	bus        *notify.Bus
	leads      *pages.Leads
	deals      *pages.Deals
	activities *pages.Activities
	chat       ChatControl
	now        func() time.Time

	viewMode ViewMode
	tab      Tab

	// Loaded data
	allLeads  []models.Lead
	allDeals  []models.Deal
	allActs   []models.Activity
	dashView  pages.DashboardView
	leadsView pages.LeadsView
	dealsView pages.DealsView
	actsView  pages.ActivitiesView
	loading   bool

	// List and board state
	selectedRow int
	boardColumn int
	searchQuery string
	searching   bool
	searchInput textinput.Model

	// Detail, edit and delete target
	selectedID int
	editTab    Tab
	formInputs []textinput.Model
	focusIndex int

	graphDOT string

	toasts      []models.Notification
	toastCh     chan models.Notification
	unsubscribe func()

	width  int
	height int
	err    error
}

// NewModel creates a new TUI model subscribed to the notification bus.
// Call Close when the program exits.
func NewModel(opts Options) Model {
	ctx := opts.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	activities := opts.Activities
	if activities == nil {
		activities = pages.NewActivities(opts.Store, pages.ActivitiesOptions{Toaster: opts.Toaster, Now: now})
	}

	search := textinput.New()
	search.Placeholder = "Search"
	search.CharLimit = 100

	m := Model{
		ctx:         ctx,
		store:       opts.Store,
		bus:         opts.Bus,
		leads:       pages.NewLeads(opts.Store, opts.Toaster),
		deals:       pages.NewDeals(opts.Store, opts.Toaster),
		activities:  activities,
		chat:        opts.Chat,
		now:         now,
		viewMode:    ViewList,
		tab:         TabDashboard,
		searchInput: search,
		toastCh:     make(chan models.Notification, 16),
		width:       80,
		height:      24,
	}
	if m.bus != nil {
		ch := m.toastCh
		m.unsubscribe = m.bus.Subscribe(func(n models.Notification) {
			select {
			case ch <- n:
			default:
			}
		})
	}
	return m
}

// Close detaches the model from the notification bus.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Run starts the full-screen program and blocks until the user quits.
func Run(opts Options) error {
	m := NewModel(opts)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx)).Run()
	return err
}

type dataLoadedMsg struct {
	leads []models.Lead
	deals []models.Deal
	acts  []models.Activity
	err   error
}

type toastMsg models.Notification

type toastExpiredMsg struct{ id int }

type opDoneMsg struct{ err error }

type chatTickMsg struct{}

type chatToggledMsg struct{ err error }

type graphMsg struct {
	dot string
	err error
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.load(), m.waitForToast()}
	if m.chat != nil {
		cmds = append(cmds, chatTick())
	}
	return tea.Batch(cmds...)
}

func chatTick() tea.Cmd {
	return tea.Tick(chatRefresh, func(time.Time) tea.Msg { return chatTickMsg{} })
}

func (m Model) toggleChat() tea.Cmd {
	c := m.chat
	return func() tea.Msg {
		return chatToggledMsg{err: c.Toggle()}
	}
}

// load fetches every collection concurrently.
func (m Model) load() tea.Cmd {
	ctx, s := m.ctx, m.store
	return func() tea.Msg {
		var msg dataLoadedMsg
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			msg.leads, err = s.ListLeads(gctx)
			return err
		})
		g.Go(func() (err error) {
			msg.deals, err = s.ListDeals(gctx)
			return err
		})
		g.Go(func() (err error) {
			msg.acts, err = s.ListActivities(gctx)
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

func (m Model) waitForToast() tea.Cmd {
	ch := m.toastCh
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg(n)
	}
}

// run performs a mutation off the update loop and reloads afterwards.
func (m Model) run(op func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: op(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.allLeads, m.allDeals, m.allActs = msg.leads, msg.deals, msg.acts
		m.rebuildViews()
		return m, nil
	case opDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.loading = true
		return m, m.load()
	case graphMsg:
		if msg.err != nil {
			m.err = msg.err
			m.viewMode = ViewDetail
			return m, nil
		}
		m.graphDOT = msg.dot
		return m, nil
	case toastMsg:
		n := models.Notification(msg)
		m.toasts = append(m.toasts, n)
		if len(m.toasts) > maxToasts {
			m.toasts = m.toasts[len(m.toasts)-maxToasts:]
		}
		expire := tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{id: n.ID} })
		return m, tea.Batch(m.waitForToast(), expire)
	case chatTickMsg:
		return m, chatTick()
	case chatToggledMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil
	case toastExpiredMsg:
		for i, t := range m.toasts {
			if t.ID == msg.id {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil
	}
	return m, nil
}

// rebuildViews applies the search to the loaded collections.
func (m *Model) rebuildViews() {
	now := m.now()
	m.dashView = pages.BuildDashboard(m.allLeads, m.allDeals, m.allActs, now)
	m.leadsView = pages.LeadsView{
		Leads: pages.FilterLeads(m.allLeads, pages.LeadFilter{Search: m.searchQuery}),
		Total: len(m.allLeads),
	}
	m.dealsView = pages.BuildDealsView(m.allDeals, pages.DealFilter{Search: m.searchQuery})
	m.actsView = pages.ActivitiesView{
		Activities: pages.FilterActivities(m.allActs, pages.ActivityFilter{Search: m.searchQuery}),
		Total:      len(m.allActs),
	}
	m.clampSelection()
}

func (m Model) View() string {
	var body string
	switch m.viewMode {
	case ViewList:
		body = m.renderListView()
	case ViewDetail:
		body = m.renderDetailView()
	case ViewEdit:
		body = m.renderEditView()
	case ViewGraph:
		body = m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	if toasts := m.renderToasts(); toasts != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", toasts)
	}
	return body
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// Text entry owns every other key.
	if m.viewMode == ViewEdit {
		return m.handleEditKeys(msg)
	}
	if m.searching {
		return m.handleSearchKeys(msg)
	}
	if msg.String() == "q" {
		return m, tea.Quit
	}

	if m.viewMode == ViewList && msg.String() == "t" && m.chat != nil {
		return m, m.toggleChat()
	}

	switch m.viewMode {
	case ViewList:
		if m.tab == TabPipeline {
			return m.handleBoardKeys(msg)
		}
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

func (m Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	var rendered []string
	for _, t := range m.toasts {
		style, ok := toastStyles[t.Type]
		if !ok {
			style = toastStyles[models.NotificationInfo]
		}
		rendered = append(rendered, style.Render(t.Title+": "+t.Message))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	toastBase = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	toastStyles = map[string]lipgloss.Style{
		models.NotificationSuccess: toastBase.BorderForeground(lipgloss.Color("10")),
		models.NotificationInfo:    toastBase.BorderForeground(lipgloss.Color("12")),
		models.NotificationWarning: toastBase.BorderForeground(lipgloss.Color("11")),
		models.NotificationError:   toastBase.BorderForeground(lipgloss.Color("9")),
	}
)
