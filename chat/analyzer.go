// ABOUTME: Conversation analysis collaborators
// ABOUTME: HTTP function endpoint, OpenAI-compatible model and no-op analyzers
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/oklog/ulid/v2"
	openai "github.com/sashabaranov/go-openai"
)

type AnalysisRequest struct {
	RequestID      string           `json:"requestId,omitempty"`
	ConversationID string           `json:"conversationId"`
	Messages       []models.Message `json:"messages"`
}

// LeadDraft is the contact information an analyzer extracted from a chat.
type LeadDraft struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Company     string `json:"company,omitempty"`
	ProductName string `json:"productName,omitempty"`
}

type AnalysisData struct {
	LeadCreated       bool       `json:"leadCreated"`
	LeadName          string     `json:"leadName,omitempty"`
	Confidence        float64    `json:"confidence"`
	Lead              *LeadDraft `json:"lead,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	UpdateRecommended bool       `json:"updateRecommended,omitempty"`
}

type AnalysisResult struct {
	Success bool         `json:"success"`
	Data    AnalysisData `json:"data"`
	Error   string       `json:"error,omitempty"`
}

// Analyzer inspects a finished conversation and may propose a lead.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error)
}

// NopAnalyzer never proposes leads.
type NopAnalyzer struct{}

func (NopAnalyzer) Analyze(context.Context, AnalysisRequest) (AnalysisResult, error) {
	return AnalysisResult{Success: false, Error: "analysis disabled"}, nil
}

// HTTPAnalyzer posts the transcript as JSON to a function endpoint.
type HTTPAnalyzer struct {
	URL    string
	Client *http.Client
}

func NewHTTPAnalyzer(url string) *HTTPAnalyzer {
	return &HTTPAnalyzer{URL: url, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (h *HTTPAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	if req.RequestID == "" {
		req.RequestID = ulid.Make().String()
	}
	body, err := json.Marshal(req)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("failed to build analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", req.RequestID)

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("failed to read analysis response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return AnalysisResult{}, fmt.Errorf("analysis endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out AnalysisResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return AnalysisResult{}, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	return out, nil
}

const analysisPrompt = `You review sales chat transcripts for a CRM.
Reply with a single JSON object and nothing else, using these keys:
- "leadCreated": true when the visitor shared enough contact details to become a sales lead
- "leadName": the visitor's full name, or ""
- "confidence": 0-100, how sure you are the visitor is a real prospect
- "lead": {"firstName", "lastName", "email", "phone", "company", "productName"} or null
- "summary": one or two sentences on what the visitor wants
- "updateRecommended": true when an existing customer's details appear to have changed`

// OpenAIAnalyzer asks an OpenAI-compatible chat model for a JSON verdict.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer creates an analyzer. An empty baseURL uses the OpenAI API.
func NewOpenAIAnalyzer(apiKey, baseURL, model string) *OpenAIAnalyzer {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAnalyzer{client: openai.NewClientWithConfig(config), model: model}
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResult, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analysisPrompt},
			{Role: openai.ChatMessageRoleUser, Content: formatTranscript(req.Messages)},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return AnalysisResult{}, fmt.Errorf("no response choices")
	}

	var data AnalysisData
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Choices[0].Message.Content)), &data); err != nil {
		return AnalysisResult{}, fmt.Errorf("failed to decode model verdict: %w", err)
	}
	if data.LeadName == "" && data.Lead != nil {
		data.LeadName = strings.TrimSpace(data.Lead.FirstName + " " + data.Lead.LastName)
	}
	return AnalysisResult{Success: true, Data: data}, nil
}

func formatTranscript(msgs []models.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		who := "visitor"
		if m.FromBot() {
			who = "bot"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Message)
	}
	return b.String()
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
