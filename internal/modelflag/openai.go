package modelflag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/redflag-advisory-server/internal/domain"
)

const systemPrompt = `Du bist ein Assistenzsystem für klinische Dokumentation. ` +
	`Prüfe die übergebenen Feldtexte eines Berichts auf Sicherheitsrisiken. ` +
	`Antworte ausschliesslich mit einem JSON-Objekt der Form ` +
	`{"flags":[{"category":"...","rationale":"..."}]}. ` +
	`Erlaubte Kategorien: suicidality, violence_risk, psychosis, substance, other_safety. ` +
	`Melde nur Risiken, die im Text tatsächlich angesprochen werden.`

// OpenAIProvider requests risk flags from an OpenAI-compatible
// chat-completions endpoint using JSON response mode.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	rateLimit  *rate.Limiter
}

// NewOpenAIProvider creates a provider from configuration. Zero values get
// conservative defaults.
func NewOpenAIProvider(cfg *domain.ModelConfig) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &OpenAIProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		rateLimit:  rate.NewLimiter(rate.Limit(limit), burst),
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
	Temperature    float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type flagPayload struct {
	Flags []struct {
		Category  string `json:"category"`
		Rationale string `json:"rationale"`
	} `json:"flags"`
}

// ProposeFlags sends the note fields to the model and parses the proposed
// flags. Unknown categories are passed through, the resolver skips them.
func (p *OpenAIProvider) ProposeFlags(ctx context.Context, fields domain.NoteFields) ([]domain.ModelFlag, error) {
	if err := p.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: renderFields(fields)},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
		Temperature:    0,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	var parsed flagPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse flag payload: %w", err)
	}

	flags := make([]domain.ModelFlag, 0, len(parsed.Flags))
	for _, f := range parsed.Flags {
		flags = append(flags, domain.ModelFlag{
			Category:  domain.Category(f.Category),
			Rationale: f.Rationale,
		})
	}
	return flags, nil
}

// renderFields lays the note fields out in the fixed field order, labelled
// in the report language.
func renderFields(fields domain.NoteFields) string {
	labels := map[domain.FieldName]string{
		domain.FieldAnamnesis:  "Anamnese",
		domain.FieldFindings:   "Befunde",
		domain.FieldAssessment: "Beurteilung",
		domain.FieldProcedure:  "Prozedere",
	}

	var b strings.Builder
	for _, field := range domain.FieldOrder {
		text := fields[field]
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", labels[field], text)
	}
	return b.String()
}
