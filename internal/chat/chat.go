// Package chat relays visitor messages to an OpenAI compatible chat completion
// API (OpenRouter by default) and maps provider failures to user facing errors.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/metrics"
	"github.com/spacehome/spacehome/internal/sanitize"
)

const (
	// DefaultModel is used when the site settings name no model.
	DefaultModel = "openai/gpt-4o-mini"
	// DefaultEndpoint is the OpenRouter chat completion URL.
	DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	// DefaultTimeout bounds one completion request.
	DefaultTimeout = 30 * time.Second
	// DefaultHistoryLimit is the number of history entries forwarded.
	DefaultHistoryLimit = 10
	// DefaultMaxMessageLength is the per message character cap.
	DefaultMaxMessageLength = 2000

	// DefaultPersona is the system prompt when the admin configured none.
	DefaultPersona = `You are the owner of this retro profile page, chatting with a visitor.
Keep replies short and casual, one or two sentences, lowercase is fine.
Do not use emojis. Do not claim to be an AI model unless asked directly.
If you do not know something about the owner, say so instead of inventing it.`

	// Chat roles.
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	bodyLimit = 1 << 20
)

// User facing messages.
const (
	MsgRateLimited   = "Model is rate limited. Try a different model (like gpt-4o-mini) or wait a minute."
	MsgDataPolicy    = "Model doesn't support your privacy settings. Go to openrouter.ai/settings/privacy or try gpt-4o-mini."
	MsgProviderError = "Failed to get response from AI"
	MsgNoResponse    = "No response from AI"
	MsgTransport     = "Failed to get response from AI. Please try again."
	MsgTimeout       = "AI took too long to respond. Please try again."
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("chat: api key not configured")

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one relay call.
type Request struct {
	APIKey  string
	Model   string
	Persona string
	Message string
	History []Message
}

// ProviderError is a failed relay, already classified for the client.
type ProviderError struct {
	Status  int    // HTTP status for the client
	Message string // safe to return to the client
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("chat: %d %s: %v", e.Status, e.Message, e.Cause)
	}

	return fmt.Sprintf("chat: %d %s", e.Status, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Relay forwards conversations to the model API.
type Relay struct {
	client       *http.Client
	endpoint     string
	defaultModel string
	referer      string
	title        string
	historyLimit int
	maxLen       int
}

// New builds a relay. referer and title are sent as HTTP-Referer and X-Title.
// client may be nil.
func New(cfg config.Chat, client *http.Client, referer, title string) *Relay {
	r := &Relay{
		client:       client,
		endpoint:     cfg.Endpoint,
		defaultModel: cfg.DefaultModel,
		referer:      referer,
		title:        title,
		historyLimit: cfg.HistoryLimit,
		maxLen:       cfg.MaxMessageLength,
	}

	if r.endpoint == "" {
		r.endpoint = DefaultEndpoint
	}

	if r.defaultModel == "" {
		r.defaultModel = DefaultModel
	}

	if r.historyLimit <= 0 {
		r.historyLimit = DefaultHistoryLimit
	}

	if r.maxLen <= 0 {
		r.maxLen = DefaultMaxMessageLength
	}

	if r.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		r.client = &http.Client{Timeout: timeout}
	}

	return r
}

// Clean truncates a message to the relay's cap and trims it.
func (r *Relay) Clean(msg string) string {
	return strings.TrimSpace(sanitize.Truncate(msg, r.maxLen))
}

// BuildMessages returns the system prompt, the last historyLimit usable history
// entries and the new message. History entries with other roles or without
// content are dropped after the limit is applied.
func (r *Relay) BuildMessages(persona string, history []Message, message string) []Message {
	if persona == "" {
		persona = DefaultPersona
	}

	out := make([]Message, 0, r.historyLimit+2) //nolint:mnd
	out = append(out, Message{Role: RoleSystem, Content: persona})

	if len(history) > r.historyLimit {
		history = history[len(history)-r.historyLimit:]
	}

	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}

		if content := r.Clean(m.Content); content != "" {
			out = append(out, Message{Role: m.Role, Content: content})
		}
	}

	return append(out, Message{Role: RoleUser, Content: r.Clean(message)})
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *providerError `json:"error,omitempty"`
}

type providerError struct {
	Message  string          `json:"message"`
	Code     json.RawMessage `json:"code"`
	Metadata struct {
		Raw string `json:"raw"`
	} `json:"metadata"`
}

// Send relays req and returns the model's reply. Every failure is a *ProviderError
// except ErrNotConfigured.
func (r *Relay) Send(ctx context.Context, req Request) (string, error) {
	if req.APIKey == "" {
		return "", ErrNotConfigured
	}

	model := req.Model
	if model == "" {
		model = r.defaultModel
	}

	body, err := json.Marshal(completionRequest{
		Model:    model,
		Messages: r.BuildMessages(req.Persona, req.History, req.Message),
	})
	if err != nil {
		return "", r.fail("encode", &ProviderError{Status: http.StatusInternalServerError, Message: MsgTransport, Cause: err})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", r.fail("request", &ProviderError{Status: http.StatusInternalServerError, Message: MsgTransport, Cause: err})
	}

	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", r.referer)
	httpReq.Header.Set("X-Title", r.title)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return "", r.fail("transport", transportError(err))
	}

	defer func() { _ = resp.Body.Close() }()

	var decoded completionResponse

	raw, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return "", r.fail("transport", transportError(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = json.Unmarshal(raw, &decoded)

		pe := classify(resp.StatusCode, decoded.Error)

		log.Error().
			Int("status", resp.StatusCode).
			Str("model", model).
			Str("provider_message", providerMessage(decoded.Error)).
			RawJSON("provider_code", providerCode(decoded.Error)).
			Msg("model api returned an error")

		return "", r.fail(outcome(pe), pe)
	}

	if err = json.Unmarshal(raw, &decoded); err != nil || len(decoded.Choices) == 0 ||
		decoded.Choices[0].Message.Content == "" {
		return "", r.fail("empty", &ProviderError{Status: http.StatusInternalServerError, Message: MsgNoResponse, Cause: err})
	}

	metrics.ChatRelays.WithLabelValues("ok").Inc()

	return decoded.Choices[0].Message.Content, nil
}

func (r *Relay) fail(outcome string, pe *ProviderError) *ProviderError {
	metrics.ChatRelays.WithLabelValues(outcome).Inc()

	return pe
}

// classify maps a non 2xx provider answer to a client status and message.
func classify(status int, perr *providerError) *ProviderError {
	msg := providerMessage(perr)
	if msg == "" {
		msg = MsgProviderError
	}

	switch {
	case status == http.StatusTooManyRequests || strings.Contains(msg, "rate-limited"):
		return &ProviderError{Status: http.StatusTooManyRequests, Message: MsgRateLimited}
	case strings.Contains(msg, "data policy") || strings.Contains(msg, "Zero data retention"):
		return &ProviderError{Status: http.StatusBadRequest, Message: MsgDataPolicy}
	case perr != nil && perr.Metadata.Raw != "":
		return &ProviderError{Status: status, Message: perr.Metadata.Raw}
	default:
		return &ProviderError{Status: status, Message: msg}
	}
}

func transportError(err error) *ProviderError {
	var netErr interface{ Timeout() bool }

	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ProviderError{Status: http.StatusGatewayTimeout, Message: MsgTimeout, Cause: err}
	}

	return &ProviderError{Status: http.StatusInternalServerError, Message: MsgTransport, Cause: err}
}

func outcome(pe *ProviderError) string {
	switch pe.Message {
	case MsgRateLimited:
		return "rate_limited"
	case MsgDataPolicy:
		return "policy"
	default:
		return "provider_error"
	}
}

func providerMessage(perr *providerError) string {
	if perr == nil {
		return ""
	}

	return perr.Message
}

func providerCode(perr *providerError) []byte {
	if perr == nil || len(perr.Code) == 0 {
		return []byte("null")
	}

	return perr.Code
}
