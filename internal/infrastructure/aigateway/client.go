package aigateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	domain "github.com/placementmentor/mentor-server/internal/domain/conversation"
	"github.com/placementmentor/mentor-server/internal/infrastructure/metrics"
)

const (
	chatPath           = "/ai/chat"
	classroomPathFmt   = "/ai/classroom/%s"
	defaultErrorDetail = "AI service request failed"
)

// Error is returned for transport failures and non-2xx answers.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return e.Detail
}

type chatRequest struct {
	Message             string                `json:"message"`
	ConversationHistory []domain.HistoryEntry `json:"conversation_history"`
}

type chatResponse struct {
	Response string `json:"response"`
	Role     string `json:"role,omitempty"`
}

// errorBody matches the error payloads of the AI service.
type errorBody struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
}

// Client talks to the AI service over HTTP. Calls are never retried.
type Client struct {
	httpClient *resty.Client
	log        zerolog.Logger
}

// NewClient creates a Resty-backed client. A zero timeout leaves calls uncapped.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if timeout > 0 {
		httpClient.SetTimeout(timeout)
	}
	return &Client{
		httpClient: httpClient,
		log:        log.With().Str("component", "ai-gateway").Logger(),
	}
}

// Chat calls POST /ai/chat.
func (c *Client) Chat(ctx context.Context, message string, history []domain.HistoryEntry) (domain.Reply, error) {
	return c.post(ctx, "chat", chatPath, message, history)
}

// ClassroomChat calls POST /ai/classroom/{assistant}.
func (c *Client) ClassroomChat(ctx context.Context, assistant domain.Assistant, message string, history []domain.HistoryEntry) (domain.Reply, error) {
	return c.post(ctx, "classroom_"+string(assistant), fmt.Sprintf(classroomPathFmt, assistant), message, history)
}

func (c *Client) post(ctx context.Context, endpoint, path, message string, history []domain.HistoryEntry) (domain.Reply, error) {
	if history == nil {
		history = []domain.HistoryEntry{}
	}

	start := time.Now()
	var out chatResponse
	var failure errorBody
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(chatRequest{Message: message, ConversationHistory: history}).
		SetResult(&out).
		SetError(&failure).
		Post(path)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		metrics.RecordGatewayCall(endpoint, "transport_error", elapsed)
		c.log.Error().Err(err).Str("path", path).Msg("ai service unreachable")
		return domain.Reply{}, &Error{Detail: err.Error()}
	}
	if resp.IsError() {
		metrics.RecordGatewayCall(endpoint, "upstream_error", elapsed)
		gwErr := &Error{StatusCode: resp.StatusCode(), Detail: failure.detail(resp)}
		c.log.Error().
			Int("status", gwErr.StatusCode).
			Str("path", path).
			Str("detail", gwErr.Detail).
			Msg("ai service returned error")
		return domain.Reply{}, gwErr
	}

	metrics.RecordGatewayCall(endpoint, "success", elapsed)
	return domain.Reply{Response: out.Response, Role: out.Role}, nil
}

func (b errorBody) detail(resp *resty.Response) string {
	switch v := b.Detail.(type) {
	case string:
		if v != "" {
			return v
		}
	case nil:
	default:
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
	}
	if b.Message != "" {
		return b.Message
	}
	if status := resp.StatusCode(); status > 0 {
		return fmt.Sprintf("%s: %d %s", defaultErrorDetail, status, http.StatusText(status))
	}
	return defaultErrorDetail
}

var _ domain.Gateway = (*Client)(nil)
