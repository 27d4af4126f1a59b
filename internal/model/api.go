package model

import (
	"fmt"
	"strings"
	"time"
)

// Request size limits for copilot endpoints.
const (
	MaxChatMessageLen      = 4 * 1024
	MaxAssetPredictionIDs  = 500
	MaxWorkOrderDescLen    = 8 * 1024
	DefaultWorkOrderType   = "VEGETATION_MANAGEMENT"
	DefaultWorkOrderPrio   = "MEDIUM"
	WorkOrderStatusPending = "PENDING"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnavailable   = "UNAVAILABLE"
)

// ServiceInfo is the response for GET /.
type ServiceInfo struct {
	Name       string     `json:"name"`
	Version    string     `json:"version"`
	Status     string     `json:"status"`
	FireSeason FireSeason `json:"fire_season"`
	Timestamp  time.Time  `json:"timestamp"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Postgres  string `json:"postgres"`
	Search    string `json:"search,omitempty"`
	Agent     string `json:"agent,omitempty"`
	SSEBroker string `json:"sse_broker,omitempty"`
	Uptime    int64  `json:"uptime_seconds"`
}

// ChatRequest is the request body for POST /chat and POST /chat/stream.
type ChatRequest struct {
	Message   string         `json:"message"`
	Persona   string         `json:"persona,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Validate checks the message is present and bounded.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message is required")
	}
	if len(r.Message) > MaxChatMessageLen {
		return fmt.Errorf("message exceeds maximum length of %d bytes", MaxChatMessageLen)
	}
	return nil
}

// ContextString returns a string value from the request context map.
func (r ChatRequest) ContextString(key string) string {
	if r.Context == nil {
		return ""
	}
	s, _ := r.Context[key].(string)
	return s
}

// ChatResponse is the response for POST /chat.
type ChatResponse struct {
	Message    string         `json:"message"`
	Agent      string         `json:"agent"`
	Persona    Persona        `json:"persona"`
	Intent     string         `json:"intent,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Sources    []string       `json:"sources"`
	FireSeason FireSeason     `json:"fire_season"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Persona describes the voice the copilot answers in.
type Persona struct {
	Name   string `json:"name"`
	Style  string `json:"style,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Emoji  string `json:"emoji"`
}

// AssetPredictionsRequest is the request body for POST /ml/asset-predictions.
type AssetPredictionsRequest struct {
	AssetIDs []string `json:"asset_ids"`
}

// Normalize trims blanks and caps the id list at MaxAssetPredictionIDs.
func (r AssetPredictionsRequest) Normalize() []string {
	ids := make([]string, 0, len(r.AssetIDs))
	for _, id := range r.AssetIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ids = append(ids, id)
		if len(ids) == MaxAssetPredictionIDs {
			break
		}
	}
	return ids
}
