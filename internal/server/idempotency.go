package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/storage"
)

// IdempotencyStore reserves and replays Idempotency-Key requests.
// *storage.DB satisfies it.
type IdempotencyStore interface {
	BeginIdempotency(ctx context.Context, endpoint, key, requestHash string) (storage.IdempotencyLookup, error)
	CompleteIdempotency(ctx context.Context, endpoint, key string, statusCode int, responseData any) error
	ClearInProgressIdempotency(ctx context.Context, endpoint, key string) error
}

// maxIdempotencyKeyLen bounds the Idempotency-Key header.
const maxIdempotencyKeyLen = 255

type idempotencyHandle struct {
	key      string
	endpoint string
}

func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Idempotency-Key"))
}

func requestHash(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// beginIdempotentWrite checks, replays or reserves an idempotency key.
// Returns (nil, true) when no key is present or idempotency is disabled and
// the caller should proceed normally. Returns (nil, false) when a response
// has already been written.
func (h *Handlers) beginIdempotentWrite(w http.ResponseWriter, r *http.Request, endpoint string, payload any) (*idempotencyHandle, bool) {
	key := idempotencyKey(r)
	if key == "" || h.idempotency == nil {
		return nil, true
	}
	if len(key) > maxIdempotencyKeyLen {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			fmt.Sprintf("Idempotency-Key exceeds %d characters", maxIdempotencyKeyLen))
		return nil, false
	}

	hash, err := requestHash(payload)
	if err != nil {
		h.internalError(w, r, "hash idempotency payload", err)
		return nil, false
	}

	lookup, err := h.idempotency.BeginIdempotency(r.Context(), endpoint, key, hash)
	switch {
	case err == nil:
		if lookup.Completed {
			var replay any
			if len(lookup.ResponseData) > 0 {
				if uErr := json.Unmarshal(lookup.ResponseData, &replay); uErr != nil {
					h.internalError(w, r, "decode idempotent replay", uErr)
					return nil, false
				}
			}
			status := lookup.StatusCode
			if status == 0 {
				status = http.StatusOK
			}
			w.Header().Set("Idempotent-Replayed", "true")
			writeJSON(w, r, status, replay)
			return nil, false
		}
		return &idempotencyHandle{key: key, endpoint: endpoint}, true
	case errors.Is(err, storage.ErrIdempotencyPayloadMismatch):
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "idempotency key reused with different payload")
		return nil, false
	case errors.Is(err, storage.ErrIdempotencyInProgress):
		writeError(w, r, http.StatusConflict, model.ErrCodeConflict, "request with this idempotency key is already in progress")
		return nil, false
	default:
		h.internalError(w, r, "idempotency lookup", err)
		return nil, false
	}
}

// completeIdempotentWrite stores the response for replay. The mutation has
// already committed, so failures are logged rather than returned to the
// client.
func (h *Handlers) completeIdempotentWrite(r *http.Request, idem *idempotencyHandle, statusCode int, data any) {
	if idem == nil {
		return
	}

	// Bounded and detached from the request so a client disconnect does not
	// leave the key in progress.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
	defer cancel()

	var lastErr error
retry:
	for attempt := 1; attempt <= 3; attempt++ {
		err := h.idempotency.CompleteIdempotency(writeCtx, idem.endpoint, idem.key, statusCode, data)
		if err == nil {
			return
		}
		lastErr = err
		h.logger.Warn("idempotency finalize attempt failed",
			"attempt", attempt, "error", err, "endpoint", idem.endpoint)

		select {
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		case <-writeCtx.Done():
			break retry
		}
	}
	h.logger.Error("failed to finalize idempotency record after committed mutation",
		"error", lastErr,
		"endpoint", idem.endpoint,
		"request_id", RequestIDFromContext(r.Context()),
	)
}

// clearIdempotentWrite releases a reservation after a failed mutation so the
// client can retry with the same key.
func (h *Handlers) clearIdempotentWrite(r *http.Request, idem *idempotencyHandle) {
	if idem == nil {
		return
	}
	if err := h.idempotency.ClearInProgressIdempotency(context.WithoutCancel(r.Context()), idem.endpoint, idem.key); err != nil {
		h.logger.Error("failed to clear idempotency record", "error", err, "endpoint", idem.endpoint)
	}
}
