package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	fallbackReplayTTL = 24 * time.Hour
	// inflightTTL bounds how long a crashed request can hold its key.
	inflightTTL = 30 * time.Second
)

// idempotencyRecord is what Redis holds per key. Status 0 marks a request
// that is still running.
type idempotencyRecord struct {
	Status      int               `json:"status"`
	Body        string            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

func (r idempotencyRecord) inFlight() bool { return r.Status == 0 }

// IdempotencyGuard replays stored responses for a repeated Idempotency-Key.
// Checkout and order creation mount Required so a double submit can never
// produce two orders; cart and admin writes mount Optional.
type IdempotencyGuard struct {
	store pkgredis.IdempotencyStore
	ttls  config.IdempotencyConfig
	logg  *logger.Logger
}

func NewIdempotencyGuard(store pkgredis.IdempotencyStore, ttls config.IdempotencyConfig, logg *logger.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{store: store, ttls: ttls, logg: logg}
}

// Required rejects requests without a key and keeps replays for the
// critical TTL.
func (g *IdempotencyGuard) Required() func(http.Handler) http.Handler {
	return g.middleware(true, g.ttls.CriticalTTL)
}

// Optional only deduplicates when the client sends a key.
func (g *IdempotencyGuard) Optional() func(http.Handler) http.Handler {
	return g.middleware(false, g.ttls.DefaultTTL)
}

func (g *IdempotencyGuard) middleware(required bool, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = g.ttls.DefaultTTL
	}
	if ttl <= 0 {
		ttl = fallbackReplayTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if g.store == nil {
				next.ServeHTTP(w, r)
				return
			}
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if clientKey == "" {
				if required {
					responses.WriteError(r.Context(), g.logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), g.logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := hashBody(body)
			key := g.store.IdempotencyKey(requestScope(r), clientKey)
			ctx := r.Context()

			if err := g.reserve(ctx, key, hash); err != nil {
				var existing *storedResponse
				if errors.As(err, &existing) {
					g.replay(ctx, w, clientKey, existing.record)
					return
				}
				responses.WriteError(ctx, g.logg, w, err)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			g.commit(ctx, key, hash, capture, ttl)
		})
	}
}

// storedResponse carries a finished record found while reserving.
type storedResponse struct{ record idempotencyRecord }

func (s *storedResponse) Error() string { return "idempotent response stored" }

// reserve claims key for this request. A finished record for the same body
// comes back as *storedResponse.
func (g *IdempotencyGuard) reserve(ctx context.Context, key, hash string) error {
	marker, err := json.Marshal(idempotencyRecord{RequestHash: hash})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode idempotency marker")
	}
	claimed, err := g.store.SetNX(ctx, key, string(marker), inflightTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key")
	}
	if claimed {
		return nil
	}

	raw, err := g.store.Get(ctx, key)
	if errors.Is(err, pkgredis.Nil) {
		return pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in progress")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
	}
	var record idempotencyRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	switch {
	case record.RequestHash != hash:
		return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	case record.inFlight():
		return pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in progress")
	}
	return &storedResponse{record: record}
}

// commit stores the captured response. 5xx answers free the key so the
// client can retry.
func (g *IdempotencyGuard) commit(ctx context.Context, key, hash string, capture *responseCapture, ttl time.Duration) {
	status := capture.statusOrOK()
	if status >= http.StatusInternalServerError {
		if err := g.store.Del(ctx, key); err != nil {
			g.logError(ctx, "release idempotency key", err)
		}
		return
	}

	record := idempotencyRecord{
		Status:      status,
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
		RequestHash: hash,
	}
	if ct := capture.Header().Get("Content-Type"); ct != "" {
		record.Headers = map[string]string{"Content-Type": ct}
	}
	payload, err := json.Marshal(record)
	if err != nil {
		g.logError(ctx, "marshal idempotency record", err)
		return
	}
	if err := g.store.Set(ctx, key, string(payload), ttl); err != nil {
		g.logError(ctx, "persist idempotency record", err)
	}
}

func (g *IdempotencyGuard) replay(ctx context.Context, w http.ResponseWriter, clientKey string, record idempotencyRecord) {
	if g.logg != nil {
		g.logg.Info(g.logg.WithField(ctx, "idempotency_key", clientKey), "idempotency.replay")
	}
	if ct := record.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func (g *IdempotencyGuard) logError(ctx context.Context, msg string, err error) {
	if g.logg != nil {
		g.logg.Error(ctx, msg, err)
	}
}

// requestScope ties a key to the caller and path so two customers, or one
// customer's checkout and order create, never share replays.
func requestScope(r *http.Request) string {
	return strings.Join([]string{
		CustomerIDFromContext(r.Context()).String(),
		string(RoleFromContext(r.Context())),
		r.Method,
		r.URL.Path,
	}, "|")
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
