package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/conduit-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/conduit-storefront/pkg/errors"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyPolicy says how long a response is replayable and whether the
// route refuses requests that carry no key.
type IdempotencyPolicy struct {
	TTL      time.Duration
	Required bool
}

var (
	// IdempotencyRequired guards creates: registrations and quote submissions.
	IdempotencyRequired = IdempotencyPolicy{TTL: 24 * time.Hour, Required: true}
	// IdempotencyCheckout guards order placement, which is retried by clients
	// across longer outages.
	IdempotencyCheckout = IdempotencyPolicy{TTL: 7 * 24 * time.Hour, Required: true}
	// IdempotencyOptional replays state changes for callers that send a key.
	IdempotencyOptional = IdempotencyPolicy{TTL: 24 * time.Hour}
)

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// idempotencyEntry is what lives under a key: a reservation while the first
// request runs, then the captured response.
type idempotencyEntry struct {
	RequestHash string `json:"request_hash"`
	Done        bool   `json:"done"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotent replays the first response stored for a caller's key. The key is
// reserved before the handler runs, so a concurrent duplicate gets CONFLICT
// instead of executing twice. 5xx responses and panics drop the reservation
// so the client can retry with the same key.
func Idempotent(store idempotencyStore, logg *logger.Logger, policy IdempotencyPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if id == "" {
				if policy.Required {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyKeyHeader+" header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			hash := hex.EncodeToString(sum[:])
			key := store.IdempotencyKey(idempotencyScope(r), id)

			reserved, err := reserve(ctx, store, key, hash, policy.TTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replay(ctx, logg, w, store, key, hash)
				return
			}

			// the client may be gone by the time the handler returns
			persistCtx := context.WithoutCancel(ctx)
			capture := &responseCapture{ResponseWriter: w}
			defer func() {
				if rec := recover(); rec != nil {
					release(persistCtx, logg, store, key)
					panic(rec)
				}
				finish(persistCtx, logg, store, key, hash, capture, policy.TTL)
			}()
			next.ServeHTTP(capture, r)
		})
	}
}

// finish stores the captured response for replay. Server errors release the
// reservation instead.
func finish(ctx context.Context, logg *logger.Logger, store idempotencyStore, key, hash string, capture *responseCapture, ttl time.Duration) {
	status := capture.statusCode()
	if status >= http.StatusInternalServerError {
		release(ctx, logg, store, key)
		return
	}
	raw, _ := json.Marshal(idempotencyEntry{
		RequestHash: hash,
		Done:        true,
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
	})
	if err := store.Set(ctx, key, string(raw), ttl); err != nil && logg != nil {
		logg.Error(ctx, "persist idempotent response", err)
	}
}

func release(ctx context.Context, logg *logger.Logger, store idempotencyStore, key string) {
	if err := store.Del(ctx, key); err != nil && logg != nil {
		logg.Error(ctx, "release idempotency key", err)
	}
}

func reserve(ctx context.Context, store idempotencyStore, key, hash string, ttl time.Duration) (bool, error) {
	raw, _ := json.Marshal(idempotencyEntry{RequestHash: hash})
	return store.SetNX(ctx, key, string(raw), ttl)
}

func replay(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, store idempotencyStore, key, hash string) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		// the first request failed and released the key between our SETNX and GET
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is being retried, try again"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency key"))
		return
	}
	var entry idempotencyEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	switch {
	case entry.RequestHash != hash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
	case !entry.Done:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress"))
	default:
		if entry.ContentType != "" {
			w.Header().Set("Content-Type", entry.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(entry.Status)
		_, _ = w.Write(entry.Body)
	}
}

// idempotencyScope keys entries by caller so two owners can send the same key
// value. Anonymous checkout is scoped by the cart owner.
func idempotencyScope(r *http.Request) string {
	caller := UserIDFromContext(r.Context())
	if caller == "" {
		caller = CartOwnerFromContext(r.Context())
	}
	if caller == "" {
		caller = strings.TrimSpace(r.Header.Get(CartOwnerHeader))
	}
	if caller == "" {
		caller = "anon"
	}
	return caller + "|" + r.Method + "|" + strings.TrimSuffix(r.URL.Path, "/")
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
