package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// How long a reservation holds before the handler must have finished.
	provisionalLockTTL = 60 * time.Second
	// Allowed client/server clock skew for Ax-Request-At.
	maxClockSkew = 10 * time.Minute
	storeTimeout = 2 * time.Second
)

type idempEntry struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	RequestID   string    `json:"request_id"`
	RequestAtMS int64     `json:"request_at_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }
func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}
func (r *respRecorder) WriteHeader(statusCode int) { r.code = statusCode; r.w.WriteHeader(statusCode) }

var clock = func() time.Time { return time.Now().UTC() }

// IdempotencyMiddleware makes credit submissions, listing accepts and pool
// edits safe to retry. An entry is keyed by method, path, Ax-Actor-Id and
// Ax-Request-Id. A finished 2xx/4xx response is replayed for ttl; a 5xx
// releases the key so the same request id can be retried.
func IdempotencyMiddleware(rdb *redis.Client, ttl time.Duration, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	store := entryStore{rdb: rdb, ttl: ttl}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			hdr, err := readHeaders(req.Header, clock())
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			c.Set(actorContextKey, hdr.Actor)

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			sum := digest(body)

			key := requestKey{Method: req.Method, Path: req.URL.Path, Actor: hdr.Actor, RequestID: hdr.RequestID}
			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			entry := idempEntry{
				InProgress:  true,
				BodySHA256:  sum,
				RequestID:   hdr.RequestID,
				RequestAtMS: hdr.At.UnixMilli(),
				CreatedAt:   clock(),
			}
			reserved, err := store.reserve(ctx, key, entry)
			if err != nil {
				log.Warn("idempotency reserve failed", zap.String("key", key.String()), zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "idempotency store unavailable"})
			}
			if !reserved {
				cur, err := store.load(ctx, key)
				if err != nil && !errors.Is(err, errNoEntry) {
					log.Warn("idempotency entry load failed", zap.String("key", key.String()), zap.Error(err))
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != sum {
					return c.JSON(http.StatusConflict, map[string]string{"error": HeaderRequestID + " reused with different body"})
				}
				if !cur.InProgress && cur.Code != 0 && len(cur.Body) > 0 {
					return c.Blob(cur.Code, echo.MIMEApplicationJSON, cur.Body)
				}
				return c.JSON(http.StatusConflict, map[string]string{"error": "request is already in progress"})
			}

			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			// the request context may already be done once the handler returns
			saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(req.Context()), storeTimeout)
			defer saveCancel()
			if rec.code >= http.StatusInternalServerError {
				if err := store.drop(saveCtx, key); err != nil {
					log.Warn("idempotency entry drop failed", zap.String("key", key.String()), zap.Error(err))
				}
				return nil
			}
			final := entry
			final.InProgress = false
			final.Code = rec.code
			final.Body = rec.buf.Bytes()
			final.CreatedAt = clock()
			if err := store.finish(saveCtx, key, final); err != nil {
				log.Warn("idempotency entry save failed", zap.String("key", key.String()), zap.Error(err))
			}
			return nil
		}
	}
}
