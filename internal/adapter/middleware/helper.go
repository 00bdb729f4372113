package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"p2p-credit-origination/pkg/id"
)

// Headers every mutating route must carry.
const (
	HeaderRequestID = "Ax-Request-Id"
	HeaderRequestAt = "Ax-Request-At"
	HeaderActorID   = "Ax-Actor-Id"
)

const actorContextKey = "idempotency.actor"

var reUUID = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[1-5][a-f0-9]{3}-[89ab][a-f0-9]{3}-[a-f0-9]{12}$`)

// ActorID is the borrower, lender or investor that sent the request, as
// checked by IdempotencyMiddleware. Empty when the middleware did not run.
func ActorID(c echo.Context) string {
	s, _ := c.Get(actorContextKey).(string)
	return s
}

// requestKey names one logical mutation. Path is the concrete request path,
// so accepting two different listings never shares an entry.
type requestKey struct {
	Method    string
	Path      string
	Actor     string
	RequestID string
}

func (k requestKey) String() string {
	return "p2p:idemp:" + strings.ToLower(k.Method) + ":" + k.Path + ":" + k.Actor + ":" + k.RequestID
}

type headerError string

func (e headerError) Error() string { return string(e) }

type requestHeaders struct {
	RequestID string
	Actor     string
	At        time.Time
}

// readHeaders checks the idempotency headers against now.
func readHeaders(h http.Header, now time.Time) (requestHeaders, error) {
	var out requestHeaders

	out.RequestID = strings.TrimSpace(h.Get(HeaderRequestID))
	switch {
	case out.RequestID == "":
		return out, headerError("missing " + HeaderRequestID)
	case !id.Valid(out.RequestID) && !reUUID.MatchString(out.RequestID):
		return out, headerError("invalid " + HeaderRequestID + " format")
	}

	at, err := parseRequestAt(h.Get(HeaderRequestAt))
	if err != nil {
		return out, err
	}
	if at.Before(now.Add(-maxClockSkew)) || at.After(now.Add(maxClockSkew)) {
		return out, headerError(HeaderRequestAt + " too skewed")
	}
	out.At = at

	out.Actor = strings.TrimSpace(h.Get(HeaderActorID))
	switch {
	case out.Actor == "":
		return out, headerError("missing " + HeaderActorID)
	case !id.Valid(out.Actor):
		return out, headerError("invalid " + HeaderActorID)
	}
	return out, nil
}

// parseRequestAt takes epoch seconds, epoch milliseconds or RFC3339 with a
// zone. Timestamps without a zone are refused.
func parseRequestAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, headerError("missing " + HeaderRequestAt)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, headerError(HeaderRequestAt + " must be epoch (s/ms) or RFC3339 with timezone")
	}
	return t.UTC(), nil
}

func digest(b []byte) string { s := sha256.Sum256(b); return hex.EncodeToString(s[:]) }

// entryStore keeps idempotency entries in Redis. A reserved entry lives for
// provisionalLockTTL; a finished one for ttl.
type entryStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var errNoEntry = errors.New("idempotency entry not found")

func (s entryStore) reserve(ctx context.Context, key requestKey, e idempEntry) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, key.String(), payload, provisionalLockTTL).Result()
}

func (s entryStore) load(ctx context.Context, key requestKey) (idempEntry, error) {
	var e idempEntry
	v, err := s.rdb.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, errNoEntry
	}
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(v, &e)
	return e, err
}

func (s entryStore) finish(ctx context.Context, key requestKey, e idempEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key.String(), payload, s.ttl).Err()
}

// drop forgets a reservation so the client may retry with the same request id.
func (s entryStore) drop(ctx context.Context, key requestKey) error {
	return s.rdb.Del(ctx, key.String()).Err()
}
