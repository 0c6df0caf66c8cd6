package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/classmate-app/classmate/internal/config"
)

// ResponseCache caches successful JSON responses of the student browse
// endpoints in Redis. Availability listings change whenever a session is
// created, edited or joined, so every mutation bumps a generation
// counter embedded in the cache keys; stale generations simply expire.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

// NewResponseCache returns a cache over the given client. A nil client
// disables caching entirely.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) *ResponseCache {
	return &ResponseCache{cfg: cfg, rdb: rdb}
}

func (rc *ResponseCache) enabled() bool { return rc != nil && rc.cfg.Enabled && rc.rdb != nil }

// Invalidate bumps the generation counter, orphaning every cached
// listing at once. Errors are ignored: a failed bump only means one TTL
// window of staleness.
func (rc *ResponseCache) Invalidate(ctx context.Context) {
	if !rc.enabled() {
		return
	}
	_ = rc.rdb.Incr(ctx, rc.cfg.Prefix+":gen").Err()
}

func (rc *ResponseCache) key(ctx context.Context, c echo.Context) string {
	gen, _ := rc.rdb.Get(ctx, rc.cfg.Prefix+":gen").Int64()
	r := c.Request()
	// Listings are identity-scoped (a monitor filter, a student view),
	// so the caller id participates in the key.
	user := fmt.Sprint(c.Get(CtxUserID))
	sum := sha1.Sum([]byte(c.Path() + "?" + r.URL.RawQuery + "#" + user))
	return fmt.Sprintf("%s:g%d:%x", rc.cfg.Prefix, gen, sum[:])
}

// captureWriter forwards the response to the client while keeping a
// copy for the cache.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	cw.buf.Write(b)
	return cw.ResponseWriter.Write(b)
}

// Middleware serves GET responses from the cache when possible and
// stores 200 responses on miss. Non-GET requests and error responses
// pass through untouched.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if !rc.enabled() {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
			defer cancel()

			key := rc.key(ctx, c)
			if body, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				return err
			}
			if cw.status == http.StatusOK && cw.buf.Len() > 0 {
				_ = rc.rdb.Set(ctx, key, cw.buf.Bytes(), rc.cfg.TTL).Err()
			}
			return nil
		}
	}
}
