package httpgin

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kirinyoku/meetly/internal/session"
)

const (
	headerRequestID = "X-Request-ID"
	headerSessionID = "X-Session-ID"

	ctxRequestID = "request_id"
	ctxSession   = "session"
)

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		c.Writer.Header().Set(headerRequestID, reqID)
		c.Set(ctxRequestID, reqID)

		c.Next()
	}
}

// SessionMiddleware resolves the X-Session-ID header to an open session and
// aborts with 401 when there is none.
func SessionMiddleware(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := strings.TrimSpace(c.GetHeader(headerSessionID))
		if sid == "" {
			abortErr(c, session.ErrSessionNotFound)
			return
		}

		s, err := sessions.Get(sid)
		if err != nil {
			abortErr(c, err)
			return
		}

		c.Set(ctxSession, s)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(ctxSession).(*session.Session)
}

func CORS() gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Requested-With",
			headerRequestID,
			headerSessionID,
			"Idempotency-Key",
			"If-None-Match",
		},
		ExposeHeaders: []string{
			headerRequestID,
			"ETag",
			"Cache-Control",
			headerCacheState,
		},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	return cors.New(cfg)
}

func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		reqID, _ := c.Get(ctxRequestID)

		attrs := []any{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.Any("request_id", reqID),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", c.Writer.Size()),
		}
		if v, ok := c.Get(ctxSession); ok {
			attrs = append(attrs, slog.String("user_id", v.(*session.Session).UserID))
		}

		if len(c.Errors) > 0 || c.Writer.Status() >= 500 {
			logger.Error("http", slog.Group("http", attrs...), slog.String("errors", c.Errors.String()))
		} else {
			logger.Info("http", slog.Group("http", attrs...))
		}
	}
}
