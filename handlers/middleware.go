// fedistash/handlers/middleware.go
package handlers

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fedistash/metrics"
	"fedistash/utils"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	UserCookieKey ContextKey = "userCookieID"
	CSRFTokenKey  ContextKey = "csrfToken"
)

// CookieMiddleware ensures every user has a persistent unique identifier cookie.
func CookieMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("fedistash_id")
		var userID string
		if err != nil {
			userID = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     "fedistash_id",
				Value:    userID,
				Path:     "/",
				Expires:  utils.GetTime().Add(365 * 24 * time.Hour),
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		} else {
			userID = cookie.Value
		}

		ctx := context.WithValue(r.Context(), UserCookieKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CSRFMiddleware protects mutating requests with a double-submit token.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		csrfCookie, err := r.Cookie("csrf_token")
		var csrfToken string

		if err != nil || csrfCookie.Value == "" {
			csrfToken = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     "csrf_token",
				Value:    csrfToken,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		} else {
			csrfToken = csrfCookie.Value
		}

		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			tokenFromHeader := r.Header.Get("X-CSRF-Token")
			if subtle.ConstantTimeCompare([]byte(tokenFromHeader), []byte(csrfToken)) != 1 {
				http.Error(w, "Invalid CSRF token", http.StatusForbidden)
				return
			}
		}

		ctx := context.WithValue(r.Context(), CSRFTokenKey, csrfToken)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLAN restricts access to a handler to private or loopback IP addresses.
func RequireLAN(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ipStr := utils.GetIPAddress(r)
		ip := net.ParseIP(ipStr)
		if ip == nil || (!ip.IsPrivate() && !ip.IsLoopback()) {
			http.Error(w, "Forbidden: Admin access restricted to LAN", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin checks the X-Admin-Password header against the configured
// bcrypt hash. An empty hash disables the admin surface entirely.
func RequireAdmin(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hash := app.AdminPasswordHash()
			if hash == "" {
				http.Error(w, "Admin access is not configured", http.StatusForbidden)
				return
			}
			password := r.Header.Get("X-Admin-Password")
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
				http.Error(w, "Invalid admin password", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware throttles mutating requests per source IP.
func RateLimitMiddleware(app App) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete:
				limiter := app.RateLimiter().GetLimiter(utils.GetIPAddress(r))
				if !limiter.Allow() {
					http.Error(w, "Too many requests", http.StatusTooManyRequests)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewStructuredLogger emits one slog line per request and feeds the
// request counter. The path label uses the chi route pattern so that
// parameterized routes do not explode metric cardinality.
func NewStructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := utils.GetTime()

			defer func() {
				pattern := ""
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					pattern = rctx.RoutePattern()
				}
				if pattern == "" {
					pattern = r.URL.Path
				}
				metrics.HTTPRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).Inc()
				logger.Info("Request served",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"ip", utils.GetIPAddress(r),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
