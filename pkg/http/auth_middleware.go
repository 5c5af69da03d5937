package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// AnonymousUser is the identity recorded when authentication is disabled
const AnonymousUser = "anonymous"

type contextKey string

const userContextKey contextKey = "user"

// UserInfo is the authenticated caller
type UserInfo struct {
	UserID string `json:"user_id"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// APIKeys maps key to user id; empty disables authentication
	APIKeys     map[string]string
	ExemptPaths []string
}

// AuthMiddleware checks API keys sent as a bearer token or X-API-Key
type AuthMiddleware struct {
	logger *logrus.Logger
	config *AuthConfig
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(logger *logrus.Logger, config *AuthConfig) *AuthMiddleware {
	if config == nil {
		config = &AuthConfig{}
	}
	if config.ExemptPaths == nil {
		config.ExemptPaths = []string{"/health", "/metrics"}
	}
	return &AuthMiddleware{logger: logger, config: config}
}

// Enabled reports whether any key is configured
func (am *AuthMiddleware) Enabled() bool {
	return len(am.config.APIKeys) > 0
}

// Middleware returns the authentication middleware handler
func (am *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !am.Enabled() {
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), &UserInfo{UserID: AnonymousUser})))
			return
		}

		if r.Method == http.MethodOptions || am.isPathExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		userInfo, ok := am.authenticate(r)
		if !ok {
			am.logger.WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"method": r.Method,
			}).Warning("Authentication failed")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Not authenticated"}`))
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userInfo)))
	})
}

func (am *AuthMiddleware) authenticate(r *http.Request) (*UserInfo, bool) {
	candidates := []string{r.Header.Get("X-API-Key")}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		candidates = append(candidates, strings.TrimPrefix(h, "Bearer "))
	}
	// browsers cannot set headers on websocket upgrades
	if isWebSocketRequest(r) {
		candidates = append(candidates, r.URL.Query().Get("api_key"))
	}

	for _, key := range candidates {
		if key == "" {
			continue
		}
		if user, ok := am.lookup(key); ok {
			return &UserInfo{UserID: user}, true
		}
	}
	return nil, false
}

func (am *AuthMiddleware) lookup(key string) (string, bool) {
	for known, user := range am.config.APIKeys {
		if subtle.ConstantTimeCompare([]byte(known), []byte(key)) == 1 {
			return user, true
		}
	}
	return "", false
}

func (am *AuthMiddleware) isPathExempt(path string) bool {
	for _, exempt := range am.config.ExemptPaths {
		if path == exempt || strings.HasPrefix(path, exempt+"/") {
			return true
		}
	}
	return false
}

func isWebSocketRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

func withUser(ctx context.Context, u *UserInfo) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext returns the caller's id, or AnonymousUser
func UserFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(userContextKey).(*UserInfo); ok && u.UserID != "" {
		return u.UserID
	}
	return AnonymousUser
}

// CORSMiddleware allows the listed origins; "*" allows any
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				h := w.Header()
				if allowAll {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Set("Access-Control-Allow-Credentials", "true")
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
