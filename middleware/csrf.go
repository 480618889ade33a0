package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/nextyou21/planner-backend/utils"
	"go.uber.org/zap"
)

// CSRFProtection wraps the double-submit token check around the gin chain
// and surfaces the token to clients through the X-CSRF-Token header.
func CSRFProtection(authKey []byte) gin.HandlerFunc {
	protect := csrf.Protect(
		authKey,
		csrf.Secure(utils.GetEnv("CSRF_SECURE", "true") == "true"),
		csrf.HttpOnly(true),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(rejectCSRF)),
	)

	return func(c *gin.Context) {
		handler := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Header("X-CSRF-Token", csrf.Token(r))
			c.Next()
		}))
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

func rejectCSRF(w http.ResponseWriter, r *http.Request) {
	utils.Logger.Warn("csrf_rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("client_ip", r.RemoteAddr),
	)
	utils.ErrorCount.WithLabelValues("csrf", "token_invalid").Inc()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error": "Invalid CSRF token"}`))
}
