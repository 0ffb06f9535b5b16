package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// The bookmarklets post from the upstream site to these paths, so they answer
// cross-origin requests regardless of configuration.
const (
	stagingPath            = "/import-temp"
	translationStagingPath = "/admin/import-translations-temp"
)

// RequestLogger writes one line per request.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

// CORS answers any origin, without credentials, on the bookmarklet posting
// endpoints. The rest of the API is shared only with allowedOrigins; with none
// configured it sends no CORS headers at all.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	public := cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	})

	private := func(next http.Handler) http.Handler { return next }
	if len(allowedOrigins) > 0 {
		private = cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           86400,
		})
	}

	return func(next http.Handler) http.Handler {
		publicNext, privateNext := public(next), private(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isBookmarkletPost(r) {
				publicNext.ServeHTTP(w, r)
				return
			}
			privateNext.ServeHTTP(w, r)
		})
	}
}

func isBookmarkletPost(r *http.Request) bool {
	if r.URL.Path != stagingPath && r.URL.Path != translationStagingPath {
		return false
	}
	return r.Method == http.MethodPost ||
		(r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") == http.MethodPost)
}
