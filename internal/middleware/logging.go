package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes one structured access log line per request. The level
// follows the status: 5xx error, 4xx warn, everything else info.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// the owner is only known after Authenticate, deeper in the chain
			var ownerID string
			next.ServeHTTP(ww, r.WithContext(withOwnerSlot(r.Context(), &ownerID)))

			status := ww.Status()
			switch {
			case status != 0:
			case websocket.IsWebSocketUpgrade(r):
				// hijacked; the 101 never went through ww
				status = http.StatusSwitchingProtocols
			default:
				status = http.StatusOK
			}

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			}
			if ownerID != "" {
				fields = append(fields, zap.String("owner_id", ownerID))
			}

			level := zapcore.InfoLevel
			switch {
			case status >= 500:
				level = zapcore.ErrorLevel
			case status >= 400:
				level = zapcore.WarnLevel
			}

			if ce := logger.Check(level, "http_request"); ce != nil {
				ce.Write(fields...)
			}
		})
	}
}
