package middleware

import (
	"net/http"

	"github.com/diewo77/sales-portal/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request an id (reusing an inbound one) and stores a
// request-scoped logger carrying it in the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		log := logger.GetLogger().With(zap.String("request_id", requestID))
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), log)))
	})
}
