package middleware

import (
	"context"
	"net/http"

	"github.com/rs/xid"
)

// CorrelationIDHeader carries the request's correlation ID in both
// directions.
const CorrelationIDHeader = "X-Correlation-ID"

// correlationIDKey is a plain string on purpose: the presenter and service
// layers read the value without importing this package.
const correlationIDKey = "correlation_id"

// CorrelationCtx returns the request's correlation ID, or "" outside a
// request.
func CorrelationCtx(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// CorrelationIDMiddleware accepts a caller-supplied X-Correlation-ID or
// mints one, stores it in the context and mirrors it on the response so
// clients can quote it in bug reports. Audit events reuse the same ID.
func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(CorrelationIDHeader, id)

		r = r.WithContext(context.WithValue(r.Context(), correlationIDKey, id))
		next.ServeHTTP(w, r)
	})
}
