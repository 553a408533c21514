package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	reqctx "github.com/baechuer/storefront-auth/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// maxRequestIDLen caps client supplied ids before they reach logs.
const maxRequestIDLen = 128

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderXRequestID))
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, reqID)

		ctx := reqctx.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
