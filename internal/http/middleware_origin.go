package httpx

import (
	"net/http"

	"github.com/target/mmk-sessiongate/internal/service"
)

// isSafeMethod reports whether method cannot change server state.
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

// RequireOrigin rejects state-changing requests whose Origin header the guard
// refuses. Rejected requests get a 403 before the body is read or any cookie
// work happens; GET, HEAD, OPTIONS and TRACE pass through unchecked.
func RequireOrigin(guard *service.CSRFGuard, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if err := guard.Validate(origin); err != nil {
				info := readRequestInfo(r, trustProxy)
				guard.ReportRejection(r.Context(), service.Rejection{
					Err:        err,
					Origin:     origin,
					Method:     r.Method,
					Path:       r.URL.Path,
					RemoteAddr: info.RemoteAddr,
					Hostname:   info.Context.Hostname,
				})
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: service.RejectionCode(err),
					Err:     err,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
