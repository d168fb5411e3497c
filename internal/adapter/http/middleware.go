package adapthttp

import (
	"net/http"
	"time"

	"petmatch/internal/app"

	"go.uber.org/zap"
)

// guard admits a request only when policy allows the current session. While
// the session is still being restored it shows the interstitial; otherwise a
// denied request is redirected to the login view. The wrapped handler never
// runs for a denied request.
func (s *Server) guard(policy app.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch outcome := policy.Check(s.sessions); outcome {
			case app.OutcomeAllow:
				next.ServeHTTP(w, r)
			case app.OutcomePending:
				w.Header().Set("Refresh", "1")
				d := s.newView("Verificando sessão")
				d.Refresh = true
				s.render(w, http.StatusOK, checkingView, d)
			case app.OutcomeRedirectLogin:
				s.log.Debug("access denied",
					zap.String("path", r.URL.Path),
					zap.Stringer("policy", policy))
				http.Redirect(w, r, "/login", http.StatusFound)
			default:
				http.Redirect(w, r, "/login", http.StatusFound)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs one line per request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
