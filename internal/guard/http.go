package guard

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/okrboard/internal/observability/metrics"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

// Interpreter turns decisions into HTTP responses. The per-request session.State
// must already be on the request context.
type Interpreter struct {
	logger *slog.Logger
}

func NewInterpreter(logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{logger: logger}
}

type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

// Wrap enforces req in front of an API handler.
func (i *Interpreter) Wrap(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Evaluate(session.StateFromContext(r.Context()), req, r.URL.Path)
			metrics.ObserveGuardDecision(string(d.Kind))

			switch d.Kind {
			case Allow:
				next.ServeHTTP(w, r)
			case Loading:
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "profile loading"})
			case NoTenant:
				writeJSON(w, http.StatusConflict, errorResponse{Error: "no organization"})
			case Redirect:
				if d.ToLogin() {
					writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required", Redirect: LoginPath})
					return
				}
				i.logger.Debug("route denied",
					slog.String("path", r.URL.Path),
					slog.String("reason", string(d.Reason)),
				)
				writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden", Redirect: d.Path})
			default:
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
			}
		})
	}
}

// ResolveHandler serves GET /api/routes/resolve?path=... for the web client.
func (i *Interpreter) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path is required"})
		return
	}
	d := Resolve(session.StateFromContext(r.Context()), p)
	metrics.ObserveGuardDecision(string(d.Kind))
	writeJSON(w, http.StatusOK, d)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
