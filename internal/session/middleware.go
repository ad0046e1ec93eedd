package session

import (
	"log/slog"
	"net/http"

	"github.com/fjod/storefront/internal/logger"
)

// Middleware attaches the visitor session to the request context and writes the
// cookie back when a handler changed it.
func (m *Manager) Middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := m.Load(r)
			sw := &writer{ResponseWriter: w, flush: func() {
				if !s.Dirty() {
					return
				}
				if err := m.Save(w, s); err != nil {
					logger.FromContext(r.Context(), log).Error("failed to save session", "error", err)
				}
			}}
			next.ServeHTTP(sw, r.WithContext(WithSession(r.Context(), s)))
			sw.commit()
		})
	}
}

// writer saves the session right before the header goes out.
type writer struct {
	http.ResponseWriter
	flush     func()
	committed bool
}

func (w *writer) commit() {
	if w.committed {
		return
	}
	w.committed = true
	w.flush()
}

func (w *writer) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *writer) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *writer) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
