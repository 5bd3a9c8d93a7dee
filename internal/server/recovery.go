package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
)

// recovery turns handler panics into a logged 500 whose body names the
// fault. handlers.RecoveryHandler recovers and logs; panicWriter supplies
// the body when it writes the status.
func (s *Server) recovery() func(http.Handler) http.Handler {
	recoverer := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slogRecoveryLogger{log: s.log}),
		handlers.PrintRecoveryStack(false),
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pw := &panicWriter{ResponseWriter: w}
			marked := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if v := recover(); v != nil {
						pw.panicked = true
						pw.value = v
						panic(v)
					}
				}()
				next.ServeHTTP(w, r)
			})
			recoverer(marked).ServeHTTP(pw, r)
		})
	}
}

// panicWriter passes writes through until the wrapped handler panics. The
// recoverer's WriteHeader(500) then becomes a plain-text error, or is
// dropped if the response had already started.
type panicWriter struct {
	http.ResponseWriter
	wroteHeader bool
	panicked    bool
	value       any
}

func (w *panicWriter) WriteHeader(code int) {
	if w.panicked {
		if w.wroteHeader {
			return
		}
		w.wroteHeader = true
		http.Error(w.ResponseWriter, fmt.Sprintf("Internal Server Error: %v", w.value), http.StatusInternalServerError)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *panicWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *panicWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
