package cookie

import (
	"net/http"
)

// A ResponseWriter tracks whether its headers have been sent.
type ResponseWriter struct {
	http.ResponseWriter
	written bool
}

// Wrap returns w as a *ResponseWriter, wrapping it if it is not one already.
func Wrap(w http.ResponseWriter) *ResponseWriter {
	if cw, ok := w.(*ResponseWriter); ok {
		return cw
	}

	return &ResponseWriter{ResponseWriter: w}
}

// Written asserts whether headers have been sent.
func (w *ResponseWriter) Written() bool { return w.written }

func (w *ResponseWriter) WriteHeader(code int) {
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Flush sends buffered data, if the wrapped http.ResponseWriter supports it.
func (w *ResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		w.written = true
		f.Flush()
	}
}

// Unwrap exposes the wrapped http.ResponseWriter to http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
