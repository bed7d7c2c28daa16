package server

import (
	"bufio"
	"compress/gzip"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// middleware is a function that wraps an http.Handler.
type middleware func(http.Handler) http.Handler

// chain applies multiple middleware in order.
func chain(h http.Handler, mw ...middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// recoveryMiddleware turns a handler panic into the generic error page.
func recoveryMiddleware(logger *slog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.ErrorContext(r.Context(), "panic recovered",
						slog.Any("err", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
					)
					respondError(w, logger)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// gzipMiddleware compresses response bodies when the client accepts gzip.
// Websocket upgrades and range requests pass through untouched.
func gzipMiddleware(logger *slog.Logger) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if websocket.IsWebSocketUpgrade(r) ||
				r.Header.Get("Range") != "" ||
				!strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}

			gzw := &gzipResponseWriter{ResponseWriter: w, logger: logger}
			defer gzw.finish()
			next.ServeHTTP(gzw, r)
		})
	}
}

// gzipResponseWriter holds the status back until the first body byte, so
// responses without a body (304, 204, HEAD, empty 200) go out uncompressed.
type gzipResponseWriter struct {
	http.ResponseWriter
	logger  *slog.Logger
	gz      *gzip.Writer
	status  int
	started bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.started || w.status != 0 {
		return
	}
	if status < http.StatusOK {
		w.ResponseWriter.WriteHeader(status)
		return
	}
	w.status = status
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if len(b) == 0 && !w.started {
		return 0, nil
	}
	w.start(true)
	if w.gz == nil {
		return w.ResponseWriter.Write(b)
	}
	return w.gz.Write(b)
}

// start commits the headers. Compression applies only when a body follows and
// the status permits one.
func (w *gzipResponseWriter) start(hasBody bool) {
	if w.started {
		return
	}
	w.started = true
	if w.status == 0 {
		w.status = http.StatusOK
	}

	h := w.Header()
	if hasBody && bodyAllowed(w.status) && h.Get("Content-Encoding") == "" {
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
		h.Add("Vary", "Accept-Encoding")
		w.gz = gzip.NewWriter(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(w.status)
}

// finish flushes a pending status and terminates the gzip stream.
func (w *gzipResponseWriter) finish() {
	if !w.started && w.status != 0 {
		w.start(false)
	}
	if w.gz == nil {
		return
	}
	if err := w.gz.Close(); err != nil {
		w.logger.Warn("close gzip stream", slog.Any("err", err))
	}
}

// Flush implements http.Flusher.
func (w *gzipResponseWriter) Flush() {
	w.start(true)
	if w.gz != nil {
		if err := w.gz.Flush(); err != nil {
			w.logger.Warn("flush gzip stream", slog.Any("err", err))
		}
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *gzipResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func bodyAllowed(status int) bool {
	return status >= http.StatusOK && status != http.StatusNoContent && status != http.StatusNotModified
}

// loggingMiddleware logs one line per request when verbose.
func loggingMiddleware(logger *slog.Logger, verbose bool) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !verbose {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("uri", r.RequestURI),
				slog.Int("status", sw.status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", r.RemoteAddr),
			}
			if cl := r.Header.Get("Content-Length"); cl != "" {
				if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
					attrs = append(attrs, slog.Int64("bytes_in", n))
				}
			}
			if sw.hijacked {
				attrs = append(attrs, slog.Bool("upgraded", true))
			}

			logger.LogAttrs(r.Context(), slog.LevelInfo, "http request", attrs...)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status   int
	hijacked bool
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.status = http.StatusSwitchingProtocols
	w.hijacked = true
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
