package middleware

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RequestLog is one handled API request
type RequestLog struct {
	Method     string
	Path       string
	StatusCode int
	Duration   time.Duration
	Bytes      int
	Username   string
	IPAddress  string
}

// APILoggingMiddleware writes one log line per API request from a
// background goroutine so slow log sinks never delay a response
type APILoggingMiddleware struct {
	logger  *log.Logger
	logChan chan RequestLog
	done    chan struct{}
	once    sync.Once
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// NewAPILoggingMiddleware starts the writer goroutine; a nil logger uses the standard logger
func NewAPILoggingMiddleware(logger *log.Logger) *APILoggingMiddleware {
	if logger == nil {
		logger = log.Default()
	}
	m := &APILoggingMiddleware{
		logger:  logger,
		logChan: make(chan RequestLog, 1000),
		done:    make(chan struct{}),
	}

	go m.asyncLogWriter()

	return m
}

func (m *APILoggingMiddleware) asyncLogWriter() {
	defer close(m.done)
	for entry := range m.logChan {
		user := entry.Username
		if user == "" {
			user = "-"
		}
		m.logger.Printf("[API] %s %s %d %s %dB user=%s ip=%s",
			entry.Method, entry.Path, entry.StatusCode,
			entry.Duration.Round(time.Microsecond), entry.Bytes, user, entry.IPAddress)
	}
}

// Handler returns the middleware handler. It must wrap the authenticated
// routes from outside so the session username is visible after next returns.
func (m *APILoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		holder := &usernameHolder{}
		next.ServeHTTP(wrapped, r.WithContext(withUsernameHolder(r.Context(), holder)))

		entry := RequestLog{
			Method:     r.Method,
			Path:       sanitizePath(r.URL.Path),
			StatusCode: wrapped.statusCode,
			Duration:   time.Since(start),
			Bytes:      wrapped.bytesWritten,
			Username:   holder.username,
			IPAddress:  getClientIP(r),
		}

		select {
		case m.logChan <- entry:
		default:
			log.Printf("[APILogging] Log buffer full, dropping log entry for %s", r.URL.Path)
		}
	})
}

// Close stops the writer after flushing pending lines
func (m *APILoggingMiddleware) Close() {
	m.once.Do(func() {
		close(m.logChan)
	})
	<-m.done
}

// shouldSkipLogging returns true for paths that shouldn't be logged
func shouldSkipLogging(path string) bool {
	skipPaths := []string{
		"/health",
		"/metrics",
		"/favicon.ico",
	}

	for _, skip := range skipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}

	return false
}

func sanitizePath(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 500 {
		path = path[:500]
	}
	return path
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
