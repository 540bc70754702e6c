package proxy

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// corsMiddleware lets the browser client call the proxy cross-origin.
func corsMiddleware(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures what the logging middleware reports.
type statusRecorder struct {
	http.ResponseWriter
	status int
	model  string
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// setLogModel attaches the resolved model to the request log entry.
func setLogModel(w http.ResponseWriter, model string) {
	if rec, ok := w.(*statusRecorder); ok {
		rec.model = model
	}
}

// loggingMiddleware writes one entry per request. Bodies are never logged.
func loggingMiddleware(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := logrus.Fields{
			"remote":   r.RemoteAddr,
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}
		if rec.model != "" {
			fields["model"] = rec.model
		}
		entry := log.WithFields(fields)
		if rec.status >= 500 {
			entry.Warn("request failed")
			return
		}
		entry.Info("request")
	})
}

// logAndReturnError answers with a plain-text body. consoleStr, when given,
// replaces the body in the log entry.
func logAndReturnError(log logrus.FieldLogger, w http.ResponseWriter, httpResponseStr string, code int, consoleStr ...string) {
	if len(consoleStr) > 0 {
		log.Errorln(consoleStr[0])
	} else {
		log.Errorln(httpResponseStr)
	}
	http.Error(w, httpResponseStr, code)
}
