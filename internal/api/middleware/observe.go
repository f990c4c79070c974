package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	apiContext "hooklens/internal/api/context"
	"hooklens/internal/metrics"
	"hooklens/internal/pkg/errors"
	"hooklens/internal/pkg/parser"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// Observe tags the request with an id, recovers panics, logs the outcome
// and records Prometheus metrics under route.
func Observe(route string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)
			r = r.WithContext(context.WithValue(r.Context(), apiContext.RequestID, requestID))

			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				if p := recover(); p != nil {
					log.Error().
						Str("request_id", requestID).
						Interface("panic", p).
						Bytes("stack", debug.Stack()).
						Msg("Recovered from panic")
					if rec.status == 0 {
						errors.WriteError(rec, http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error", nil)
					}
				}

				duration := time.Since(start)
				status := rec.code()
				metrics.HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
				metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

				event := log.Info()
				if status >= 500 {
					event = log.Error()
				}
				event.
					Str("request_id", requestID).
					Str("route", route).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", rec.bytes).
					Str("ip", parser.ClientIP(r)).
					Dur("duration", duration).
					Msg("Request handled")
			}()

			next(rec, r)
		}
	}
}
