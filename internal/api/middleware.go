// ABOUTME: HTTP middleware owned by the API: access logging and idempotent replays
// ABOUTME: Both wrap chi's response writer so status and body can be observed

package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/freegoat/manga-admin/internal/auth"
	"github.com/freegoat/manga-admin/internal/dedupe"
)

// IdempotencyHeader names the header clients set to make a POST replayable.
const IdempotencyHeader = "Idempotency-Key"

// accessLog logs one line per request.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// idempotent replays the first response for a repeated Idempotency-Key.
// Keys are scoped to the caller and route. Server errors are not remembered.
func (s *Server) idempotent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(IdempotencyHeader)
		if s.idem == nil || header == "" {
			next(w, r)
			return
		}

		key := auth.Actor(r.Context()) + " " + r.Method + " " + r.URL.Path + " " + header
		if prev, ok := s.idem.Lookup(key); ok {
			s.replay(w, r, prev)
			return
		}
		if prev, claimed := s.idem.Claim(key); !claimed {
			if prev == nil {
				writeEnvelope(w, http.StatusConflict, "A request with this Idempotency-Key is still in progress", nil)
				return
			}
			s.replay(w, r, prev)
			return
		}

		// The claim must not outlive this request, even when next panics.
		completed := false
		defer func() {
			if !completed {
				s.idem.Release(key)
			}
		}()

		var body bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&body)

		next(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if status >= http.StatusInternalServerError {
			return
		}
		s.idem.Complete(key, &dedupe.Response{
			Status:      status,
			ContentType: ww.Header().Get("Content-Type"),
			Body:        body.Bytes(),
		})
		completed = true
	}
}

func (s *Server) replay(w http.ResponseWriter, r *http.Request, prev *dedupe.Response) {
	s.logger.Debug("replaying idempotent response", "path", r.URL.Path)
	prev.WriteTo(w)
}
