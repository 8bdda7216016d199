package http

import (
	"context"
	"encoding/json"
	"net"
	stdhttp "net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/senzi/llm-render-box/internal/idgen"
)

const (
	rateLimitMessage   = "You are sending requests a bit too quickly. Please wait a moment and try again."
	panicMessage       = "Something went wrong while handling this request."
	sentryFlushTimeout = 2 * time.Second
)

type middleware = func(huma.Context, func(huma.Context))

type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func (s *Server) sentryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.sentry == nil {
			next(ctx)
			return
		}

		hub := s.sentry.Clone()
		scope := hub.Scope()
		scope.SetTag("http.method", ctx.Method())
		if op := ctx.Operation(); op != nil {
			scope.SetTag("http.route", op.Path)
		}
		if id := ctx.Param("id"); id != "" {
			scope.SetTag("page_id", id)
		}

		ctx = huma.WithContext(ctx, sentry.SetHubOnContext(ctx.Context(), hub))
		defer hub.Flush(sentryFlushTimeout)

		next(ctx)
	}
}

func (s *Server) recoveryMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			err, ok := rec.(error)
			if !ok {
				err = eris.Errorf("panic: %v", rec)
			}
			s.recordError(ctx.Context(), err, "panic recovered", logrus.Fields{"method": ctx.Method()})

			if hub := sentry.GetHubFromContext(ctx.Context()); hub != nil {
				hub.RecoverWithContext(ctx.Context(), rec)
				hub.Flush(sentryFlushTimeout)
			}

			s.writeFailure(ctx, stdhttp.StatusInternalServerError, panicMessage)
		}()

		next(ctx)
	}
}

// requestIDMiddleware reuses a well-formed inbound X-Request-ID and mints one otherwise.
func (s *Server) requestIDMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		reqID, err := idgen.Parse(strings.TrimSpace(ctx.Header("X-Request-ID")))
		if err != nil {
			reqID = s.requestIDs()
		}

		goCtx := context.WithValue(ctx.Context(), requestIDContextKey, reqID)
		if hub := sentry.GetHubFromContext(goCtx); hub != nil {
			hub.Scope().SetTag("request_id", reqID)
		}

		ctx = huma.WithContext(ctx, goCtx)
		ctx.SetHeader("X-Request-ID", reqID)

		next(ctx)
	}
}

func (s *Server) rateLimitMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		req, _ := humago.Unwrap(ctx)
		if s.rateLimiter == nil || req == nil {
			next(ctx)
			return
		}

		ip := clientIPFromRequest(req)
		if s.rateLimiter.Allow(ip) {
			next(ctx)
			return
		}

		if s.logger != nil {
			s.logger.WithFields(s.requestFields(ctx, req)).
				WithField("ip", ip).
				Warn("request rate limited")
		}

		ctx.SetHeader("Retry-After", "1")
		s.writeFailure(ctx, stdhttp.StatusTooManyRequests, rateLimitMessage)
	}
}

func (s *Server) loggingMiddleware() middleware {
	return func(ctx huma.Context, next func(huma.Context)) {
		if s.logger == nil {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		status := ctx.Status()
		if status == 0 {
			status = stdhttp.StatusOK
		}

		req, _ := humago.Unwrap(ctx)
		fields := s.requestFields(ctx, req)
		fields["status"] = status
		fields["duration_ms"] = float64(time.Since(start).Microseconds()) / 1000

		s.logger.WithFields(fields).Log(statusLogLevel(status), "request completed")
	}
}

// requestFields collects the log fields shared by every request-scoped entry.
func (s *Server) requestFields(ctx huma.Context, req *stdhttp.Request) logrus.Fields {
	fields := logrus.Fields{"method": ctx.Method()}
	if op := ctx.Operation(); op != nil {
		fields["route"] = op.Path
	}
	if req != nil {
		fields["path"] = req.URL.Path
		fields["remote_addr"] = req.RemoteAddr
	}
	if requestID := RequestIDFromContext(ctx.Context()); requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

// writeFailure answers API routes with problem JSON and view routes with the HTML error page.
func (s *Server) writeFailure(ctx huma.Context, status int, message string) {
	req, _ := humago.Unwrap(ctx)
	if wantsProblemJSON(req) {
		writeProblem(ctx, status, message)
		return
	}

	resp, _ := s.renderErrorResponse(ctx.Context(), status, message)
	ctx.SetHeader("Content-Type", resp.ContentType)
	ctx.SetStatus(status)
	_, _ = ctx.BodyWriter().Write(resp.Body)
}

func writeProblem(ctx huma.Context, status int, detail string) {
	body, err := json.Marshal(problem{
		Title:  stdhttp.StatusText(status),
		Status: status,
		Detail: detail,
	})
	if err != nil {
		body = []byte(`{"status":500}`)
	}

	ctx.SetHeader("Content-Type", "application/problem+json")
	ctx.SetStatus(status)
	_, _ = ctx.BodyWriter().Write(body)
}

func wantsProblemJSON(req *stdhttp.Request) bool {
	return req != nil && strings.HasPrefix(req.URL.Path, "/api/")
}

func statusLogLevel(status int) logrus.Level {
	switch {
	case status >= 500:
		return logrus.ErrorLevel
	case status == stdhttp.StatusTooManyRequests:
		return logrus.WarnLevel
	default:
		return logrus.InfoLevel
	}
}

func clientIPFromRequest(req *stdhttp.Request) string {
	if req == nil {
		return ""
	}

	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if candidate := strings.TrimSpace(first); candidate != "" {
			return candidate
		}
	}

	if realIP := strings.TrimSpace(req.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}
