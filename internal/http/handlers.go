package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"github.com/senzi/llm-render-box/internal/db"
	"github.com/senzi/llm-render-box/internal/http/templates"
	"github.com/senzi/llm-render-box/internal/pages"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	updatedLabelLayout   = "2006-01-02 15:04:05"
	errorFallbackMessage = "We couldn't process your request right now."
)

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type previewInput struct {
	ID string `path:"id"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Pages    int    `json:"pages"`
		Loading  bool   `json:"loading"`
	}
}

func (s *Server) registerHomeRoute() {
	huma.Get(s.api, "/", s.homeHandler, htmlOperation("Page index", stdhttp.StatusInternalServerError))
}

func (s *Server) registerPreviewRoute() {
	huma.Get(s.api, "/pages/{id}/preview", s.previewHandler, htmlOperation(
		"Preview page",
		stdhttp.StatusNotFound,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) homeHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	state := s.pages.Snapshot()

	views := make([]templates.PageSummaryView, 0, len(state.Pages))
	for _, page := range state.Pages {
		views = append(views, templates.PageSummaryView{
			ID:            page.ID,
			Title:         page.Title,
			DocumentTitle: pages.DocumentTitle(page.Code),
			UpdatedLabel:  formatMillis(page.UpdatedAt),
			PreviewURL:    "/pages/" + page.ID + "/preview",
			Current:       page.ID == state.CurrentID(),
			HasThumbnail:  page.Thumbnail != nil,
		})
	}

	body, err := renderComponent(ctx, templates.IndexPage(templates.IndexPageData{
		Title: "LLM Render Box",
		Pages: views,
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering index page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the page index.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) previewHandler(ctx context.Context, input *previewInput) (*htmlResponse, error) {
	id := strings.TrimSpace(input.ID)
	page := s.pages.FindPage(id)
	if page == nil {
		return s.renderErrorResponse(ctx, stdhttp.StatusNotFound, "We couldn't find that page.")
	}

	body, err := renderComponent(ctx, templates.RawHTML(page.Code))
	if err != nil {
		s.recordError(ctx, err, "rendering page preview", logrus.Fields{"page_id": id})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"
	resp.Body.Pages = len(s.pages.Pages())
	resp.Body.Loading = s.pages.Loading()

	if err := db.Ping(ctx, s.db); err != nil {
		s.recordError(ctx, err, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	template := templates.ErrorPage(templates.ErrorPageData{
		Title:       label + " • LLM Render Box",
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, template)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return time.UnixMilli(ms).UTC().Format(updatedLabelLayout)
}
