package http

import (
	"context"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"github.com/senzi/llm-render-box/internal/pages"
)

const exportFilename = "llm-render-box-backup.json"

type stateResponse struct {
	Body pages.State
}

type pageResponse struct {
	Body *pages.Page
}

type createPageInput struct {
	Body struct {
		Title *string `json:"title,omitempty" doc:"Page title, defaults to Untitled Snippet"`
		Code  *string `json:"code,omitempty" doc:"Full HTML document, defaults to the blank template"`
	} `required:"false"`
}

type pageIDInput struct {
	ID string `path:"id"`
}

type updatePageInput struct {
	ID   string `path:"id"`
	Body struct {
		Title          *string `json:"title,omitempty"`
		Code           *string `json:"code,omitempty"`
		Thumbnail      *string `json:"thumbnail,omitempty"`
		ClearThumbnail bool    `json:"clearThumbnail,omitempty" doc:"Reset the thumbnail to null"`
	}
}

type setCurrentInput struct {
	Body struct {
		ID string `json:"id" doc:"Page id to select, empty clears the selection"`
	}
}

type currentPageResponse struct {
	Body struct {
		CurrentPageID *string     `json:"currentPageId"`
		Page          *pages.Page `json:"page"`
	}
}

type exportResponse struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

type importInput struct {
	RawBody []byte `contentType:"application/json"`
}

type importResponse struct {
	Body struct {
		Imported int `json:"imported"`
	}
}

func (s *Server) registerListPagesRoute() {
	huma.Get(s.api, "/api/pages", s.listPagesHandler, func(op *huma.Operation) {
		op.Summary = "List pages"
	})
}

func (s *Server) registerCreatePageRoute() {
	huma.Post(s.api, "/api/pages", s.createPageHandler, func(op *huma.Operation) {
		op.Summary = "Create page"
		op.DefaultStatus = stdhttp.StatusCreated
	})
}

func (s *Server) registerReloadRoute() {
	huma.Post(s.api, "/api/pages/reload", s.reloadPagesHandler, func(op *huma.Operation) {
		op.Summary = "Reload pages from storage"
	})
}

func (s *Server) registerCurrentPageRoutes() {
	huma.Get(s.api, "/api/pages/current", s.currentPageHandler, func(op *huma.Operation) {
		op.Summary = "Fetch current page"
	})
	huma.Put(s.api, "/api/pages/current", s.setCurrentPageHandler, func(op *huma.Operation) {
		op.Summary = "Select current page"
	})
}

func (s *Server) registerUpdatePageRoute() {
	huma.Patch(s.api, "/api/pages/{id}", s.updatePageHandler, func(op *huma.Operation) {
		op.Summary = "Update page"
	})
}

func (s *Server) registerDeletePageRoute() {
	huma.Delete(s.api, "/api/pages/{id}", s.deletePageHandler, func(op *huma.Operation) {
		op.Summary = "Delete page"
		op.DefaultStatus = stdhttp.StatusNoContent
	})
}

func (s *Server) registerExportRoute() {
	huma.Get(s.api, "/api/export", s.exportHandler, func(op *huma.Operation) {
		op.Summary = "Export backup"
	})
}

func (s *Server) registerImportRoute() {
	huma.Post(s.api, "/api/import", s.importHandler, func(op *huma.Operation) {
		op.Summary = "Import backup"
	})
}

func (s *Server) listPagesHandler(_ context.Context, _ *struct{}) (*stateResponse, error) {
	return &stateResponse{Body: s.pages.Snapshot()}, nil
}

func (s *Server) createPageHandler(ctx context.Context, input *createPageInput) (*pageResponse, error) {
	page, err := s.pages.CreateNewPage(ctx, pages.CreateParams{
		Title: input.Body.Title,
		Code:  input.Body.Code,
	})
	if err != nil {
		s.recordError(ctx, err, "creating page", nil)
		return nil, huma.Error500InternalServerError("creating page failed")
	}

	return &pageResponse{Body: page}, nil
}

func (s *Server) reloadPagesHandler(ctx context.Context, _ *struct{}) (*stateResponse, error) {
	if err := s.pages.LoadPages(ctx); err != nil {
		s.recordError(ctx, err, "reloading pages", nil)
		return nil, huma.Error500InternalServerError("loading pages failed")
	}

	return &stateResponse{Body: s.pages.Snapshot()}, nil
}

func (s *Server) currentPageHandler(_ context.Context, _ *struct{}) (*pageResponse, error) {
	page := s.pages.CurrentPage()
	if page == nil {
		return nil, huma.Error404NotFound("no page is selected")
	}

	return &pageResponse{Body: page}, nil
}

func (s *Server) setCurrentPageHandler(_ context.Context, input *setCurrentInput) (*currentPageResponse, error) {
	id := strings.TrimSpace(input.Body.ID)
	s.pages.SetCurrentPage(id)

	resp := &currentPageResponse{}
	resp.Body.CurrentPageID = s.pages.Snapshot().CurrentPageID
	resp.Body.Page = s.pages.CurrentPage()
	return resp, nil
}

func (s *Server) updatePageHandler(ctx context.Context, input *updatePageInput) (*pageResponse, error) {
	id := strings.TrimSpace(input.ID)
	page, err := s.pages.UpdatePage(ctx, id, pages.PagePatch{
		Title:          input.Body.Title,
		Code:           input.Body.Code,
		Thumbnail:      input.Body.Thumbnail,
		ClearThumbnail: input.Body.ClearThumbnail,
	})
	if err != nil {
		s.recordError(ctx, err, "updating page", logrus.Fields{"page_id": id})
		return nil, huma.Error500InternalServerError("saving page failed")
	}
	if page == nil {
		return nil, huma.Error404NotFound("page not found")
	}

	return &pageResponse{Body: page}, nil
}

func (s *Server) deletePageHandler(ctx context.Context, input *pageIDInput) (*struct{}, error) {
	id := strings.TrimSpace(input.ID)
	if err := s.pages.DeletePage(ctx, id); err != nil {
		s.recordError(ctx, err, "deleting page", logrus.Fields{"page_id": id})
		return nil, huma.Error500InternalServerError("deleting page failed")
	}

	return nil, nil
}

func (s *Server) exportHandler(ctx context.Context, _ *struct{}) (*exportResponse, error) {
	backup, err := s.pages.ExportAll(ctx)
	if err != nil {
		s.recordError(ctx, err, "exporting pages", nil)
		return nil, huma.Error500InternalServerError("exporting pages failed")
	}

	body, err := pages.EncodeBackup(backup)
	if err != nil {
		s.recordError(ctx, err, "encoding backup", nil)
		return nil, huma.Error500InternalServerError("exporting pages failed")
	}

	return &exportResponse{
		ContentType:        "application/json",
		ContentDisposition: `attachment; filename="` + exportFilename + `"`,
		Body:               body,
	}, nil
}

func (s *Server) importHandler(ctx context.Context, input *importInput) (*importResponse, error) {
	imported, err := s.pages.ImportJSON(ctx, input.RawBody)
	if err != nil {
		if eris.Is(err, pages.ErrInvalidBackup) {
			return nil, huma.Error400BadRequest(pages.ErrInvalidBackup.Error())
		}
		s.recordError(ctx, err, "importing backup", logrus.Fields{"imported": imported})
		return nil, huma.Error500InternalServerError("importing backup failed")
	}

	resp := &importResponse{}
	resp.Body.Imported = imported
	return resp, nil
}
