package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/emicklei/go-restful/v3"

	browserSvc "github.com/babelcloud/vlm-bridge/internal/browser/service"
	apierrors "github.com/babelcloud/vlm-bridge/internal/common/errors"
	model "github.com/babelcloud/vlm-bridge/pkg/browser"
	"github.com/babelcloud/vlm-bridge/pkg/logger"
	"github.com/babelcloud/vlm-bridge/pkg/vision"
)

// maxResponseBody bounds the raw reasoning response accepted by /actions/parse.
const maxResponseBody = 16 << 20

// PageService is the part of the browser service exposed over HTTP.
type PageService interface {
	CreatePage(params model.CreatePageParams) (*model.CreatePageResult, error)
	ListPages() *model.ListPagesResult
	ClosePage(pageID string) error
	Screenshot(pageID string) ([]byte, error)
	Act(ctx context.Context, pageID string, params model.ActParams) (*model.ActResult, error)
}

var _ PageService = (*browserSvc.BrowserService)(nil)

// Handler wraps the browser service to expose it via API endpoints.
type Handler struct {
	service PageService
	log     *logger.Logger
}

// NewHandler creates a new API handler for the browser service.
func NewHandler(svc PageService) *Handler {
	if svc == nil {
		panic("PageService cannot be nil")
	}
	return &Handler{
		service: svc,
		log:     logger.New(),
	}
}

func (h *Handler) writeError(resp *restful.Response, statusCode int, err error) {
	body := apierrors.New(statusCode, err.Error())
	if kind := vision.KindOf(err); kind != "" {
		body = body.WithKind(string(kind))
	}
	if statusCode >= http.StatusInternalServerError {
		h.log.Error("API error (%d): %v", statusCode, err)
	} else {
		h.log.Debug("API error (%d): %v", statusCode, err)
	}
	_ = resp.WriteHeaderAndJson(statusCode, body, restful.MIME_JSON)
}

// statusFor maps service and reasoning errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, browserSvc.ErrPageNotFound):
		return apierrors.CodeNotFound
	case errors.Is(err, browserSvc.ErrPageBusy):
		return apierrors.CodeConflict
	case errors.Is(err, browserSvc.ErrInvalidInput):
		return apierrors.CodeBadRequest
	case errors.Is(err, context.Canceled):
		return apierrors.CodeServiceUnavailable
	}

	switch vision.KindOf(err) {
	case vision.KindTimeout:
		return apierrors.CodeGatewayTimeout
	case vision.KindTransport, vision.KindUpstream, vision.KindMalformedResponse:
		return apierrors.CodeBadGateway
	case vision.KindMissingField, vision.KindUnsupportedAction, vision.KindElementOutOfRange:
		return apierrors.CodeUnprocessable
	}
	return apierrors.CodeInternalError
}

// --- Page Handlers ---

// CreatePage handles POST /pages
func (h *Handler) CreatePage(req *restful.Request, resp *restful.Response) {
	var params model.CreatePageParams
	if err := req.ReadEntity(&params); err != nil {
		h.writeError(resp, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	result, err := h.service.CreatePage(params)
	if err != nil {
		h.writeError(resp, statusFor(err), fmt.Errorf("failed to create page: %w", err))
		return
	}

	_ = resp.WriteHeaderAndJson(http.StatusCreated, result, restful.MIME_JSON)
}

// ListPages handles GET /pages
func (h *Handler) ListPages(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteHeaderAndJson(http.StatusOK, h.service.ListPages(), restful.MIME_JSON)
}

// ClosePage handles DELETE /pages/{page_id}
func (h *Handler) ClosePage(req *restful.Request, resp *restful.Response) {
	pageID := req.PathParameter("page_id")
	if err := h.service.ClosePage(pageID); err != nil {
		h.writeError(resp, statusFor(err), err)
		return
	}
	resp.WriteHeader(http.StatusNoContent)
}

// Screenshot handles GET /pages/{page_id}/screenshot
func (h *Handler) Screenshot(req *restful.Request, resp *restful.Response) {
	pageID := req.PathParameter("page_id")
	data, err := h.service.Screenshot(pageID)
	if err != nil {
		h.writeError(resp, statusFor(err), err)
		return
	}
	resp.AddHeader("Content-Type", "image/png")
	resp.WriteHeader(http.StatusOK)
	_, _ = resp.Write(data)
}

// --- Action Handlers ---

// Act handles POST /pages/{page_id}/act
func (h *Handler) Act(req *restful.Request, resp *restful.Response) {
	pageID := req.PathParameter("page_id")

	var params model.ActParams
	if err := req.ReadEntity(&params); err != nil {
		h.writeError(resp, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	result, err := h.service.Act(req.Request.Context(), pageID, params)
	if err != nil {
		h.writeError(resp, statusFor(err), err)
		return
	}

	_ = resp.WriteHeaderAndJson(http.StatusOK, result, restful.MIME_JSON)
}

// ParseAction handles POST /actions/parse. The body is a raw reasoning
// response; the reply is the action it translates to.
func (h *Handler) ParseAction(req *restful.Request, resp *restful.Response) {
	body, err := io.ReadAll(io.LimitReader(req.Request.Body, maxResponseBody))
	if err != nil {
		h.writeError(resp, http.StatusBadRequest, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	decoded, err := vision.DecodeResponse(body)
	if err != nil {
		h.writeError(resp, http.StatusUnprocessableEntity, err)
		return
	}
	action, err := vision.ParseResponse(decoded)
	if err != nil {
		h.writeError(resp, http.StatusUnprocessableEntity, err)
		return
	}

	_ = resp.WriteHeaderAndJson(http.StatusOK, model.NewParseResult(decoded, action), restful.MIME_JSON)
}
