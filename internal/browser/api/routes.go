package api

import (
	"net/http"

	"github.com/emicklei/go-restful/v3"

	apierrors "github.com/babelcloud/vlm-bridge/internal/common/errors"
	model "github.com/babelcloud/vlm-bridge/pkg/browser"
)

// RegisterRoutes adds the page and action routes to the web service.
func RegisterRoutes(ws *restful.WebService, handler *Handler) {
	pageID := ws.PathParameter("page_id", "identifier of the page").DataType("string")

	// --- Page Routes ---

	ws.Route(ws.POST("/pages").To(handler.CreatePage).
		Doc("Open a page").
		Reads(model.CreatePageParams{}).
		Returns(http.StatusCreated, "Created", model.CreatePageResult{}).
		Returns(http.StatusBadRequest, "Bad Request", apierrors.Error{}).
		Returns(http.StatusInternalServerError, "Internal Server Error", apierrors.Error{}))

	ws.Route(ws.GET("/pages").To(handler.ListPages).
		Doc("List open pages").
		Returns(http.StatusOK, "OK", model.ListPagesResult{}))

	ws.Route(ws.DELETE("/pages/{page_id}").To(handler.ClosePage).
		Doc("Close a page").
		Param(pageID).
		Returns(http.StatusNoContent, "Closed", nil).
		Returns(http.StatusNotFound, "Not Found", apierrors.Error{}))

	ws.Route(ws.GET("/pages/{page_id}/screenshot").To(handler.Screenshot).
		Doc("Capture a PNG screenshot of a page").
		Param(pageID).
		Produces("image/png", restful.MIME_JSON).
		Returns(http.StatusOK, "PNG image", nil).
		Returns(http.StatusNotFound, "Not Found", apierrors.Error{}))

	// --- Action Routes ---

	ws.Route(ws.POST("/pages/{page_id}/act").To(handler.Act).
		Doc("Run a natural-language instruction on a page").
		Param(pageID).
		Reads(model.ActParams{}).
		Returns(http.StatusOK, "OK", model.ActResult{}).
		Returns(http.StatusBadRequest, "Bad Request", apierrors.Error{}).
		Returns(http.StatusNotFound, "Not Found", apierrors.Error{}).
		Returns(http.StatusConflict, "Page busy", apierrors.Error{}).
		Returns(http.StatusUnprocessableEntity, "Directive cannot be executed", apierrors.Error{}).
		Returns(http.StatusBadGateway, "Reasoning service failure", apierrors.Error{}).
		Returns(http.StatusGatewayTimeout, "Reasoning service timeout", apierrors.Error{}))

	ws.Route(ws.POST("/actions/parse").To(handler.ParseAction).
		Doc("Translate a raw reasoning response into an action").
		Returns(http.StatusOK, "OK", model.ParseResult{}).
		Returns(http.StatusUnprocessableEntity, "Malformed or unsupported response", apierrors.Error{}))
}
