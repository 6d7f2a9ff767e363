package api

import (
	"net/http"

	"github.com/emicklei/go-restful/v3"

	"github.com/babelcloud/vlm-bridge/internal/misc/service"
)

// MiscHandler serves build metadata.
type MiscHandler struct {
	service *service.MiscService
}

func NewMiscHandler(service *service.MiscService) *MiscHandler {
	return &MiscHandler{service: service}
}

// GetVersion handles GET /version
func (h *MiscHandler) GetVersion(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteHeaderAndJson(http.StatusOK, h.service.GetVersion(), restful.MIME_JSON)
}
