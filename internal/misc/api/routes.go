package api

import (
	"net/http"

	"github.com/emicklei/go-restful/v3"

	"github.com/babelcloud/vlm-bridge/internal/misc/model"
)

// RegisterRoutes registers the miscellaneous routes
func RegisterRoutes(ws *restful.WebService, handler *MiscHandler) {
	ws.Route(ws.GET("/version").To(handler.GetVersion).
		Doc("Get server version information").
		Returns(http.StatusOK, "OK", model.VersionInfo{}))
}
