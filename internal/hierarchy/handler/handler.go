package handler

import (
	"salesops_backend/internal/hierarchy/service"
	"salesops_backend/internal/hierarchy/transport"
	"salesops_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/downline", h.Downline)
	rg.GET("/role-tabs", h.RoleTabs)
}

// Downline returns every transitive subordinate of the caller.
func (h *Handler) Downline(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	users, err := h.svc.DownlineOf(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToUserResponses(users))
}

// RoleTabs returns the role tabs visible to the caller.
func (h *Handler) RoleTabs(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	tabs, err := h.svc.RoleTabsFor(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.RoleTabsResponse{Tabs: tabs})
}
