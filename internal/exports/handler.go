package exports

import (
	"fmt"
	"net/http"
	"time"

	"salesops_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/archived-leads.xlsx", h.ArchivedLeads)
}

// ArchivedLeads streams the caller's archived leads as an XLSX download.
func (h *Handler) ArchivedLeads(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	data, err := h.svc.ArchivedWorkbook(c.Request.Context(), id.UserID(), c.Query("reason"))
	if httpkit.HandleError(c, err) {
		return
	}

	filename := fmt.Sprintf("archived-leads-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
