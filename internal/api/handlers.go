package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkctl/internal/links"
)

// Handler serves the link routes.
type Handler struct {
	service *LinkService
}

// NewHandler returns a Handler backed by service.
func NewHandler(service *LinkService) *Handler {
	return &Handler{service: service}
}

// Register mounts the link routes on r.
func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/api/v1/projects/:id/links")
	g.GET("", h.ListLinks)
	g.POST("", h.AddLink)
	g.PUT("", h.UpdateLink)
	g.DELETE("", h.DeleteLink)
}

func invalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody(links.WrapError(links.CodeInvalidParameters, "", err)))
}

// ListLinks handles GET.
func (h *Handler) ListLinks(c *gin.Context) {
	all, err := h.service.List(c.Param("id"))
	if err != nil {
		c.JSON(StatusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, all)
}

// AddLink handles POST.
func (h *Handler) AddLink(c *gin.Context) {
	var req AddLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	link, err := h.service.Add(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(StatusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusAccepted, link)
}

// UpdateLink handles PUT.
func (h *Handler) UpdateLink(c *gin.Context) {
	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	link, err := h.service.Update(c.Param("id"), req)
	if err != nil {
		c.JSON(StatusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusAccepted, link)
}

// DeleteLink handles DELETE.
func (h *Handler) DeleteLink(c *gin.Context) {
	var req DeleteLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	link, err := h.service.Delete(c.Param("id"), req)
	if err != nil {
		c.JSON(StatusFor(err), errorBody(err))
		return
	}
	c.JSON(http.StatusAccepted, link)
}
