package api

import (
	"errors"
	"net/http"
	"strconv"

	"ShowSync/internal/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ShowHandler 剧目查询接口
type ShowHandler struct {
	shows  interfaces.ShowRepository
	logger *logrus.Logger
}

func NewShowHandler(shows interfaces.ShowRepository, logger *logrus.Logger) *ShowHandler {
	return &ShowHandler{shows: shows, logger: logger}
}

// ListShows GET /api/shows
func (h *ShowHandler) ListShows(c *gin.Context) {
	shows, err := h.shows.ListShows(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("ListShows failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": len(shows), "shows": shows})
}

// GetShow GET /api/shows/:id
func (h *ShowHandler) GetShow(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}
	show, err := h.shows.GetShow(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "show not found"})
			return
		}
		h.logger.WithError(err).Error("GetShow failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, show)
}
