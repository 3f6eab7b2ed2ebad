package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/snapbooth/boothd/internal/db"
	"github.com/snapbooth/boothd/internal/share"
)

type ShareRequest struct {
	PhotoRef string `json:"photo_ref" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Message  string `json:"message"`
}

type ListSharesQuery struct {
	Limit  int `form:"limit" binding:"max=500"`
	Offset int `form:"offset"`
}

type ShareHandler struct {
	dispatcher *share.Dispatcher
}

func NewShareHandler(dispatcher *share.Dispatcher) *ShareHandler {
	return &ShareHandler{dispatcher: dispatcher}
}

// SharePhoto returns 200 with the dispatch result even when every
// hosting backend or the SMS send failed; the result carries the
// failure detail. Only validation and missing photos are HTTP errors.
func (h *ShareHandler) SharePhoto(c *gin.Context) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.dispatcher.Share(c.Request.Context(), req.PhotoRef, req.Phone, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, share.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, share.ErrPhotoNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ShareHandler) ListShareRecords(c *gin.Context) {
	var query ListSharesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if query.Limit <= 0 {
		query.Limit = 50
	}

	records, err := db.Shares.ListShares(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list share records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
		"limit":   query.Limit,
		"offset":  query.Offset,
	})
}

func (h *ShareHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/share", h.SharePhoto)
	r.GET("/share/records", h.ListShareRecords)
}
