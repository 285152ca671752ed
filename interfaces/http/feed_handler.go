package http

import (
	"net/http"
	"strconv"

	"instagram-feed/usecase"

	"github.com/gin-gonic/gin"
)

type IFeedHandler interface {
	GetFeed(c *gin.Context)
	RefreshFeed(c *gin.Context)
}

type FeedHandler struct {
	FeedUsecase usecase.IFeedUsecase
}

func NewFeedHandler(feedUsecase usecase.IFeedUsecase) IFeedHandler {
	return &FeedHandler{FeedUsecase: feedUsecase}
}

// GetFeed handles GET /instagram/feed?limit=N. Failures answer 503 with a
// neutral error code and an empty item list.
func (h *FeedHandler) GetFeed(c *gin.Context) {
	res := h.FeedUsecase.GetFeed(c.Request.Context(), queryLimit(c))
	c.JSON(feedStatus(res.Success), res)
}

// RefreshFeed handles POST /api/instagram/feed/refresh?limit=N.
func (h *FeedHandler) RefreshFeed(c *gin.Context) {
	res := h.FeedUsecase.Refresh(c.Request.Context(), queryLimit(c))
	c.JSON(feedStatus(res.Success), res)
}

// queryLimit returns 0 for a missing or unparsable limit so the usecase
// applies its default.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func feedStatus(success bool) int {
	if success {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
