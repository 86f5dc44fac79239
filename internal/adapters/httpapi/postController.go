package httpapi

import (
	"errors"
	"net/http"
	"time"

	"flux/internal/core/post"
	"flux/internal/core/socialaccount"
	platformPort "flux/internal/ports/platform"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type PostController struct {
	posts     PostUseCase
	publisher PublishUseCase
}

func NewPostController(posts PostUseCase, publisher PublishUseCase) *PostController {
	return &PostController{posts: posts, publisher: publisher}
}

// SchedulePost handles POST /api/schedule.
func (ctl *PostController) SchedulePost(c *gin.Context) {
	var req struct {
		Text        string    `json:"text" binding:"required"`
		ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
		MediaURLs   []string  `json:"media_urls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return
	}

	res, err := ctl.posts.SchedulePost(c.Request.Context(), userID.(string), req.Text, req.ScheduledAt, req.MediaURLs)
	if err != nil {
		if errors.Is(err, socialaccount.ErrNotConnected) {
			c.JSON(http.StatusConflict, gin.H{"error": "x account not connected"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not schedule post"})
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetPosts handles GET /api/posts with cursor pagination.
func (ctl *PostController) GetPosts(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return
	}

	var query struct {
		Size   int    `form:"size"`
		Status string `form:"status"`
		Cursor string `form:"cursor"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}

	page, err := ctl.posts.GetPosts(c.Request.Context(), userID.(string), query.Size, query.Status, query.Cursor)
	if err != nil {
		if errors.Is(err, post.ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch posts"})
		return
	}
	c.JSON(http.StatusOK, page)
}

// PublishNow handles POST /api/posts/now, the direct publish path.
func (ctl *PostController) PublishNow(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}
	userIDVal, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found in context"})
		return
	}
	userID, err := uuid.FromString(userIDVal.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
		return
	}

	resp, err := ctl.publisher.ResolveAndPublish(c.Request.Context(), userID, req.Text)
	if err != nil {
		var apiErr *platformPort.APIError
		switch {
		case errors.Is(err, socialaccount.ErrNotConnected),
			errors.Is(err, socialaccount.ErrRefreshFailed):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.As(err, &apiErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not publish post"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"tweet_id": resp.Data.ID})
}
