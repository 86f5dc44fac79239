package httpapi

import (
	"context"
	"time"

	"flux/internal/adapters/httpapi/middleware"
	platformPort "flux/internal/ports/platform"
	postPort "flux/internal/ports/post"
	accountPort "flux/internal/ports/socialaccount"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

// Inbound ports: what the controllers need from the use-case layer.

type PostUseCase interface {
	SchedulePost(ctx context.Context, userID, text string, scheduledAt time.Time, mediaURLs []string) (*postPort.PostDTO, error)
	GetPosts(ctx context.Context, userID string, size int, statusFilter, cursor string) (*postPort.CursorPageDTO, error)
}

type PublishUseCase interface {
	ResolveAndPublish(ctx context.Context, userID uuid.UUID, text string) (*platformPort.PublishResponse, error)
}

type AccountUseCase interface {
	BeginConnect(ctx context.Context, userID uuid.UUID) (string, error)
	CompleteConnect(ctx context.Context, state, code string) (*accountPort.SocialAccountDTO, error)
	BeginLegacyConnect(ctx context.Context, userID uuid.UUID, callbackURL string) (string, error)
	CompleteLegacyConnect(ctx context.Context, oauthToken, verifier string) (*accountPort.SocialAccountDTO, error)
}

// SetupRoutes wires controllers; use cases are injected from outside.
func SetupRoutes(postUC PostUseCase, publishUC PublishUseCase, accountUC AccountUseCase) *gin.Engine {
	r := gin.Default()
	pc := NewPostController(postUC, publishUC)
	xc := NewPlatformController(accountUC)

	api := r.Group("/api", middleware.JWTAuthMiddleware())
	{
		api.POST("/schedule", pc.SchedulePost)
		api.GET("/posts", pc.GetPosts)
		api.POST("/posts/now", pc.PublishNow)

		api.GET("/x/connect", xc.Connect)
		api.GET("/x/legacy/connect", xc.LegacyConnect)
	}

	// Callbacks are hit by the platform redirect, not by an authenticated client.
	r.GET("/api/x/callback", xc.Callback)
	r.GET("/api/x/legacy/callback", xc.LegacyCallback)

	return r
}
