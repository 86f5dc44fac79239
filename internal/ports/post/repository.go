package post

import (
	"context"
	"time"

	"flux/internal/core/post"

	"github.com/gofrs/uuid"
)

// PostRepository is the outbound port for post persistence, including the
// claim/lease protocol the scheduler relies on.
type PostRepository interface {
	Create(ctx context.Context, p *post.Post) (*post.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*post.Post, error)

	// ClaimDue atomically selects up to batchSize posts with status
	// scheduled and scheduled_at <= now (oldest first) and transitions them
	// to publishing. Rows locked by a concurrent claim are skipped, not
	// waited for, so horizontal replicas never double-claim.
	ClaimDue(ctx context.Context, batchSize int) ([]*post.Post, error)

	// MarkPublished transitions publishing -> published, sets published_at
	// and clears the error message.
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) (*post.Post, error)

	// MarkFailed transitions publishing -> failed, records the message and
	// increments retry_count. Missing post -> post.ErrNotFound.
	MarkFailed(ctx context.Context, id uuid.UUID, message string) (*post.Post, error)

	// FindPage returns up to limit posts for the user in
	// (scheduled_at DESC, id DESC) order, starting strictly after cursor
	// when one is given. status narrows the result when non-nil.
	FindPage(ctx context.Context, userID uuid.UUID, status *post.Status, cursor *post.Cursor, limit int) ([]*post.Post, error)
}

// PostDTO is the transport shape of a post.
type PostDTO struct {
	ID           string   `json:"id"`
	Platform     string   `json:"platform"`
	Content      string   `json:"content"`
	MediaURLs    []string `json:"media_urls"`
	ScheduledAt  string   `json:"scheduled_at"`
	PublishedAt  *string  `json:"published_at,omitempty"`
	Status       string   `json:"status"`
	ErrorMessage *string  `json:"error_message,omitempty"`
	RetryCount   int      `json:"retry_count"`
	MaxRetries   int      `json:"max_retries"`
	CreatedAt    string   `json:"created_at"`
}

// CursorPageDTO is one page of posts plus the continuation token.
type CursorPageDTO struct {
	Items      []*PostDTO `json:"items"`
	NextCursor *string    `json:"next_cursor"`
	HasNext    bool       `json:"has_next"`
}
