package postapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	postEntity "flux/internal/core/post"
	"flux/internal/core/socialaccount"
	postPort "flux/internal/ports/post"
	accountPort "flux/internal/ports/socialaccount"

	"github.com/gofrs/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultRetries  = 3
	platformX       = "X"
)

// PostService owns scheduling and the read path for posts.
type PostService struct {
	PostRepository    postPort.PostRepository
	AccountRepository accountPort.SocialAccountRepository
}

func NewPostService(postRepo postPort.PostRepository, accountRepo accountPort.SocialAccountRepository) *PostService {
	return &PostService{
		PostRepository:    postRepo,
		AccountRepository: accountRepo,
	}
}

// SchedulePost creates a post in status scheduled, linked to the user's X
// account. The scheduler picks it up once scheduledAt passes.
func (s *PostService) SchedulePost(ctx context.Context, userID, text string, scheduledAt time.Time, mediaURLs []string) (*postPort.PostDTO, error) {
	uid, err := uuid.FromString(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid userID: %w", err)
	}

	account, err := s.AccountRepository.FindByUserIDAndPlatform(ctx, uid, platformX)
	if err != nil {
		if errors.Is(err, socialaccount.ErrNotFound) {
			return nil, socialaccount.ErrNotConnected
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, socialaccount.ErrNotConnected
	}

	now := time.Now().UTC()
	p := &postEntity.Post{
		ID:              uuid.Must(uuid.NewV4()),
		UserID:          uid,
		SocialAccountID: &account.ID,
		Platform:        platformX,
		Content:         text,
		MediaURLs:       mediaURLs,
		ScheduledAt:     scheduledAt.UTC(),
		Status:          postEntity.StatusScheduled,
		RetryCount:      0,
		MaxRetries:      defaultRetries,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := s.PostRepository.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return toDTO(created), nil
}

// GetPosts returns one keyset-paginated page of the user's posts in
// (scheduled_at DESC, id DESC) order. It fetches one row beyond the page
// size to learn whether a next page exists; the continuation cursor is
// derived from the last retained row, never the trimmed-away one.
func (s *PostService) GetPosts(ctx context.Context, userID string, size int, statusFilter, cursor string) (*postPort.CursorPageDTO, error) {
	uid, err := uuid.FromString(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid userID: %w", err)
	}

	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	var status *postEntity.Status
	if statusFilter != "" {
		st, err := postEntity.ParseStatus(statusFilter)
		if err != nil {
			return nil, err
		}
		status = &st
	}

	var anchor *postEntity.Cursor
	if cursor != "" {
		anchor, err = postEntity.DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
	}

	rows, err := s.PostRepository.FindPage(ctx, uid, status, anchor, size+1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts: %w", err)
	}

	hasNext := len(rows) > size
	if hasNext {
		rows = rows[:size]
	}

	items := make([]*postPort.PostDTO, 0, len(rows))
	for _, r := range rows {
		items = append(items, toDTO(r))
	}

	var nextCursor *string
	if hasNext && len(rows) > 0 {
		last := rows[len(rows)-1]
		encoded := postEntity.Cursor{ScheduledAt: last.ScheduledAt, ID: last.ID}.Encode()
		nextCursor = &encoded
	}

	return &postPort.CursorPageDTO{
		Items:      items,
		NextCursor: nextCursor,
		HasNext:    hasNext,
	}, nil
}

func toDTO(p *postEntity.Post) *postPort.PostDTO {
	dto := &postPort.PostDTO{
		ID:           p.ID.String(),
		Platform:     p.Platform,
		Content:      p.Content,
		MediaURLs:    p.MediaURLs,
		ScheduledAt:  p.ScheduledAt.UTC().Format(time.RFC3339),
		Status:       string(p.Status),
		ErrorMessage: p.ErrorMessage,
		RetryCount:   p.RetryCount,
		MaxRetries:   p.MaxRetries,
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.PublishedAt != nil {
		published := p.PublishedAt.UTC().Format(time.RFC3339)
		dto.PublishedAt = &published
	}
	return dto
}
