package database

import (
	"context"
	"errors"
	"time"

	"flux/internal/config"
	"flux/internal/core/post"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepositoryDatabase implements the PostRepository port on gorm/MySQL.
type PostRepositoryDatabase struct{}

func NewPostRepositoryDatabase() *PostRepositoryDatabase {
	return &PostRepositoryDatabase{}
}

func (repo *PostRepositoryDatabase) Create(ctx context.Context, p *post.Post) (*post.Post, error) {
	if err := config.DB.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (repo *PostRepositoryDatabase) FindByID(ctx context.Context, id uuid.UUID) (*post.Post, error) {
	var p post.Post
	if err := config.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, post.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ClaimDue selects due scheduled posts with FOR UPDATE SKIP LOCKED and moves
// them to publishing inside one transaction. Rows held by a concurrent claim
// are simply absent from the result; nothing blocks. Ties in scheduled_at
// carry no ordering guarantee here.
func (repo *PostRepositoryDatabase) ClaimDue(ctx context.Context, batchSize int) ([]*post.Post, error) {
	if batchSize <= 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	var rows []*post.Post
	err := config.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("status = ? AND scheduled_at <= ?", post.StatusScheduled, now).
			Order("scheduled_at ASC").
			Limit(batchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
		if err := tx.Model(&post.Post{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     post.StatusPublishing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		for _, r := range rows {
			r.Status = post.StatusPublishing
			r.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (repo *PostRepositoryDatabase) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) (*post.Post, error) {
	res := config.DB.WithContext(ctx).Model(&post.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        post.StatusPublished,
			"published_at":  publishedAt,
			"error_message": nil,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, post.ErrNotFound
	}
	return repo.FindByID(ctx, id)
}

func (repo *PostRepositoryDatabase) MarkFailed(ctx context.Context, id uuid.UUID, message string) (*post.Post, error) {
	res := config.DB.WithContext(ctx).Model(&post.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        post.StatusFailed,
			"error_message": message,
			"retry_count":   gorm.Expr("retry_count + 1"),
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, post.ErrNotFound
	}
	return repo.FindByID(ctx, id)
}

func (repo *PostRepositoryDatabase) FindPage(ctx context.Context, userID uuid.UUID, status *post.Status, cursor *post.Cursor, limit int) ([]*post.Post, error) {
	q := config.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("scheduled_at DESC, id DESC").
		Limit(limit)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if cursor != nil {
		q = q.Where("scheduled_at < ? OR (scheduled_at = ? AND id < ?)",
			cursor.ScheduledAt, cursor.ScheduledAt, cursor.ID)
	}

	var rows []*post.Post
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
