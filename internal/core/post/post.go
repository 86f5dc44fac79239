package post

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// Status is the lifecycle state of a scheduled post.
// publishing is held by exactly one worker at a time; the claim query in the
// database adapter is what enforces that, not application locking.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusScheduled  Status = "scheduled"
	StatusPublishing Status = "publishing"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
)

// ParseStatus validates a user-supplied status filter.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusScheduled, StatusPublishing, StatusPublished, StatusFailed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown post status %q", s)
}

// MediaURLs is an ordered list of media references stored as a JSON text column.
type MediaURLs []string

func (m MediaURLs) Value() (driver.Value, error) {
	if m == nil {
		m = MediaURLs{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *MediaURLs) Scan(value interface{}) error {
	if value == nil {
		*m = MediaURLs{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into MediaURLs", value)
	}
	if len(raw) == 0 {
		*m = MediaURLs{}
		return nil
	}
	return json.Unmarshal(raw, m)
}

type Post struct {
	ID              uuid.UUID  `gorm:"primary_key;type:char(36)"`
	UserID          uuid.UUID  `gorm:"type:char(36);not null;index"`
	SocialAccountID *uuid.UUID `gorm:"type:char(36)"`
	Platform        string     `gorm:"type:varchar(32);not null"`
	Content         string     `gorm:"type:text;not null"`
	MediaURLs       MediaURLs  `gorm:"type:text"`
	ScheduledAt     time.Time  `gorm:"not null;index:idx_posts_due"`
	PublishedAt     *time.Time
	Status          Status  `gorm:"type:varchar(16);not null;index:idx_posts_due"`
	ErrorMessage    *string `gorm:"type:text"`
	RetryCount      int     `gorm:"not null;default:0"`
	MaxRetries      int     `gorm:"not null;default:3"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
