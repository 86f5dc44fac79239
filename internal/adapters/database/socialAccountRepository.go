package database

import (
	"context"
	"errors"

	"flux/internal/config"
	"flux/internal/core/socialaccount"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// SocialAccountRepositoryDatabase implements the SocialAccountRepository
// port on gorm/MySQL.
type SocialAccountRepositoryDatabase struct{}

func NewSocialAccountRepositoryDatabase() *SocialAccountRepositoryDatabase {
	return &SocialAccountRepositoryDatabase{}
}

func (repo *SocialAccountRepositoryDatabase) FindByUserIDAndPlatform(ctx context.Context, userID uuid.UUID, platform string) (*socialaccount.SocialAccount, error) {
	var account socialaccount.SocialAccount
	err := config.DB.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, socialaccount.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (repo *SocialAccountRepositoryDatabase) Create(ctx context.Context, account *socialaccount.SocialAccount) (*socialaccount.SocialAccount, error) {
	if err := config.DB.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func (repo *SocialAccountRepositoryDatabase) Update(ctx context.Context, account *socialaccount.SocialAccount) (*socialaccount.SocialAccount, error) {
	if err := config.DB.WithContext(ctx).Save(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}
