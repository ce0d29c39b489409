package auth

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/maxdaylight/HomelabWiki/internal/db/models"
)

// LocalProvider handles the break-glass local admin account. Regular users
// always authenticate against the directory; this account exists so the
// wiki stays administrable when the directory server is unreachable.
type LocalProvider struct {
	db *gorm.DB
}

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{db: db}
}

// Authenticate verifies a local account password. Returns ErrUserNotFound
// when the username does not name a local account, so the caller can fall
// through to directory authentication.
func (p *LocalProvider) Authenticate(username, password string) (*models.User, error) {
	var user models.User

	err := p.db.Where("username = ? AND auth_source = ?", username, models.AuthSourceLocal).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.IsActive || !user.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now

	if err := p.db.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update login time: %w", err)
	}

	return &user, nil
}

// EnsureAdmin creates the local admin account if it does not exist yet.
// Called at startup when local auth is enabled.
func (p *LocalProvider) EnsureAdmin(username, password string) error {
	var count int64
	if err := p.db.Model(&models.User{}).
		Where("username = ? AND auth_source = ?", username, models.AuthSourceLocal).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check admin account: %w", err)
	}

	if count > 0 {
		return nil
	}

	admin := models.User{
		Username:   username,
		Password:   models.HashPassword(password),
		AuthSource: models.AuthSourceLocal,
		IsActive:   true,
		IsAdmin:    true,
		CanEdit:    true,
		CanCreate:  true,
		CanDelete:  true,
		CanUpload:  true,
	}

	if err := p.db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	return nil
}
