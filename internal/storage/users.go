// Package storage is the record store adapter: subscription fields of the
// user table, read and written through gorm.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fitdew-bot/internal/models"
	"fitdew-bot/internal/tariff"
)

// ErrExpiryChanged is returned by MarkReminded when the record's expiry no
// longer matches the one the reminder was sent for.
var ErrExpiryChanged = errors.New("storage: tariff expiry changed")

// ErrUserVanished is returned by ApplyGrant when the record is gone right
// after the upsert.
var ErrUserVanished = errors.New("storage: user missing after grant")

// Grant describes a paid tier to apply to a user record.
type Grant struct {
	TelegramID int64
	Username   string
	FirstName  string
	Tier       tariff.Tier
	Mode       tariff.Mode // persisted only when valid
	ExpiresAt  time.Time
}

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.User{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Find returns nil without error when the user has no record.
func (s *Users) Find(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Trainer").Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", telegramID, err)
	}
	return &user, nil
}

// ApplyGrant upserts the tier fields and clears the reminder guard so the new
// expiry can be reminded about later. Applying the same grant twice yields the
// same record.
func (s *Users) ApplyGrant(ctx context.Context, g Grant) (*models.User, error) {
	expiresAt := g.ExpiresAt.UTC().Truncate(time.Microsecond)

	create := models.User{
		TelegramID:      g.TelegramID,
		Username:        g.Username,
		FirstName:       g.FirstName,
		Role:            models.RoleUser,
		TariffName:      string(g.Tier),
		TariffExpiresAt: &expiresAt,
	}
	updates := map[string]any{
		"tariff_name":         string(g.Tier),
		"tariff_expires_at":   expiresAt,
		"tariff_reminded_for": nil,
		"updated_at":          time.Now().UTC(),
	}
	if g.Username != "" {
		updates["username"] = g.Username
	}
	if g.Mode.Valid() {
		create.TrainingMode = string(g.Mode)
		updates["training_mode"] = string(g.Mode)
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&create).Error
	if err != nil {
		return nil, fmt.Errorf("upsert tariff for %d: %w", g.TelegramID, err)
	}

	user, err := s.Find(ctx, g.TelegramID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("reload user %d: %w", g.TelegramID, ErrUserVanished)
	}
	return user, nil
}

// FindExpiring returns records whose expiry falls within (from, to].
func (s *Users) FindExpiring(ctx context.Context, from, to time.Time) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("tariff_expires_at > ? AND tariff_expires_at <= ?", from, to).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("find expiring tariffs: %w", err)
	}
	return users, nil
}

// MarkReminded records that a reminder was sent for expiresAt. The write is
// conditional on the expiry being unchanged.
func (s *Users) MarkReminded(ctx context.Context, telegramID int64, expiresAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ? AND tariff_expires_at = ?", telegramID, expiresAt).
		Update("tariff_reminded_for", expiresAt)
	if res.Error != nil {
		return fmt.Errorf("mark reminded %d: %w", telegramID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrExpiryChanged
	}
	return nil
}
