package models

import (
	"strings"
	"time"

	"fitdew-bot/internal/tariff"
)

const (
	RoleUser    = "user"
	RoleCurator = "curator"
	RoleAdmin   = "admin"
	RoleSAdmin  = "sadmin"
)

// User is the subscription record keyed by Telegram id.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID int64  `gorm:"uniqueIndex;not null"`
	Username   string `gorm:"size:255"`
	FirstName  string `gorm:"size:255"`
	LastName   string `gorm:"size:255"`
	Role       string `gorm:"size:16;default:'user'"`
	IsCurator  bool   `gorm:"default:false"`

	TariffName        string     `gorm:"size:32"`
	TrainingMode      string     `gorm:"size:16"`
	TariffExpiresAt   *time.Time `gorm:"index"`
	TariffRemindedFor *time.Time

	TrainerID *uint `gorm:"index"`
	Trainer   *User `gorm:"foreignKey:TrainerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tier parses the stored tariff name, accepting legacy display names.
func (u *User) Tier() tariff.Tier {
	if u == nil {
		return tariff.None
	}
	return tariff.ParseTier(u.TariffName)
}

// TierMode is only meaningful for the base tier.
func (u *User) TierMode() tariff.Mode {
	if u.Tier() != tariff.Base {
		return tariff.ModeNone
	}
	return tariff.ParseMode(u.TrainingMode)
}

// IsActive holds iff a tier is set and it has no expiry or expires after now.
func (u *User) IsActive(now time.Time) bool {
	if u == nil || !u.Tier().Valid() {
		return false
	}
	return u.TariffExpiresAt == nil || u.TariffExpiresAt.After(now)
}

func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleSAdmin)
}

// IsStaff exempts the record from purchases and reminders.
func (u *User) IsStaff() bool {
	return u != nil && (u.IsAdmin() || u.Role == RoleCurator || u.IsCurator)
}

func (u *User) HasCurator() bool {
	return u != nil && u.TrainerID != nil
}

// Holding returns the active subscription, or nil when there is none.
func (u *User) Holding(now time.Time) *tariff.Holding {
	if !u.IsActive(now) {
		return nil
	}
	return &tariff.Holding{Tier: u.Tier(), ExpiresAt: u.TariffExpiresAt}
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.Join([]string{u.FirstName, u.LastName}, " "))
	if name != "" {
		return name
	}
	return u.Username
}
