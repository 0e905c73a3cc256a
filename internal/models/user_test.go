package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fitdew-bot/internal/tariff"
)

func TestUserIsActive(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		user *User
		want bool
	}{
		{"nil record", nil, false},
		{"no tier", &User{}, false},
		{"tier without expiry", &User{TariffName: "optimal"}, true},
		{"tier expiring later", &User{TariffName: "base", TariffExpiresAt: &future}, true},
		{"tier expired", &User{TariffName: "base", TariffExpiresAt: &past}, false},
		{"expiry exactly now", &User{TariffName: "base", TariffExpiresAt: &now}, false},
		{"legacy name", &User{TariffName: "Выгодный", TariffExpiresAt: &future}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.IsActive(now))
		})
	}
}

func TestUserRoles(t *testing.T) {
	assert.False(t, (&User{Role: RoleUser}).IsStaff())
	assert.True(t, (&User{Role: RoleUser, IsCurator: true}).IsStaff())
	assert.True(t, (&User{Role: RoleCurator}).IsStaff())
	assert.True(t, (&User{Role: RoleSAdmin}).IsStaff())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleCurator}).IsAdmin())
}

func TestUserTierMode(t *testing.T) {
	assert.Equal(t, tariff.ModeCrossfit, (&User{TariffName: "base", TrainingMode: "crossfit"}).TierMode())
	assert.Equal(t, tariff.ModeNone, (&User{TariffName: "maximum", TrainingMode: "gym"}).TierMode())
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Анна Петрова", (&User{FirstName: "Анна", LastName: "Петрова", Username: "anna"}).DisplayName())
	assert.Equal(t, "coach", (&User{Username: "coach"}).DisplayName())
}
