package model

import (
	"strconv"
	"strings"
	"time"
)

// User is a voter identity. It is created on first sight from either the
// authenticating proxy (Login) or Telegram (TelegramID).
type User struct {
	ID         uint    `gorm:"primaryKey"`
	Login      *string `gorm:"uniqueIndex"`
	TelegramID *int64  `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	IsAdmin    bool `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName picks the most human-friendly name available.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	if u.Login != nil && *u.Login != "" {
		return *u.Login
	}
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return "user #" + strconv.FormatUint(uint64(u.ID), 10)
}
