package model

import "time"

// Vote is a user's one-time choice within a poll.
// (UserID, PollID) is unique: one vote per user per poll, whatever the option.
type Vote struct {
	ID       uint      `gorm:"primaryKey"`
	UserID   uint      `gorm:"not null;index:idx_votes_user_poll,unique"`
	PollID   uint      `gorm:"not null;index:idx_votes_user_poll,unique"`
	OptionID uint      `gorm:"not null;index"`
	User     *User     `gorm:"constraint:OnDelete:CASCADE"`
	Poll     *Poll     `gorm:"constraint:OnDelete:CASCADE"`
	Option   *Option   `gorm:"constraint:OnDelete:CASCADE"`
	VotedAt  time.Time `gorm:"not null;autoCreateTime"`
}
