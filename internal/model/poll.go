package model

import "time"

// Poll is a question with a fixed set of options.
type Poll struct {
	ID          uint     `gorm:"primaryKey"`
	Question    string   `gorm:"size:255;not null"`
	Description string   `gorm:"type:text"`
	Category    Category `gorm:"size:20;not null;default:technology;index"`
	IsActive    bool     `gorm:"not null;index"`
	CreatedByID *uint    `gorm:"index"`
	CreatedBy   *User    `gorm:"foreignKey:CreatedByID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time
	Options     []Option `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
}

// OwnedBy reports whether userID created the poll. Orphaned polls have no owner.
func (p Poll) OwnedBy(userID uint) bool {
	return p.CreatedByID != nil && *p.CreatedByID == userID
}

// Option is one selectable answer. VoteCount caches the number of Vote rows
// pointing at it and only ever changes inside the vote transaction.
type Option struct {
	ID        uint   `gorm:"primaryKey"`
	PollID    uint   `gorm:"not null;index"`
	Text      string `gorm:"size:255;not null"`
	VoteCount int    `gorm:"not null;default:0;check:chk_options_vote_count,vote_count >= 0"`
}
