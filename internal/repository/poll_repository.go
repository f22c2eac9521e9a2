package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pollbooth/internal/model"
)

// PollRepository stores polls together with their options.
type PollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) *PollRepository {
	return &PollRepository{db: db}
}

// Create inserts the poll and poll.Options in one transaction.
func (r *PollRepository) Create(ctx context.Context, poll *model.Poll) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		options := poll.Options
		poll.Options = nil
		if err := tx.Omit(clause.Associations).Create(poll).Error; err != nil {
			return fmt.Errorf("create poll: %w", err)
		}
		for i := range options {
			options[i].PollID = poll.ID
		}
		if len(options) > 0 {
			if err := tx.Create(&options).Error; err != nil {
				return fmt.Errorf("create options: %w", err)
			}
		}
		poll.Options = options
		return nil
	})
}

// FindByID loads a poll with its options (in creation order) and owner.
func (r *PollRepository) FindByID(ctx context.Context, id uint) (*model.Poll, error) {
	var poll model.Poll
	if err := r.withRelations(r.db.WithContext(ctx)).First(&poll, id).Error; err != nil {
		return nil, err
	}
	return &poll, nil
}

// FindOption loads a single option by id.
func (r *PollRepository) FindOption(ctx context.Context, id uint) (*model.Option, error) {
	var option model.Option
	if err := r.db.WithContext(ctx).First(&option, id).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

// ListActive returns active polls, newest first. CategoryAll disables the filter.
func (r *PollRepository) ListActive(ctx context.Context, category model.Category) ([]model.Poll, error) {
	q := r.withRelations(r.db.WithContext(ctx)).Where("is_active = ?", true)
	if category != model.CategoryAll {
		q = q.Where("category = ?", category)
	}
	var polls []model.Poll
	if err := q.Order("created_at DESC, id DESC").Find(&polls).Error; err != nil {
		return nil, fmt.Errorf("list active polls: %w", err)
	}
	return polls, nil
}

// ListByOwner returns every poll created by ownerID, active or not, newest first.
func (r *PollRepository) ListByOwner(ctx context.Context, ownerID uint) ([]model.Poll, error) {
	var polls []model.Poll
	if err := r.withRelations(r.db.WithContext(ctx)).
		Where("created_by_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&polls).Error; err != nil {
		return nil, fmt.Errorf("list polls by owner: %w", err)
	}
	return polls, nil
}

func (r *PollRepository) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Poll{}).Where("created_by_id = ?", ownerID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count polls: %w", err)
	}
	return count, nil
}

// SumVoteCounts returns the sum of vote_count over the poll's options.
func (r *PollRepository) SumVoteCounts(ctx context.Context, pollID uint) (int, error) {
	var total int
	if err := r.db.WithContext(ctx).Model(&model.Option{}).
		Where("poll_id = ?", pollID).
		Select("COALESCE(SUM(vote_count), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum vote counts: %w", err)
	}
	return total, nil
}

// ToggleActive flips is_active in the store and returns the new value.
func (r *PollRepository) ToggleActive(ctx context.Context, id uint) (bool, error) {
	var active bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Poll{}).Where("id = ?", id).UpdateColumn("is_active", gorm.Expr("NOT is_active"))
		if res.Error != nil {
			return fmt.Errorf("toggle poll: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&model.Poll{}).Where("id = ?", id).Select("is_active").Scan(&active).Error
	})
	return active, err
}

// SetActive forces is_active to the given value.
func (r *PollRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.Poll{}).Where("id = ?", id).UpdateColumn("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("set poll active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the poll with its votes and options. Foreign keys cascade as
// well, but the explicit deletes keep the behavior independent of whether the
// driver enforces them.
func (r *PollRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", id).Delete(&model.Vote{}).Error; err != nil {
			return fmt.Errorf("delete votes: %w", err)
		}
		if err := tx.Where("poll_id = ?", id).Delete(&model.Option{}).Error; err != nil {
			return fmt.Errorf("delete options: %w", err)
		}
		res := tx.Delete(&model.Poll{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete poll: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *PollRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("options.id ASC") }).
		Preload("CreatedBy")
}
