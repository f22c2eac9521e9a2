package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pollbooth/internal/model"
)

// VoteRepository owns the vote write path.
type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Record inserts vote and increments its option's counter in one transaction.
//
// The option is re-checked against vote.PollID inside the transaction. A
// (user, poll) unique violation yields ErrDuplicateVote and the transaction is
// rolled back, so the counter never moves for a vote that was not stored.
func (r *VoteRepository) Record(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&model.Option{}).
			Where("id = ? AND poll_id = ?", vote.OptionID, vote.PollID).
			Count(&owned).Error; err != nil {
			return fmt.Errorf("check option: %w", err)
		}
		if owned == 0 {
			return ErrOptionNotInPoll
		}

		if err := tx.Omit(clause.Associations).Create(vote).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateVote
			}
			return fmt.Errorf("insert vote: %w", err)
		}

		res := tx.Model(&model.Option{}).
			Where("id = ?", vote.OptionID).
			UpdateColumn("vote_count", gorm.Expr("vote_count + ?", 1))
		if res.Error != nil {
			return fmt.Errorf("increment vote count: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrCounterNotUpdated
		}
		return nil
	})
}

// FindByUserAndPoll returns the user's vote on a poll with its option loaded.
func (r *VoteRepository) FindByUserAndPoll(ctx context.Context, userID, pollID uint) (*model.Vote, error) {
	var vote model.Vote
	if err := r.db.WithContext(ctx).
		Preload("Option").
		Where("user_id = ? AND poll_id = ?", userID, pollID).
		First(&vote).Error; err != nil {
		return nil, err
	}
	return &vote, nil
}

// ListByUser returns the user's votes, newest first, with poll and option loaded.
func (r *VoteRepository) ListByUser(ctx context.Context, userID uint) ([]model.Vote, error) {
	var votes []model.Vote
	if err := r.db.WithContext(ctx).
		Preload("Poll").
		Preload("Option").
		Where("user_id = ?", userID).
		Order("voted_at DESC, id DESC").
		Find(&votes).Error; err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}

func (r *VoteRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Vote{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

// CountByPoll counts stored Vote rows for a poll.
func (r *VoteRepository) CountByPoll(ctx context.Context, pollID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Vote{}).Where("poll_id = ?", pollID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

// CounterDrift describes an option whose cached counter disagrees with its Vote rows.
type CounterDrift struct {
	OptionID uint
	PollID   uint
	Cached   int
	Actual   int
}

// CounterDrifts lists every option where vote_count != COUNT(votes).
func (r *VoteRepository) CounterDrifts(ctx context.Context) ([]CounterDrift, error) {
	var drifts []CounterDrift
	if err := r.db.WithContext(ctx).
		Table("options AS o").
		Select("o.id AS option_id, o.poll_id AS poll_id, o.vote_count AS cached, COUNT(v.id) AS actual").
		Joins("LEFT JOIN votes AS v ON v.option_id = o.id").
		Group("o.id, o.poll_id, o.vote_count").
		Having("o.vote_count <> COUNT(v.id)").
		Order("o.id ASC").
		Scan(&drifts).Error; err != nil {
		return nil, fmt.Errorf("find counter drifts: %w", err)
	}
	return drifts, nil
}

// RepairCounter recomputes one option's vote_count from its Vote rows.
//
// The option row is locked first so a concurrent vote transaction waits on its
// increment; the count and the write are a single statement. SQLite ignores
// the row lock and relies on its immediate write transactions instead.
func (r *VoteRepository) RepairCounter(ctx context.Context, optionID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var option model.Option
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&option, optionID).Error; err != nil {
			return fmt.Errorf("lock option: %w", err)
		}
		res := tx.Model(&model.Option{}).
			Where("id = ?", optionID).
			UpdateColumn("vote_count", gorm.Expr("(SELECT COUNT(*) FROM votes WHERE votes.option_id = options.id)"))
		if res.Error != nil {
			return fmt.Errorf("repair counter: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrCounterNotUpdated
		}
		return nil
	})
}
