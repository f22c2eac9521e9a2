package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pollbooth/internal/model"
	"pollbooth/internal/repository"
)

// CastResult is the outcome of a vote attempt that did not fail.
// AlreadyVoted is set when the user had voted on the poll before; Vote then
// holds that earlier vote and nothing was written.
type CastResult struct {
	Vote         *model.Vote
	AlreadyVoted bool
}

// VoteLedger records votes: at most one per (user, poll), with the option's
// cached counter moved by exactly one per stored vote.
type VoteLedger struct {
	polls   *repository.PollRepository
	votes   *repository.VoteRepository
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewVoteLedger builds a ledger. A non-positive timeout disables the
// per-vote deadline.
func NewVoteLedger(polls *repository.PollRepository, votes *repository.VoteRepository, timeout time.Duration, logger *slog.Logger) *VoteLedger {
	return &VoteLedger{
		polls:   polls,
		votes:   votes,
		timeout: timeout,
		now:     time.Now,
		logger:  resolveLogger(logger),
	}
}

// CastVote records user's choice of optionID on pollID. optionID 0 means no
// selection was made.
//
// Errors: ErrNotFound for an unknown poll or an option outside the poll,
// ErrForbidden for an inactive poll, ErrMissingSelection for optionID 0.
// A concurrent or repeated vote by the same user is reported through
// CastResult.AlreadyVoted, not as an error.
func (l *VoteLedger) CastVote(ctx context.Context, user *model.User, pollID, optionID uint) (CastResult, error) {
	if user == nil {
		return CastResult{}, ErrUnauthenticated
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	poll, err := l.polls.FindByID(ctx, pollID)
	if err != nil {
		if repository.IsNotFound(err) {
			return CastResult{}, fmt.Errorf("poll %d: %w", pollID, ErrNotFound)
		}
		return CastResult{}, fmt.Errorf("load poll: %w", err)
	}
	if !poll.IsActive {
		return CastResult{}, fmt.Errorf("poll %d: %w", pollID, ErrPollInactive)
	}
	if optionID == 0 {
		return CastResult{}, ErrMissingSelection
	}
	if !hasOption(poll.Options, optionID) {
		return CastResult{}, fmt.Errorf("option %d in poll %d: %w", optionID, pollID, ErrNotFound)
	}

	vote := &model.Vote{
		UserID:   user.ID,
		PollID:   pollID,
		OptionID: optionID,
		VotedAt:  l.now().UTC(),
	}
	err = l.votes.Record(ctx, vote)
	switch {
	case err == nil:
		l.logger.Info("vote recorded",
			"event", "ledger_vote_recorded",
			"module", "service/ledger",
			"vote_id", vote.ID,
			"poll_id", pollID,
			"option_id", optionID,
			"user_id", user.ID,
		)
		return CastResult{Vote: vote}, nil
	case errors.Is(err, repository.ErrDuplicateVote):
		existing, ferr := l.votes.FindByUserAndPoll(ctx, user.ID, pollID)
		if ferr != nil {
			return CastResult{}, fmt.Errorf("load existing vote: %w", ferr)
		}
		l.logger.Info("vote rejected as duplicate",
			"event", "ledger_vote_duplicate",
			"module", "service/ledger",
			"vote_id", existing.ID,
			"poll_id", pollID,
			"user_id", user.ID,
		)
		return CastResult{Vote: existing, AlreadyVoted: true}, nil
	case errors.Is(err, repository.ErrOptionNotInPoll):
		return CastResult{}, fmt.Errorf("option %d in poll %d: %w", optionID, pollID, ErrNotFound)
	default:
		l.logger.Error("vote transaction failed",
			"event", "ledger_vote_failed",
			"module", "service/ledger",
			"poll_id", pollID,
			"option_id", optionID,
			"user_id", user.ID,
			"error", err.Error(),
		)
		return CastResult{}, fmt.Errorf("cast vote: %w", err)
	}
}

func hasOption(options []model.Option, optionID uint) bool {
	for _, option := range options {
		if option.ID == optionID {
			return true
		}
	}
	return false
}
