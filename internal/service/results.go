package service

import (
	"context"
	"fmt"

	"pollbooth/internal/model"
	"pollbooth/internal/repository"
)

// TotalVotes sums the cached counters of options. No options means zero.
func TotalVotes(options []model.Option) int {
	total := 0
	for _, option := range options {
		total += option.VoteCount
	}
	return total
}

// Percentage returns voteCount/total as a percentage rounded half-up to one
// decimal place. A zero total yields 0. Values across options are rounded
// independently and need not sum to 100.
func Percentage(voteCount, total int) float64 {
	if total <= 0 || voteCount <= 0 {
		return 0
	}
	// Work in integer tenths: floor(v*1000/t + 1/2).
	v, t := int64(voteCount), int64(total)
	tenths := (v*2000 + t) / (2 * t)
	return float64(tenths) / 10
}

// OptionResult is one row of a results page.
type OptionResult struct {
	Option     model.Option
	Percentage float64
}

// PollResults is the aggregated view of a poll.
type PollResults struct {
	Poll       model.Poll
	Options    []OptionResult
	TotalVotes int
	UserVote   *model.Vote
}

// ResultsService builds results views from current counters.
type ResultsService struct {
	polls *repository.PollRepository
	votes *repository.VoteRepository
}

func NewResultsService(polls *repository.PollRepository, votes *repository.VoteRepository) *ResultsService {
	return &ResultsService{polls: polls, votes: votes}
}

// Results aggregates a poll. Inactive polls still have results. viewer may be
// nil; when set, the viewer's own vote is attached.
func (s *ResultsService) Results(ctx context.Context, pollID uint, viewer *model.User) (PollResults, error) {
	poll, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		if repository.IsNotFound(err) {
			return PollResults{}, fmt.Errorf("poll %d: %w", pollID, ErrNotFound)
		}
		return PollResults{}, fmt.Errorf("load poll: %w", err)
	}

	total := TotalVotes(poll.Options)
	rows := make([]OptionResult, 0, len(poll.Options))
	for _, option := range poll.Options {
		rows = append(rows, OptionResult{Option: option, Percentage: Percentage(option.VoteCount, total)})
	}

	out := PollResults{Poll: *poll, Options: rows, TotalVotes: total}
	if viewer != nil {
		vote, err := s.votes.FindByUserAndPoll(ctx, viewer.ID, pollID)
		switch {
		case err == nil:
			out.UserVote = vote
		case repository.IsNotFound(err):
			// not voted yet
		default:
			return PollResults{}, fmt.Errorf("load user vote: %w", err)
		}
	}
	return out, nil
}
