package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"pollbooth/internal/model"
	"pollbooth/internal/repository"
)

const (
	minOptions     = 2
	maxQuestionLen = 255
	maxOptionLen   = 255
)

// PollInput represents data required to create a poll.
type PollInput struct {
	Question    string
	Description string
	Category    string
	Options     []string
}

// PollDetail is a poll as shown to a viewer, with the viewer's vote if any.
type PollDetail struct {
	Poll     model.Poll
	UserVote *model.Vote
}

// OwnerSummary lists an owner's polls with the vote total across all of them.
type OwnerSummary struct {
	Polls      []model.Poll
	TotalVotes int
}

// Profile holds per-user activity counters.
type Profile struct {
	User         model.User
	PollsCreated int64
	VotesCast    int64
}

// PollService manages the poll lifecycle and read models around it.
type PollService struct {
	polls  *repository.PollRepository
	votes  *repository.VoteRepository
	logger *slog.Logger
}

func NewPollService(polls *repository.PollRepository, votes *repository.VoteRepository, logger *slog.Logger) *PollService {
	return &PollService{polls: polls, votes: votes, logger: resolveLogger(logger)}
}

// CreatePoll validates input and stores the poll with its options atomically.
// Blank option texts are dropped before the two-option minimum is checked.
func (s *PollService) CreatePoll(ctx context.Context, owner *model.User, input PollInput) (*model.Poll, error) {
	if owner == nil {
		return nil, ErrUnauthenticated
	}

	verr := &ValidationError{}
	question := strings.TrimSpace(input.Question)
	switch {
	case question == "":
		verr.add("question is required")
	case utf8.RuneCountInString(question) > maxQuestionLen:
		verr.add(fmt.Sprintf("question must be at most %d characters", maxQuestionLen))
	}

	category, ok := model.ParseCategory(input.Category)
	if !ok {
		verr.add(fmt.Sprintf("unknown category %q", strings.TrimSpace(input.Category)))
	}

	texts := CleanOptionTexts(input.Options)
	if len(texts) < minOptions {
		verr.add(fmt.Sprintf("please provide at least %d options", minOptions))
	}
	for _, text := range texts {
		if utf8.RuneCountInString(text) > maxOptionLen {
			verr.add(fmt.Sprintf("option %q must be at most %d characters", shorten(text, 20), maxOptionLen))
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	options := make([]model.Option, 0, len(texts))
	for _, text := range texts {
		options = append(options, model.Option{Text: text})
	}
	ownerID := owner.ID
	poll := &model.Poll{
		Question:    question,
		Description: strings.TrimSpace(input.Description),
		Category:    category,
		IsActive:    true,
		CreatedByID: &ownerID,
		Options:     options,
	}
	if err := s.polls.Create(ctx, poll); err != nil {
		return nil, err
	}

	s.logger.Info("poll created",
		"event", "poll_created",
		"module", "service/poll",
		"poll_id", poll.ID,
		"owner_id", owner.ID,
		"options", len(poll.Options),
		"category", string(poll.Category),
	)
	return poll, nil
}

// ToggleActive flips the poll's active flag. Only the owner or an admin may.
func (s *PollService) ToggleActive(ctx context.Context, pollID uint, actor *model.User) (*model.Poll, error) {
	poll, err := s.authorizedPoll(ctx, pollID, actor)
	if err != nil {
		return nil, err
	}
	active, err := s.polls.ToggleActive(ctx, pollID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("poll %d: %w", pollID, ErrNotFound)
		}
		return nil, err
	}
	poll.IsActive = active

	s.logger.Info("poll active flag toggled",
		"event", "poll_toggled",
		"module", "service/poll",
		"poll_id", pollID,
		"actor_id", actor.ID,
		"active", active,
	)
	return poll, nil
}

// DeletePoll removes the poll with its options and votes. Only the owner or
// an admin may. The deleted poll is returned for confirmation messages.
func (s *PollService) DeletePoll(ctx context.Context, pollID uint, actor *model.User) (*model.Poll, error) {
	poll, err := s.authorizedPoll(ctx, pollID, actor)
	if err != nil {
		return nil, err
	}
	if err := s.polls.Delete(ctx, pollID); err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("poll %d: %w", pollID, ErrNotFound)
		}
		return nil, err
	}

	s.logger.Info("poll deleted",
		"event", "poll_deleted",
		"module", "service/poll",
		"poll_id", pollID,
		"actor_id", actor.ID,
	)
	return poll, nil
}

// ListActive returns active polls, optionally filtered by category. An empty
// filter or "all" disables filtering; the normalized filter is returned.
func (s *PollService) ListActive(ctx context.Context, filter string) ([]model.Poll, model.Category, error) {
	category, ok := model.ParseFilter(filter)
	if !ok {
		return nil, category, &ValidationError{Problems: []string{fmt.Sprintf("unknown category %q", strings.TrimSpace(filter))}}
	}
	polls, err := s.polls.ListActive(ctx, category)
	if err != nil {
		return nil, category, err
	}
	return polls, category, nil
}

// Detail loads a poll for voting. Inactive polls are forbidden to everyone.
func (s *PollService) Detail(ctx context.Context, pollID uint, viewer *model.User) (PollDetail, error) {
	poll, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return PollDetail{}, err
	}
	if !poll.IsActive {
		return PollDetail{}, fmt.Errorf("poll %d: %w", pollID, ErrPollInactive)
	}

	detail := PollDetail{Poll: *poll}
	if viewer != nil {
		vote, err := s.votes.FindByUserAndPoll(ctx, viewer.ID, pollID)
		switch {
		case err == nil:
			detail.UserVote = vote
		case repository.IsNotFound(err):
			// not voted yet
		default:
			return PollDetail{}, fmt.Errorf("load user vote: %w", err)
		}
	}
	return detail, nil
}

// OwnerPolls lists every poll created by owner.
func (s *PollService) OwnerPolls(ctx context.Context, owner *model.User) (OwnerSummary, error) {
	if owner == nil {
		return OwnerSummary{}, ErrUnauthenticated
	}
	polls, err := s.polls.ListByOwner(ctx, owner.ID)
	if err != nil {
		return OwnerSummary{}, err
	}
	total := 0
	for _, poll := range polls {
		total += TotalVotes(poll.Options)
	}
	return OwnerSummary{Polls: polls, TotalVotes: total}, nil
}

// VoteHistory returns the user's votes, newest first.
func (s *PollService) VoteHistory(ctx context.Context, user *model.User) ([]model.Vote, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return s.votes.ListByUser(ctx, user.ID)
}

// Profile returns the user's activity counters.
func (s *PollService) Profile(ctx context.Context, user *model.User) (Profile, error) {
	if user == nil {
		return Profile{}, ErrUnauthenticated
	}
	polls, err := s.polls.CountByOwner(ctx, user.ID)
	if err != nil {
		return Profile{}, err
	}
	votes, err := s.votes.CountByUser(ctx, user.ID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{User: *user, PollsCreated: polls, VotesCast: votes}, nil
}

// CanManage reports whether actor may toggle or delete poll.
func CanManage(poll model.Poll, actor *model.User) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin || poll.OwnedBy(actor.ID)
}

// CleanOptionTexts trims every text and drops the blank ones.
func CleanOptionTexts(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, text := range raw {
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func (s *PollService) authorizedPoll(ctx context.Context, pollID uint, actor *model.User) (*model.Poll, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	poll, err := s.loadPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !CanManage(*poll, actor) {
		s.logger.Warn("poll mutation forbidden",
			"event", "poll_mutation_forbidden",
			"module", "service/poll",
			"poll_id", pollID,
			"actor_id", actor.ID,
		)
		return nil, fmt.Errorf("user %d, poll %d: %w", actor.ID, pollID, ErrNotManager)
	}
	return poll, nil
}

func (s *PollService) loadPoll(ctx context.Context, pollID uint) (*model.Poll, error) {
	poll, err := s.polls.FindByID(ctx, pollID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("poll %d: %w", pollID, ErrNotFound)
		}
		return nil, fmt.Errorf("load poll: %w", err)
	}
	return poll, nil
}

func shorten(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}
