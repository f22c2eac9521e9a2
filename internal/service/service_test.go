package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"pollbooth/internal/model"
	"pollbooth/internal/repository"
)

type fixture struct {
	db      *gorm.DB
	users   *repository.UserRepository
	polls   *repository.PollRepository
	votes   *repository.VoteRepository
	pollSvc *PollService
	ledger  *VoteLedger
	results *ResultsService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"), discardLogger())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = repository.Close(db) })

	f := &fixture{
		db:    db,
		users: repository.NewUserRepository(db),
		polls: repository.NewPollRepository(db),
		votes: repository.NewVoteRepository(db),
	}
	f.pollSvc = NewPollService(f.polls, f.votes, discardLogger())
	f.ledger = NewVoteLedger(f.polls, f.votes, 0, discardLogger())
	f.results = NewResultsService(f.polls, f.votes)
	return f
}

func (f *fixture) user(t *testing.T, login string, admin bool) *model.User {
	t.Helper()
	user, err := f.users.UpsertByLogin(context.Background(), login, admin)
	if err != nil {
		t.Fatalf("upsert user %s: %v", login, err)
	}
	return user
}

func (f *fixture) poll(t *testing.T, owner *model.User, options ...string) *model.Poll {
	t.Helper()
	poll, err := f.pollSvc.CreatePoll(context.Background(), owner, PollInput{
		Question: "Where should we meet?",
		Category: "college_life",
		Options:  options,
	})
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	return poll
}

func (f *fixture) voteCount(t *testing.T, optionID uint) int {
	t.Helper()
	option, err := f.polls.FindOption(context.Background(), optionID)
	if err != nil {
		t.Fatalf("find option %d: %v", optionID, err)
	}
	return option.VoteCount
}
