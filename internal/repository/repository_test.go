package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"pollbooth/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "test.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func seedPoll(t *testing.T, polls *PollRepository, owner *model.User, texts ...string) *model.Poll {
	t.Helper()
	ownerID := owner.ID
	poll := &model.Poll{Question: "Best editor?", Category: model.CategoryTechnology, IsActive: true, CreatedByID: &ownerID}
	for _, text := range texts {
		poll.Options = append(poll.Options, model.Option{Text: text})
	}
	if err := polls.Create(context.Background(), poll); err != nil {
		t.Fatalf("create poll: %v", err)
	}
	return poll
}

func seedUser(t *testing.T, users *UserRepository, login string) *model.User {
	t.Helper()
	user, err := users.UpsertByLogin(context.Background(), login, false)
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return user
}

func TestIsPostgresDSN(t *testing.T) {
	tests := map[string]bool{
		"postgres://u:p@localhost:5432/db":                   true,
		"postgresql://localhost/db":                          true,
		"host=localhost user=u dbname=polls sslmode=disable": true,
		"pollbooth.db":                    false,
		"file:data/polls.db?cache=shared": false,
	}
	for dsn, want := range tests {
		if got := IsPostgresDSN(dsn); got != want {
			t.Fatalf("IsPostgresDSN(%q) = %v, want %v", dsn, got, want)
		}
	}
}

func TestWithSQLiteDefaults(t *testing.T) {
	got := withSQLiteDefaults("polls.db")
	want := "polls.db?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if got != want {
		t.Fatalf("withSQLiteDefaults = %q, want %q", got, want)
	}

	got = withSQLiteDefaults("file:polls.db?_busy_timeout=100")
	want = "file:polls.db?_busy_timeout=100&_foreign_keys=on&_txlock=immediate"
	if got != want {
		t.Fatalf("withSQLiteDefaults = %q, want %q", got, want)
	}

	if got := withSQLiteDefaults("file::memory:?cache=shared"); got != "file::memory:?cache=shared" {
		t.Fatalf("memory dsn must be left alone, got %q", got)
	}
}

func TestRecordIncrementsCounter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users, polls, votes := NewUserRepository(db), NewPollRepository(db), NewVoteRepository(db)

	user := seedUser(t, users, "alice")
	poll := seedPoll(t, polls, user, "vim", "emacs")

	vote := &model.Vote{UserID: user.ID, PollID: poll.ID, OptionID: poll.Options[0].ID}
	if err := votes.Record(ctx, vote); err != nil {
		t.Fatalf("record vote: %v", err)
	}
	if vote.ID == 0 {
		t.Fatalf("expected vote id to be set")
	}

	option, err := polls.FindOption(ctx, poll.Options[0].ID)
	if err != nil {
		t.Fatalf("find option: %v", err)
	}
	if option.VoteCount != 1 {
		t.Fatalf("expected vote_count 1, got %d", option.VoteCount)
	}
}

func TestRecordRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users, polls, votes := NewUserRepository(db), NewPollRepository(db), NewVoteRepository(db)

	user := seedUser(t, users, "alice")
	poll := seedPoll(t, polls, user, "vim", "emacs")

	if err := votes.Record(ctx, &model.Vote{UserID: user.ID, PollID: poll.ID, OptionID: poll.Options[0].ID}); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	err := votes.Record(ctx, &model.Vote{UserID: user.ID, PollID: poll.ID, OptionID: poll.Options[1].ID})
	if !errors.Is(err, ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}

	total, err := polls.SumVoteCounts(ctx, poll.ID)
	if err != nil {
		t.Fatalf("sum counts: %v", err)
	}
	if total != 1 {
		t.Fatalf("duplicate must not move counters, total=%d", total)
	}
	count, err := votes.CountByPoll(ctx, poll.ID)
	if err != nil {
		t.Fatalf("count votes: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one vote row, got %d", count)
	}
}

func TestRecordRejectsForeignOption(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users, polls, votes := NewUserRepository(db), NewPollRepository(db), NewVoteRepository(db)

	user := seedUser(t, users, "alice")
	first := seedPoll(t, polls, user, "a", "b")
	second := seedPoll(t, polls, user, "c", "d")

	err := votes.Record(ctx, &model.Vote{UserID: user.ID, PollID: first.ID, OptionID: second.Options[0].ID})
	if !errors.Is(err, ErrOptionNotInPoll) {
		t.Fatalf("expected ErrOptionNotInPoll, got %v", err)
	}
	if count, _ := votes.CountByPoll(ctx, first.ID); count != 0 {
		t.Fatalf("expected no vote rows, got %d", count)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users, polls, votes := NewUserRepository(db), NewPollRepository(db), NewVoteRepository(db)

	user := seedUser(t, users, "alice")
	poll := seedPoll(t, polls, user, "a", "b")
	if err := votes.Record(ctx, &model.Vote{UserID: user.ID, PollID: poll.ID, OptionID: poll.Options[0].ID}); err != nil {
		t.Fatalf("record vote: %v", err)
	}

	if err := polls.Delete(ctx, poll.ID); err != nil {
		t.Fatalf("delete poll: %v", err)
	}
	if _, err := polls.FindByID(ctx, poll.ID); !IsNotFound(err) {
		t.Fatalf("expected poll to be gone, got %v", err)
	}
	if _, err := polls.FindOption(ctx, poll.Options[0].ID); !IsNotFound(err) {
		t.Fatalf("expected options to be gone, got %v", err)
	}
	if count, _ := votes.CountByUser(ctx, user.ID); count != 0 {
		t.Fatalf("expected votes to be gone, got %d", count)
	}
	if err := polls.Delete(ctx, poll.ID); !IsNotFound(err) {
		t.Fatalf("deleting twice should report not found, got %v", err)
	}
}

func TestToggleAndSetActive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users, polls := NewUserRepository(db), NewPollRepository(db)

	user := seedUser(t, users, "alice")
	poll := seedPoll(t, polls, user, "a", "b")

	active, err := polls.ToggleActive(ctx, poll.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if active {
		t.Fatalf("expected poll to become inactive")
	}
	list, err := polls.ListActive(ctx, model.CategoryAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("inactive poll must not be listed, got %d", len(list))
	}

	if err := polls.SetActive(ctx, poll.ID, true); err != nil {
		t.Fatalf("set active: %v", err)
	}
	list, _ = polls.ListActive(ctx, model.CategoryTechnology)
	if len(list) != 1 || len(list[0].Options) != 2 {
		t.Fatalf("expected the poll with two options, got %+v", list)
	}
	if list, _ = polls.ListActive(ctx, model.CategorySports); len(list) != 0 {
		t.Fatalf("category filter ignored")
	}

	if _, err := polls.ToggleActive(ctx, 9999); !IsNotFound(err) {
		t.Fatalf("expected not found for missing poll, got %v", err)
	}
}

func TestCounterDriftAndRepair(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users, polls, votes := NewUserRepository(db), NewPollRepository(db), NewVoteRepository(db)

	user := seedUser(t, users, "alice")
	poll := seedPoll(t, polls, user, "a", "b")
	if err := votes.Record(ctx, &model.Vote{UserID: user.ID, PollID: poll.ID, OptionID: poll.Options[0].ID}); err != nil {
		t.Fatalf("record vote: %v", err)
	}

	drifts, err := votes.CounterDrifts(ctx)
	if err != nil {
		t.Fatalf("drifts: %v", err)
	}
	if len(drifts) != 0 {
		t.Fatalf("expected no drift, got %+v", drifts)
	}

	if err := db.Model(&model.Option{}).Where("id = ?", poll.Options[1].ID).UpdateColumn("vote_count", 3).Error; err != nil {
		t.Fatalf("corrupt counter: %v", err)
	}
	drifts, err = votes.CounterDrifts(ctx)
	if err != nil {
		t.Fatalf("drifts: %v", err)
	}
	if len(drifts) != 1 {
		t.Fatalf("expected one drift, got %+v", drifts)
	}
	if d := drifts[0]; d.OptionID != poll.Options[1].ID || d.PollID != poll.ID || d.Cached != 3 || d.Actual != 0 {
		t.Fatalf("unexpected drift %+v", d)
	}

	if err := votes.RepairCounter(ctx, poll.Options[1].ID); err != nil {
		t.Fatalf("repair: %v", err)
	}
	if drifts, _ = votes.CounterDrifts(ctx); len(drifts) != 0 {
		t.Fatalf("expected drift to be repaired, got %+v", drifts)
	}
}

func TestUpsertByLogin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	first, err := users.UpsertByLogin(ctx, "alice", false)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := users.UpsertByLogin(ctx, "alice", true)
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same user, got %d and %d", first.ID, second.ID)
	}
	stored, err := users.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.IsAdmin {
		t.Fatalf("expected admin flag to be synced")
	}
}

func TestUpsertFromTelegram(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	first, err := users.UpsertFromTelegram(ctx, 42, "Ann", "", "ann", false)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := users.UpsertFromTelegram(ctx, 42, "Ann", "Lee", "annlee", false)
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same user, got %d and %d", first.ID, second.ID)
	}
	stored, _ := users.FindByID(ctx, first.ID)
	if stored.Username != "annlee" || stored.LastName != "Lee" {
		t.Fatalf("profile not updated: %+v", stored)
	}
}
