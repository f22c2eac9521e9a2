package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pollbooth/internal/model"
	"pollbooth/internal/service"
)

const (
	msgSelectOption = "Please select an option before submitting."
	msgAlreadyVoted = "You have already voted in this poll."
)

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(r.Context()); err != nil {
			s.logger.Error("health check failed", "event", "http_healthz_failed", "module", "httpapi", "error", err.Error())
			writeError(w, http.StatusServiceUnavailable, "Database unavailable.")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.FilterChoices())
}

func (s *Server) listPolls(w http.ResponseWriter, r *http.Request) {
	polls, selected, err := s.deps.Polls.ListActive(r.Context(), r.URL.Query().Get("category"))
	view := pollListView{
		Polls:            toPollViews(polls),
		Categories:       model.FilterChoices(),
		SelectedCategory: selected,
	}
	if err != nil {
		var verr *service.ValidationError
		if !errors.As(err, &verr) {
			s.fail(w, r, err)
			return
		}
		view.Error = strings.Join(verr.Problems, "; ")
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) pollDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pollID(r)
	if !ok {
		s.fail(w, r, service.ErrNotFound)
		return
	}
	detail, err := s.deps.Polls.Detail(r.Context(), id, userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pollDetailView{
		Poll:         toPollView(detail.Poll),
		AlreadyVoted: detail.UserVote != nil,
		UserVote:     toVoteView(detail.UserVote),
	})
}

func (s *Server) redirectToDetail(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, fmt.Sprintf("/polls/%s", strings.TrimSpace(chiID(r))), http.StatusSeeOther)
}

// castVote handles the vote form. Missing selections and repeated votes are
// reported in a 200 response alongside the poll; success redirects to results.
func (s *Server) castVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pollID(r)
	if !ok {
		s.fail(w, r, service.ErrNotFound)
		return
	}
	user := userFrom(ctx)

	var optionID uint
	if raw := strings.TrimSpace(r.FormValue("option")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			s.fail(w, r, service.ErrNotFound)
			return
		}
		optionID = uint(parsed)
	}

	res, err := s.deps.Ledger.CastVote(ctx, user, id, optionID)
	switch {
	case errors.Is(err, service.ErrMissingSelection):
		detail, derr := s.deps.Polls.Detail(ctx, id, user)
		if derr != nil {
			s.fail(w, r, derr)
			return
		}
		writeJSON(w, http.StatusOK, pollDetailView{
			Poll:         toPollView(detail.Poll),
			AlreadyVoted: detail.UserVote != nil,
			UserVote:     toVoteView(detail.UserVote),
			Error:        msgSelectOption,
		})
	case err != nil:
		s.fail(w, r, err)
	case res.AlreadyVoted:
		detail, derr := s.deps.Polls.Detail(ctx, id, user)
		if derr != nil {
			s.fail(w, r, derr)
			return
		}
		writeJSON(w, http.StatusOK, pollDetailView{
			Poll:         toPollView(detail.Poll),
			AlreadyVoted: true,
			UserVote:     toVoteView(res.Vote),
			Message:      msgAlreadyVoted,
		})
	default:
		http.Redirect(w, r, fmt.Sprintf("/polls/%d/results", id), http.StatusSeeOther)
	}
}

func (s *Server) pollResults(w http.ResponseWriter, r *http.Request) {
	id, ok := pollID(r)
	if !ok {
		s.fail(w, r, service.ErrNotFound)
		return
	}
	res, err := s.deps.Results.Results(r.Context(), id, userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResultsView(res))
}

func (s *Server) createPoll(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed form.")
		return
	}
	form := createPollForm{
		Question:    r.PostForm.Get("question"),
		Description: r.PostForm.Get("description"),
		Category:    r.PostForm.Get("category"),
		OptionTexts: r.PostForm["option_text"],
	}
	poll, err := s.deps.Polls.CreatePoll(r.Context(), userFrom(r.Context()), service.PollInput{
		Question:    form.Question,
		Description: form.Description,
		Category:    form.Category,
		Options:     form.OptionTexts,
	})
	if err != nil {
		var verr *service.ValidationError
		if !errors.As(err, &verr) {
			s.fail(w, r, err)
			return
		}
		form.OptionTexts = service.CleanOptionTexts(form.OptionTexts)
		for len(form.OptionTexts) < 2 {
			form.OptionTexts = append(form.OptionTexts, "")
		}
		writeJSON(w, http.StatusOK, createPollView{
			Form:       form,
			Categories: model.Categories(),
			Error:      "Please correct the errors below.",
			Errors:     verr.Problems,
		})
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/polls/%d", poll.ID), http.StatusSeeOther)
}

func (s *Server) togglePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pollID(r)
	if !ok {
		s.fail(w, r, service.ErrNotFound)
		return
	}
	if _, err := s.deps.Polls.ToggleActive(r.Context(), id, userFrom(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/my-polls", http.StatusSeeOther)
}

func (s *Server) deletePoll(w http.ResponseWriter, r *http.Request) {
	id, ok := pollID(r)
	if !ok {
		s.fail(w, r, service.ErrNotFound)
		return
	}
	if _, err := s.deps.Polls.DeletePoll(r.Context(), id, userFrom(r.Context())); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/my-polls", http.StatusSeeOther)
}

func (s *Server) myPolls(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Polls.OwnerPolls(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, myPollsView{Polls: toPollViews(summary.Polls), TotalVotes: summary.TotalVotes})
}

func (s *Server) voteHistory(w http.ResponseWriter, r *http.Request) {
	votes, err := s.deps.Polls.VoteHistory(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view := historyView{Votes: make([]voteView, 0, len(votes))}
	for i := range votes {
		view.Votes = append(view.Votes, *toVoteView(&votes[i]))
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Polls.Profile(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileView{
		ID:           p.User.ID,
		Name:         p.User.DisplayName(),
		IsAdmin:      p.User.IsAdmin,
		PollsCreated: p.PollsCreated,
		VotesCast:    p.VotesCast,
	})
}
