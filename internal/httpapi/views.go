package httpapi

import (
	"time"

	"pollbooth/internal/model"
	"pollbooth/internal/service"
)

type errorView struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

type optionView struct {
	ID         uint     `json:"id"`
	Text       string   `json:"text"`
	VoteCount  int      `json:"vote_count"`
	Percentage *float64 `json:"percentage,omitempty"`
}

type pollView struct {
	ID            uint         `json:"id"`
	Question      string       `json:"question"`
	Description   string       `json:"description,omitempty"`
	Category      string       `json:"category"`
	CategoryLabel string       `json:"category_label"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
	CreatedBy     string       `json:"created_by,omitempty"`
	TotalVotes    int          `json:"total_votes"`
	Options       []optionView `json:"options"`
}

type voteView struct {
	ID           uint      `json:"id"`
	PollID       uint      `json:"poll_id"`
	PollQuestion string    `json:"poll_question,omitempty"`
	OptionID     uint      `json:"option_id"`
	OptionText   string    `json:"option_text,omitempty"`
	VotedAt      time.Time `json:"voted_at"`
}

type pollListView struct {
	Polls            []pollView             `json:"polls"`
	Categories       []model.CategoryChoice `json:"categories"`
	SelectedCategory model.Category         `json:"selected_category"`
	Error            string                 `json:"error,omitempty"`
}

type pollDetailView struct {
	Poll         pollView  `json:"poll"`
	AlreadyVoted bool      `json:"already_voted"`
	UserVote     *voteView `json:"user_vote,omitempty"`
	Error        string    `json:"error,omitempty"`
	Message      string    `json:"message,omitempty"`
}

type resultsView struct {
	Poll       pollView  `json:"poll"`
	TotalVotes int       `json:"total_votes"`
	UserVote   *voteView `json:"user_vote,omitempty"`
}

type createPollForm struct {
	Question    string   `json:"question"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	OptionTexts []string `json:"option_texts"`
}

type createPollView struct {
	Form       createPollForm         `json:"form"`
	Categories []model.CategoryChoice `json:"categories"`
	Error      string                 `json:"error"`
	Errors     []string               `json:"errors"`
}

type myPollsView struct {
	Polls      []pollView `json:"polls"`
	TotalVotes int        `json:"total_votes"`
}

type historyView struct {
	Votes []voteView `json:"votes"`
}

type profileView struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	IsAdmin      bool   `json:"is_admin"`
	PollsCreated int64  `json:"polls_created"`
	VotesCast    int64  `json:"votes_cast"`
}

func toPollView(poll model.Poll) pollView {
	view := pollView{
		ID:            poll.ID,
		Question:      poll.Question,
		Description:   poll.Description,
		Category:      string(poll.Category),
		CategoryLabel: poll.Category.Label(),
		IsActive:      poll.IsActive,
		CreatedAt:     poll.CreatedAt,
		TotalVotes:    service.TotalVotes(poll.Options),
		Options:       make([]optionView, 0, len(poll.Options)),
	}
	if poll.CreatedBy != nil {
		view.CreatedBy = poll.CreatedBy.DisplayName()
	}
	for _, option := range poll.Options {
		view.Options = append(view.Options, optionView{ID: option.ID, Text: option.Text, VoteCount: option.VoteCount})
	}
	return view
}

func toPollViews(polls []model.Poll) []pollView {
	out := make([]pollView, 0, len(polls))
	for _, poll := range polls {
		out = append(out, toPollView(poll))
	}
	return out
}

func toResultsView(res service.PollResults) resultsView {
	view := toPollView(res.Poll)
	view.Options = view.Options[:0]
	for _, row := range res.Options {
		pct := row.Percentage
		view.Options = append(view.Options, optionView{
			ID:         row.Option.ID,
			Text:       row.Option.Text,
			VoteCount:  row.Option.VoteCount,
			Percentage: &pct,
		})
	}
	return resultsView{Poll: view, TotalVotes: res.TotalVotes, UserVote: toVoteView(res.UserVote)}
}

func toVoteView(vote *model.Vote) *voteView {
	if vote == nil {
		return nil
	}
	view := &voteView{
		ID:       vote.ID,
		PollID:   vote.PollID,
		OptionID: vote.OptionID,
		VotedAt:  vote.VotedAt,
	}
	if vote.Poll != nil {
		view.PollQuestion = vote.Poll.Question
	}
	if vote.Option != nil {
		view.OptionText = vote.Option.Text
	}
	return view
}
