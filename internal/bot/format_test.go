package bot

import (
	"strings"
	"testing"

	"pollbooth/internal/model"
	"pollbooth/internal/service"
)

func TestVoteDataRoundTrip(t *testing.T) {
	data := voteData(12, 345)
	if data != "vote:12:345" {
		t.Fatalf("unexpected callback data %q", data)
	}
	pollID, optionID, err := parseVoteData(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pollID != 12 || optionID != 345 {
		t.Fatalf("got poll %d option %d", pollID, optionID)
	}

	for _, bad := range []string{"vote:", "vote:1", "vote:1:x", "vote:0:2", "vote:1:2:3"} {
		if _, _, err := parseVoteData(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseID(t *testing.T) {
	for raw, want := range map[string]uint{"7": 7, " #42 ": 42} {
		got, err := parseID(raw)
		if err != nil || got != want {
			t.Fatalf("parseID(%q) = %d, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"", "0", "-3", "abc"} {
		if _, err := parseID(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestFormatResults(t *testing.T) {
	res := service.PollResults{
		Poll: model.Poll{Question: "Tabs <or> spaces?", IsActive: false},
		Options: []service.OptionResult{
			{Option: model.Option{ID: 1, Text: "Tabs", VoteCount: 1}, Percentage: 33.3},
			{Option: model.Option{ID: 2, Text: "Spaces", VoteCount: 2}, Percentage: 66.7},
		},
		TotalVotes: 3,
		UserVote:   &model.Vote{OptionID: 2},
	}
	text := formatResults(res)

	for _, want := range []string{"Tabs &lt;or&gt; spaces?", "Total votes: 3", "33.3%", "66.7%", "Spaces (2) ✅", "closed"} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Tabs (1) ✅") {
		t.Fatalf("only the viewer's option should be marked:\n%s", text)
	}
}

func TestFormatPoll(t *testing.T) {
	poll := model.Poll{
		ID:       3,
		Question: "Lunch?",
		Category: model.CategoryCollegeLife,
		Options:  []model.Option{{ID: 10, Text: "Pizza"}, {ID: 11, Text: "Salad"}},
	}
	text := formatPoll(poll, nil)
	if !strings.Contains(text, "College Life") || !strings.Contains(text, "2. Salad") {
		t.Fatalf("unexpected poll text:\n%s", text)
	}
	if strings.Contains(text, "already voted") {
		t.Fatalf("fresh viewer must not see the voted notice")
	}

	voted := formatPoll(poll, &model.Vote{OptionID: 11})
	if !strings.Contains(voted, "✅ 2. Salad") || !strings.Contains(voted, "/results 3") {
		t.Fatalf("unexpected voted text:\n%s", voted)
	}
}

func TestBar(t *testing.T) {
	tests := map[float64]string{
		0:    "░░░░░░░░░░",
		33.3: "███░░░░░░░",
		66.7: "███████░░░",
		100:  "██████████",
	}
	for pct, want := range tests {
		if got := bar(pct); got != want {
			t.Fatalf("bar(%v) = %q, want %q", pct, got, want)
		}
	}
}

func TestCategoryFromLabel(t *testing.T) {
	tests := []struct {
		text string
		want model.Category
		ok   bool
	}{
		{text: "College Life", want: model.CategoryCollegeLife, ok: true},
		{text: "sports", want: model.CategorySports, ok: true},
		{text: "", ok: false},
		{text: "Cooking", ok: false},
	}
	for _, tt := range tests {
		got, ok := categoryFromLabel(tt.text)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Fatalf("categoryFromLabel(%q) = %q, %v", tt.text, got, ok)
		}
	}
}

func TestDialogInputs(t *testing.T) {
	if !isSkipInput(btnSkip) || !isSkipInput(" - ") || isSkipInput("later") {
		t.Fatalf("skip detection broken")
	}
	if !isDoneInput("Done") || !isDoneInput(btnDone) || isDoneInput("not done") {
		t.Fatalf("done detection broken")
	}
	if !isCancelInput(btnCancelDialog) || !isCancelInput("cancel") {
		t.Fatalf("cancel detection broken")
	}
}

func TestShortTitle(t *testing.T) {
	if got := shortTitle("  short ", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := shortTitle("héllo wörld", 5); got != "héll…" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestPollDataOpensPoll(t *testing.T) {
	data := pollData(5)
	if data != "poll:5" {
		t.Fatalf("unexpected callback data %q", data)
	}
	if !strings.HasPrefix(data, cbPollPrefix) {
		t.Fatalf("expected poll prefix in %q", data)
	}
	id, err := parseID(strings.TrimPrefix(data, cbPollPrefix))
	if err != nil || id != 5 {
		t.Fatalf("parse poll data: %d, %v", id, err)
	}
}
