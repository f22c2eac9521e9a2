package model

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw   string
		want  Category
		valid bool
	}{
		{raw: "", want: DefaultCategory, valid: true},
		{raw: "  Sports ", want: CategorySports, valid: true},
		{raw: "college_life", want: CategoryCollegeLife, valid: true},
		{raw: "all", want: CategoryAll, valid: false},
		{raw: "cooking", want: Category("cooking"), valid: false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.raw)
		if got != tt.want || ok != tt.valid {
			t.Fatalf("ParseCategory(%q) = %q, %v; want %q, %v", tt.raw, got, ok, tt.want, tt.valid)
		}
	}
}

func TestParseFilter(t *testing.T) {
	for _, raw := range []string{"", "all", " ALL "} {
		got, ok := ParseFilter(raw)
		if !ok || got != CategoryAll {
			t.Fatalf("ParseFilter(%q) = %q, %v; want all", raw, got, ok)
		}
	}
	if got, ok := ParseFilter("education"); !ok || got != CategoryEducation {
		t.Fatalf("ParseFilter(education) = %q, %v", got, ok)
	}
	if _, ok := ParseFilter("music"); ok {
		t.Fatalf("expected unknown filter to be rejected")
	}
}

func TestFilterChoicesStartWithAll(t *testing.T) {
	choices := FilterChoices()
	if len(choices) != len(Categories())+1 {
		t.Fatalf("expected %d choices, got %d", len(Categories())+1, len(choices))
	}
	if choices[0].Value != CategoryAll {
		t.Fatalf("expected first choice to be all, got %q", choices[0].Value)
	}
	if CategoryAll.Valid() {
		t.Fatalf("all must not be a storable category")
	}
}

func TestCategoryLabel(t *testing.T) {
	if got := CategoryCollegeLife.Label(); got != "College Life" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := Category("misc").Label(); got != "misc" {
		t.Fatalf("unknown category should fall back to raw value, got %q", got)
	}
}

func TestPollOwnedBy(t *testing.T) {
	owner := uint(7)
	poll := Poll{CreatedByID: &owner}
	if !poll.OwnedBy(7) {
		t.Fatalf("expected owner match")
	}
	if poll.OwnedBy(8) {
		t.Fatalf("expected other user not to own poll")
	}
	if (Poll{}).OwnedBy(0) {
		t.Fatalf("orphaned poll must have no owner")
	}
}

func TestUserDisplayName(t *testing.T) {
	login := "alice"
	tests := []struct {
		user User
		want string
	}{
		{user: User{Username: "bob", Login: &login}, want: "bob"},
		{user: User{Login: &login}, want: "alice"},
		{user: User{FirstName: "Carol", LastName: "King"}, want: "Carol King"},
		{user: User{ID: 4}, want: "user #4"},
	}
	for _, tt := range tests {
		if got := tt.user.DisplayName(); got != tt.want {
			t.Fatalf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}
