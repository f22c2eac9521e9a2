package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pollbooth/internal/model"
	"pollbooth/internal/service"
)

func formatPoll(poll model.Poll, userVote *model.Vote) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗳 <b>#%d %s</b>\n", poll.ID, escape(poll.Question)))
	sb.WriteString(fmt.Sprintf("<i>%s</i>\n", escape(poll.Category.Label())))
	if poll.Description != "" {
		sb.WriteString(fmt.Sprintf("📝 %s\n", escape(poll.Description)))
	}
	sb.WriteByte('\n')

	if len(poll.Options) == 0 {
		sb.WriteString("No options available.")
		return sb.String()
	}
	for i, option := range poll.Options {
		mark := "▫️"
		if userVote != nil && userVote.OptionID == option.ID {
			mark = "✅"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %s\n", mark, i+1, escape(option.Text)))
	}
	if userVote != nil {
		sb.WriteString("\nYou have already voted. See /results " + strconv.FormatUint(uint64(poll.ID), 10))
	}
	return strings.TrimSpace(sb.String())
}

func formatResults(res service.PollResults) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 <b>%s</b>\n", escape(res.Poll.Question)))
	sb.WriteString(fmt.Sprintf("Total votes: %d\n\n", res.TotalVotes))
	for _, row := range res.Options {
		mark := ""
		if res.UserVote != nil && res.UserVote.OptionID == row.Option.ID {
			mark = " ✅"
		}
		sb.WriteString(fmt.Sprintf("%s %s%%  %s (%d)%s\n",
			bar(row.Percentage), strconv.FormatFloat(row.Percentage, 'f', 1, 64), escape(row.Option.Text), row.Option.VoteCount, mark))
	}
	if !res.Poll.IsActive {
		sb.WriteString("\n⏸ This poll is closed.")
	}
	return strings.TrimSpace(sb.String())
}

// bar renders a ten-cell progress bar for a percentage.
func bar(pct float64) string {
	filled := int(pct/10 + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

func voteKeyboard(poll model.Poll) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(poll.Options))
	for _, option := range poll.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(shortTitle(option.Text, 40), voteData(poll.ID, option.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func voteData(pollID, optionID uint) string {
	return fmt.Sprintf("%s%d:%d", cbVotePrefix, pollID, optionID)
}

func pollData(pollID uint) string {
	return fmt.Sprintf("%s%d", cbPollPrefix, pollID)
}

func parseVoteData(data string) (uint, uint, error) {
	parts := strings.Split(strings.TrimPrefix(data, cbVotePrefix), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed vote callback %q", data)
	}
	pollID, err := parseID(parts[0])
	if err != nil {
		return 0, 0, err
	}
	optionID, err := parseID(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return pollID, optionID, nil
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelPolls),
			tgbotapi.NewKeyboardButton(menuLabelNew),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelMine),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSkip)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func doneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDone),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, choice := range model.Categories() {
		row = append(row, tgbotapi.NewKeyboardButton(choice.Label))
		if len(row) == 2 {
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
			row = nil
		}
	}
	row = append(row, tgbotapi.NewKeyboardButton(btnCancelDialog))
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// categoryFromLabel accepts either a display label or a raw category value.
func categoryFromLabel(text string) (model.Category, bool) {
	text = strings.TrimSpace(text)
	for _, choice := range model.Categories() {
		if strings.EqualFold(choice.Label, text) {
			return choice.Value, true
		}
	}
	if text == "" {
		return "", false
	}
	return model.ParseCategory(text)
}

func categoryList() string {
	values := make([]string, 0, len(model.Categories()))
	for _, choice := range model.Categories() {
		values = append(values, string(choice.Value))
	}
	return strings.Join(values, ", ")
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isDoneInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnDone) || value == "done"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel"
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(title)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
