package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pollbooth/internal/model"
	"pollbooth/internal/repository"
	"pollbooth/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageQuestion
	stageDescription
	stageCategory
	stageOptions
)

const (
	cbVotePrefix    = "vote:"
	cbPollPrefix    = "poll:"
	cbConfirmPrefix = "confirmdel:"
	cbCancelPrefix  = "cancel:"
)

const (
	btnSkip         = "⏭️ Skip"
	btnDone         = "✅ Done"
	btnCancelDialog = "⏪ Cancel"
	menuLabelPolls  = "📋 Polls"
	menuLabelNew    = "➕ New poll"
	menuLabelMine   = "🗂 My polls"
	menuLabelHelp   = "ℹ️ Help"
)

type conversationState struct {
	stage conversationStage
	input service.PollInput
}

// Bot exposes polls over Telegram. Voting goes through the same ledger as HTTP.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	pollSvc       *service.PollService
	ledger        *service.VoteLedger
	results       *service.ResultsService
	isAdmin       func(username string) bool
	logger        *slog.Logger
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, pollSvc *service.PollService, ledger *service.VoteLedger, results *service.ResultsService, isAdmin func(string) bool, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}

	logger.Info("bot authorized", "event", "bot_authorized", "module", "bot", "account", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      userRepo,
		pollSvc:       pollSvc,
		ledger:        ledger,
		results:       results,
		isAdmin:       isAdmin,
		logger:        logger,
		conversations: make(map[int64]*conversationState),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates", "event", "bot_polling", "module", "bot")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.Error("handle callback", "event", "bot_callback_failed", "module", "bot", "error", err.Error())
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.logger.Error("handle message", "event", "bot_message_failed", "module", "bot", "error", err.Error())
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Poll creation cancelled.")
	}

	if msg.IsCommand() {
		b.logger.Debug("command received", "event", "bot_command", "module", "bot",
			"telegram_id", msg.From.ID, "command", msg.Command())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Try /polls or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		return b.handleHelp(msg)
	case "polls":
		return b.handleListPolls(ctx, msg.Chat.ID, args)
	case "poll":
		return b.withPollID(msg, args, func(id uint) error { return b.sendPoll(ctx, msg.Chat.ID, msg.From, id) })
	case "results":
		return b.withPollID(msg, args, func(id uint) error { return b.sendResults(ctx, msg.Chat.ID, msg.From, id) })
	case "newpoll":
		return b.startNewPollConversation(ctx, msg)
	case "mypolls":
		return b.handleMyPolls(ctx, msg)
	case "history":
		return b.handleHistory(ctx, msg)
	case "toggle":
		return b.withPollID(msg, args, func(id uint) error { return b.togglePoll(ctx, msg.Chat.ID, msg.From, id) })
	case "delete":
		return b.withPollID(msg, args, func(id uint) error { return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, id) })
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Poll creation cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "🗳 <b>Polls</b>\n" +
		"• /polls [category] — active polls (" + categoryList() + ")\n" +
		"• /poll &lt;id&gt; — show a poll and vote\n" +
		"• /results &lt;id&gt; — poll results\n" +
		"• /newpoll — create a poll step by step\n" +
		"• /mypolls — polls you created\n" +
		"• /toggle &lt;id&gt; — activate or deactivate your poll\n" +
		"• /delete &lt;id&gt; — delete your poll\n" +
		"• /history — your votes\n" +
		"• /cancel — abort poll creation"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListPolls(ctx context.Context, chatID int64, filter string) error {
	polls, category, err := b.pollSvc.ListActive(ctx, filter)
	if err != nil {
		if service.IsValidation(err) {
			return b.sendText(chatID, "Unknown category. Use one of: "+categoryList())
		}
		return err
	}
	if len(polls) == 0 {
		return b.sendText(chatID, "No active polls.")
	}

	var sb strings.Builder
	if category == model.CategoryAll {
		sb.WriteString("📋 <b>Active polls</b>\n\n")
	} else {
		sb.WriteString(fmt.Sprintf("📋 <b>Active polls · %s</b>\n\n", escape(category.Label())))
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, poll := range polls {
		sb.WriteString(fmt.Sprintf("<b>#%d</b> %s <i>(%s)</i>\n", poll.ID, escape(poll.Question), escape(poll.Category.Label())))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("#%d · %s", poll.ID, shortTitle(poll.Question, 28)), pollData(poll.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(sb.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) sendPoll(ctx context.Context, chatID int64, from *tgbotapi.User, pollID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	detail, err := b.pollSvc.Detail(ctx, pollID, user)
	if err != nil {
		return b.sendServiceError(chatID, err)
	}

	text := formatPoll(detail.Poll, detail.UserVote)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if detail.UserVote == nil && len(detail.Poll.Options) > 0 {
		msg.ReplyMarkup = voteKeyboard(detail.Poll)
	}
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) sendResults(ctx context.Context, chatID int64, from *tgbotapi.User, pollID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	res, err := b.results.Results(ctx, pollID, user)
	if err != nil {
		return b.sendServiceError(chatID, err)
	}
	return b.sendText(chatID, formatResults(res))
}

func (b *Bot) castVote(ctx context.Context, chatID int64, from *tgbotapi.User, pollID, optionID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	res, err := b.ledger.CastVote(ctx, user, pollID, optionID)
	if err != nil {
		return b.sendServiceError(chatID, err)
	}
	if res.AlreadyVoted {
		choice := "another option"
		if res.Vote != nil && res.Vote.Option != nil {
			choice = "«" + escape(res.Vote.Option.Text) + "»"
		}
		if err := b.sendText(chatID, fmt.Sprintf("You have already voted in this poll: %s.", choice)); err != nil {
			return err
		}
	}
	return b.sendResults(ctx, chatID, from, pollID)
}

func (b *Bot) handleMyPolls(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	summary, err := b.pollSvc.OwnerPolls(ctx, user)
	if err != nil {
		return err
	}
	if len(summary.Polls) == 0 {
		return b.sendText(msg.Chat.ID, "You have not created any polls yet. Try /newpoll.")
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗂 <b>Your polls</b> · %d votes in total\n\n", summary.TotalVotes))
	for _, poll := range summary.Polls {
		status := "🟢"
		if !poll.IsActive {
			status = "⏸"
		}
		sb.WriteString(fmt.Sprintf("%s <b>#%d</b> %s · %d votes\n", status, poll.ID, escape(poll.Question), service.TotalVotes(poll.Options)))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	votes, err := b.pollSvc.VoteHistory(ctx, user)
	if err != nil {
		return err
	}
	if len(votes) == 0 {
		return b.sendText(msg.Chat.ID, "You have not voted yet.")
	}
	var sb strings.Builder
	sb.WriteString("🧾 <b>Your votes</b>\n\n")
	for _, vote := range votes {
		question, choice := "?", "?"
		if vote.Poll != nil {
			question = vote.Poll.Question
		}
		if vote.Option != nil {
			choice = vote.Option.Text
		}
		sb.WriteString(fmt.Sprintf("• %s — <b>%s</b> <i>%s</i>\n", escape(question), escape(choice), vote.VotedAt.Format("2006-01-02")))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) togglePoll(ctx context.Context, chatID int64, from *tgbotapi.User, pollID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	poll, err := b.pollSvc.ToggleActive(ctx, pollID, user)
	if err != nil {
		return b.sendServiceError(chatID, err)
	}
	status := "deactivated"
	if poll.IsActive {
		status = "activated"
	}
	return b.sendText(chatID, fmt.Sprintf("Poll «%s» has been %s.", escape(poll.Question), status))
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, pollID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	summary, err := b.pollSvc.OwnerPolls(ctx, user)
	if err != nil {
		return err
	}
	question := ""
	for _, poll := range summary.Polls {
		if poll.ID == pollID {
			question = poll.Question
		}
	}
	if question == "" && !user.IsAdmin {
		return b.sendText(chatID, "You don't have permission to delete this poll.")
	}
	if question == "" {
		question = fmt.Sprintf("#%d", pollID)
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete poll «%s» with all its votes?", escape(question)))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("%s%d", cbConfirmPrefix, pollID)),
		tgbotapi.NewInlineKeyboardButtonData("↩️ Keep", fmt.Sprintf("%s%d", cbCancelPrefix, pollID)),
	))
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) deletePoll(ctx context.Context, chatID int64, from *tgbotapi.User, pollID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	poll, err := b.pollSvc.DeletePoll(ctx, pollID, user)
	if err != nil {
		return b.sendServiceError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("Poll «%s» has been deleted.", escape(poll.Question)))
}

func (b *Bot) startNewPollConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.setConversation(msg.From.ID, &conversationState{stage: stageQuestion})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New poll.\n<b>Step 1:</b> what is the question?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	b.mu.Lock()
	state := b.conversations[msg.From.ID]
	b.mu.Unlock()
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageQuestion:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The question cannot be empty.", cancelKeyboard())
		}
		state.input.Question = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short description (or skip).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Pick a category.", categoryKeyboard())
	case stageCategory:
		category, ok := categoryFromLabel(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Please pick one of the listed categories.", categoryKeyboard())
		}
		state.input.Category = string(category)
		state.stage = stageOptions
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔢 Send the options one per message. Press «Done» when finished (at least 2).", doneKeyboard())
	case stageOptions:
		if !isDoneInput(text) {
			if text != "" {
				state.input.Options = append(state.input.Options, text)
			}
			return b.sendWithReplyMarkup(msg.Chat.ID, fmt.Sprintf("Added option %d.", len(service.CleanOptionTexts(state.input.Options))), doneKeyboard())
		}
		return b.finishPollCreation(ctx, msg, state)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Start again with /newpoll.")
	}
}

func (b *Bot) finishPollCreation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	poll, err := b.pollSvc.CreatePoll(ctx, user, state.input)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return b.sendWithReplyMarkup(msg.Chat.ID, "⚠️ "+escape(strings.Join(verr.Problems, "; ")), doneKeyboard())
		}
		b.clearConversation(msg.From.ID)
		return err
	}
	b.clearConversation(msg.From.ID)
	if err := b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Poll <b>#%d</b> created.", poll.ID)); err != nil {
		return err
	}
	return b.sendPoll(ctx, msg.Chat.ID, msg.From, poll.ID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack", "event", "bot_callback_ack_failed", "module", "bot", "error", err.Error())
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbVotePrefix):
		pollID, optionID, err := parseVoteData(data)
		if err != nil {
			return nil
		}
		return b.castVote(ctx, chatID, cb.From, pollID, optionID)
	case strings.HasPrefix(data, cbPollPrefix):
		pollID, err := parseID(strings.TrimPrefix(data, cbPollPrefix))
		if err != nil {
			return nil
		}
		return b.sendPoll(ctx, chatID, cb.From, pollID)
	case strings.HasPrefix(data, cbConfirmPrefix):
		pollID, err := parseID(strings.TrimPrefix(data, cbConfirmPrefix))
		if err != nil {
			return nil
		}
		return b.deletePoll(ctx, chatID, cb.From, pollID)
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.sendText(chatID, "Deletion cancelled.")
	default:
		return nil
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(msg.Text)) {
	case strings.ToLower(menuLabelPolls):
		return true, b.handleListPolls(ctx, msg.Chat.ID, "")
	case strings.ToLower(menuLabelNew):
		return true, b.startNewPollConversation(ctx, msg)
	case strings.ToLower(menuLabelMine):
		return true, b.handleMyPolls(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) withPollID(msg *tgbotapi.Message, args string, fn func(uint) error) error {
	id, err := parseID(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Give a poll number, for example /%s 3", msg.Command()))
	}
	return fn(id)
}

// sendServiceError reports expected service failures to the chat and
// propagates anything else.
func (b *Bot) sendServiceError(chatID int64, err error) error {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		return b.sendText(chatID, "Poll or option not found.")
	case errors.Is(err, service.ErrPollInactive):
		return b.sendText(chatID, "This poll is not active.")
	case errors.Is(err, service.ErrForbidden):
		return b.sendText(chatID, "You don't have permission to modify this poll.")
	case errors.Is(err, service.ErrMissingSelection):
		return b.sendText(chatID, "Please select an option.")
	case errors.As(err, &verr):
		return b.sendText(chatID, "⚠️ "+escape(strings.Join(verr.Problems, "; ")))
	default:
		return err
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName, b.isAdmin(from.UserName))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.conversations[userID]
	return ok && state != nil && state.stage != stageNone
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
