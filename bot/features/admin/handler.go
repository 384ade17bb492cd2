package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"signalbot/bot/common"
	"signalbot/models"
	"signalbot/service"
	"signalbot/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Panel shows the admin menu
func (f *Feature) Panel(ctx context.Context, in common.Inbound) []common.Reply {
	if err := f.sessions.Clear(ctx, in.UserID); err != nil {
		common.LogError(in, "clear session", err)
	}
	return []common.Reply{common.WithKeyboard("🛠 <b>Admin panel</b>", common.AdminPanelKeyboard())}
}

// HandleCallback handles the admin panel buttons
func (f *Feature) HandleCallback(ctx context.Context, in common.Inbound) []common.Reply {
	action, arg, _ := strings.Cut(in.Callback, ":")

	switch action {
	case common.CallbackAdminStats:
		return f.stats(ctx, in)
	case common.CallbackAdminUser:
		return f.prompt(ctx, in, session.State{Stage: session.StageAdminAwaitingUserID}, "👤 Send the user ID:")
	case common.CallbackAdminAddAPK:
		return f.prompt(ctx, in, session.State{Stage: session.StageAdminAwaitingAPKURL}, "🔗 Send the new APK download URL:")
	case common.CallbackAdminRemoveAPK:
		return f.prompt(ctx, in, session.State{Stage: session.StageAdminConfirmRemoveAPK}, "❌ Send <b>YES</b> to remove the APK link.")
	case common.CallbackAdminBalance:
		return f.prompt(ctx, in, session.State{Stage: session.StageAdminAwaitingBalance},
			"💰 Send <code>user_id amount</code>. Use a negative amount to subtract.")
	case common.CallbackAdminAdjust:
		targetID, ok := parseID(arg)
		if !ok {
			return f.Panel(ctx, in)
		}
		return f.prompt(ctx, in, session.State{Stage: session.StageAdminAwaitingBalance, TargetID: targetID},
			fmt.Sprintf("💰 Send the amount for <code>%d</code>. Use a negative amount to subtract.", targetID))
	case common.CallbackAdminMarkBonus:
		targetID, ok := parseID(arg)
		if !ok {
			return f.Panel(ctx, in)
		}
		return f.markStartBonus(ctx, in, targetID)
	case common.CallbackAdminGrantAPK:
		targetID, ok := parseID(arg)
		if !ok {
			return f.Panel(ctx, in)
		}
		return f.grantAPK(ctx, in, targetID)
	default:
		return f.Panel(ctx, in)
	}
}

// HandleText handles the input an admin wizard step waits for
func (f *Feature) HandleText(ctx context.Context, in common.Inbound, state session.State) []common.Reply {
	text := strings.TrimSpace(in.Text)

	switch state.Stage {
	case session.StageAdminAwaitingUserID:
		targetID, ok := parseID(text)
		if !ok {
			return []common.Reply{common.WithKeyboard("❌ That is not a user ID. Try again:", common.BackKeyboard(common.CallbackAdminPanel))}
		}
		f.finish(ctx, in)
		return f.lookup(ctx, in, targetID)

	case session.StageAdminAwaitingBalance:
		return f.adjust(ctx, in, state, text)

	case session.StageAdminAwaitingAPKURL:
		if err := f.settings.SetAPKURL(ctx, in.UserID, text); err != nil {
			if errors.Is(err, service.ErrStorageUnavailable) {
				common.LogError(in, "set apk url", err)
				return []common.Reply{common.ErrorReply(err)}
			}
			return []common.Reply{common.WithKeyboard("❌ Send a full http(s) URL:", common.BackKeyboard(common.CallbackAdminPanel))}
		}
		f.finish(ctx, in)
		return []common.Reply{common.WithKeyboard("✅ APK link updated.", common.AdminPanelKeyboard())}

	case session.StageAdminConfirmRemoveAPK:
		f.finish(ctx, in)
		if !strings.EqualFold(text, "yes") {
			return []common.Reply{common.WithKeyboard("Cancelled.", common.AdminPanelKeyboard())}
		}
		if err := f.settings.RemoveAPKURL(ctx, in.UserID); err != nil {
			common.LogError(in, "remove apk url", err)
			return []common.Reply{common.ErrorReply(err)}
		}
		return []common.Reply{common.WithKeyboard("✅ APK link removed.", common.AdminPanelKeyboard())}
	}

	return f.Panel(ctx, in)
}

func (f *Feature) prompt(ctx context.Context, in common.Inbound, state session.State, text string) []common.Reply {
	if err := f.sessions.Set(ctx, in.UserID, state); err != nil {
		common.LogError(in, "set session", err)
		return []common.Reply{common.ErrorReply(err)}
	}
	return []common.Reply{common.WithKeyboard(text, common.BackKeyboard(common.CallbackAdminPanel))}
}

func (f *Feature) finish(ctx context.Context, in common.Inbound) {
	if err := f.sessions.Clear(ctx, in.UserID); err != nil {
		common.LogError(in, "clear session", err)
	}
}

func (f *Feature) stats(ctx context.Context, in common.Inbound) []common.Reply {
	stats, err := f.ledger.AggregateStats(ctx)
	if err != nil {
		common.LogError(in, "aggregate stats", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	var b strings.Builder
	b.WriteString("📊 <b>Statistics</b>\n\n")
	fmt.Fprintf(&b, "👥 Users: %d\n", stats.TotalAccounts)
	fmt.Fprintf(&b, "🎁 Start bonuses given: %d\n", stats.StartBonusesGiven)
	fmt.Fprintf(&b, "🤝 Referred users: %d\n", stats.ReferredAccounts)
	fmt.Fprintf(&b, "🔗 Referral edges: %d\n", stats.TotalReferrals)
	fmt.Fprintf(&b, "🏷 Promo redemptions: %d\n", stats.PromoRedemptions)
	fmt.Fprintf(&b, "💸 Bonus credits: %d\n", stats.TotalBonusEvents)
	fmt.Fprintf(&b, "💰 Total balance: %s points", common.FormatBalance(stats.TotalBalance))

	return []common.Reply{common.WithKeyboard(b.String(), common.BackKeyboard(common.CallbackAdminPanel))}
}

func (f *Feature) lookup(ctx context.Context, in common.Inbound, targetID int64) []common.Reply {
	snapshot, err := f.ledger.Snapshot(ctx, targetID, historyLimit)
	if errors.Is(err, service.ErrAccountNotFound) {
		return notFound(targetID)
	}
	if err != nil {
		common.LogError(in, "snapshot", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	return []common.Reply{common.WithKeyboard(FormatSnapshot(snapshot), userKeyboard(snapshot.Account))}
}

// FormatSnapshot renders the admin view of an account
func FormatSnapshot(snapshot *models.AccountSnapshot) string {
	account := snapshot.Account

	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s</b> (<code>%d</code>)\n\n", common.Escape(account.Username), account.TelegramID)
	fmt.Fprintf(&b, "💰 Balance: %s\n", common.FormatBalance(account.Balance))
	fmt.Fprintf(&b, "🔑 Code: <code>%s</code>\n", account.RedemptionCode)
	fmt.Fprintf(&b, "🎮 Signals: %d (free left %d)\n", account.TotalSignals, account.FreeSignals)
	fmt.Fprintf(&b, "👥 Referrals: %d\n", account.Referrals)
	if account.ReferredBy != nil {
		state := "bonus pending"
		if snapshot.Referral.State() == models.ReferralStateBonusPaid {
			state = "bonus paid"
		}
		fmt.Fprintf(&b, "🤝 Invited by: <code>%d</code> (%s)\n", *account.ReferredBy, state)
	}
	fmt.Fprintf(&b, "🎁 Start bonus: %s\n", yesNo(account.StartBonusGiven))
	fmt.Fprintf(&b, "🏷 Promo used: %s\n", yesNo(account.PromoUsed))
	fmt.Fprintf(&b, "📱 APK access: %s\n", yesNo(account.APKAccess))
	fmt.Fprintf(&b, "📅 Joined: %s\n", common.FormatTimestamp(account.CreatedAt))

	if len(snapshot.History) > 0 {
		b.WriteString("\n<b>Recent history</b>\n")
		for _, entry := range snapshot.History {
			fmt.Fprintf(&b, "%s %s: %s → %s\n",
				common.FormatTimestamp(entry.CreatedAt),
				entry.GetTransactionDescription(),
				common.FormatSignedBalance(entry.ChangeAmount),
				common.FormatBalance(entry.BalanceAfter))
		}
	}
	return b.String()
}

func userKeyboard(account *models.Account) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(account.TelegramID, 10)

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Adjust balance", common.CallbackAdminAdjust+":"+id),
		),
	}
	var flags []tgbotapi.InlineKeyboardButton
	if !account.StartBonusGiven {
		flags = append(flags, tgbotapi.NewInlineKeyboardButtonData("🎁 Mark bonus given", common.CallbackAdminMarkBonus+":"+id))
	}
	if !account.APKAccess {
		flags = append(flags, tgbotapi.NewInlineKeyboardButtonData("📱 Grant APK", common.CallbackAdminGrantAPK+":"+id))
	}
	if len(flags) > 0 {
		rows = append(rows, flags)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Back", common.CallbackAdminPanel),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (f *Feature) adjust(ctx context.Context, in common.Inbound, state session.State, text string) []common.Reply {
	targetID := state.TargetID
	amountText := text
	if targetID == 0 {
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return []common.Reply{common.WithKeyboard("❌ Send <code>user_id amount</code>:", common.BackKeyboard(common.CallbackAdminPanel))}
		}
		id, ok := parseID(fields[0])
		if !ok {
			return []common.Reply{common.WithKeyboard("❌ That is not a user ID. Try again:", common.BackKeyboard(common.CallbackAdminPanel))}
		}
		targetID, amountText = id, fields[1]
	}

	amount, err := strconv.ParseInt(strings.ReplaceAll(amountText, ",", ""), 10, 64)
	if err != nil || amount == 0 {
		return []common.Reply{common.WithKeyboard("❌ Send a non-zero whole number:", common.BackKeyboard(common.CallbackAdminPanel))}
	}
	if amount > maxAdjustment || amount < -maxAdjustment {
		return []common.Reply{common.WithKeyboard(
			fmt.Sprintf("❌ The amount must be within ±%s.", common.FormatBalance(maxAdjustment)),
			common.BackKeyboard(common.CallbackAdminPanel),
		)}
	}

	balance, err := f.ledger.AdminAdjust(ctx, in.UserID, targetID, amount)
	switch {
	case errors.Is(err, service.ErrInsufficientFunds):
		f.finish(ctx, in)
		return []common.Reply{common.WithKeyboard(
			fmt.Sprintf("❌ User <code>%d</code> only has %s points.", targetID, common.FormatBalance(balance)),
			common.AdminPanelKeyboard(),
		)}
	case errors.Is(err, service.ErrAccountNotFound):
		f.finish(ctx, in)
		return notFound(targetID)
	case errors.Is(err, service.ErrBalanceOverflow):
		f.finish(ctx, in)
		return []common.Reply{common.WithKeyboard(
			fmt.Sprintf("❌ Balance of <code>%d</code> would leave the allowed range.", targetID),
			common.AdminPanelKeyboard(),
		)}
	case err != nil:
		common.LogError(in, "admin adjust", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	f.finish(ctx, in)
	return []common.Reply{common.WithKeyboard(
		fmt.Sprintf("✅ %s points for <code>%d</code>. New balance: %s.",
			common.FormatSignedBalance(amount), targetID, common.FormatBalance(balance)),
		common.AdminPanelKeyboard(),
	)}
}

func (f *Feature) markStartBonus(ctx context.Context, in common.Inbound, targetID int64) []common.Reply {
	flipped, err := f.ledger.MarkStartBonusGiven(ctx, in.UserID, targetID)
	if errors.Is(err, service.ErrAccountNotFound) {
		return notFound(targetID)
	}
	if err != nil {
		common.LogError(in, "mark start bonus", err)
		return []common.Reply{common.ErrorReply(err)}
	}
	if !flipped {
		return []common.Reply{common.WithKeyboard("ℹ️ The start bonus was already given.", common.AdminPanelKeyboard())}
	}
	return []common.Reply{common.WithKeyboard(
		fmt.Sprintf("✅ Start bonus of <code>%d</code> marked as given.", targetID),
		common.AdminPanelKeyboard(),
	)}
}

func (f *Feature) grantAPK(ctx context.Context, in common.Inbound, targetID int64) []common.Reply {
	err := f.ledger.SetAPKAccess(ctx, in.UserID, targetID, true)
	if errors.Is(err, service.ErrAccountNotFound) {
		return notFound(targetID)
	}
	if err != nil {
		common.LogError(in, "grant apk", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	return []common.Reply{common.WithKeyboard(
		fmt.Sprintf("✅ APK access granted to <code>%d</code>.", targetID),
		common.AdminPanelKeyboard(),
	)}
}

func notFound(targetID int64) []common.Reply {
	return []common.Reply{common.WithKeyboard(fmt.Sprintf("🤷 User <code>%d</code> not found.", targetID), common.AdminPanelKeyboard())}
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return id, err == nil && id > 0
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
