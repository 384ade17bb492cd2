package account

import (
	"context"
	"fmt"
	"strings"

	"signalbot/bot/common"
	"signalbot/config"
	"signalbot/models"
	"signalbot/service"
)

// Start greets the user, creating the account and linking the referral of
// the ref_<id> start parameter on first contact
func (f *Feature) Start(ctx context.Context, in common.Inbound) []common.Reply {
	if err := f.sessions.Clear(ctx, in.UserID); err != nil {
		common.LogError(in, "clear session", err)
	}

	result, err := f.onboarding.Start(ctx, in.UserID, in.Username, in.Args)
	if err != nil {
		common.LogError(in, "start", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	var b strings.Builder
	if result.Created {
		fmt.Fprintf(&b, "🍎 <b>Welcome to Apple of Fortune signals, %s!</b>\n\n", common.Escape(displayName(in)))
		if result.Account.FreeSignals > 0 {
			fmt.Fprintf(&b, "🎮 You have %d free signals.\n", result.Account.FreeSignals)
		}
		if result.Account.StartBonusPending() && f.cfg.StartBonus > 0 {
			fmt.Fprintf(&b, "🎁 Your start bonus of <b>%s</b> points arrives in %s.\n",
				common.FormatBalance(f.cfg.StartBonus), common.FormatDelay(f.cfg.StartBonusDelay))
		}
		if result.Link != nil && result.Link.Outcome == models.LinkCreated {
			b.WriteString("🤝 You joined through a friend's invite.\n")
		}
	} else {
		fmt.Fprintf(&b, "🍎 <b>Welcome back, %s!</b>\n", common.Escape(displayName(in)))
	}
	b.WriteString("\nChoose an option:")

	return []common.Reply{common.WithKeyboard(b.String(), common.MainMenuKeyboard())}
}

// Menu shows the main menu
func (f *Feature) Menu(ctx context.Context, in common.Inbound) []common.Reply {
	if err := f.sessions.Clear(ctx, in.UserID); err != nil {
		common.LogError(in, "clear session", err)
	}
	return []common.Reply{common.WithKeyboard("🏠 <b>Main menu</b>\n\nChoose an option:", common.MainMenuKeyboard())}
}

// HandleCallback serves the main menu screens
func (f *Feature) HandleCallback(ctx context.Context, in common.Inbound) []common.Reply {
	switch in.Callback {
	case common.CallbackBalance:
		return f.balance(ctx, in)
	case common.CallbackReferrals:
		return f.referralScreen(ctx, in)
	case common.CallbackDownloadAPK:
		return f.downloadAPK(ctx, in)
	case common.CallbackHelp:
		return f.Help()
	default:
		return f.Menu(ctx, in)
	}
}

// HandleText treats free text as a promo code attempt
func (f *Feature) HandleText(ctx context.Context, in common.Inbound) []common.Reply {
	result, err := f.promo.Redeem(ctx, in.UserID, in.Text)
	if err != nil {
		common.LogError(in, "redeem promo", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	switch result.Outcome {
	case models.PromoRedeemed:
		return []common.Reply{common.WithKeyboard(
			"✅ <b>Promo code activated!</b>\n\n📱 APK download is unlocked.",
			common.MainMenuKeyboard(),
		)}
	case models.PromoAlreadyUsed:
		return []common.Reply{common.WithKeyboard("ℹ️ You already activated the promo code.", common.MainMenuKeyboard())}
	default:
		return []common.Reply{common.WithKeyboard("Use the menu below 👇", common.MainMenuKeyboard())}
	}
}

// Help explains the bot
func (f *Feature) Help() []common.Reply {
	text := fmt.Sprintf("ℹ️ <b>How it works</b>\n\n"+
		"🎮 <b>Get signal</b>: send your bet ID and receive the Apple of Fortune field.\n"+
		"💰 <b>Balance</b>: your points and withdraw code. Withdrawals start at %s points.\n"+
		"👥 <b>Referrals</b>: invite friends, earn %s points per friend.\n"+
		"📱 <b>APK</b>: send the promo code to unlock the download.",
		common.FormatBalance(f.cfg.MinWithdraw), common.FormatBalance(f.cfg.ReferralBonus))
	return []common.Reply{common.WithKeyboard(text, common.BackKeyboard(common.CallbackMainMenu))}
}

func (f *Feature) balance(ctx context.Context, in common.Inbound) []common.Reply {
	account, err := f.ledger.GetAccount(ctx, in.UserID)
	if err != nil {
		common.LogError(in, "get account", err)
		return []common.Reply{common.ErrorReply(err)}
	}
	info, err := f.ledger.Redemption(ctx, in.UserID)
	if err != nil {
		common.LogError(in, "get redemption", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💰 <b>Balance:</b> %s points\n", common.FormatBalance(info.Balance))
	fmt.Fprintf(&b, "🎮 Free signals: %d\n", account.FreeSignals)
	fmt.Fprintf(&b, "🔑 Withdraw code: <code>%s</code>\n\n", info.Code)

	if !info.Eligible {
		fmt.Fprintf(&b, "⏳ Withdrawals start at %s points, %s more to go.",
			common.FormatBalance(info.MinimumDue), common.FormatBalance(info.MinimumDue-info.Balance))
		return []common.Reply{common.WithKeyboard(b.String(), common.BackKeyboard(common.CallbackMainMenu))}
	}

	b.WriteString("✅ You can withdraw now. Enter your code on the withdraw site.")
	if f.cfg.WithdrawSiteURL == "" {
		return []common.Reply{common.WithKeyboard(b.String(), common.BackKeyboard(common.CallbackMainMenu))}
	}
	return []common.Reply{common.WithKeyboard(b.String(), common.LinkKeyboard("💸 Withdraw", f.cfg.WithdrawSiteURL))}
}

func (f *Feature) referralScreen(ctx context.Context, in common.Inbound) []common.Reply {
	summary, err := f.referrals.Summary(ctx, in.UserID)
	if err != nil {
		common.LogError(in, "referral summary", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	var b strings.Builder
	b.WriteString("👥 <b>Referrals</b>\n\n")
	fmt.Fprintf(&b, "Invited: %d\n", summary.TotalReferrals)
	fmt.Fprintf(&b, "Bonuses paid: %d\n", summary.PaidReferrals)
	fmt.Fprintf(&b, "Earned: %s points\n\n", common.FormatBalance(summary.TotalEarned))
	fmt.Fprintf(&b, "Your link:\n<code>%s</code>\n\n", service.ReferralLink(f.cfg.BotUsername, in.UserID))

	bonus := common.FormatBalance(f.cfg.ReferralBonus)
	if f.cfg.ReferralTrigger == config.ReferralTriggerSignup {
		fmt.Fprintf(&b, "🎁 You get %s points for every friend who joins.", bonus)
	} else {
		fmt.Fprintf(&b, "🎁 You get %s points for every friend who activates the promo code.", bonus)
	}
	return []common.Reply{common.WithKeyboard(b.String(), common.BackKeyboard(common.CallbackMainMenu))}
}

func (f *Feature) downloadAPK(ctx context.Context, in common.Inbound) []common.Reply {
	account, err := f.ledger.GetAccount(ctx, in.UserID)
	if err != nil {
		common.LogError(in, "get account", err)
		return []common.Reply{common.ErrorReply(err)}
	}
	if !account.APKAccess {
		return []common.Reply{common.WithKeyboard(
			"🔒 The APK is locked. Send the promo code to unlock it.",
			common.BackKeyboard(common.CallbackMainMenu),
		)}
	}

	url, err := f.settings.APKURL(ctx)
	if err != nil {
		common.LogError(in, "get apk url", err)
		return []common.Reply{common.ErrorReply(err)}
	}
	if url == "" {
		return []common.Reply{common.WithKeyboard(
			"📱 The APK is not available right now. Check back later.",
			common.BackKeyboard(common.CallbackMainMenu),
		)}
	}
	return []common.Reply{common.WithKeyboard("📱 Your APK download is ready:", common.LinkKeyboard("📥 Download", url))}
}

func displayName(in common.Inbound) string {
	if in.Username != "" {
		return in.Username
	}
	return fmt.Sprintf("player %d", in.UserID)
}
