package bot

import (
	"context"
	"slices"
	"strings"

	"signalbot/bot/common"
	"signalbot/bot/features/account"
	"signalbot/bot/features/admin"
	"signalbot/bot/features/signals"
	"signalbot/service"
	"signalbot/session"
)

// Router dispatches inbound updates to the feature handlers
type Router struct {
	onboarding service.OnboardingService
	sessions   session.Store
	account    *account.Feature
	signals    *signals.Feature
	admin      *admin.Feature
	adminIDs   []int64
}

func NewRouter(
	onboarding service.OnboardingService,
	sessions session.Store,
	accountFeature *account.Feature,
	signalsFeature *signals.Feature,
	adminFeature *admin.Feature,
	adminIDs []int64,
) *Router {
	return &Router{
		onboarding: onboarding,
		sessions:   sessions,
		account:    accountFeature,
		signals:    signalsFeature,
		admin:      adminFeature,
		adminIDs:   adminIDs,
	}
}

// IsAdmin reports whether userID may use the admin panel
func (r *Router) IsAdmin(userID int64) bool {
	return slices.Contains(r.adminIDs, userID)
}

// Handle routes one update and returns the replies to send
func (r *Router) Handle(ctx context.Context, in common.Inbound) []common.Reply {
	if in.Command == "start" {
		return r.account.Start(ctx, in)
	}

	// every screen works on an account, even when /start was never sent
	if _, err := r.onboarding.Start(ctx, in.UserID, in.Username, ""); err != nil {
		common.LogError(in, "ensure account", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	switch {
	case in.Command != "":
		return r.handleCommand(ctx, in)
	case in.IsCallback():
		return r.handleCallback(ctx, in)
	default:
		return r.handleText(ctx, in)
	}
}

func (r *Router) handleCommand(ctx context.Context, in common.Inbound) []common.Reply {
	switch in.Command {
	case "help":
		return r.account.Help()
	case "admin":
		if !r.IsAdmin(in.UserID) {
			return r.account.Menu(ctx, in)
		}
		return r.admin.Panel(ctx, in)
	case "cancel":
		reply := r.account.Menu(ctx, in)
		reply[0].Text = "Cancelled.\n\n" + reply[0].Text
		return reply
	default:
		return r.account.Menu(ctx, in)
	}
}

func (r *Router) handleCallback(ctx context.Context, in common.Inbound) []common.Reply {
	switch {
	case strings.HasPrefix(in.Callback, "admin_"):
		if !r.IsAdmin(in.UserID) {
			return nil
		}
		return r.admin.HandleCallback(ctx, in)
	case signals.Handles(in.Callback):
		state, err := r.sessions.Get(ctx, in.UserID)
		if err != nil {
			common.LogError(in, "get session", err)
			return []common.Reply{common.ErrorReply(err)}
		}
		return r.signals.HandleCallback(ctx, in, state)
	case in.Callback == common.CallbackMainMenu:
		return r.account.Menu(ctx, in)
	default:
		return r.account.HandleCallback(ctx, in)
	}
}

func (r *Router) handleText(ctx context.Context, in common.Inbound) []common.Reply {
	state, err := r.sessions.Get(ctx, in.UserID)
	if err != nil {
		common.LogError(in, "get session", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	switch {
	case state.Stage.IsSignal():
		return r.signals.HandleText(ctx, in, state)
	case state.Stage.IsAdmin() && r.IsAdmin(in.UserID):
		return r.admin.HandleText(ctx, in, state)
	default:
		return r.account.HandleText(ctx, in)
	}
}
