package signals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"signalbot/bot/common"
	"signalbot/service"
	"signalbot/session"
)

// HandleCallback handles the signal wizard buttons
func (f *Feature) HandleCallback(ctx context.Context, in common.Inbound, state session.State) []common.Reply {
	switch in.Callback {
	case common.CallbackGetSignal:
		return f.askBetID(ctx, in)
	case common.CallbackStartGame:
		if state.Stage != session.StageAwaitingStart {
			return f.expired(ctx, in)
		}
		return f.playRound(ctx, in, state)
	case common.CallbackNextRow:
		if state.Stage != session.StageGameInProgress {
			return f.expired(ctx, in)
		}
		return f.playRound(ctx, in, state)
	case common.CallbackEndGame:
		if err := f.sessions.Clear(ctx, in.UserID); err != nil {
			common.LogError(in, "clear session", err)
		}
		return []common.Reply{common.WithKeyboard("🏁 Game over. Good luck!", common.MainMenuKeyboard())}
	}
	return nil
}

// HandleText handles messages sent while the wizard waits for input
func (f *Feature) HandleText(ctx context.Context, in common.Inbound, state session.State) []common.Reply {
	if state.Stage != session.StageAwaitingBetID {
		return []common.Reply{common.WithKeyboard("Use the buttons to continue the game.", common.GameControlKeyboard())}
	}

	betID := strings.TrimSpace(in.Text)
	if !service.ValidBetID(betID) {
		return []common.Reply{common.WithKeyboard(
			"❌ Invalid bet ID. It must be 9 to 12 digits. Try again:",
			common.BackKeyboard(common.CallbackMainMenu),
		)}
	}

	result, err := f.signals.ConsumeSignal(ctx, in.UserID)
	if errors.Is(err, service.ErrInsufficientFunds) {
		if err := f.sessions.Clear(ctx, in.UserID); err != nil {
			common.LogError(in, "clear session", err)
		}
		return []common.Reply{common.WithKeyboard(
			"❌ You have no free signals left and not enough points for a new one.\nInvite friends to earn more points!",
			common.MainMenuKeyboard(),
		)}
	}
	if err != nil {
		common.LogError(in, "consume signal", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	next := session.State{Stage: session.StageAwaitingStart, BetID: betID}
	if err := f.sessions.Set(ctx, in.UserID, next); err != nil {
		common.LogError(in, "set session", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	var cost string
	switch {
	case result.UsedFreeSignal:
		cost = fmt.Sprintf("🎁 Free signal used, %d left.", result.FreeSignalsLeft)
	case result.Charged > 0:
		cost = fmt.Sprintf("💸 %s points charged, balance %s.", common.FormatBalance(result.Charged), common.FormatBalance(result.NewBalance))
	}

	text := fmt.Sprintf("✅ Bet ID <code>%s</code> accepted.\n%s\n\nSignal #%d is ready. Start the game when you are in.",
		betID, cost, result.TotalSignals)
	return []common.Reply{common.WithKeyboard(text, common.StartGameKeyboard())}
}

func (f *Feature) askBetID(ctx context.Context, in common.Inbound) []common.Reply {
	if err := f.sessions.Set(ctx, in.UserID, session.State{Stage: session.StageAwaitingBetID}); err != nil {
		common.LogError(in, "set session", err)
		return []common.Reply{common.ErrorReply(err)}
	}
	return []common.Reply{common.WithKeyboard(
		"🎯 Send your game bet ID (9 to 12 digits):",
		common.BackKeyboard(common.CallbackMainMenu),
	)}
}

func (f *Feature) playRound(ctx context.Context, in common.Inbound, state session.State) []common.Reply {
	state.Stage = session.StageGameInProgress
	state.Rows++
	if err := f.sessions.Set(ctx, in.UserID, state); err != nil {
		common.LogError(in, "set session", err)
		return []common.Reply{common.ErrorReply(err)}
	}

	field := GenerateField(fieldRows, f.perm)
	reply := common.WithKeyboard(field.Format(state.Rows), common.GameControlKeyboard())
	reply.Edit = true
	return []common.Reply{reply}
}

func (f *Feature) expired(ctx context.Context, in common.Inbound) []common.Reply {
	if err := f.sessions.Clear(ctx, in.UserID); err != nil {
		common.LogError(in, "clear session", err)
	}
	return []common.Reply{common.WithKeyboard(
		"⌛ This game has ended. Request a new signal from the menu.",
		common.MainMenuKeyboard(),
	)}
}
