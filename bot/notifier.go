package bot

import (
	"context"
	"fmt"

	"signalbot/bot/common"
	"signalbot/events"
	"signalbot/models"

	log "github.com/sirupsen/logrus"
)

// MessageSender delivers a text message to a chat
type MessageSender interface {
	SendText(chatID int64, text string) error
}

// Notifier tells users about ledger changes they did not trigger themselves:
// delayed start bonuses, referral payouts and admin adjustments
type Notifier struct {
	sender MessageSender
}

func NewNotifier(sender MessageSender) *Notifier {
	return &Notifier{sender: sender}
}

// Attach subscribes the notifier to the ledger events it reports
func (n *Notifier) Attach(bus *events.Bus) {
	for _, eventType := range []events.EventType{
		events.EventTypeBonusGranted,
		events.EventTypeReferralLinked,
		events.EventTypeBalanceChange,
	} {
		bus.Subscribe(eventType, n.handle)
	}
}

func (n *Notifier) handle(ctx context.Context, event events.Event) {
	chatID, text, ok := Notification(event)
	if !ok {
		return
	}
	if err := n.sender.SendText(chatID, text); err != nil {
		// blocked bots and deleted chats are expected
		log.WithFields(log.Fields{
			"chatID":    chatID,
			"eventType": event.Type(),
			"error":     err,
		}).Warn("Failed to deliver notification")
	}
}

// Notification renders the message an event produces, ok is false when
// the event is not reported to anyone
func Notification(event events.Event) (chatID int64, text string, ok bool) {
	switch e := event.(type) {
	case events.BonusGrantedEvent:
		switch e.TransactionType {
		case models.TransactionTypeStartBonus:
			return e.AccountID, fmt.Sprintf("🎁 Your start bonus of <b>%s</b> points has arrived!",
				common.FormatBalance(e.Amount)), true
		case models.TransactionTypeReferralBonus:
			return e.AccountID, fmt.Sprintf("🎉 Your friend <code>%d</code> qualified. You earned <b>%s</b> points!",
				e.SourceID, common.FormatBalance(e.Amount)), true
		}
	case events.ReferralLinkedEvent:
		return e.ReferrerID, fmt.Sprintf("👥 <code>%d</code> joined through your referral link.", e.ReferredID), true
	case events.BalanceChangeEvent:
		if e.TransactionType == models.TransactionTypeAdminAdjustment {
			return e.AccountID, fmt.Sprintf("💰 Your balance was adjusted by %s points. New balance: %s.",
				common.FormatSignedBalance(e.ChangeAmount), common.FormatBalance(e.NewBalance)), true
		}
	}
	return 0, "", false
}
