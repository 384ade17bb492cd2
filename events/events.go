package events

import (
	"context"
	"sync"

	"signalbot/models"

	log "github.com/sirupsen/logrus"
)

// EventType identifies the kind of ledger event
type EventType string

const (
	EventTypeBalanceChange  EventType = "balance_change"
	EventTypeAccountCreated EventType = "account_created"
	EventTypeReferralLinked EventType = "referral_linked"
	EventTypeBonusGranted   EventType = "bonus_granted"
	EventTypePromoRedeemed  EventType = "promo_redeemed"
)

// AllEventTypes lists every event the ledger publishes
var AllEventTypes = []EventType{
	EventTypeBalanceChange,
	EventTypeAccountCreated,
	EventTypeReferralLinked,
	EventTypeBonusGranted,
	EventTypePromoRedeemed,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent is emitted for every balance history entry
type BalanceChangeEvent struct {
	AccountID       int64                  `json:"account_id"`
	OldBalance      int64                  `json:"old_balance"`
	NewBalance      int64                  `json:"new_balance"`
	ChangeAmount    int64                  `json:"change_amount"`
	TransactionType models.TransactionType `json:"transaction_type"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent is emitted when a first interaction creates an account
type AccountCreatedEvent struct {
	AccountID       int64  `json:"account_id"`
	Username        string `json:"username"`
	InitialBalance  int64  `json:"initial_balance"`
	StartBonusDueAt int64  `json:"start_bonus_due_at"` // unix seconds, 0 when none
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// ReferralLinkedEvent is emitted when an invitee is attributed to an inviter
type ReferralLinkedEvent struct {
	ReferrerID int64 `json:"referrer_id"`
	ReferredID int64 `json:"referred_id"`
}

func (e ReferralLinkedEvent) Type() EventType {
	return EventTypeReferralLinked
}

// BonusGrantedEvent is emitted once per one-shot bonus
type BonusGrantedEvent struct {
	AccountID       int64                  `json:"account_id"`
	Amount          int64                  `json:"amount"`
	TransactionType models.TransactionType `json:"transaction_type"`
	SourceID        int64                  `json:"source_id,omitempty"` // invitee for referral bonuses
}

func (e BonusGrantedEvent) Type() EventType {
	return EventTypeBonusGranted
}

// PromoRedeemedEvent is emitted when an account unlocks the promo
type PromoRedeemedEvent struct {
	AccountID int64 `json:"account_id"`
}

func (e PromoRedeemedEvent) Type() EventType {
	return EventTypePromoRedeemed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	wg       sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event bus")
}

// Emit dispatches event to every registered handler, each on its own goroutine
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for i, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Wait blocks until every handler started so far has returned
func (b *Bus) Wait() {
	b.wg.Wait()
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	// handlers outlive the request context
	eventCtx := context.WithoutCancel(ctx)
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}

// Pending returns the number of events waiting for Flush
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
