package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"signalbot/bot/common"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token string
	Debug bool
}

// UpdateObserver counts handled updates by kind
type UpdateObserver interface {
	ObserveUpdate(kind string)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	router   *Router
	observer UpdateObserver
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(config Config, router *Router, observer UpdateObserver) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram client: %w", err)
	}
	api.Debug = config.Debug

	log.WithField("username", api.Self.UserName).Info("Telegram bot authorized")

	return &Bot{
		api:      api,
		router:   router,
		observer: observer,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start runs the update loop until ctx is cancelled or Close is called.
// Every update is handled on its own goroutine.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	log.Info("Starting Telegram update loop")

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping Telegram update loop")
			return
		case <-b.stopCh:
			log.Info("Stopping Telegram update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			in, ok := inboundFromUpdate(update)
			if !ok {
				continue
			}

			b.wg.Add(1)
			go func(in common.Inbound) {
				defer b.wg.Done()
				b.handle(ctx, in)
			}(in)
		}
	}
}

func (b *Bot) handle(ctx context.Context, in common.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"userID": in.UserID,
				"panic":  r,
			}).Error("Update handler panicked")
		}
	}()

	if b.observer != nil {
		b.observer.ObserveUpdate(updateKind(in))
	}

	replies := b.router.Handle(ctx, in)

	if in.IsCallback() {
		if _, err := b.api.Request(tgbotapi.NewCallback(in.CallbackID, "")); err != nil {
			log.WithFields(log.Fields{
				"userID": in.UserID,
				"error":  err,
			}).Debug("Failed to answer callback")
		}
	}

	for _, reply := range replies {
		if _, err := b.api.Send(renderReply(in, reply)); err != nil {
			log.WithFields(log.Fields{
				"userID": in.UserID,
				"chatID": in.ChatID,
				"error":  err,
			}).Warn("Failed to send reply")
		}
	}
}

// SendText sends an HTML message outside of an update
func (b *Bot) SendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// NotifyAdmins sends text to every configured admin
func (b *Bot) NotifyAdmins(text string) {
	for _, adminID := range b.router.adminIDs {
		if err := b.SendText(adminID, text); err != nil {
			log.WithFields(log.Fields{
				"adminID": adminID,
				"error":   err,
			}).Warn("Failed to notify admin")
		}
	}
}

// Close stops the update loop and waits for running handlers
func (b *Bot) Close() error {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		b.api.StopReceivingUpdates()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Telegram bot stopped")
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for update handlers")
	}
}

// inboundFromUpdate extracts the fields the router needs, ok is false for
// updates the bot does not handle
func inboundFromUpdate(update tgbotapi.Update) (common.Inbound, bool) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil || cq.Message == nil {
			return common.Inbound{}, false
		}
		return common.Inbound{
			ChatID:     cq.Message.Chat.ID,
			UserID:     cq.From.ID,
			Username:   displayName(cq.From),
			Callback:   cq.Data,
			CallbackID: cq.ID,
			MessageID:  cq.Message.MessageID,
		}, true

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.From.IsBot || msg.Chat == nil || !msg.Chat.IsPrivate() {
			return common.Inbound{}, false
		}
		in := common.Inbound{
			ChatID:   msg.Chat.ID,
			UserID:   msg.From.ID,
			Username: displayName(msg.From),
			Text:     msg.Text,
		}
		if msg.IsCommand() {
			in.Command = msg.Command()
			in.Args = msg.CommandArguments()
		}
		return in, true
	}
	return common.Inbound{}, false
}

func renderReply(in common.Inbound, reply common.Reply) tgbotapi.Chattable {
	if reply.Edit && in.MessageID != 0 {
		edit := tgbotapi.NewEditMessageText(in.ChatID, in.MessageID, reply.Text)
		edit.ParseMode = tgbotapi.ModeHTML
		edit.ReplyMarkup = reply.Keyboard
		return edit
	}

	msg := tgbotapi.NewMessage(in.ChatID, reply.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if reply.Keyboard != nil {
		msg.ReplyMarkup = *reply.Keyboard
	}
	return msg
}

func displayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	return user.FirstName
}

func updateKind(in common.Inbound) string {
	switch {
	case in.Command != "":
		return "command"
	case in.IsCallback():
		return "callback"
	default:
		return "text"
	}
}
