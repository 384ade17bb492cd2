package common

import (
	"errors"

	"signalbot/service"

	log "github.com/sirupsen/logrus"
)

// ErrorReply maps a service error to the message a user sees
func ErrorReply(err error) Reply {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		return Text("🤷 Account not found. Press /start first.")
	case errors.Is(err, service.ErrInsufficientFunds):
		return Text("❌ Not enough points.")
	case errors.Is(err, service.ErrInvalidAmount):
		return Text("❌ The amount must not be zero.")
	case errors.Is(err, service.ErrBalanceOverflow):
		return Text("❌ That amount is out of range.")
	default:
		return Text("⚠️ Something went wrong. Please try again in a moment.")
	}
}

// LogError logs a failed handler step with the user it happened for
func LogError(in Inbound, step string, err error) {
	entry := log.WithFields(log.Fields{
		"userID": in.UserID,
		"step":   step,
		"error":  err,
	})
	if errors.Is(err, service.ErrStorageUnavailable) {
		entry.Error("Handler failed")
		return
	}
	entry.Warn("Handler failed")
}
