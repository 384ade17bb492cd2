package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"signalbot/models"

	log "github.com/sirupsen/logrus"
)

const (
	codeDigits      = 7
	maxCodeAttempts = 32
)

var codeSpace = big.NewInt(10_000_000)

// CodeGenerator returns a candidate redemption code
type CodeGenerator func() (string, error)

// RandomCode draws a zero padded 7-digit code
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to draw redemption code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// generateUniqueCode draws codes until one is unassigned, giving up after maxCodeAttempts
func generateUniqueCode(ctx context.Context, repo AccountRepository, next CodeGenerator) (string, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := next()
		if err != nil {
			return "", err
		}

		exists, err := repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}

		log.WithFields(log.Fields{
			"attempt": attempt,
		}).Debug("Redemption code collision, retrying")
	}
	return "", ErrCodeSpaceExhausted
}

// createWithFreshCode inserts params, drawing another code whenever a
// concurrent insert claimed the current one first
func createWithFreshCode(ctx context.Context, repo AccountRepository, next CodeGenerator, params *models.NewAccount) (*models.Account, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		account, err := repo.Create(ctx, params)
		if !errors.Is(err, ErrDuplicateCode) {
			return account, err
		}

		log.WithFields(log.Fields{
			"telegramID": params.TelegramID,
			"attempt":    attempt,
		}).Debug("Redemption code claimed concurrently, drawing another")

		code, err := generateUniqueCode(ctx, repo, next)
		if err != nil {
			return nil, err
		}
		params.RedemptionCode = code
	}
	return nil, ErrCodeSpaceExhausted
}
