package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"signalbot/models"

	log "github.com/sirupsen/logrus"
)

// legacyID accepts ids written either as JSON numbers or strings
type legacyID int64

func (id *legacyID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", data, err)
	}
	*id = legacyID(n)
	return nil
}

// legacyUser is one value of the legacy users export, keyed by Telegram id
type legacyUser struct {
	Username        string   `json:"username"`
	Balance         int64    `json:"balance"`
	ReferredBy      legacyID `json:"referred_by"`
	Referrals       int      `json:"referrals"`
	StartBonusGiven bool     `json:"start_bonus_given"`
	WithdrawCode    string   `json:"withdraw_code"`
	TotalSignals    int      `json:"total_signals"`
	FreeSignals     *int     `json:"free_signals"`
	PromoUsed       bool     `json:"promo_used"`
	APKAccess       bool     `json:"apk_access"`
}

// legacyImporter implements the LegacyImporter interface
type legacyImporter struct {
	uowFactory UnitOfWorkFactory
	policy     Policy
	codes      CodeGenerator
	now        func() time.Time
}

// NewLegacyImporter creates an importer for the previous bot's users export
func NewLegacyImporter(uowFactory UnitOfWorkFactory, policy Policy) LegacyImporter {
	return &legacyImporter{
		uowFactory: uowFactory,
		policy:     policy,
		codes:      RandomCode,
		now:        time.Now,
	}
}

// readLegacyRecords decodes a stream of JSON objects keyed by id. Later records
// for the same id replace earlier ones; the order of first appearance is kept.
func readLegacyRecords(r io.Reader) ([]*models.ImportedAccount, int, error) {
	dec := json.NewDecoder(r)

	byID := make(map[int64]*models.ImportedAccount)
	var order []int64
	records := 0

	for {
		var chunk map[string]legacyUser
		err := dec.Decode(&chunk)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, records, fmt.Errorf("failed to decode legacy export: %w", err)
		}

		for key, user := range chunk {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil || id <= 0 {
				return nil, records, fmt.Errorf("invalid account id %q in legacy export", key)
			}
			records++

			record := &models.ImportedAccount{
				TelegramID:      id,
				Username:        user.Username,
				Balance:         user.Balance,
				RedemptionCode:  user.WithdrawCode,
				TotalSignals:    user.TotalSignals,
				PromoUsed:       user.PromoUsed,
				APKAccess:       user.APKAccess || user.PromoUsed,
				StartBonusGiven: user.StartBonusGiven,
			}
			if user.FreeSignals != nil {
				record.FreeSignals = *user.FreeSignals
			} else {
				record.FreeSignals = -1
			}
			if user.ReferredBy > 0 {
				referrer := int64(user.ReferredBy)
				record.ReferredBy = &referrer
			}

			if _, seen := byID[id]; !seen {
				order = append(order, id)
			}
			byID[id] = record
		}
	}

	out := make([]*models.ImportedAccount, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, records, nil
}

// Import loads accounts in two passes: accounts and balances first, then the
// referral edges, so a referrer listed after its invitee still links.
// Importing the same export twice leaves the ledger unchanged.
func (s *legacyImporter) Import(ctx context.Context, r io.Reader) (*models.ImportReport, error) {
	records, count, err := readLegacyRecords(r)
	if err != nil {
		return nil, err
	}

	report := &models.ImportReport{Records: count, Accounts: len(records)}

	for _, record := range records {
		if err := s.importAccount(ctx, record, report); err != nil {
			return report, fmt.Errorf("failed to import account %d: %w", record.TelegramID, err)
		}
	}

	for _, record := range records {
		if record.ReferredBy == nil {
			continue
		}
		linked, err := s.importReferral(ctx, record.TelegramID, *record.ReferredBy)
		if err != nil {
			return report, fmt.Errorf("failed to import referral of account %d: %w", record.TelegramID, err)
		}
		if linked {
			report.ReferralsLinked++
		} else {
			report.ReferralsSkipped++
		}
	}

	log.WithFields(log.Fields{
		"records":         report.Records,
		"accounts":        report.Accounts,
		"created":         report.Created,
		"updated":         report.Updated,
		"balanceAdjusted": report.BalanceAdjusted,
		"referralsLinked": report.ReferralsLinked,
	}).Info("Legacy import finished")

	return report, nil
}

func (s *legacyImporter) importAccount(ctx context.Context, record *models.ImportedAccount, report *models.ImportReport) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	accounts := uow.AccountRepository()

	account, err := accounts.GetByIDForUpdate(ctx, record.TelegramID)
	if err != nil {
		return storageErr("lock account", err)
	}

	if record.FreeSignals < 0 {
		record.FreeSignals = s.policy.FreeSignals
		if account != nil {
			record.FreeSignals = account.FreeSignals
		}
	}

	code, err := s.resolveCode(ctx, accounts, record, account)
	if err != nil {
		return storageErr("resolve redemption code", err)
	}
	record.RedemptionCode = code

	if account == nil {
		params := &models.NewAccount{
			TelegramID:     record.TelegramID,
			Username:       record.Username,
			RedemptionCode: code,
			FreeSignals:    record.FreeSignals,
		}
		if !record.StartBonusGiven && s.policy.StartBonus > 0 {
			dueAt := s.now().Add(s.policy.StartBonusDelay)
			params.StartBonusDueAt = &dueAt
		}
		account, err = createWithFreshCode(ctx, accounts, s.codes, params)
		if err != nil {
			return storageErr("create account", err)
		}
		record.RedemptionCode = params.RedemptionCode
		if account == nil {
			return storageErr("create account", fmt.Errorf("account %d appeared during import", record.TelegramID))
		}
		report.Created++
	} else {
		report.Updated++
	}

	if subOverflows(record.Balance, account.Balance) {
		return fmt.Errorf("imported balance of account %d: %w", record.TelegramID, ErrBalanceOverflow)
	}
	if delta := record.Balance - account.Balance; delta != 0 {
		metadata := map[string]any{"source": "legacy_export"}
		if _, err := applyDelta(ctx, uow, account, delta, models.TransactionTypeLegacyImport, metadata); err != nil {
			return storageErr("apply imported balance", err)
		}
		report.BalanceAdjusted++
	}

	if err := accounts.ApplyImport(ctx, record); err != nil {
		return storageErr("apply imported fields", err)
	}

	if err := uow.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

// resolveCode keeps the exported code unless another account already holds it
func (s *legacyImporter) resolveCode(ctx context.Context, accounts AccountRepository, record *models.ImportedAccount, existing *models.Account) (string, error) {
	if record.RedemptionCode != "" {
		if existing != nil && existing.RedemptionCode == record.RedemptionCode {
			return record.RedemptionCode, nil
		}
		taken, err := accounts.CodeExists(ctx, record.RedemptionCode)
		if err != nil {
			return "", err
		}
		if !taken {
			return record.RedemptionCode, nil
		}
		log.WithFields(log.Fields{
			"telegramID": record.TelegramID,
			"code":       record.RedemptionCode,
		}).Warn("Imported redemption code already taken, keeping a different one")
	}

	if existing != nil {
		return existing.RedemptionCode, nil
	}
	return generateUniqueCode(ctx, accounts, s.codes)
}

// importReferral links an imported account through the usual first-writer-wins
// rule. Legacy edges are stored as paid since the old bot paid at signup.
func (s *legacyImporter) importReferral(ctx context.Context, referredID, referrerID int64) (bool, error) {
	if referredID == referrerID {
		return false, nil
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, storageErr("begin transaction", err)
	}
	defer uow.Rollback()

	accounts := uow.AccountRepository()

	referred, err := accounts.GetByIDForUpdate(ctx, referredID)
	if err != nil {
		return false, storageErr("lock account", err)
	}
	if referred == nil || referred.HasReferrer() {
		return false, nil
	}

	referrer, err := accounts.GetByID(ctx, referrerID)
	if err != nil {
		return false, storageErr("get referrer", err)
	}
	if referrer == nil {
		log.WithFields(log.Fields{
			"referredID": referredID,
			"referrerID": referrerID,
		}).Warn("Skipping legacy referral to unknown account")
		return false, nil
	}

	linked, err := linkReferral(ctx, uow, referredID, referrerID, true)
	if err != nil {
		return false, storageErr("link referral", err)
	}
	if !linked {
		return false, nil
	}

	if err := uow.Commit(); err != nil {
		return false, storageErr("commit transaction", err)
	}
	return true, nil
}
