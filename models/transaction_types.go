package models

// TransactionType tags the reason of a balance change
type TransactionType string

const (
	TransactionTypeInitial         TransactionType = "initial"
	TransactionTypeStartBonus      TransactionType = "start_bonus"
	TransactionTypeReferralBonus   TransactionType = "referral_bonus"
	TransactionTypeAdminAdjustment TransactionType = "admin_adjustment"
	TransactionTypeSignalPurchase  TransactionType = "signal_purchase"
	TransactionTypeLegacyImport    TransactionType = "legacy_import"
)

// IsBonus returns true for one-shot bonus credits
func (tt TransactionType) IsBonus() bool {
	return tt == TransactionTypeStartBonus || tt == TransactionTypeReferralBonus
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}
