package models

// LedgerStats is a read-only rollup of the whole ledger for reporting
type LedgerStats struct {
	TotalAccounts     int
	TotalBalance      int64
	TotalReferrals    int
	TotalBonusEvents  int
	StartBonusesGiven int
	ReferredAccounts  int
	PromoRedemptions  int
}
