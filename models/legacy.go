package models

// ImportedAccount is one account record read from a legacy export
type ImportedAccount struct {
	TelegramID      int64
	Username        string
	Balance         int64
	RedemptionCode  string
	ReferredBy      *int64
	TotalSignals    int
	FreeSignals     int
	PromoUsed       bool
	APKAccess       bool
	StartBonusGiven bool
}

// ImportReport summarises a legacy import run
type ImportReport struct {
	Records          int // records read, duplicates included
	Accounts         int // distinct accounts
	Created          int
	Updated          int
	BalanceAdjusted  int
	ReferralsLinked  int
	ReferralsSkipped int
}
