package models

// BonusOutcome is the result of attempting a one-shot bonus grant
type BonusOutcome string

const (
	BonusGranted        BonusOutcome = "granted"
	BonusAlreadyGranted BonusOutcome = "already_granted"
	BonusNotEligible    BonusOutcome = "not_eligible"
)

// BonusResult describes a bonus attempt together with the credited amount
type BonusResult struct {
	Outcome    BonusOutcome
	AccountID  int64 // credited account
	Amount     int64
	NewBalance int64
}

// Granted reports whether the attempt credited the account
func (r *BonusResult) Granted() bool {
	return r != nil && r.Outcome == BonusGranted
}

// LinkOutcome is the result of attributing an account to an inviter
type LinkOutcome string

const (
	LinkCreated        LinkOutcome = "created"
	LinkSelf           LinkOutcome = "self"
	LinkUnknownInviter LinkOutcome = "unknown_inviter"
	LinkAlreadyLinked  LinkOutcome = "already_linked"
)

// LinkResult describes a referral linkage attempt
type LinkResult struct {
	Outcome    LinkOutcome
	ReferrerID int64
	Bonus      *BonusResult // set when the bonus fires at signup
}

// PromoOutcome is the result of a promo code message
type PromoOutcome string

const (
	PromoRedeemed    PromoOutcome = "redeemed"
	PromoAlreadyUsed PromoOutcome = "already_used"
	PromoNoMatch     PromoOutcome = "no_match"
)

// PromoResult describes a promo redemption attempt
type PromoResult struct {
	Outcome       PromoOutcome
	ReferralBonus *BonusResult
}

// SignalResult describes a consumed signal
type SignalResult struct {
	UsedFreeSignal  bool
	Charged         int64
	NewBalance      int64
	FreeSignalsLeft int
	TotalSignals    int
}

// RedemptionInfo is what the withdrawal screen shows
type RedemptionInfo struct {
	Code       string
	Balance    int64
	MinimumDue int64
	Eligible   bool
}

// AccountSnapshot is the admin view of an account
type AccountSnapshot struct {
	Account  *Account
	Referral *Referral
	History  []*BalanceHistory
}

// StartResult is everything the /start handler needs to greet a user
type StartResult struct {
	Account *Account
	Created bool
	Link    *LinkResult // nil when no referral parameter was supplied
}
