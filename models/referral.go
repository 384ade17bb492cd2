package models

import "time"

// ReferralState is the lifecycle position of a referral edge
type ReferralState string

const (
	ReferralStateUnlinked  ReferralState = "unlinked"
	ReferralStateLinked    ReferralState = "linked"
	ReferralStateBonusPaid ReferralState = "bonus_paid"
)

// Referral is the one-time attribution edge from an inviter to an invitee
type Referral struct {
	ID          int64      `db:"id"`
	ReferrerID  int64      `db:"referrer_id"`
	ReferredID  int64      `db:"referred_id"`
	BonusGiven  bool       `db:"bonus_given"`
	BonusAmount int64      `db:"bonus_amount"`
	CreatedAt   time.Time  `db:"created_at"`
	PaidAt      *time.Time `db:"paid_at"`
}

// State derives the edge state; a nil edge is unlinked
func (r *Referral) State() ReferralState {
	if r == nil {
		return ReferralStateUnlinked
	}
	if r.BonusGiven {
		return ReferralStateBonusPaid
	}
	return ReferralStateLinked
}

// ReferralSummary is what an inviter sees on the referrals screen
type ReferralSummary struct {
	TotalReferrals int
	PaidReferrals  int
	TotalEarned    int64
}
