package infrastructure

import (
	"fmt"

	"signalbot/events"
)

// subjectPrefix namespaces every ledger subject
const subjectPrefix = "ledger"

// MapEventToSubject converts a ledger event type to its NATS subject
func MapEventToSubject(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeBalanceChange:
		return subjectPrefix + ".balance.changed"
	case events.EventTypeAccountCreated:
		return subjectPrefix + ".accounts.created"
	case events.EventTypeReferralLinked:
		return subjectPrefix + ".referrals.linked"
	case events.EventTypeBonusGranted:
		return subjectPrefix + ".bonuses.granted"
	case events.EventTypePromoRedeemed:
		return subjectPrefix + ".promos.redeemed"
	default:
		return fmt.Sprintf("%s.unknown.%s", subjectPrefix, eventType)
	}
}

// AllSubjects returns the subjects the ledger stream captures
func AllSubjects() []string {
	return []string{subjectPrefix + ".>"}
}
