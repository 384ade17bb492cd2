package session

import "strings"

// Stage is the step of a conversation wizard a user is in
type Stage string

const (
	StageIdle Stage = ""

	// signal wizard
	StageAwaitingBetID  Stage = "signal.awaiting_bet_id"
	StageAwaitingStart  Stage = "signal.awaiting_start"
	StageGameInProgress Stage = "signal.in_progress"

	// admin wizard
	StageAdminAwaitingUserID   Stage = "admin.awaiting_user_id"
	StageAdminAwaitingAPKURL   Stage = "admin.awaiting_apk_url"
	StageAdminAwaitingBalance  Stage = "admin.awaiting_balance"
	StageAdminConfirmRemoveAPK Stage = "admin.confirm_remove_apk"
)

// IsSignal reports whether the stage belongs to the signal wizard
func (s Stage) IsSignal() bool {
	return strings.HasPrefix(string(s), "signal.")
}

// IsAdmin reports whether the stage belongs to the admin wizard
func (s Stage) IsAdmin() bool {
	return strings.HasPrefix(string(s), "admin.")
}

// State is the wizard state of one user. The zero value is the idle state.
type State struct {
	Stage    Stage  `json:"stage"`
	BetID    string `json:"bet_id,omitempty"`
	Rows     int    `json:"rows,omitempty"`
	TargetID int64  `json:"target_id,omitempty"`
}

// IsIdle reports whether no wizard is running
func (s State) IsIdle() bool {
	return s.Stage == StageIdle
}
