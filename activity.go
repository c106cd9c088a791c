package identity

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ActivityType enumerates the closed set of auditable workflow effects.
type ActivityType string

const (
	ActivitySignUp           ActivityType = "SIGN_UP"
	ActivitySignIn           ActivityType = "SIGN_IN"
	ActivitySignOut          ActivityType = "SIGN_OUT"
	ActivityUpdatePassword   ActivityType = "UPDATE_PASSWORD"
	ActivityDeleteAccount    ActivityType = "DELETE_ACCOUNT"
	ActivityUpdateAccount    ActivityType = "UPDATE_ACCOUNT"
	ActivityCreateTeam       ActivityType = "CREATE_TEAM"
	ActivityRemoveTeamMember ActivityType = "REMOVE_TEAM_MEMBER"
	ActivityInviteTeamMember ActivityType = "INVITE_TEAM_MEMBER"
	ActivityAcceptInvitation ActivityType = "ACCEPT_INVITATION"
)

// Valid reports whether t is a known activity kind. The switch is the
// single place new kinds must be added.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivitySignUp, ActivitySignIn, ActivitySignOut,
		ActivityUpdatePassword, ActivityDeleteAccount, ActivityUpdateAccount,
		ActivityCreateTeam, ActivityRemoveTeamMember, ActivityInviteTeamMember,
		ActivityAcceptInvitation:
		return true
	}
	return false
}

// NewActivityLog builds an audit record, rejecting unknown kinds so the
// enum stays closed. userID may be uuid.Nil for system attributed events.
func NewActivityLog(teamID uuid.UUID, userID uuid.UUID, action ActivityType, ipAddress string) (*ActivityLog, error) {
	if !action.Valid() {
		return nil, errors.New("unknown activity type", errors.CategoryInternal).
			WithMetadata(map[string]any{"action": string(action)})
	}

	if teamID == uuid.Nil {
		return nil, errors.New("activity log requires a team", errors.CategoryInternal)
	}

	record := &ActivityLog{
		ID:        uuid.New(),
		TeamID:    teamID,
		Action:    action,
		IPAddress: ipAddress,
	}

	if userID != uuid.Nil {
		record.UserID = &userID
	}

	now := time.Now()
	record.OccurredAt = &now

	return record, nil
}
