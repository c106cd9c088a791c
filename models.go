package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the role a user holds, globally and per team.
type UserRole = string

const (
	// RoleMember can participate in a team
	RoleMember UserRole = "member"
	// RoleOwner administers a team
	RoleOwner UserRole = "owner"
)

// ValidRole reports whether role is part of the closed role set.
func ValidRole(role UserRole) bool {
	return role == RoleMember || role == RoleOwner
}

// User is an authenticatable account. Deletion is a soft delete: the row is
// kept for historical references but excluded from lookups and future
// authentication.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name" json:"name,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Role          UserRole   `bun:"role,notnull" json:"role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Team groups users. The billing attributes are opaque pass-through fields
// owned by the payment collaborator; this package stores but never
// interprets them.
type Team struct {
	bun.BaseModel      `bun:"table:teams,alias:team"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name               string     `bun:"name,notnull" json:"name,omitempty"`
	CustomerID         string     `bun:"customer_id" json:"customer_id,omitempty"`
	SubscriptionID     string     `bun:"subscription_id" json:"subscription_id,omitempty"`
	ProductID          string     `bun:"product_id" json:"product_id,omitempty"`
	PlanName           string     `bun:"plan_name" json:"plan_name,omitempty"`
	SubscriptionStatus string     `bun:"subscription_status" json:"subscription_status,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SubscriptionAttrs is the opaque billing payload applied to a team by the
// payment webhook collaborator.
type SubscriptionAttrs struct {
	CustomerID         string `json:"customer_id"`
	SubscriptionID     string `json:"subscription_id"`
	ProductID          string `json:"product_id"`
	PlanName           string `json:"plan_name"`
	SubscriptionStatus string `json:"subscription_status"`
}

// TeamMember relates one user to one team with a role. A user holds at most
// one membership per team.
type TeamMember struct {
	bun.BaseModel `bun:"table:team_members,alias:mbr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TeamID        uuid.UUID  `bun:"team_id,notnull,type:uuid" json:"team_id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Role          UserRole   `bun:"role,notnull" json:"role,omitempty"`
	JoinedAt      *time.Time `bun:"joined_at,nullzero,default:current_timestamp" json:"joined_at,omitempty"`
	Team          *Team      `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

// InvitationStatus is the invitation lifecycle state.
type InvitationStatus = string

const (
	// InvitationPending is the initial, acceptable state
	InvitationPending InvitationStatus = "pending"
	// InvitationAccepted is terminal; an invitation is accepted exactly once
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation is a single-use offer of team membership for an email address.
type Invitation struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TeamID        uuid.UUID        `bun:"team_id,notnull,type:uuid" json:"team_id,omitempty"`
	Email         string           `bun:"email,notnull" json:"email,omitempty"`
	Role          UserRole         `bun:"role,notnull" json:"role,omitempty"`
	InvitedByID   uuid.UUID        `bun:"invited_by_id,notnull,type:uuid" json:"invited_by_id,omitempty"`
	Status        InvitationStatus `bun:"status,notnull" json:"status,omitempty"`
	InvitedAt     *time.Time       `bun:"invited_at,nullzero,default:current_timestamp" json:"invited_at,omitempty"`
	Team          *Team            `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
	InvitedBy     *User            `bun:"rel:belongs-to,join:invited_by_id=id" json:"invited_by,omitempty"`
}

// Credential holds the salted hash for exactly one user. The hash never
// crosses the repository boundary; verification happens inside Credentials.
type Credential struct {
	bun.BaseModel `bun:"table:credentials,alias:cred"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ActivityLog is an append-only audit record. Rows are never updated or
// deleted; UserID is nil for system attributed events.
type ActivityLog struct {
	bun.BaseModel `bun:"table:activity_logs,alias:act"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TeamID        uuid.UUID    `bun:"team_id,notnull,type:uuid" json:"team_id,omitempty"`
	UserID        *uuid.UUID   `bun:"user_id,nullzero,type:uuid" json:"user_id,omitempty"`
	Action        ActivityType `bun:"action,notnull" json:"action,omitempty"`
	IPAddress     string       `bun:"ip_address" json:"ip_address,omitempty"`
	OccurredAt    *time.Time   `bun:"occurred_at,nullzero,default:current_timestamp" json:"occurred_at,omitempty"`
	Team          *Team        `bun:"rel:belongs-to,join:team_id=id" json:"team,omitempty"`
	User          *User        `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

// UserWithTeam pairs a user with the team their first membership points at.
type UserWithTeam struct {
	User *User `json:"user"`
	Team *Team `json:"team,omitempty"`
}

// TeamWithMembers pairs a team with its current member users.
type TeamWithMembers struct {
	Team    *Team   `json:"team"`
	Members []*User `json:"members"`
}

// DefaultTeamName is the team name assigned on plain sign-up.
func DefaultTeamName(email string) string {
	return email + "'s Team"
}
