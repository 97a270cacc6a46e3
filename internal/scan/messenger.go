package scan

import "context"

// MembershipStatus is a member's standing in a group as reported by the chat platform.
type MembershipStatus string

// Membership statuses.
const (
	StatusOwner         MembershipStatus = "owner"
	StatusAdministrator MembershipStatus = "administrator"
	StatusMember        MembershipStatus = "member"
	StatusRestricted    MembershipStatus = "restricted"
	StatusLeft          MembershipStatus = "left"
	StatusKicked        MembershipStatus = "kicked"
	StatusUnknown       MembershipStatus = "unknown"
)

// InGroup reports whether the status means the member is currently part of the group.
func (s MembershipStatus) InGroup() bool {
	switch s {
	case StatusOwner, StatusAdministrator, StatusMember, StatusRestricted:
		return true
	default:
		return false
	}
}

// Messenger is the chat platform as seen by the birthday ritual. Any method may
// fail with a transport or permission error.
type Messenger interface {
	SendGroupMessage(ctx context.Context, groupID int64, text string) error
	SendPrivateMessage(ctx context.Context, memberID int64, text string) error
	// RemoveMember bans the member so they cannot silently re-join.
	RemoveMember(ctx context.Context, groupID, memberID int64) error
	// RestoreMember lifts a ban placed by RemoveMember.
	RestoreMember(ctx context.Context, groupID, memberID int64) error
	// CreateInviteReference returns a fresh invite link for the group.
	CreateInviteReference(ctx context.Context, groupID int64) (string, error)
	GetMembershipStatus(ctx context.Context, groupID, memberID int64) (MembershipStatus, error)
}

// Greeter writes a personal birthday message for a member.
type Greeter interface {
	BirthdayGreeting(ctx context.Context, displayName string) (string, error)
}
