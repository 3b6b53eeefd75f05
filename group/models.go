// Package group defines expense-sharing groups, their members, and the
// settlement lifecycle state machine.
package group

import (
	"time"

	"github.com/xraph/settle/id"
	"github.com/xraph/settle/types"
)

// Status is the settlement lifecycle state of a group.
//
// ACTIVE accepts expenses. SETTLING means a settlement run is in flight and
// mutations are rejected. SETTLED means every recorded expense is settled;
// the group returns to ACTIVE the moment a new expense arrives. CLOSED is
// terminal and reached only by explicit archival.
type Status string

const (
	StatusActive   Status = "active"
	StatusSettling Status = "settling"
	StatusSettled  Status = "settled"
	StatusClosed   Status = "closed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSettling, StatusSettled, StatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool { return s == StatusClosed }

// CanTransition reports whether the state machine permits moving from s to next.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusSettling || next == StatusClosed
	case StatusSettling:
		// Outcome of a run: fully resolved or residual debts remain.
		return next == StatusSettled || next == StatusActive
	case StatusSettled:
		return next == StatusActive || next == StatusClosed
	case StatusClosed:
		return false
	}
	return false
}

// Role distinguishes the group admin from regular members.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Member is a participant in a group. The participant ID is the stable
// external identifier (a phone number, an account handle); the payable
// address is resolved lazily through the identity resolver and cached here.
type Member struct {
	ParticipantID string    `json:"participant_id"`
	Address       string    `json:"address,omitempty"`
	Role          Role      `json:"role"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Group is an expense-sharing group. Members are ordered by join time and
// membership is append-only once expenses exist. All expenses in a group
// share one currency.
type Group struct {
	types.Entity
	ID       id.GroupID        `json:"id"`
	Name     string            `json:"name"`
	Currency string            `json:"currency"`
	AdminID  string            `json:"admin_id"`
	Members  []Member          `json:"members"`
	Status   Status            `json:"status"`
	ClosedAt *time.Time        `json:"closed_at,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HasMember reports whether the participant belongs to the group.
func (g *Group) HasMember(participantID string) bool {
	for _, m := range g.Members {
		if m.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// Member returns the member record for a participant, or nil.
func (g *Group) Member(participantID string) *Member {
	for i := range g.Members {
		if g.Members[i].ParticipantID == participantID {
			return &g.Members[i]
		}
	}
	return nil
}

// ParticipantIDs returns the participant identifiers in join order.
func (g *Group) ParticipantIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ParticipantID
	}
	return ids
}
