package models

import "fmt"

// Phase is the lifecycle state of the active conversation. Exactly one
// phase holds at any time:
//
//	Idle -> PendingNew -> Creating -> Active(id)
//	Active(id) -> Active(id')
//
// Idle means no conversation is selected (empty state). PendingNew is a
// fresh conversation before the first send. Creating is the window
// between the first send and the server minting a group id.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePendingNew
	PhaseCreating
	PhaseActive
)

// String returns the phase name for logs and errors.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePendingNew:
		return "pending-new"
	case PhaseCreating:
		return "creating"
	case PhaseActive:
		return "active"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ActiveConversation tracks which conversation the transcript shows.
// GroupID is set only in PhaseActive.
type ActiveConversation struct {
	Phase   Phase
	GroupID string
}

// StartNew moves to PendingNew. Allowed from any phase: picking "new
// conversation" always resets the reference.
func (a *ActiveConversation) StartNew() {
	a.Phase = PhasePendingNew
	a.GroupID = ""
}

// BeginCreating marks the first message of a pending conversation as
// sent. Only valid from PendingNew.
func (a *ActiveConversation) BeginCreating() error {
	if a.Phase != PhasePendingNew {
		return fmt.Errorf("cannot begin creating from %s", a.Phase)
	}
	a.Phase = PhaseCreating
	return nil
}

// Adopt installs the server-minted group id. Only valid from Creating.
func (a *ActiveConversation) Adopt(groupID string) error {
	if a.Phase != PhaseCreating {
		return fmt.Errorf("cannot adopt group from %s", a.Phase)
	}
	if groupID == "" {
		return fmt.Errorf("cannot adopt empty group id")
	}
	a.Phase = PhaseActive
	a.GroupID = groupID
	return nil
}

// Select switches to an existing conversation group. Allowed from any
// phase; selecting the sidebar always wins.
func (a *ActiveConversation) Select(groupID string) error {
	if groupID == "" {
		return fmt.Errorf("cannot select empty group id")
	}
	a.Phase = PhaseActive
	a.GroupID = groupID
	return nil
}
