package grantkit

import "fmt"

// Action is one level of the fixed three-level lattice: own implies write
// implies read. Holding a higher grant satisfies every check for a lower one.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
	ActionOwn   Action = "own"
)

var actionRank = map[Action]int{
	ActionRead:  1,
	ActionWrite: 2,
	ActionOwn:   3,
}

// Valid reports whether the action is a member of the lattice.
func (a Action) Valid() bool {
	_, ok := actionRank[a]
	return ok
}

// Covers reports whether holding this action satisfies a check for other.
//
// Example:
//
//	ActionOwn.Covers(ActionRead)   // true
//	ActionRead.Covers(ActionWrite) // false
func (a Action) Covers(other Action) bool {
	return actionRank[a] >= actionRank[other] && other.Valid()
}

// Expand returns the set of stored actions that satisfy a check for this
// action: read expands to {own, write, read}, write to {own, write}, own to
// {own}. Used to build the IN clause of every accessibility query.
func (a Action) Expand() []Action {
	switch a {
	case ActionRead:
		return []Action{ActionOwn, ActionWrite, ActionRead}
	case ActionWrite:
		return []Action{ActionOwn, ActionWrite}
	case ActionOwn:
		return []Action{ActionOwn}
	}
	return nil
}

// ParseAction converts a string into an Action, rejecting anything outside
// the lattice before it can reach the store.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return "", NewError(ErrValidation, fmt.Sprintf("unknown action %q", s))
	}
	return a, nil
}

// HighestFirst lists the lattice from strongest to weakest. HighestAction
// probes grants in this order.
var HighestFirst = []Action{ActionOwn, ActionWrite, ActionRead}
