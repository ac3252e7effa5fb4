package grantkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestActionValid validates lattice membership.
func TestActionValid(t *testing.T) {
	assert.True(t, ActionRead.Valid())
	assert.True(t, ActionWrite.Valid())
	assert.True(t, ActionOwn.Valid())

	assert.False(t, Action("").Valid())
	assert.False(t, Action("admin").Valid())
	assert.False(t, Action("READ").Valid())
}

// TestActionCovers validates the own ≥ write ≥ read lattice.
func TestActionCovers(t *testing.T) {
	assert.True(t, ActionOwn.Covers(ActionOwn))
	assert.True(t, ActionOwn.Covers(ActionWrite))
	assert.True(t, ActionOwn.Covers(ActionRead))

	assert.True(t, ActionWrite.Covers(ActionWrite))
	assert.True(t, ActionWrite.Covers(ActionRead))
	assert.False(t, ActionWrite.Covers(ActionOwn))

	assert.True(t, ActionRead.Covers(ActionRead))
	assert.False(t, ActionRead.Covers(ActionWrite))
	assert.False(t, ActionRead.Covers(ActionOwn))

	// Nothing covers an action outside the lattice
	assert.False(t, ActionOwn.Covers(Action("delete")))
}

// TestActionExpand validates the satisfying-grant sets used in queries.
func TestActionExpand(t *testing.T) {
	assert.ElementsMatch(t, []Action{ActionOwn, ActionWrite, ActionRead}, ActionRead.Expand())
	assert.ElementsMatch(t, []Action{ActionOwn, ActionWrite}, ActionWrite.Expand())
	assert.ElementsMatch(t, []Action{ActionOwn}, ActionOwn.Expand())
	assert.Nil(t, Action("bogus").Expand())
}

// TestParseAction validates parsing and rejection of unknown actions.
func TestParseAction(t *testing.T) {
	for _, s := range []string{"read", "write", "own"} {
		a, err := ParseAction(s)
		assert.NoError(t, err)
		assert.Equal(t, Action(s), a)
	}

	_, err := ParseAction("delete")
	assert.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = ParseAction("")
	assert.Error(t, err)
	assert.True(t, IsValidation(err))
}

// TestHighestFirstOrder validates the probe order for HighestAction.
func TestHighestFirstOrder(t *testing.T) {
	assert.Equal(t, []Action{ActionOwn, ActionWrite, ActionRead}, HighestFirst)

	// Each entry must cover everything after it
	for i, a := range HighestFirst {
		for _, weaker := range HighestFirst[i:] {
			assert.True(t, a.Covers(weaker), "%s should cover %s", a, weaker)
		}
	}
}
