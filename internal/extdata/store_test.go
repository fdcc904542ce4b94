package extdata

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/cavalry/internal/agents"
)

func TestGetCreatesLookupDoesNot(t *testing.T) {
	s := NewStore()
	_, ok := s.Lookup(4)
	assert.False(t, ok)
	r := s.Get(4)
	assert.Equal(t, agents.AgentID(4), r.ID())
	got, ok := s.Lookup(4)
	require.True(t, ok)
	assert.Same(t, r, got)
	assert.Equal(t, 1, s.Len())
}

func TestMountAndDismount(t *testing.T) {
	s := NewStore()
	s.Mount(1, 10)
	assert.Equal(t, agents.AgentID(10), s.Get(1).Mount())
	assert.Equal(t, agents.AgentID(1), s.Get(10).Rider())
	assert.True(t, s.Get(1).Mounted())

	// A second rider takes the seat and unseats the first.
	s.Mount(2, 10)
	assert.False(t, s.Get(1).Mounted())
	assert.Equal(t, agents.AgentID(2), s.Get(10).Rider())

	s.Dismount(2)
	assert.False(t, s.Get(2).Mounted())
	assert.Equal(t, agents.NoAgent, s.Get(10).Rider())
	require.NoError(t, s.Validate())

	s.Mount(3, 3)
	assert.False(t, s.Get(3).Mounted(), "cannot ride itself")
}

func TestDismountKeepsReservation(t *testing.T) {
	s := NewStore()
	s.Mount(1, 10)
	s.Reserve(1, 10)
	s.Dismount(1)
	assert.Equal(t, agents.AgentID(10), s.Get(1).ReservedMount())
	assert.Equal(t, agents.AgentID(1), s.Get(10).ReservedBy())
}

func TestReserveReleasesPrevious(t *testing.T) {
	s := NewStore()
	s.Reserve(1, 10)
	s.Reserve(1, 11)
	assert.Equal(t, agents.NoAgent, s.Get(10).ReservedBy())
	assert.Equal(t, agents.AgentID(1), s.Get(11).ReservedBy())

	// Another rider steals mount 11.
	s.Reserve(2, 11)
	assert.Equal(t, agents.NoAgent, s.Get(1).ReservedMount())
	assert.Equal(t, agents.AgentID(2), s.Get(11).ReservedBy())
	require.NoError(t, s.Validate())

	s.Release(2)
	assert.Equal(t, agents.NoAgent, s.Get(11).ReservedBy())
	require.NoError(t, s.Validate())
}

func TestPruneClearsBackReferences(t *testing.T) {
	s := NewStore()
	s.Mount(1, 10)
	s.Reserve(1, 10)

	s.Prune(10)
	_, ok := s.Lookup(10)
	assert.False(t, ok)
	assert.False(t, s.Get(1).Mounted())
	assert.Equal(t, agents.NoAgent, s.Get(1).ReservedMount())
	require.NoError(t, s.Validate())

	s.Mount(2, 20)
	s.Reserve(2, 20)
	s.Prune(2)
	assert.Equal(t, agents.NoAgent, s.Get(20).Rider())
	assert.Equal(t, agents.NoAgent, s.Get(20).ReservedBy())
	require.NoError(t, s.Validate())
}

// Every mutator keeps the reservation pair consistent, whatever the order
// of calls.
func TestInvariantUnderRandomMutations(t *testing.T) {
	s := NewStore()
	rng := rand.New(rand.NewSource(11))
	id := func() agents.AgentID { return agents.AgentID(rng.Intn(8) + 1) }
	for i := 0; i < 5000; i++ {
		switch rng.Intn(5) {
		case 0:
			s.Mount(id(), id())
		case 1:
			s.Dismount(id())
		case 2:
			s.Reserve(id(), id())
		case 3:
			s.Release(id())
		case 4:
			if rng.Intn(10) == 0 {
				s.Prune(id())
			}
		}
		require.NoError(t, s.Validate(), "step %d", i)
	}
}

func TestValidateDetectsBrokenLinks(t *testing.T) {
	s := NewStore()
	s.Get(1).reservedMount = 10
	assert.Error(t, s.Validate())

	s = NewStore()
	s.Get(10).reservedBy = 1
	assert.Error(t, s.Validate())
}

func TestRecordJSONRoundTrip(t *testing.T) {
	s := NewStore()
	s.Mount(1, 10)
	s.Reserve(1, 10)
	orig := s.Get(1)

	raw, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"mount":10,"reservedMount":10,"reservedBy":null}`, string(raw))

	var back Record
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, orig.Entry(), back.Entry())
	assert.Equal(t, orig.Mount(), back.Mount())
	assert.Equal(t, orig.ReservedMount(), back.ReservedMount())
	assert.Equal(t, orig.ReservedBy(), back.ReservedBy())
}

func TestSnapshotRestore(t *testing.T) {
	s := NewStore()
	s.Mount(1, 10)
	s.Reserve(1, 10)
	s.Reserve(2, 11)
	s.Get(5) // empty records are not persisted

	snap := s.Snapshot()
	require.Len(t, snap, 4)

	restored := NewStore()
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, agents.AgentID(1), restored.Get(10).Rider(), "rider rebuilt from mount")
	assert.Equal(t, agents.AgentID(2), restored.Get(11).ReservedBy())
	assert.Equal(t, snap, restored.Snapshot())

	bad := []Entry{{ID: 1, ReservedMount: optional(10)}}
	assert.Error(t, NewStore().Restore(bad))
}
