// Package extdata holds the per-agent riding records: which mount an agent
// sits on, which rider sits on it, and the reservation pair linking a rider
// to the mount set aside for it.
//
// Records are mutated only through Store methods, which keep the
// reservation back-references consistent after every call.
package extdata

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/talgya/cavalry/internal/agents"
)

// Record is one agent's riding linkage. Zero IDs mean "none".
type Record struct {
	id            agents.AgentID
	mount         agents.AgentID
	rider         agents.AgentID
	reservedMount agents.AgentID
	reservedBy    agents.AgentID
}

func (r *Record) ID() agents.AgentID            { return r.id }
func (r *Record) Mount() agents.AgentID         { return r.mount }
func (r *Record) Rider() agents.AgentID         { return r.rider }
func (r *Record) ReservedMount() agents.AgentID { return r.reservedMount }
func (r *Record) ReservedBy() agents.AgentID    { return r.reservedBy }

// Mounted reports whether the agent is sitting on a mount.
func (r *Record) Mounted() bool { return r.mount != agents.NoAgent }

// Store maps agent IDs to records. It is not safe for concurrent use; the
// simulation owns it and mutates it from the tick loop only.
type Store struct {
	records map[agents.AgentID]*Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[agents.AgentID]*Record)}
}

// Get returns the record for id, creating it if absent.
func (s *Store) Get(id agents.AgentID) *Record {
	r, ok := s.records[id]
	if !ok {
		r = &Record{id: id}
		s.records[id] = r
	}
	return r
}

// Lookup returns the record for id without creating one.
func (s *Store) Lookup(id agents.AgentID) (*Record, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Mount seats rider on mount. Any previous mount of the rider is released
// first; a rider the mount was still carrying loses its seat.
func (s *Store) Mount(rider, mount agents.AgentID) {
	if rider == agents.NoAgent || mount == agents.NoAgent || rider == mount {
		return
	}
	s.Dismount(rider)
	m := s.Get(mount)
	if m.rider != agents.NoAgent {
		s.Dismount(m.rider)
	}
	s.Get(rider).mount = mount
	m.rider = rider
}

// Dismount clears the rider's seat. The reservation pair is left intact so
// the rider can re-associate with the same mount later.
func (s *Store) Dismount(rider agents.AgentID) {
	r, ok := s.records[rider]
	if !ok || r.mount == agents.NoAgent {
		return
	}
	if m, ok := s.records[r.mount]; ok && m.rider == rider {
		m.rider = agents.NoAgent
	}
	r.mount = agents.NoAgent
}

// Reserve links rider and mount as a reservation pair. Any reservation
// either side held before is released.
func (s *Store) Reserve(rider, mount agents.AgentID) {
	if rider == agents.NoAgent || mount == agents.NoAgent || rider == mount {
		return
	}
	r := s.Get(rider)
	if r.reservedMount == mount {
		return
	}
	s.Release(rider)
	m := s.Get(mount)
	if m.reservedBy != agents.NoAgent {
		s.Release(m.reservedBy)
	}
	r.reservedMount = mount
	m.reservedBy = rider
}

// Release drops the rider's reservation and the mount's back-reference.
func (s *Store) Release(rider agents.AgentID) {
	r, ok := s.records[rider]
	if !ok || r.reservedMount == agents.NoAgent {
		return
	}
	if m, ok := s.records[r.reservedMount]; ok && m.reservedBy == rider {
		m.reservedBy = agents.NoAgent
	}
	r.reservedMount = agents.NoAgent
}

// Prune removes an agent permanently, clearing every link other records
// hold to it.
func (s *Store) Prune(id agents.AgentID) {
	r, ok := s.records[id]
	if !ok {
		return
	}
	s.Dismount(id)
	if r.rider != agents.NoAgent {
		s.Dismount(r.rider)
	}
	s.Release(id)
	if r.reservedBy != agents.NoAgent {
		s.Release(r.reservedBy)
	}
	delete(s.records, id)
}

// Validate checks that every link has a matching back-reference.
func (s *Store) Validate() error {
	for _, id := range s.ids() {
		r := s.records[id]
		if r.reservedMount != agents.NoAgent {
			m, ok := s.records[r.reservedMount]
			if !ok || m.reservedBy != id {
				return fmt.Errorf("agent %d reserves %d without a back-reference", id, r.reservedMount)
			}
		}
		if r.reservedBy != agents.NoAgent {
			o, ok := s.records[r.reservedBy]
			if !ok || o.reservedMount != id {
				return fmt.Errorf("agent %d reserved by %d without a forward reference", id, r.reservedBy)
			}
		}
		if r.rider != agents.NoAgent {
			o, ok := s.records[r.rider]
			if !ok || o.mount != id {
				return fmt.Errorf("agent %d carries %d which does not ride it", id, r.rider)
			}
		}
	}
	return nil
}

func (s *Store) ids() []agents.AgentID {
	ids := make([]agents.AgentID, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Entry is the persisted form of a record. The rider link is derived from
// mount links on restore and is not stored.
type Entry struct {
	ID            agents.AgentID  `json:"id" db:"id"`
	Mount         *agents.AgentID `json:"mount" db:"mount"`
	ReservedMount *agents.AgentID `json:"reservedMount" db:"reserved_mount"`
	ReservedBy    *agents.AgentID `json:"reservedBy" db:"reserved_by"`
}

func optional(id agents.AgentID) *agents.AgentID {
	if id == agents.NoAgent {
		return nil
	}
	v := id
	return &v
}

func deref(id *agents.AgentID) agents.AgentID {
	if id == nil {
		return agents.NoAgent
	}
	return *id
}

// Entry returns the persisted form of the record.
func (r *Record) Entry() Entry {
	return Entry{
		ID:            r.id,
		Mount:         optional(r.mount),
		ReservedMount: optional(r.reservedMount),
		ReservedBy:    optional(r.reservedBy),
	}
}

// MarshalJSON encodes the record in its persisted form.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Entry())
}

// UnmarshalJSON decodes a persisted record. The rider link stays empty
// until the record is restored into a store.
func (r *Record) UnmarshalJSON(b []byte) error {
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return err
	}
	*r = Record{
		id:            e.ID,
		mount:         deref(e.Mount),
		reservedMount: deref(e.ReservedMount),
		reservedBy:    deref(e.ReservedBy),
	}
	return nil
}

// Snapshot returns every non-empty record in ID order. Records with no
// links are skipped.
func (s *Store) Snapshot() []Entry {
	var out []Entry
	for _, id := range s.ids() {
		r := s.records[id]
		if r.mount == agents.NoAgent && r.reservedMount == agents.NoAgent && r.reservedBy == agents.NoAgent {
			continue
		}
		out = append(out, r.Entry())
	}
	return out
}

// Restore replaces the store's contents with entries, rebuilding rider
// links from mount links, then validates the result.
func (s *Store) Restore(entries []Entry) error {
	s.records = make(map[agents.AgentID]*Record, len(entries))
	for _, e := range entries {
		r := s.Get(e.ID)
		r.mount = deref(e.Mount)
		r.reservedMount = deref(e.ReservedMount)
		r.reservedBy = deref(e.ReservedBy)
	}
	for _, id := range s.ids() {
		r := s.records[id]
		if r.mount != agents.NoAgent {
			s.Get(r.mount).rider = id
		}
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}
