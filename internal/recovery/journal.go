// Package recovery journals the changes made to a model so that they can be
// replayed onto the last saved state after an interrupted session.
package recovery

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/modelgraph/internal/jsonl"
	"github.com/mesh-intelligence/modelgraph/pkg/model"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Journal operations.
const (
	OpCreate    = "c"
	OpUnlink    = "u"
	OpAttribute = "a"
	OpSet       = "s"
	OpDelete    = "d"
)

// Entry is one journaled change. Owner is the type that declares Property,
// so that replay reaches the same descriptor even when a subtype eclipses
// it.
type Entry struct {
	Op       string `json:"op"`
	NodeID   string `json:"node_id"`
	Type     string `json:"type,omitempty"`
	Owner    string `json:"owner,omitempty"`
	Property string `json:"property,omitempty"`
	Value    any    `json:"value"`
	Other    string `json:"other,omitempty"`
}

// Journal records the primary changes of a model. Derived union and
// redefinition events are not recorded; replaying the primary changes
// reproduces them.
type Journal struct {
	entries []Entry
	stop    func()
	logger  *slog.Logger
}

// New returns an empty journal. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{logger: logger}
}

// Open reads a journal flushed to path. A missing file is an empty journal.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	entries, err := jsonl.Decode[Entry](path)
	if err != nil {
		return nil, err
	}
	j := New(logger)
	j.entries = entries
	return j, nil
}

// Attach starts recording the events of m. A journal records one model at a
// time; attaching again moves it to m.
func (j *Journal) Attach(m *model.Model) {
	j.Detach()
	j.stop = m.Subscribe(j.record)
}

// Detach stops recording.
func (j *Journal) Detach() {
	if j.stop != nil {
		j.stop()
		j.stop = nil
	}
}

// Entries returns a copy of the recorded entries.
func (j *Journal) Entries() []Entry {
	return append([]Entry(nil), j.entries...)
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int { return len(j.entries) }

// Truncate drops every entry, typically after the model was saved.
func (j *Journal) Truncate() { j.entries = nil }

// Flush writes the entries to path atomically.
func (j *Journal) Flush(path string) error {
	if err := jsonl.WriteItems(path, j.entries); err != nil {
		return fmt.Errorf("flushing journal: %w", err)
	}
	return nil
}

func (j *Journal) record(e model.Event) {
	switch e.Kind {
	case model.NodeCreated:
		j.add(Entry{Op: OpCreate, NodeID: e.Node.ID(), Type: e.Node.Type().Name()})
	case model.NodeUnlinked:
		j.add(Entry{Op: OpUnlink, NodeID: e.Node.ID()})
	case model.AttributeChanged:
		j.add(Entry{Op: OpAttribute, NodeID: e.Node.ID(), Owner: e.Property.Owner().Name(),
			Property: e.Property.Name(), Value: journalValue(e.New)})
	case model.AssociationSet, model.AssociationAdded:
		j.add(Entry{Op: OpSet, NodeID: e.Node.ID(), Owner: e.Property.Owner().Name(),
			Property: e.Property.Name(), Other: nodeID(e.New)})
	case model.AssociationDeleted:
		j.add(Entry{Op: OpDelete, NodeID: e.Node.ID(), Owner: e.Property.Owner().Name(),
			Property: e.Property.Name(), Other: nodeID(e.Old)})
	}
}

func (j *Journal) add(e Entry) {
	j.entries = append(j.entries, e)
}

// Replay applies the entries to m in order. Attribute values are applied
// with Property.Load so that values read back from JSON are coerced to the
// attribute's value type.
func (j *Journal) Replay(m *model.Model) error {
	for i, e := range j.entries {
		if err := replay(m, e); err != nil {
			return fmt.Errorf("replaying entry %d (%s %s): %w", i, e.Op, e.NodeID, err)
		}
	}
	j.logger.Debug("journal replayed", slog.Int("entries", len(j.entries)))
	return nil
}

func replay(m *model.Model, e Entry) error {
	s := m.Schema()
	if e.Op == OpCreate {
		t, ok := s.Type(e.Type)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrUnknownType, e.Type)
		}
		_, err := m.CreateAs(t, e.NodeID)
		return err
	}

	n, ok := m.Lookup(e.NodeID)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, e.NodeID)
	}
	if e.Op == OpUnlink {
		n.Unlink()
		return nil
	}

	owner, ok := s.Type(e.Owner)
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrUnknownType, e.Owner)
	}
	p, ok := s.Property(owner, e.Property)
	if !ok {
		return fmt.Errorf("%w: %s.%s", types.ErrUnknownProperty, e.Owner, e.Property)
	}

	switch e.Op {
	case OpAttribute:
		return p.Load(n, e.Value)
	case OpSet:
		if e.Other == "" {
			return p.Set(n, nil)
		}
		other, ok := m.Lookup(e.Other)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrNotFound, e.Other)
		}
		return p.Set(n, other)
	case OpDelete:
		other, ok := m.Lookup(e.Other)
		if !ok {
			return fmt.Errorf("%w: %s", types.ErrNotFound, e.Other)
		}
		return p.Delete(n, other)
	default:
		return fmt.Errorf("%w: operation %q", types.ErrInvalidJournal, e.Op)
	}
}

func nodeID(v any) string {
	if n, ok := v.(*model.Node); ok && n != nil {
		return n.ID()
	}
	return ""
}

func journalValue(v any) any {
	if ts, ok := v.(time.Time); ok {
		return ts.UTC().Format(time.RFC3339Nano)
	}
	return v
}
