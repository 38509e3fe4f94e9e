package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"caveat/internal/filter"
	"caveat/internal/warning"
)

// Current schema version - increment when Journal format changes
const journalSchemaVersion uint16 = 1

// ErrSchema is returned when a journal was written by an incompatible version.
var ErrSchema = errors.New("unsupported journal schema")

// Outcome is the result of one node as stored in a journal.
type Outcome struct {
	NodeID string `msgpack:"node_id"`
	Passed bool   `msgpack:"passed"`
	// Fields below describe the first failure of a failed node.
	Phase    warning.Phase `msgpack:"phase,omitempty"`
	Message  string        `msgpack:"message,omitempty"`
	Category string        `msgpack:"category,omitempty"`
	Location string        `msgpack:"location,omitempty"`
}

// Journal is a finished session written to disk for later reporting.
type Journal struct {
	Schema   uint16           `msgpack:"schema"`
	Created  time.Time        `msgpack:"created"`
	Elapsed  time.Duration    `msgpack:"elapsed"`
	Outcomes []Outcome        `msgpack:"outcomes"`
	Groups   []Group          `msgpack:"groups"`
	// Dedup is the summary dedup mode of the run; zero reads as location.
	Dedup    filter.DedupMode `msgpack:"dedup,omitempty"`
}

// NewJournal snapshots agg together with the node outcomes.
func NewJournal(agg *Aggregate, outcomes []Outcome, elapsed time.Duration) *Journal {
	j := &Journal{
		Schema:   journalSchemaVersion,
		Created:  time.Now().UTC(),
		Elapsed:  elapsed,
		Outcomes: append([]Outcome(nil), outcomes...),
	}
	if agg != nil {
		j.Groups = agg.All()
	}
	return j
}

// Aggregate rebuilds the session aggregate stored in j.
func (j *Journal) Aggregate() *Aggregate {
	agg := New()
	for _, g := range j.Groups {
		for _, rec := range g.Records {
			agg.Record(g.NodeID, rec)
		}
	}
	return agg
}

// WriteJournal serializes j to path, replacing the file atomically.
func WriteJournal(path string, j *Journal) (err error) {
	if j == nil {
		return errors.New("nil journal")
	}
	if j.Schema == 0 {
		j.Schema = journalSchemaVersion
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".journal-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(j); err != nil {
		return fmt.Errorf("encode journal: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(f.Name(), path)
}

// ReadJournal loads a journal written by WriteJournal.
func ReadJournal(path string) (*Journal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var j Journal
	if err := msgpack.NewDecoder(f).Decode(&j); err != nil {
		return nil, fmt.Errorf("decode journal %s: %w", path, err)
	}
	if j.Schema != journalSchemaVersion {
		return nil, fmt.Errorf("%s: %w %d (want %d)", path, ErrSchema, j.Schema, journalSchemaVersion)
	}
	return &j, nil
}
