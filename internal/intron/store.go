package intron

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrInconsistentRecord is returned when an intron was scored by only one of
// the donor and branch passes.
var ErrInconsistentRecord = errors.New("inconsistent intron record")

// InconsistentRecordError lists the introns missing scores from one pass.
type InconsistentRecordError struct {
	// Missing maps intron key to the slots that were never written.
	Missing map[string][]Slot
}

func (e *InconsistentRecordError) Error() string {
	keys := make([]string, 0, len(e.Missing))
	for k := range e.Missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	const maxListed = 5
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d intron(s) scored in only one pass", ErrInconsistentRecord, len(keys))
	for i, k := range keys {
		if i == maxListed {
			fmt.Fprintf(&b, "; ... %d more", len(keys)-maxListed)
			break
		}
		names := make([]string, len(e.Missing[k]))
		for j, s := range e.Missing[k] {
			names[j] = s.String()
		}
		fmt.Fprintf(&b, "; %s missing %s", k, strings.Join(names, ","))
	}
	return b.String()
}

func (e *InconsistentRecordError) Unwrap() error {
	return ErrInconsistentRecord
}

// Store maps intron keys to their accumulating records for a single run.
// Records are returned in first-seen order. Each scan pass writes only its
// own site's slots, so donor and branch merges for an intron never overlap.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []string
}

// NewStore creates an empty record store.
func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

func (s *Store) getOrCreate(in Intron) *Record {
	key := in.Key()
	r, ok := s.records[key]
	if !ok {
		r = NewRecord(in)
		s.records[key] = r
		s.order = append(s.order, key)
	}
	return r
}

// Set writes a single score, creating the record on first use.
func (s *Store) Set(in Intron, slot Slot, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(in).Set(slot, score)
}

// Merge writes the scores of one pass. Scores are keyed by motif name and
// must all belong to the given site.
func (s *Store) Merge(in Intron, site Site, scores map[string]float64) error {
	slots := make(map[Slot]float64, len(scores))
	for motif, score := range scores {
		slot, err := SlotFor(site, motif)
		if err != nil {
			return fmt.Errorf("merge %s: %w", in.Key(), err)
		}
		slots[slot] = score
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.getOrCreate(in)
	for _, slot := range Slots() {
		score, ok := slots[slot]
		if !ok {
			continue
		}
		if err := r.Set(slot, score); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the record for a key.
func (s *Store) Get(key string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	return r, ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Records returns all records in first-seen order.
func (s *Store) Records() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, len(s.order))
	for i, k := range s.order {
		out[i] = s.records[k]
	}
	return out
}

// Validate checks that every record was written by both passes.
func (s *Store) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing map[string][]Slot
	for _, k := range s.order {
		r := s.records[k]
		if r.Complete() {
			continue
		}
		if missing == nil {
			missing = make(map[string][]Slot)
		}
		missing[k] = r.Missing()
	}
	if missing != nil {
		return &InconsistentRecordError{Missing: missing}
	}
	return nil
}
