package intron

import (
	"errors"
	"fmt"
)

// ErrFieldAlreadySet is returned when a score slot is written twice.
var ErrFieldAlreadySet = errors.New("score already set")

// ErrAlreadyClassified is returned when a record is classified a second time.
var ErrAlreadyClassified = errors.New("record already classified")

// Record accumulates the rescaled motif scores of one intron and, once
// complete, its classification.
type Record struct {
	Intron

	ATACU12Donor  float64
	GTAGU12Donor  float64
	GTAGU2Donor   float64
	GCAGU2Donor   float64
	ATACU12Branch float64
	GTAGU12Branch float64

	// Set by SetClass.
	Type       string
	Subtype    string
	Confidence string

	set        uint8 // bit per Slot
	classified bool
}

// NewRecord creates an empty record for an intron.
func NewRecord(in Intron) *Record {
	return &Record{Intron: in}
}

func (r *Record) field(s Slot) *float64 {
	switch s {
	case SlotATACU12Donor:
		return &r.ATACU12Donor
	case SlotGTAGU12Donor:
		return &r.GTAGU12Donor
	case SlotGTAGU2Donor:
		return &r.GTAGU2Donor
	case SlotGCAGU2Donor:
		return &r.GCAGU2Donor
	case SlotATACU12Branch:
		return &r.ATACU12Branch
	case SlotGTAGU12Branch:
		return &r.GTAGU12Branch
	}
	return nil
}

// Set writes a score slot. Each slot may be written once.
func (r *Record) Set(s Slot, score float64) error {
	f := r.field(s)
	if f == nil {
		return fmt.Errorf("invalid slot %d", int(s))
	}
	if r.Has(s) {
		return fmt.Errorf("%s %s: %w", r.Key(), s, ErrFieldAlreadySet)
	}
	*f = score
	r.set |= 1 << uint(s)
	return nil
}

// Has reports whether the slot has been written.
func (r *Record) Has(s Slot) bool {
	return r.set&(1<<uint(s)) != 0
}

// Get returns the slot's score and whether it has been written.
func (r *Record) Get(s Slot) (float64, bool) {
	f := r.field(s)
	if f == nil || !r.Has(s) {
		return 0, false
	}
	return *f, true
}

// HasSite reports whether every slot of the given site is written.
func (r *Record) HasSite(site Site) bool {
	for _, s := range Slots() {
		if s.Site() == site && !r.Has(s) {
			return false
		}
	}
	return true
}

// Complete reports whether all six slots are written.
func (r *Record) Complete() bool {
	return r.set == 1<<uint(numSlots)-1
}

// Missing returns the slots that have not been written.
func (r *Record) Missing() []Slot {
	var missing []Slot
	for _, s := range Slots() {
		if !r.Has(s) {
			missing = append(missing, s)
		}
	}
	return missing
}

// Scores returns the six scores in output column order.
func (r *Record) Scores() [6]float64 {
	return [6]float64{
		r.ATACU12Donor, r.GTAGU12Donor, r.GTAGU2Donor, r.GCAGU2Donor,
		r.ATACU12Branch, r.GTAGU12Branch,
	}
}

// SetClass assigns the classification. A record is classified once.
func (r *Record) SetClass(typ, subtype, confidence string) error {
	if r.classified {
		return fmt.Errorf("%s: %w", r.Key(), ErrAlreadyClassified)
	}
	r.Type = typ
	r.Subtype = subtype
	r.Confidence = confidence
	r.classified = true
	return nil
}

// Classified reports whether SetClass has been called.
func (r *Record) Classified() bool {
	return r.classified
}
