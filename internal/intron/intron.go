// Package intron provides intron records, BED parsing and the per-run record store.
package intron

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Strand values accepted for introns.
const (
	StrandPlus  = "+"
	StrandMinus = "-"
)

// Motif names shared by the PWM libraries and the record score columns.
const (
	MotifATACU12 = "AT_AC_U12"
	MotifGTAGU12 = "GT_AG_U12"
	MotifGTAGU2  = "GT_AG_U2"
	MotifGCAGU2  = "GC_AG_U2"
)

// DonorMotifs lists the motifs scored against the donor window, in output column order.
var DonorMotifs = []string{MotifATACU12, MotifGTAGU12, MotifGTAGU2, MotifGCAGU2}

// BranchMotifs lists the motifs scored against the branch window, in output column order.
var BranchMotifs = []string{MotifATACU12, MotifGTAGU12}

// Intron is a genomic intron interval. Start and End are 0-based, half-open.
type Intron struct {
	Chrom  string
	Start  int64
	End    int64
	Name   string
	Strand string
}

// Key returns the stable identity string "chrom|start|end|strand".
func (in Intron) Key() string {
	return FormatKey(in.Chrom, in.Start, in.End, in.Strand)
}

// IsReverseStrand returns true if the intron is on the minus strand.
func (in Intron) IsReverseStrand() bool {
	return in.Strand == StrandMinus
}

// Len returns the intron length in bases.
func (in Intron) Len() int64 {
	return in.End - in.Start
}

// FormatKey builds an intron key from its coordinates.
func FormatKey(chrom string, start, end int64, strand string) string {
	return chrom + "|" + strconv.FormatInt(start, 10) + "|" + strconv.FormatInt(end, 10) + "|" + strand
}

// ParseKey splits a key produced by FormatKey back into an Intron.
func ParseKey(key string) (Intron, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 4 {
		return Intron{}, fmt.Errorf("invalid intron key %q: expected 4 fields", key)
	}
	start, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Intron{}, fmt.Errorf("invalid intron key %q: %w", key, err)
	}
	end, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Intron{}, fmt.Errorf("invalid intron key %q: %w", key, err)
	}
	return Intron{Chrom: parts[0], Start: start, End: end, Strand: parts[3]}, nil
}

// Site identifies which splice-site window a score came from.
type Site int

const (
	Donor Site = iota
	Branch
)

func (s Site) String() string {
	if s == Branch {
		return "branch"
	}
	return "donor"
}

// suffix is the column-name suffix for scores of this site.
func (s Site) suffix() string {
	if s == Branch {
		return "_b"
	}
	return "_d"
}

// Motifs returns the motif names scored at this site.
func (s Site) Motifs() []string {
	if s == Branch {
		return BranchMotifs
	}
	return DonorMotifs
}

// Slot is one of the six score fields of a Record.
type Slot int

const (
	SlotATACU12Donor Slot = iota
	SlotGTAGU12Donor
	SlotGTAGU2Donor
	SlotGCAGU2Donor
	SlotATACU12Branch
	SlotGTAGU12Branch

	numSlots
)

// Slots returns all score slots in output column order.
func Slots() []Slot {
	return []Slot{
		SlotATACU12Donor, SlotGTAGU12Donor, SlotGTAGU2Donor, SlotGCAGU2Donor,
		SlotATACU12Branch, SlotGTAGU12Branch,
	}
}

var slotNames = [numSlots]string{
	MotifATACU12 + "_d",
	MotifGTAGU12 + "_d",
	MotifGTAGU2 + "_d",
	MotifGCAGU2 + "_d",
	MotifATACU12 + "_b",
	MotifGTAGU12 + "_b",
}

// String returns the column name, e.g. "GT_AG_U12_d".
func (s Slot) String() string {
	if s < 0 || s >= numSlots {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return slotNames[s]
}

// Site returns the window the slot is scored from.
func (s Slot) Site() Site {
	if s >= SlotATACU12Branch {
		return Branch
	}
	return Donor
}

// ErrUnknownMotif is returned when a score names a motif that has no slot at a site.
var ErrUnknownMotif = errors.New("motif has no score slot")

// SlotFor maps a (site, motif name) pair to its score slot.
func SlotFor(site Site, motif string) (Slot, error) {
	name := motif + site.suffix()
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s at %s site", ErrUnknownMotif, motif, site)
}
