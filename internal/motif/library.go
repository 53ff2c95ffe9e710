package motif

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissingMotif is returned when a library lacks a motif the classifier needs.
var ErrMissingMotif = errors.New("missing motif")

// Library is an immutable, ordered set of motifs loaded from one source.
type Library struct {
	motifs []*PWM
	byName map[string]*PWM
}

// NewLibrary creates a library from parsed motifs.
func NewLibrary(pwms []*PWM) (*Library, error) {
	if len(pwms) == 0 {
		return nil, ErrEmptyMotifSet
	}
	l := &Library{
		motifs: pwms,
		byName: make(map[string]*PWM, len(pwms)),
	}
	for _, p := range pwms {
		if _, dup := l.byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate motif %s", ErrMalformedMotif, p.Name)
		}
		l.byName[p.Name] = p
	}
	return l, nil
}

// Load reads a motif file into a library.
func Load(path string, opts ParseOptions) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open motif file: %w", err)
	}
	defer f.Close()

	pwms, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewLibrary(pwms)
}

// Get returns a motif by name.
func (l *Library) Get(name string) (*PWM, bool) {
	p, ok := l.byName[name]
	return p, ok
}

// Motifs returns the motifs in source order.
func (l *Library) Motifs() []*PWM {
	return l.motifs
}

// Names returns the motif names in source order.
func (l *Library) Names() []string {
	names := make([]string, len(l.motifs))
	for i, p := range l.motifs {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of motifs.
func (l *Library) Len() int {
	return len(l.motifs)
}

// Require checks that the library defines every named motif.
func (l *Library) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := l.byName[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s (have %s)", ErrMissingMotif,
			strings.Join(missing, ", "), strings.Join(l.Names(), ", "))
	}
	return nil
}
