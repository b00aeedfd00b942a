package models

import (
	"strings"
	"time"
)

// CodeRecord is one row of the SHiFT code table after normalization.
type CodeRecord struct {
	Code           string `json:"code" validate:"required"`
	Reward         string `json:"reward"`
	Added          string `json:"added,omitempty"`
	Expiry         string `json:"expiry,omitempty"`
	SourceRowOrder int    `json:"-" validate:"gte=0"`
}

// NormalizeCode upper-cases s, trims it and collapses internal whitespace runs
// to a single space. Codes that normalize identically are the same code.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// KnownCode is the metadata kept for a code that has already been seen.
type KnownCode struct {
	Reward    string    `json:"reward"`
	Added     string    `json:"added,omitempty"`
	Expiry    string    `json:"expiry,omitempty"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// KnownSet is the durable set of codes observed by previous runs, keyed by
// normalized code.
type KnownSet struct {
	Codes     map[string]KnownCode
	UpdatedAt time.Time
}

// NewKnownSet returns an empty set.
func NewKnownSet() KnownSet {
	return KnownSet{Codes: make(map[string]KnownCode)}
}

func (k KnownSet) Len() int {
	return len(k.Codes)
}

// Contains reports whether code (normalized or not) is known.
func (k KnownSet) Contains(code string) bool {
	_, ok := k.Codes[NormalizeCode(code)]
	return ok
}

// Clone returns a deep copy so callers can build a new snapshot without
// touching the original.
func (k KnownSet) Clone() KnownSet {
	out := KnownSet{
		Codes:     make(map[string]KnownCode, len(k.Codes)),
		UpdatedAt: k.UpdatedAt,
	}
	for code, meta := range k.Codes {
		out.Codes[code] = meta
	}
	return out
}
