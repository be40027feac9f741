package skeleton

import (
	"fmt"
	"strings"

	"github.com/matzehuels/ndskl/pkg/errors"
)

// ReferencePolicy controls whether cross-references between entities are
// checked after parsing.
type ReferencePolicy int

const (
	// Permissive accepts any index value.
	Permissive ReferencePolicy = iota

	// Strict requires every index to name an existing entity. Persistence
	// pairs may additionally be NoPair.
	Strict
)

// String returns the policy name as used in configuration files.
func (p ReferencePolicy) String() string {
	switch p {
	case Strict:
		return "strict"
	default:
		return "permissive"
	}
}

// ParseReferencePolicy parses "permissive" or "strict". The empty string
// yields Permissive.
func ParseReferencePolicy(s string) (ReferencePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	default:
		return Permissive, errors.New(errors.ErrCodeInvalidInput, "invalid reference policy %q (must be 'permissive' or 'strict')", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p ReferencePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so the policy can be
// read from TOML configuration.
func (p *ReferencePolicy) UnmarshalText(b []byte) error {
	v, err := ParseReferencePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ValidateReferences checks cross-references according to policy. With
// Permissive it always succeeds. With Strict it fails with
// INVALID_REFERENCE on the first index that does not name an existing
// critical point or filament.
func (s *Skeleton) ValidateReferences(policy ReferencePolicy) error {
	if policy != Strict {
		return nil
	}
	ncp := int64(s.NumCriticalPoints())
	nfil := int64(s.NumFilaments())

	inRange := func(v, n int64) bool { return v >= 0 && v < n }

	for i, pair := range s.Points.PairID {
		if pair != NoPair && !inRange(pair, ncp) {
			return refError("critical point %d: pair index %d outside [0,%d)", i, pair, ncp)
		}
	}
	for i := 0; i < s.Points.Filament.Len(); i++ {
		for k, c := range s.Connections(i) {
			if !inRange(c.OtherCP, ncp) {
				return refError("critical point %d connection %d: critical point index %d outside [0,%d)", i, k, c.OtherCP, ncp)
			}
			if !inRange(c.Filament, nfil) {
				return refError("critical point %d connection %d: filament index %d outside [0,%d)", i, k, c.Filament, nfil)
			}
		}
	}
	for j, ext := range s.Fils.Extremes {
		for _, cp := range ext {
			if !inRange(cp, ncp) {
				return refError("filament %d: extremity %d outside [0,%d)", j, cp, ncp)
			}
		}
	}
	return nil
}

func refError(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidReference, "%s", fmt.Sprintf(format, args...))
}
