package convert

import (
	"fmt"
	"strings"
)

// Flag selects which resolution strategies apply to one argument slot.
type Flag uint8

const (
	ByMention Flag = 1 << iota
	ByName
	ByID
	Everywhere
	RequiresGuild
	ThroughProfile
	Inverted
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{ByMention, "mention"},
	{ByName, "name"},
	{ByID, "id"},
	{Everywhere, "everywhere"},
	{RequiresGuild, "guild"},
	{ThroughProfile, "profile"},
	{Inverted, "inverted"},
}

func (f Flag) Has(o Flag) bool { return f&o == o }

func (f Flag) Mention() bool       { return f&ByMention != 0 }
func (f Flag) Name() bool          { return f&ByName != 0 }
func (f Flag) ID() bool            { return f&ByID != 0 }
func (f Flag) Everywhere() bool    { return f&Everywhere != 0 }
func (f Flag) RequiresGuild() bool { return f&RequiresGuild != 0 }
func (f Flag) Profile() bool       { return f&ThroughProfile != 0 }
func (f Flag) Inverted() bool      { return f&Inverted != 0 }

// String renders the set bits as "mention|name|id"; the empty set is "none".
func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	parts := make([]string, 0, len(flagNames))
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseFlags builds a flag set from names as rendered by String.
func ParseFlags(names []string) (Flag, error) {
	var f Flag
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		found := false
		for _, fn := range flagNames {
			if fn.name == name {
				f |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown converter flag %q", raw)
		}
	}
	return f, nil
}

// Normalize forces the profile's mandatory bits on and drops the bits the
// profile does not allow. An empty result falls back to the profile default.
func Normalize(f Flag, p *TypeProfile) Flag {
	f = (f | p.Mandatory) & p.Allowed
	if f == 0 {
		return p.Default
	}
	return f
}
