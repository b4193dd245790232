package convert

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// RelativeDuration is a calendar-aware offset: years and months depend on the
// date they are added to.
type RelativeDuration struct {
	Years   int
	Months  int
	Weeks   int
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// AddTo returns t shifted by d. The clock part is added in whole seconds so
// large components do not overflow time.Duration.
func (d RelativeDuration) AddTo(t time.Time) time.Time {
	t = t.AddDate(d.Years, d.Months, d.Weeks*7+d.Days)
	seconds := int64(d.Hours)*3600 + int64(d.Minutes)*60 + int64(d.Seconds)
	if seconds == 0 {
		return t
	}
	return time.Unix(t.Unix()+seconds, int64(t.Nanosecond())).In(t.Location())
}

func (d RelativeDuration) IsZero() bool { return d == RelativeDuration{} }

func (d RelativeDuration) String() string {
	var b strings.Builder
	for _, c := range []struct {
		n    int
		unit string
	}{
		{d.Years, "y"}, {d.Months, "mo"}, {d.Weeks, "w"}, {d.Days, "d"},
		{d.Hours, "h"}, {d.Minutes, "m"}, {d.Seconds, "s"},
	} {
		if c.n != 0 {
			b.WriteString(strconv.Itoa(c.n))
			b.WriteString(c.unit)
		}
	}
	if b.Len() == 0 {
		return "0s"
	}
	return b.String()
}

const maxComponentDigits = 9

var (
	durationUnits         = []string{"w", "d", "h", "m", "s"}
	relativeDurationUnits = []string{"y", "mo", "w", "d", "h", "m", "s"}
)

// scanComponents splits "3d12h" into unit -> amount. Every component needs a
// unit, a unit appears at most once and the input must be consumed entirely.
func scanComponents(s string, units []string) (map[string]int, bool) {
	s = strings.ToLower(s)
	if s == "" {
		return nil, false
	}
	out := make(map[string]int, len(units))
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j == i || j-i > maxComponentDigits {
			return nil, false
		}
		n, err := strconv.Atoi(s[i:j])
		if err != nil {
			return nil, false
		}
		unit := ""
		for _, u := range units {
			if strings.HasPrefix(s[j:], u) && len(u) > len(unit) {
				unit = u
			}
		}
		if unit == "" {
			return nil, false
		}
		if _, dup := out[unit]; dup {
			return nil, false
		}
		out[unit] = n
		i = j + len(unit)
	}
	return out, true
}

// ParseDuration parses "<n>w<n>d<n>h<n>m<n>s" with every component optional
// but at least one present.
func ParseDuration(s string) (time.Duration, bool) {
	parts, ok := scanComponents(s, durationUnits)
	if !ok {
		return 0, false
	}
	seconds := int64(parts["w"])*7*24*3600 +
		int64(parts["d"])*24*3600 +
		int64(parts["h"])*3600 +
		int64(parts["m"])*60 +
		int64(parts["s"])
	if seconds > math.MaxInt64/int64(time.Second) {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}

// ParseRelativeDuration is ParseDuration plus "y" and "mo" components.
func ParseRelativeDuration(s string) (RelativeDuration, bool) {
	parts, ok := scanComponents(s, relativeDurationUnits)
	if !ok {
		return RelativeDuration{}, false
	}
	return RelativeDuration{
		Years:   parts["y"],
		Months:  parts["mo"],
		Weeks:   parts["w"],
		Days:    parts["d"],
		Hours:   parts["h"],
		Minutes: parts["m"],
		Seconds: parts["s"],
	}, true
}
