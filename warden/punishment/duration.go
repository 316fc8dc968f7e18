package punishment

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Units holds the suffixes of duration strings, such as "d" in "1d".
type Units struct {
	Years   string
	Months  string
	Days    string
	Hours   string
	Minutes string
	Seconds string
	// Permanent is both accepted as a never-expiring input and displayed for never-expiring durations.
	Permanent string
}

// DefaultUnits ...
func DefaultUnits() Units {
	return Units{
		Years:     "y",
		Months:    "M",
		Days:      "d",
		Hours:     "h",
		Minutes:   "m",
		Seconds:   "s",
		Permanent: "Permanent",
	}
}

// Durations parses and formats duration strings using configured Units.
type Durations struct {
	units   Units
	factors map[string]int64
	re      *regexp.Regexp
}

// NewDurations ...
func NewDurations(u Units) *Durations {
	factors := map[string]int64{
		u.Years:   365 * 24 * 60 * 60,
		u.Months:  30 * 24 * 60 * 60,
		u.Days:    24 * 60 * 60,
		u.Hours:   60 * 60,
		u.Minutes: 60,
		u.Seconds: 1,
	}
	suffixes := make([]string, 0, len(factors))
	for s := range factors {
		suffixes = append(suffixes, regexp.QuoteMeta(s))
	}
	// Longest first, so that multi-character units win over their prefixes.
	slices.SortFunc(suffixes, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
	})
	return &Durations{
		units:   u,
		factors: factors,
		re:      regexp.MustCompile(`(\d+)\s*(` + strings.Join(suffixes, "|") + `)`),
	}
}

// Units ...
func (d *Durations) Units() Units {
	return d.units
}

// Parse returns the number of seconds in s, such as 9000 for "2h30m". A bare number is read as seconds.
// Zero is returned if s cannot be parsed, and totals beyond the int64 range saturate at math.MaxInt64.
func (d *Durations) Parse(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	matches := d.re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		n, err := strconv.ParseInt(s, 10, 64)
		if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(s, "-") {
			return math.MaxInt64
		}
		if err != nil || n < 0 {
			return 0
		}
		return n
	}

	var total int64
	for _, m := range matches {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return math.MaxInt64
		}
		if err != nil {
			continue
		}
		factor := d.factors[m[2]]
		if n > (math.MaxInt64-total)/factor {
			return math.MaxInt64
		}
		total += n * factor
	}
	return total
}

// Format formats a number of seconds, such as "1d 2h". Non-positive values return the permanent label.
func (d *Durations) Format(seconds int64) string {
	if seconds <= 0 {
		return d.units.Permanent
	}
	parts := make([]string, 0, 6)
	for _, u := range []struct {
		suffix string
		size   int64
	}{
		{d.units.Years, d.factors[d.units.Years]},
		{d.units.Months, d.factors[d.units.Months]},
		{d.units.Days, d.factors[d.units.Days]},
		{d.units.Hours, d.factors[d.units.Hours]},
		{d.units.Minutes, d.factors[d.units.Minutes]},
	} {
		if n := seconds / u.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.suffix))
			seconds %= u.size
		}
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d%s", seconds, d.units.Seconds))
	}
	return strings.Join(parts, " ")
}

// Permanent reports whether the input explicitly asks for a never-expiring punishment.
func (d *Durations) Permanent(input string) bool {
	input = strings.TrimSpace(input)
	return input == "" || strings.EqualFold(input, "permanent") || strings.EqualFold(input, d.units.Permanent)
}

// ResolveEnd returns the end time in unix milliseconds and the display label of a punishment of Kind k
// issued at now with the duration input passed.
func (d *Durations) ResolveEnd(k Kind, input string, now time.Time) (int64, string) {
	if !k.Timed() || d.Permanent(input) {
		return Forever, d.units.Permanent
	}
	return d.resolve(input, now)
}

// resolve ...
func (d *Durations) resolve(input string, now time.Time) (int64, string) {
	seconds := d.Parse(input)
	if seconds <= 0 || seconds > (Forever-now.UnixMilli())/1000 {
		return Forever, d.units.Permanent
	}
	return now.UnixMilli() + seconds*1000, d.Format(seconds)
}

// Remaining formats the time left until end.
func (d *Durations) Remaining(end int64, now time.Time) string {
	if end == Forever {
		return d.units.Permanent
	}
	return d.Format(max((end-now.UnixMilli())/1000, 1))
}
