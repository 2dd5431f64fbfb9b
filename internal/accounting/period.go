package accounting

import (
	"fmt"
	"strconv"
	"strings"
)

// Period is an inventory interval between two land-cover years.
type Period struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Years returns the span of the period in years.
func (p Period) Years() int {
	return p.End - p.Start
}

func (p Period) String() string {
	return fmt.Sprintf("%d-%d", p.Start, p.End)
}

// ParsePeriod parses "2011-2013" or "2011_2013".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	sep := strings.IndexAny(s, "-_")
	if sep <= 0 {
		return Period{}, fmt.Errorf("invalid period %q: want START-END", s)
	}

	start, err := strconv.Atoi(s[:sep])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	end, err := strconv.Atoi(s[sep+1:])
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}

	p := Period{Start: start, End: end}
	if p.Years() <= 0 {
		return Period{}, fmt.Errorf("invalid period %q: end must follow start", s)
	}
	return p, nil
}

// ConsecutivePeriods pairs each year with the next one.
func ConsecutivePeriods(years []int) []Period {
	if len(years) < 2 {
		return nil
	}
	periods := make([]Period, 0, len(years)-1)
	for i := 1; i < len(years); i++ {
		periods = append(periods, Period{Start: years[i-1], End: years[i]})
	}
	return periods
}
