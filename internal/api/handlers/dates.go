package handlers

import (
	"time"

	"github.com/Laimiu-debug/quantscan/internal/contracts"
)

// weekdays lists every weekday between two dates inclusive. Used to
// probe pool caches when no trading calendar is at hand; holidays just
// miss.
func weekdays(from, to string) []string {
	start, err := time.Parse(contracts.DateLayout, from)
	if err != nil {
		return nil
	}
	end, err := time.Parse(contracts.DateLayout, to)
	if err != nil {
		return nil
	}

	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d.Format(contracts.DateLayout))
	}
	return out
}
