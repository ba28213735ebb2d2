package adapter

import (
	"time"

	"github.com/newthinker/signaldesk/internal/core"
)

// BuildResponse normalizes the backend's two collections into a partitioned
// SignalResponse. Records listed as executed are marked executed even when
// they lack the flag, using the backend's order id fallback and the signal
// time (or now) as the execution time.
func BuildResponse(nonExecuted, executed []Record, now time.Time) core.SignalResponse {
	all := NormalizeAll(nonExecuted)
	for _, s := range NormalizeAll(executed) {
		if !s.Executed {
			at := s.GeneratedAt
			if at.IsZero() {
				at = now.UTC()
			}
			s = s.MarkExecuted(OrderIDFallback(s.ID, ""), at)
		}
		all = append(all, s)
	}
	return core.Partition(all)
}
