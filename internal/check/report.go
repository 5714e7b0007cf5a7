package check

import "github.com/infrasonar/ping-probe/internal/icmp"

// Item is one entry of the icmp section of a check report. MinTime and
// MaxTime are seconds and nil when no packets were received.
type Item struct {
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	Count    int      `json:"count"`
	Dropped  int      `json:"dropped"`
	MaxTime  *float64 `json:"maxTime"`
	MinTime  *float64 `json:"minTime"`
	Messages []string `json:"messages"`
}

// Report is the check state shape consumed by the monitoring pipeline.
type Report struct {
	ICMP []Item `json:"icmp"`
}

// Summarize reduces accumulated host statistics into a check report.
// Round-trip times are converted from milliseconds to seconds; messages
// are copied through unchanged in arrival order.
func Summarize(stats *icmp.HostStats, address string, count int) *Report {
	item := Item{
		Name:     ItemName,
		Address:  address,
		Count:    count,
		Dropped:  stats.Dropped(),
		Messages: append([]string{}, stats.Messages...),
	}

	if min, ok := stats.MinRTT(); ok {
		sec := min / 1000
		item.MinTime = &sec
	}
	if max, ok := stats.MaxRTT(); ok {
		sec := max / 1000
		item.MaxTime = &sec
	}

	return &Report{ICMP: []Item{item}}
}
