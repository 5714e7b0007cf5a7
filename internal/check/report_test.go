package check

import (
	"encoding/json"
	"net/netip"
	"strings"
	"testing"

	"github.com/infrasonar/ping-probe/internal/icmp"
)

func TestSummarize(t *testing.T) {
	stats := &icmp.HostStats{
		Address:         netip.MustParseAddr("192.0.2.1"),
		PacketsSent:     5,
		PacketsReceived: 3,
		RTTs:            []float64{12, 30, 18},
		Messages:        []string{"Echo Reply", "Echo Reply", "Net Unreachable", "Echo Reply"},
	}

	report := Summarize(stats, "example.org", 5)
	item := report.ICMP[0]

	if item.Name != ItemName || item.Address != "example.org" {
		t.Errorf("name/address = %q/%q, want %q/example.org", item.Name, item.Address, ItemName)
	}
	if item.Count != 5 || item.Dropped != 2 {
		t.Errorf("count/dropped = %d/%d, want 5/2", item.Count, item.Dropped)
	}
	if item.MinTime == nil || *item.MinTime != 0.012 {
		t.Errorf("MinTime = %v, want 0.012", item.MinTime)
	}
	if item.MaxTime == nil || *item.MaxTime != 0.030 {
		t.Errorf("MaxTime = %v, want 0.030", item.MaxTime)
	}
	if len(item.Messages) != 4 || item.Messages[2] != "Net Unreachable" {
		t.Errorf("Messages = %v, arrival order not preserved", item.Messages)
	}

	// The report owns its message slice.
	stats.Messages[0] = "mutated"
	if item.Messages[0] != "Echo Reply" {
		t.Error("Summarize must copy the messages, not alias them")
	}
}

func TestReportJSONShape(t *testing.T) {
	stats := &icmp.HostStats{PacketsSent: 2}
	report := Summarize(stats, "192.0.2.9", 2)

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := string(raw)

	for _, key := range []string{`"icmp"`, `"name"`, `"address"`, `"count"`, `"dropped"`, `"maxTime"`, `"minTime"`, `"messages"`} {
		if !strings.Contains(got, key) {
			t.Errorf("report JSON missing key %s: %s", key, got)
		}
	}
	if !strings.Contains(got, `"maxTime":null`) || !strings.Contains(got, `"minTime":null`) {
		t.Errorf("timings must serialize as null on total loss: %s", got)
	}
}
