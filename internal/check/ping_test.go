package check

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"github.com/infrasonar/ping-probe/internal/icmp"
)

// fakeTransport answers each sequence from a fixed script. An entry of
// true yields an immediate echo reply, false a timeout.
type fakeTransport struct {
	script []bool
	next   int
	closed bool
}

func (f *fakeTransport) Send(req *icmp.Request) error { return nil }

func (f *fakeTransport) Receive(ctx context.Context, req *icmp.Request, timeout time.Duration) (*icmp.Reply, error) {
	if f.next >= len(f.script) {
		return nil, icmp.ErrTimeout
	}
	ok := f.script[f.next]
	f.next++
	if !ok {
		return nil, icmp.ErrTimeout
	}
	return &icmp.Reply{Family: icmp.FamilyIPv4, Type: 0, Code: 0, At: time.Now()}, nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func fakeDialer(tr *fakeTransport) Dialer {
	return func(addr netip.Addr) (icmp.Transport, error) {
		return tr, nil
	}
}

func TestRunSuccess(t *testing.T) {
	tr := &fakeTransport{script: []bool{true}}
	p := NewPingerWithDialer(nil, nil, fakeDialer(tr))

	report, err := p.Run(context.Background(), Asset{ID: 1, Name: "host-a"}, Config{
		Address: "127.0.0.1",
		Count:   1,
		Timeout: 1,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.ICMP) != 1 {
		t.Fatalf("len(report.ICMP) = %d, want 1", len(report.ICMP))
	}

	item := report.ICMP[0]
	if item.Name != ItemName {
		t.Errorf("item.Name = %q, want %q", item.Name, ItemName)
	}
	if item.Address != "127.0.0.1" {
		t.Errorf("item.Address = %q, want %q", item.Address, "127.0.0.1")
	}
	if item.Count != 1 || item.Dropped != 0 {
		t.Errorf("count/dropped = %d/%d, want 1/0", item.Count, item.Dropped)
	}
	if item.MinTime == nil || item.MaxTime == nil {
		t.Fatal("MinTime/MaxTime must be set after a received reply")
	}
	if len(item.Messages) != 1 || item.Messages[0] != "Echo Reply" {
		t.Errorf("Messages = %v, want [Echo Reply]", item.Messages)
	}
	if !tr.closed {
		t.Error("transport not closed after the check")
	}
}

func TestRunTotalLoss(t *testing.T) {
	tr := &fakeTransport{script: []bool{false}}
	p := NewPingerWithDialer(nil, nil, fakeDialer(tr))

	report, err := p.Run(context.Background(), Asset{ID: 1, Name: "host-a"}, Config{
		Address: "127.0.0.1",
		Count:   1,
		Timeout: 1,
	})
	if report != nil {
		t.Errorf("Run() report = %v, want nil on total loss", report)
	}

	var loss *TotalLossError
	if !errors.As(err, &loss) {
		t.Fatalf("Run() error = %v, want TotalLossError", err)
	}
	if loss.Report == nil {
		t.Fatal("TotalLossError carries no report")
	}

	item := loss.Report.ICMP[0]
	if item.Dropped != 1 {
		t.Errorf("item.Dropped = %d, want 1", item.Dropped)
	}
	if item.MinTime != nil || item.MaxTime != nil {
		t.Error("MinTime/MaxTime must be nil when nothing was received")
	}
	if len(item.Messages) != 0 {
		t.Errorf("Messages = %v, want none", item.Messages)
	}
	if !tr.closed {
		t.Error("transport not closed after total loss")
	}
}

func TestRunConfigBounds(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		option string
	}{
		{"count too high", Config{Address: "127.0.0.1", Count: 10}, "count"},
		{"count negative", Config{Address: "127.0.0.1", Count: -1}, "count"},
		{"interval too high", Config{Address: "127.0.0.1", Interval: 10}, "interval"},
		{"timeout negative", Config{Address: "127.0.0.1", Timeout: -1}, "timeout"},
	}

	p := NewPingerWithDialer(nil, nil, func(addr netip.Addr) (icmp.Transport, error) {
		t.Fatal("dialer must not run for invalid configuration")
		return nil, nil
	})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), Asset{Name: "host-a"}, tt.cfg)

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Run() error = %v, want ConfigError", err)
			}
			if cfgErr.Option != tt.option {
				t.Errorf("Option = %q, want %q", cfgErr.Option, tt.option)
			}
		})
	}
}

func TestRunDefaults(t *testing.T) {
	count, interval, timeout, err := Config{}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults() error = %v", err)
	}
	if count != DefaultCount || interval != DefaultInterval || timeout != DefaultTimeout {
		t.Errorf("defaults = %d/%d/%d, want %d/%d/%d",
			count, interval, timeout, DefaultCount, DefaultInterval, DefaultTimeout)
	}
}

func TestRunAddressFallback(t *testing.T) {
	// Without an explicit address the asset name is probed.
	tr := &fakeTransport{script: []bool{true}}
	p := NewPingerWithDialer(nil, nil, fakeDialer(tr))

	report, err := p.Run(context.Background(), Asset{ID: 1, Name: "127.0.0.1"}, Config{
		Count:   1,
		Timeout: 1,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := report.ICMP[0].Address; got != "127.0.0.1" {
		t.Errorf("item.Address = %q, want the asset name", got)
	}
}

func TestRunDialFailure(t *testing.T) {
	cause := errors.New("socket: operation not permitted")
	p := NewPingerWithDialer(nil, nil, func(addr netip.Addr) (icmp.Transport, error) {
		return nil, cause
	})

	_, err := p.Run(context.Background(), Asset{Name: "host-a"}, Config{Address: "127.0.0.1"})

	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Run() error = %v, want Failure", err)
	}
	if want := "ping failed: socket: operation not permitted"; failure.Error() != want {
		t.Errorf("Error() = %q, want %q", failure.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Error("Failure must unwrap to its cause")
	}
}

type blankError struct{}

func (blankError) Error() string { return "" }

func TestFailureTypeNameFallback(t *testing.T) {
	// A cause with an empty message falls back to its type name.
	err := newFailure(blankError{})
	want := fmt.Sprintf("ping failed: %T", blankError{})
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &fakeTransport{script: []bool{true, true}}
	p := NewPingerWithDialer(nil, nil, fakeDialer(tr))

	// Two sequences force an interval wait, where cancellation lands.
	_, err := p.Run(ctx, Asset{Name: "host-a"}, Config{Address: "127.0.0.1", Count: 2})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}
