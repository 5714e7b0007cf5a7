package icmp

import "testing"

func TestClassifyIPv4(t *testing.T) {
	tests := []struct {
		name     string
		icmpType int
		icmpCode int
		kind     OutcomeKind
		label    string
		alive    bool
	}{
		{"echo reply", 0, 0, KindSuccess, "Echo Reply", true},
		{"redirect", 5, 1, KindInformational, "Redirect", true},
		{"unreachable", 3, 1, KindUnreachable, "Destination Unreachable", false},
		{"time exceeded", 11, 0, KindTimeExceeded, "Time Exceeded", false},
		{"parameter problem", 12, 0, KindProtocolError, "Parameter Problem", false},
		{"source quench", 4, 0, KindProtocolError, "Source Quench (Deprecated)", false},
		{"unknown type", 200, 0, KindProtocolError, "Unassigned", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(FamilyIPv4, tt.icmpType, tt.icmpCode)
			if out.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", out.Kind, tt.kind)
			}
			if out.Label != tt.label {
				t.Errorf("Label = %q, want %q", out.Label, tt.label)
			}
			if out.Alive() != tt.alive {
				t.Errorf("Alive() = %v, want %v", out.Alive(), tt.alive)
			}
			if out.Type != tt.icmpType || out.Code != tt.icmpCode {
				t.Errorf("raw type/code = %d/%d, want %d/%d",
					out.Type, out.Code, tt.icmpType, tt.icmpCode)
			}
		})
	}
}

func TestClassifyIPv6(t *testing.T) {
	tests := []struct {
		name     string
		icmpType int
		icmpCode int
		kind     OutcomeKind
		label    string
	}{
		{"echo reply", 129, 0, KindSuccess, "Echo Reply"},
		{"redirect message", 137, 0, KindInformational, "Redirect Message"},
		{"unreachable", 1, 3, KindUnreachable, "Destination Unreachable"},
		{"time exceeded", 3, 0, KindTimeExceeded, "Time Exceeded"},
		{"packet too big", 2, 0, KindProtocolError, "Packet Too Big"},
		{"unknown type", 200, 0, KindProtocolError, "Unassigned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Classify(FamilyIPv6, tt.icmpType, tt.icmpCode)
			if out.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", out.Kind, tt.kind)
			}
			if out.Label != tt.label {
				t.Errorf("Label = %q, want %q", out.Label, tt.label)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	first := Classify(FamilyIPv4, 3, 1)
	for i := 0; i < 100; i++ {
		if got := Classify(FamilyIPv4, 3, 1); got != first {
			t.Fatalf("Classify not deterministic: %+v != %+v", got, first)
		}
	}
}

func TestLabelDefault(t *testing.T) {
	if got := Label(FamilyIPv4, 7); got != "Unassigned" {
		t.Errorf("Label(v4, 7) = %q, want Unassigned", got)
	}
	if got := Label(FamilyIPv6, 99); got != "Unassigned" {
		t.Errorf("Label(v6, 99) = %q, want Unassigned", got)
	}
	if got := Label(FamilyIPv6, 2); got != "Packet Too Big" {
		t.Errorf("Label(v6, 2) = %q, want Packet Too Big", got)
	}
}

func TestOutcomeKindString(t *testing.T) {
	kinds := map[OutcomeKind]string{
		KindSuccess:       "SUCCESS",
		KindInformational: "INFORMATIONAL",
		KindUnreachable:   "UNREACHABLE",
		KindTimeExceeded:  "TIME_EXCEEDED",
		KindProtocolError: "PROTOCOL_ERROR",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
