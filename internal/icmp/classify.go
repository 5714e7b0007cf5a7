package icmp

// Family identifies the IP address family of an ICMP exchange.
type Family int

const (
	// FamilyIPv4 selects the ICMP type space of RFC 792.
	FamilyIPv4 Family = 4
	// FamilyIPv6 selects the ICMPv6 type space of RFC 4443.
	FamilyIPv6 Family = 6
)

// OutcomeKind is the semantic class of a received ICMP reply.
type OutcomeKind int

const (
	// KindSuccess is a genuine Echo Reply.
	KindSuccess OutcomeKind = iota
	// KindInformational is a non-error reply treated as a liveness
	// signal, currently only redirects.
	KindInformational
	// KindUnreachable is a Destination Unreachable reply.
	KindUnreachable
	// KindTimeExceeded is a Time Exceeded reply.
	KindTimeExceeded
	// KindProtocolError is any other type/code pair.
	KindProtocolError
)

// String returns a human-readable name for the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case KindSuccess:
		return "SUCCESS"
	case KindInformational:
		return "INFORMATIONAL"
	case KindUnreachable:
		return "UNREACHABLE"
	case KindTimeExceeded:
		return "TIME_EXCEEDED"
	case KindProtocolError:
		return "PROTOCOL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the classification of a single ICMP reply.
type Outcome struct {
	Kind  OutcomeKind
	Label string
	Type  int
	Code  int
}

// Alive reports whether the reply counts as a received packet.
func (o Outcome) Alive() bool {
	return o.Kind == KindSuccess || o.Kind == KindInformational
}

// labelsV4 maps ICMPv4 message types to their IANA names.
var labelsV4 = map[int]string{
	0:   "Echo Reply",
	1:   "Unassigned",
	2:   "Unassigned",
	3:   "Destination Unreachable",
	4:   "Source Quench (Deprecated)",
	5:   "Redirect",
	6:   "Alternate Host Address (Deprecated)",
	7:   "Unassigned",
	8:   "Echo",
	9:   "Router Advertisement",
	10:  "Router Selection",
	11:  "Time Exceeded",
	12:  "Parameter Problem",
	13:  "Timestamp",
	14:  "Timestamp Reply",
	15:  "Information Request (Deprecated)",
	16:  "Information Reply (Deprecated)",
	17:  "Address Mask Request (Deprecated)",
	18:  "Address Mask Reply (Deprecated)",
	19:  "Reserved (for Security)",
	20:  "Reserved (for Robustness Experiment)",
	21:  "Reserved (for Robustness Experiment)",
	22:  "Reserved (for Robustness Experiment)",
	23:  "Reserved (for Robustness Experiment)",
	24:  "Reserved (for Robustness Experiment)",
	25:  "Reserved (for Robustness Experiment)",
	26:  "Reserved (for Robustness Experiment)",
	27:  "Reserved (for Robustness Experiment)",
	28:  "Reserved (for Robustness Experiment)",
	29:  "Reserved (for Robustness Experiment)",
	30:  "Traceroute (Deprecated)",
	31:  "Datagram Conversion Error (Deprecated)",
	32:  "Mobile Host Redirect (Deprecated)",
	33:  "IPv6 Where-Are-You (Deprecated)",
	34:  "IPv6 I-Am-Here (Deprecated)",
	35:  "Mobile Registration Request (Deprecated)",
	36:  "Mobile Registration Reply (Deprecated)",
	37:  "Domain Name Request (Deprecated)",
	38:  "Domain Name Reply (Deprecated)",
	39:  "SKIP (Deprecated)",
	40:  "Photuris",
	41:  "ICMP messages utilized by experimental mobility protocols such as Seamoby",
	42:  "Extended Echo Request",
	43:  "Extended Echo Reply",
	253: "RFC3692-style Experiment 1",
	254: "RFC3692-style Experiment 2",
}

// labelsV6 maps ICMPv6 message types to their IANA names.
var labelsV6 = map[int]string{
	0:   "Reserved",
	1:   "Destination Unreachable",
	2:   "Packet Too Big",
	3:   "Time Exceeded",
	4:   "Parameter Problem",
	128: "Echo Request",
	129: "Echo Reply",
	130: "Multicast Listener Query",
	131: "Multicast Listener Report",
	132: "Multicast Listener Done",
	133: "Router Solicitation",
	134: "Router Advertisement",
	135: "Neighbor Solicitation",
	136: "Neighbor Advertisement",
	137: "Redirect Message",
	138: "Router Renumbering",
	139: "ICMP Node Information Query",
	140: "ICMP Node Information Response",
	141: "Inverse Neighbor Discovery",
	142: "Inverse Neighbor Discovery",
	144: "Home Agent Address Discovery",
	145: "Home Agent Address Discovery",
	146: "Mobile Prefix Solicitation",
	147: "Mobile Prefix Advertisement",
	157: "Duplicate Address Request Code Suffix",
	158: "Duplicate Address Confirmation Code Suffix",
	160: "Extended Echo Request",
	161: "Extended Echo Reply",
}

// labelUnassigned is returned when the numeric type is not in the table.
const labelUnassigned = "Unassigned"

// Label resolves the human-readable name of an ICMP message type.
func Label(family Family, icmpType int) string {
	table := labelsV4
	if family == FamilyIPv6 {
		table = labelsV6
	}
	if label, ok := table[icmpType]; ok {
		return label
	}
	return labelUnassigned
}

// Classify maps a raw ICMP type/code pair to a semantic outcome. It is
// pure and total: the label is resolved unconditionally, so even error
// outcomes carry a descriptive name.
func Classify(family Family, icmpType, icmpCode int) Outcome {
	out := Outcome{
		Label: Label(family, icmpType),
		Type:  icmpType,
		Code:  icmpCode,
	}

	if family == FamilyIPv6 {
		switch icmpType {
		case 129:
			out.Kind = KindSuccess
		case 137:
			out.Kind = KindInformational
		case 1:
			out.Kind = KindUnreachable
		case 3:
			out.Kind = KindTimeExceeded
		default:
			out.Kind = KindProtocolError
		}
		return out
	}

	switch icmpType {
	case 0:
		out.Kind = KindSuccess
	case 5:
		out.Kind = KindInformational
	case 3:
		out.Kind = KindUnreachable
	case 11:
		out.Kind = KindTimeExceeded
	default:
		out.Kind = KindProtocolError
	}
	return out
}
