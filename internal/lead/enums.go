package lead

import (
	"fmt"
	"strings"
)

// Status is the verification workflow state of a lead.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusRejected   Status = "Rejected"
)

// VisitType describes where the field visit happens.
//
// Office/Residence/Both and Physical/Virtual come from two generations of the
// lead form; both sets are accepted.
type VisitType string

const (
	VisitOffice    VisitType = "Office"
	VisitResidence VisitType = "Residence"
	VisitBoth      VisitType = "Both"
	VisitPhysical  VisitType = "Physical"
	VisitVirtual   VisitType = "Virtual"
)

// AddressType classifies an address.
type AddressType string

const (
	AddressResidence AddressType = "Residence"
	AddressOffice    AddressType = "Office"
	AddressPermanent AddressType = "Permanent"
	AddressTemporary AddressType = "Temporary"
	AddressCurrent   AddressType = "Current"
)

// Defaults applied when an enum value does not match any known variant.
const (
	DefaultStatus      = StatusPending
	DefaultVisitType   = VisitResidence
	DefaultAddressType = AddressResidence
)

var (
	statusValues      = []string{string(StatusPending), string(StatusInProgress), string(StatusCompleted), string(StatusRejected)}
	visitTypeValues   = []string{string(VisitOffice), string(VisitResidence), string(VisitBoth), string(VisitPhysical), string(VisitVirtual)}
	addressTypeValues = []string{string(AddressResidence), string(AddressOffice), string(AddressPermanent), string(AddressTemporary), string(AddressCurrent)}
)

// StatusValues returns the valid status values in workflow order.
func StatusValues() []string { return append([]string(nil), statusValues...) }

// VisitTypeValues returns the valid visit types.
func VisitTypeValues() []string { return append([]string(nil), visitTypeValues...) }

// AddressTypeValues returns the valid address types.
func AddressTypeValues() []string { return append([]string(nil), addressTypeValues...) }

// lookupEnum returns the canonical spelling of s within values, matching
// case-insensitively and ignoring surrounding whitespace, "_" and "-".
func lookupEnum(s string, values []string) (string, bool) {
	key := enumKey(s)
	if key == "" {
		return "", false
	}
	for _, v := range values {
		if enumKey(v) == key {
			return v, true
		}
	}
	return "", false
}

func enumKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseStatus normalises s to a Status, falling back to DefaultStatus.
func ParseStatus(s string) Status {
	if v, ok := lookupEnum(s, statusValues); ok {
		return Status(v)
	}
	return DefaultStatus
}

// ParseVisitType normalises s to a VisitType, falling back to DefaultVisitType.
func ParseVisitType(s string) VisitType {
	if v, ok := lookupEnum(s, visitTypeValues); ok {
		return VisitType(v)
	}
	return DefaultVisitType
}

// ParseAddressType normalises s to an AddressType, falling back to DefaultAddressType.
func ParseAddressType(s string) AddressType {
	if v, ok := lookupEnum(s, addressTypeValues); ok {
		return AddressType(v)
	}
	return DefaultAddressType
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := lookupEnum(string(s), statusValues)
	return ok
}

// Valid reports whether v is a known visit type.
func (v VisitType) Valid() bool {
	_, ok := lookupEnum(string(v), visitTypeValues)
	return ok
}

// Valid reports whether a is a known address type.
func (a AddressType) Valid() bool {
	_, ok := lookupEnum(string(a), addressTypeValues)
	return ok
}

// transitions lists the allowed workflow moves out of each status.
var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusCompleted, StatusRejected},
	StatusCompleted:  {},
	StatusRejected:   {StatusPending},
}

// CanTransition reports whether a lead may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned by CheckTransition.
type ErrInvalidTransition struct {
	From, To Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}

// CheckTransition returns an ErrInvalidTransition if the move is not allowed.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return ErrInvalidTransition{From: from, To: to}
	}
	return nil
}
