package domain

import "strconv"

// TicketStatus mirrors the stages of the HubSpot support pipeline. The ids
// are fixed by the pipeline configuration; HubSpot exchanges them as strings.
type TicketStatus int

const (
	StatusNew TicketStatus = iota + 1
	StatusWaitingOnContact
	StatusWaitingOnUs
	StatusClosed
)

// DefaultStatus is the stage a freshly ingested ticket lands in when the
// HubSpot payload carries no usable stage.
const DefaultStatus = StatusNew

var statusLabels = map[TicketStatus]string{
	StatusNew:              "New",
	StatusWaitingOnContact: "Waiting on contact",
	StatusWaitingOnUs:      "Waiting on us",
	StatusClosed:           "Closed",
}

// Valid reports whether the status is a member of the pipeline enumeration.
func (s TicketStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable stage name.
func (s TicketStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// Stage returns the stringified stage id used on the HubSpot wire.
func (s TicketStatus) Stage() string {
	return strconv.Itoa(int(s))
}

// ParseStatus parses a stringified stage id into a TicketStatus.
func ParseStatus(value string) (TicketStatus, bool) {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	status := TicketStatus(parsed)
	return status, status.Valid()
}

// ActiveStatuses lists the stages that count toward an employee's load:
// everything short of Closed.
func ActiveStatuses() []TicketStatus {
	return []TicketStatus{StatusNew, StatusWaitingOnContact, StatusWaitingOnUs}
}

// Active reports whether a ticket in this status still occupies its assignee.
func (s TicketStatus) Active() bool {
	return s.Valid() && s != StatusClosed
}
