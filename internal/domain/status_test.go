package domain

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  TicketStatus
		ok    bool
	}{
		{name: "new", input: "1", want: StatusNew, ok: true},
		{name: "waiting on contact", input: "2", want: StatusWaitingOnContact, ok: true},
		{name: "waiting on us", input: "3", want: StatusWaitingOnUs, ok: true},
		{name: "closed", input: "4", want: StatusClosed, ok: true},
		{name: "out of range", input: "5", ok: false},
		{name: "zero", input: "0", ok: false},
		{name: "not a number", input: "open", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseStatus(tc.input)
			if ok != tc.ok {
				t.Fatalf("ParseStatus(%q) ok = %v, want %v", tc.input, ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("ParseStatus(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestStatusStageRoundTrip(t *testing.T) {
	for _, status := range []TicketStatus{StatusNew, StatusWaitingOnContact, StatusWaitingOnUs, StatusClosed} {
		parsed, ok := ParseStatus(status.Stage())
		if !ok || parsed != status {
			t.Fatalf("round trip of %v via %q gave %v (ok=%v)", status, status.Stage(), parsed, ok)
		}
	}
}

func TestActiveStatuses(t *testing.T) {
	for _, status := range ActiveStatuses() {
		if !status.Active() {
			t.Errorf("%v listed active but Active() is false", status)
		}
	}
	if StatusClosed.Active() {
		t.Error("closed tickets must not count toward load")
	}
	if TicketStatus(9).Active() {
		t.Error("invalid status must not be active")
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusWaitingOnContact.Label(); got != "Waiting on contact" {
		t.Fatalf("Label() = %q", got)
	}
	if got := TicketStatus(42).Label(); got != "Unknown" {
		t.Fatalf("Label() for invalid status = %q", got)
	}
}
