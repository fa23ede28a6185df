package registration

import (
	"errors"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
)

func futureEvent(capacity int) *model.Event {
	return &model.Event{
		ID:             "evt-1",
		Name:           "Tech Innovation Workshop",
		Date:           time.Now().Add(48 * time.Hour),
		Capacity:       capacity,
		AvailableSeats: capacity,
		Status:         model.StatusUpcoming,
	}
}

func checkInvariants(t *testing.T, ev *model.Event) {
	t.Helper()
	if ev.AvailableSeats+len(ev.Attendees) != ev.Capacity {
		t.Fatalf("capacity invariant broken: seats=%d attendees=%d capacity=%d",
			ev.AvailableSeats, len(ev.Attendees), ev.Capacity)
	}
	if ev.AvailableSeats < 0 {
		t.Fatalf("available seats went negative: %d", ev.AvailableSeats)
	}
	seen := map[string]bool{}
	for _, id := range ev.Attendees {
		if seen[id] {
			t.Fatalf("duplicate attendee %s", id)
		}
		seen[id] = true
	}
	for _, id := range ev.Waitlist {
		if seen[id] {
			t.Fatalf("user %s is both attendee and waitlisted, or queued twice", id)
		}
		seen[id] = true
	}
}

func TestRegisterConfirmsWhileSeatsRemain(t *testing.T) {
	ev := futureEvent(2)
	now := time.Now()

	ch, err := Register(ev, "alice", now)
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if ch.Outcome != Confirmed || ch.AddEvent != "alice" {
		t.Fatalf("unexpected change: %+v", ch)
	}
	if ev.AvailableSeats != 1 {
		t.Fatalf("available seats = %d, want 1", ev.AvailableSeats)
	}
	checkInvariants(t, ev)
}

func TestRegisterFullEventWaitlists(t *testing.T) {
	ev := futureEvent(1)
	now := time.Now()

	if _, err := Register(ev, "alice", now); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	before := append([]string(nil), ev.Attendees...)

	ch, err := Register(ev, "bob", now)
	if err != nil {
		t.Fatalf("register bob: %v", err)
	}
	if ch.Outcome != Waitlisted {
		t.Fatalf("outcome = %s, want waitlisted", ch.Outcome)
	}
	if ch.AddEvent != "" {
		t.Fatalf("waitlisted register must not touch registeredEvents, got AddEvent=%q", ch.AddEvent)
	}
	if len(ev.Attendees) != len(before) || ev.Attendees[0] != before[0] {
		t.Fatalf("waitlisted register mutated attendees: %v", ev.Attendees)
	}
	if len(ev.Waitlist) != 1 || ev.Waitlist[0] != "bob" {
		t.Fatalf("waitlist = %v, want [bob]", ev.Waitlist)
	}
	checkInvariants(t, ev)
}

func TestRegisterDuplicate(t *testing.T) {
	ev := futureEvent(2)
	now := time.Now()

	if _, err := Register(ev, "alice", now); err != nil {
		t.Fatalf("register alice: %v", err)
	}
	if _, err := Register(ev, "alice", now); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second register err = %v, want ErrAlreadyRegistered", err)
	}

	// Waitlisted users are registered too.
	full := futureEvent(0)
	if _, err := Register(full, "carol", now); err != nil {
		t.Fatalf("waitlist carol: %v", err)
	}
	if _, err := Register(full, "carol", now); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("waitlisted re-register err = %v, want ErrAlreadyRegistered", err)
	}
}

func TestRegisterPastEvent(t *testing.T) {
	ev := futureEvent(5)
	ev.Date = time.Now().Add(-24 * time.Hour)

	_, err := Register(ev, "alice", time.Now())
	if !errors.Is(err, ErrEventInPast) {
		t.Fatalf("err = %v, want ErrEventInPast", err)
	}
	if len(ev.Attendees) != 0 || ev.AvailableSeats != 5 {
		t.Fatalf("failed register mutated event: %+v", ev)
	}
}

func TestRegisterCancelledEvent(t *testing.T) {
	ev := futureEvent(5)
	ev.Status = model.StatusCancelled

	if _, err := Register(ev, "alice", time.Now()); !errors.Is(err, ErrEventCancelled) {
		t.Fatalf("err = %v, want ErrEventCancelled", err)
	}
}

func TestUnregisterPromotesFIFO(t *testing.T) {
	ev := futureEvent(2)
	now := time.Now()

	for _, u := range []string{"a", "b", "c", "d"} {
		if _, err := Register(ev, u, now); err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
	}
	// a and b confirmed, c then d waitlisted.
	if len(ev.Waitlist) != 2 || ev.Waitlist[0] != "c" {
		t.Fatalf("waitlist = %v, want [c d]", ev.Waitlist)
	}

	ch, err := Unregister(ev, "a", now)
	if err != nil {
		t.Fatalf("unregister a: %v", err)
	}
	if ch.RemoveEvent != "a" || ch.Promoted != "c" {
		t.Fatalf("unexpected change: %+v", ch)
	}
	// Seat is reassigned immediately: attendee count unchanged, no free seat.
	if len(ev.Attendees) != 2 || ev.AvailableSeats != 0 {
		t.Fatalf("attendees=%v seats=%d, want 2 attendees and 0 seats", ev.Attendees, ev.AvailableSeats)
	}
	if ev.Attendees[0] != "b" || ev.Attendees[1] != "c" {
		t.Fatalf("attendees = %v, want [b c]", ev.Attendees)
	}
	if len(ev.Waitlist) != 1 || ev.Waitlist[0] != "d" {
		t.Fatalf("waitlist = %v, want [d]", ev.Waitlist)
	}
	checkInvariants(t, ev)
}

func TestUnregisterWithoutWaitlistFreesSeat(t *testing.T) {
	ev := futureEvent(3)
	now := time.Now()

	if _, err := Register(ev, "alice", now); err != nil {
		t.Fatalf("register: %v", err)
	}
	ch, err := Unregister(ev, "alice", now)
	if err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if ch.Promoted != "" {
		t.Fatalf("nothing to promote, got %q", ch.Promoted)
	}
	if len(ev.Attendees) != 0 || ev.AvailableSeats != 3 {
		t.Fatalf("round-trip did not restore event: %+v", ev)
	}
	checkInvariants(t, ev)
}

func TestUnregisterNotRegistered(t *testing.T) {
	ev := futureEvent(3)
	now := time.Now()

	if _, err := Unregister(ev, "ghost", now); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}

	// Waitlisted is not confirmed; unregister still refuses.
	full := futureEvent(0)
	if _, err := Register(full, "w", now); err != nil {
		t.Fatalf("waitlist w: %v", err)
	}
	if _, err := Unregister(full, "w", now); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("waitlisted unregister err = %v, want ErrNotRegistered", err)
	}
}

func TestUnregisterPastEvent(t *testing.T) {
	ev := futureEvent(3)
	now := time.Now()
	if _, err := Register(ev, "alice", now); err != nil {
		t.Fatalf("register: %v", err)
	}
	ev.Date = now.Add(-time.Hour)

	if _, err := Unregister(ev, "alice", now); !errors.Is(err, ErrEventInPast) {
		t.Fatalf("err = %v, want ErrEventInPast", err)
	}
}

func TestCapacityScenario(t *testing.T) {
	// capacity=2: A confirmed, B confirmed, C waitlisted, A leaves,
	// C takes the seat.
	ev := futureEvent(2)
	now := time.Now()

	steps := []struct {
		user    string
		outcome Outcome
		seats   int
	}{
		{"A", Confirmed, 1},
		{"B", Confirmed, 0},
		{"C", Waitlisted, 0},
	}
	for _, s := range steps {
		ch, err := Register(ev, s.user, now)
		if err != nil {
			t.Fatalf("register %s: %v", s.user, err)
		}
		if ch.Outcome != s.outcome || ev.AvailableSeats != s.seats {
			t.Fatalf("register %s: outcome=%s seats=%d, want %s/%d",
				s.user, ch.Outcome, ev.AvailableSeats, s.outcome, s.seats)
		}
	}

	if _, err := Unregister(ev, "A", now); err != nil {
		t.Fatalf("unregister A: %v", err)
	}
	if ev.Attendees[0] != "B" || ev.Attendees[1] != "C" {
		t.Fatalf("attendees = %v, want [B C]", ev.Attendees)
	}
	if ev.AvailableSeats != 0 || len(ev.Waitlist) != 0 {
		t.Fatalf("seats=%d waitlist=%v, want 0 and empty", ev.AvailableSeats, ev.Waitlist)
	}
	checkInvariants(t, ev)
}

func TestApplyCapacity(t *testing.T) {
	ev := futureEvent(5)
	now := time.Now()
	for _, u := range []string{"a", "b", "c", "d", "e"} {
		if _, err := Register(ev, u, now); err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
	}

	if err := ApplyCapacity(ev, 3); !errors.Is(err, ErrCapacityBelowAttendance) {
		t.Fatalf("shrink below attendance err = %v, want ErrCapacityBelowAttendance", err)
	}
	if ev.Capacity != 5 {
		t.Fatalf("failed capacity update mutated event: %d", ev.Capacity)
	}

	if err := ApplyCapacity(ev, 8); err != nil {
		t.Fatalf("grow capacity: %v", err)
	}
	if ev.Capacity != 8 || ev.AvailableSeats != 3 {
		t.Fatalf("capacity=%d seats=%d, want 8 and 3", ev.Capacity, ev.AvailableSeats)
	}
	checkInvariants(t, ev)
}
