package clock

import (
	"testing"
	"time"
)

func TestFakeAfterFuncFiresOnAdvance(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	fired := 0
	c.AfterFunc(5*time.Second, func() { fired++ })

	c.Advance(4 * time.Second)
	if fired != 0 {
		t.Fatalf("expected no fire before deadline, got %d", fired)
	}
	c.Advance(time.Second)
	if fired != 1 {
		t.Fatalf("expected exactly one fire at deadline, got %d", fired)
	}
	c.Advance(10 * time.Second)
	if fired != 1 {
		t.Fatalf("expected timer to fire once, got %d", fired)
	}
}

func TestFakeStopPreventsFire(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })
	if !timer.Stop() {
		t.Fatalf("expected Stop to report an active timer")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Fatalf("expected stopped timer not to fire")
	}
	if timer.Stop() {
		t.Fatalf("expected second Stop to report false")
	}
	if c.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", c.Pending())
	}
}

func TestFakeAfterDeliversInDeadlineOrder(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	var order []int
	c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	c.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	ch := c.After(2 * time.Second)

	c.Advance(5 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatalf("expected After channel to be ready")
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("expected callbacks in deadline order [1 3], got %v", order)
	}
}
