package dial

import "time"

// ClickClassifier turns raw button edges into resolved multi-clicks.
//
// A click is a press followed by a release and is counted on the release.
// The first click of a burst opens a debounce window; every further click
// slides the window. The burst resolves when the window elapses or the
// click count reaches the maximum, whichever comes first. Exactly one
// ResolvedClick comes out of every burst.
//
// The classifier owns no timers. The caller arms a single timer from
// Deadline after every event and reports fires through Expire, which keeps
// this type pure and testable with explicit timestamps.
type ClickClassifier struct {
	window    time.Duration
	maxClicks int

	buttonDown bool
	counting   bool
	count      int
	deadline   time.Time
}

// NewClickClassifier returns a classifier with the given debounce window
// and immediate-resolve click count.
func NewClickClassifier(window time.Duration, maxClicks int) *ClickClassifier {
	return &ClickClassifier{
		window:    window,
		maxClicks: maxClicks,
	}
}

// Edge feeds a raw button edge into the classifier. It returns a resolved
// click when the edge completed a burst: either by reaching the maximum
// count, or by arriving after the current window already expired (the
// caller's timer lost the race), which closes the stale burst first.
func (c *ClickClassifier) Edge(e ButtonEdge) (ResolvedClick, bool) {
	var (
		resolved ResolvedClick
		ok       bool
	)

	// An edge stamped past the deadline belongs to a fresh burst.
	if c.counting && e.At.After(c.deadline) {
		resolved, ok = c.resolveAt(c.deadline)
	}

	switch e.State {
	case ButtonDown:
		// Repeated press edges (autorepeat) are idempotent.
		c.buttonDown = true
	case ButtonUp:
		// A release without a press is noise.
		if !c.buttonDown {
			return resolved, ok
		}

		c.buttonDown = false
		c.counting = true
		c.count++

		// Reaching the maximum resolves without waiting out the window.
		// The stale-resolve path above cannot also trigger here: it
		// resets the count, and the maximum is at least two.
		if c.count >= c.maxClicks {
			return c.resolveAt(e.At)
		}

		c.deadline = e.At.Add(c.window)
	}

	return resolved, ok
}

// Expire resolves the current burst if now has reached its deadline.
// Fires of stale timers, armed before a later click slid the window,
// return false.
func (c *ClickClassifier) Expire(now time.Time) (ResolvedClick, bool) {
	if !c.counting || now.Before(c.deadline) {
		return ResolvedClick{}, false
	}

	return c.resolveAt(c.deadline)
}

// Deadline returns the time the current burst resolves, when one is open.
func (c *ClickClassifier) Deadline() (time.Time, bool) {
	if !c.counting {
		return time.Time{}, false
	}

	return c.deadline, true
}

func (c *ClickClassifier) resolveAt(at time.Time) (ResolvedClick, bool) {
	if !c.counting || c.count == 0 {
		return ResolvedClick{}, false
	}

	resolved := ResolvedClick{Count: c.count, At: at}

	c.counting = false
	c.count = 0
	c.deadline = time.Time{}

	return resolved, true
}
