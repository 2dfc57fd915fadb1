package runner

import "time"

// warnThrottle не чаще одного раза за every.
type warnThrottle struct {
	every time.Duration
	next  time.Time
}

func (w *warnThrottle) allow(now time.Time) bool {
	if now.Before(w.next) {
		return false
	}
	w.next = now.Add(w.every)
	return true
}
