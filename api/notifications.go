package api

import (
	"sync"
	"time"

	"candymint/mint"
)

// Notifications keeps the last orchestrator alert until it expires
type Notifications struct {
	mu      sync.Mutex
	alert   *mint.Alert
	shownAt time.Time
	now     func() time.Time
}

func NewNotifications() *Notifications {
	return &Notifications{now: time.Now}
}

func (n *Notifications) Notify(alert mint.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alert = &alert
	n.shownAt = n.now()
}

// Current returns the alert still on screen, if any
func (n *Notifications) Current() *mint.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.alert == nil {
		return nil
	}
	if n.alert.HideAfter > 0 && n.now().Sub(n.shownAt) >= n.alert.HideAfter {
		n.alert = nil
		return nil
	}
	a := *n.alert
	return &a
}
