// Package banlist defines the manual/automatic IP ban data model (C4).
package banlist

import "time"

// Entry is one banned IP address. ExpiresAt nil means a permanent ban.
type Entry struct {
	IP        string
	Reason    string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Active reports whether the entry is still in effect at now.
func (e Entry) Active(now time.Time) bool {
	if e.ExpiresAt == nil {
		return true
	}
	return now.Before(*e.ExpiresAt)
}
