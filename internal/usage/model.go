package usage

import "time"

// Usage is a principal's quota snapshot for the current window.
type Usage struct {
	Plan     string    `json:"plan"`
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}

// Remaining returns the runs left in the window.
func (u Usage) Remaining() int {
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// Policy sets the quota granted to new principals.
type Policy struct {
	Plan   string
	Limit  int
	Window time.Duration
}

// DefaultPolicy allows ten analysis runs per week.
func DefaultPolicy() Policy {
	return Policy{Plan: "Starter", Limit: 10, Window: 7 * 24 * time.Hour}
}

func (p Policy) fresh(now time.Time) Usage {
	return Usage{Plan: p.Plan, Limit: p.Limit, ResetsAt: now.Add(p.Window)}
}

// roll starts a new window when the current one has expired.
func (p Policy) roll(u Usage, now time.Time) (Usage, bool) {
	if now.Before(u.ResetsAt) {
		return u, false
	}
	u.Used = 0
	u.ResetsAt = now.Add(p.Window)
	return u, true
}
