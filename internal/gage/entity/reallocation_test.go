package entity

import (
	"testing"
	"time"
)

func TestIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Second)
	in23h := now.Add(23 * time.Hour)
	in25h := now.Add(25 * time.Hour)

	cases := []struct {
		name      string
		expiresAt *time.Time
		expired   bool
		soon      bool
	}{
		{"one second past", &past, true, false},
		{"23h remaining", &in23h, false, true},
		{"25h remaining", &in25h, false, false},
		{"no expiry set", nil, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsExpired(tc.expiresAt, now); got != tc.expired {
				t.Errorf("IsExpired = %v, want %v", got, tc.expired)
			}
			if got := IsExpiringSoon(tc.expiresAt, now); got != tc.soon {
				t.Errorf("IsExpiringSoon = %v, want %v", got, tc.soon)
			}
		})
	}
}

func TestIsExpiringSoonBoundary(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// exactly 24h remaining is still "soon"
	at24h := now.Add(24 * time.Hour)
	if !IsExpiringSoon(&at24h, now) {
		t.Error("expected 24h remaining to be expiring soon")
	}
	// exactly now is expired territory, not "soon"
	atNow := now
	if IsExpiringSoon(&atNow, now) {
		t.Error("expected zero remaining not to be expiring soon")
	}
}

func TestTimeLimitDuration(t *testing.T) {
	cases := map[string]time.Duration{
		TimeLimitTwoHours: 2 * time.Hour,
		TimeLimitOneDay:   24 * time.Hour,
		TimeLimitOneWeek:  7 * 24 * time.Hour,
		TimeLimitOneMonth: 30 * 24 * time.Hour,
		TimeLimitCustom:   0,
	}
	for limit, want := range cases {
		if got := TimeLimitDuration(limit); got != want {
			t.Errorf("TimeLimitDuration(%s) = %v, want %v", limit, got, want)
		}
	}
}

func TestTimeLimitDisplayName(t *testing.T) {
	cases := map[string]string{
		TimeLimitTwoHours: "2 Hours",
		TimeLimitOneDay:   "1 Day",
		TimeLimitOneWeek:  "1 Week",
		TimeLimitOneMonth: "1 Month",
		TimeLimitCustom:   "Custom",
		"three_days":      "three_days", // unmapped falls back to raw value
	}
	for limit, want := range cases {
		if got := TimeLimitDisplayName(limit); got != want {
			t.Errorf("TimeLimitDisplayName(%s) = %q, want %q", limit, got, want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{ReallocationStatusPendingApproval, ReallocationStatusApproved},
		{ReallocationStatusPendingApproval, ReallocationStatusCancelled},
		{ReallocationStatusApproved, ReallocationStatusReturned},
		{ReallocationStatusApproved, ReallocationStatusExpired},
		{ReallocationStatusApproved, ReallocationStatusCancelled},
		{ReallocationStatusReturned, ReallocationStatusCompleted},
		{ReallocationStatusExpired, ReallocationStatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s → %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to string }{
		{ReallocationStatusPendingApproval, ReallocationStatusReturned},
		{ReallocationStatusPendingApproval, ReallocationStatusExpired},
		{ReallocationStatusReturned, ReallocationStatusApproved},
		{ReallocationStatusCancelled, ReallocationStatusCompleted},
		{ReallocationStatusCompleted, ReallocationStatusApproved},
		{ReallocationStatusExpired, ReallocationStatusReturned},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s → %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestCanRequestAgain(t *testing.T) {
	cases := map[string]bool{
		ReallocationStatusReturned:        true,
		ReallocationStatusCompleted:       true,
		ReallocationStatusPendingApproval: false,
		ReallocationStatusApproved:        false,
		ReallocationStatusCancelled:       false,
		ReallocationStatusExpired:         false,
	}
	for status, want := range cases {
		r := &Reallocation{Status: status}
		if got := r.CanRequestAgain(); got != want {
			t.Errorf("CanRequestAgain(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestIsActive(t *testing.T) {
	active := []string{ReallocationStatusPendingApproval, ReallocationStatusApproved}
	for _, status := range active {
		r := &Reallocation{Status: status}
		if !r.IsActive() {
			t.Errorf("expected %s to be active", status)
		}
		if r.IsTerminal() {
			t.Errorf("expected %s not to be terminal", status)
		}
	}
	terminal := []string{
		ReallocationStatusReturned, ReallocationStatusExpired,
		ReallocationStatusCancelled, ReallocationStatusCompleted,
	}
	for _, status := range terminal {
		r := &Reallocation{Status: status}
		if r.IsActive() {
			t.Errorf("expected %s not to be active", status)
		}
		if !r.IsTerminal() {
			t.Errorf("expected %s to be terminal", status)
		}
	}
}

func TestNotifyTarget(t *testing.T) {
	// explicit field wins over notes marker
	r := &Reallocation{NotifyOperator: "alice", Notes: "Notify Operator: bob"}
	if got := r.NotifyTarget(); got != "alice" {
		t.Errorf("NotifyTarget = %q, want alice", got)
	}

	// legacy notes marker
	r = &Reallocation{Notes: "Urgent swap. Notify Operator: carol. Extra text."}
	if got := r.NotifyTarget(); got != "carol" {
		t.Errorf("NotifyTarget = %q, want carol", got)
	}

	r = &Reallocation{Notes: "no marker here"}
	if got := r.NotifyTarget(); got != "" {
		t.Errorf("NotifyTarget = %q, want empty", got)
	}
}

func TestNotifiesUser(t *testing.T) {
	r := &Reallocation{Notes: "Notify Operator: alice. Handle with care."}
	if !r.NotifiesUser("alice") {
		t.Error("expected record to notify alice")
	}
	if r.NotifiesUser("bob") {
		t.Error("expected record not to notify bob")
	}
	// substring match is case-sensitive
	if r.NotifiesUser("Alice") {
		t.Error("expected case-sensitive match to fail for Alice")
	}
	if r.NotifiesUser("") {
		t.Error("empty username must never match")
	}
}
