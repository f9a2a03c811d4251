package service

import (
	"testing"
	"time"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
)

func ptr[T any](v T) *T { return &v }

func baseRealloc(id, serial, status, notifyOperator string) entity.Reallocation {
	return entity.Reallocation{
		ID:             id,
		Code:           "RAL-2026-" + id,
		GageID:         "gage-" + id,
		GageSerialNo:   serial,
		Status:         status,
		NotifyOperator: notifyOperator,
		RequestedBy:    "crib1",
		UpdatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// Notifications are derived only from records that target the user, and the
// marker match in notes is exact and case-sensitive.
func TestDeriveNotificationsFiltering(t *testing.T) {
	records := []entity.Reallocation{
		baseRealloc("0001", "GAG-100", entity.ReallocationStatusApproved, "john"),
		baseRealloc("0002", "GAG-101", entity.ReallocationStatusApproved, "mary"),
	}
	// legacy record: target embedded in notes only
	legacy := baseRealloc("0003", "GAG-102", entity.ReallocationStatusReturned, "")
	legacy.Notes = "Urgent. Notify Operator: john please handle"
	records = append(records, legacy)
	// wrong case must not match
	wrongCase := baseRealloc("0004", "GAG-103", entity.ReallocationStatusApproved, "")
	wrongCase.Notes = "Notify Operator: John"
	records = append(records, wrongCase)

	items := DeriveNotifications(records, "john")
	if len(items) != 2 {
		t.Fatalf("expected 2 notifications for john, got %d", len(items))
	}
	for _, n := range items {
		if n.GageSerialNo == "GAG-101" || n.GageSerialNo == "GAG-103" {
			t.Errorf("notification for %s should not target john", n.GageSerialNo)
		}
	}

	if got := DeriveNotifications(records, ""); len(got) != 0 {
		t.Errorf("empty username must never match, got %d notifications", len(got))
	}
}

func TestNotificationMessageTemplates(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{entity.ReallocationStatusApproved, "Request for GAG-100 has been approved"},
		{entity.ReallocationStatusCancelled, "Request for GAG-100 has been cancelled"},
		{entity.ReallocationStatusReturned, "GAG-100 has been returned"},
		{entity.ReallocationStatusExpired, "Status update for GAG-100"},
		{"anything_else", "Status update for GAG-100"},
	}
	for _, tt := range tests {
		if got := NotificationMessage(tt.status, "GAG-100"); got != tt.want {
			t.Errorf("NotificationMessage(%s) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

// Timestamp priority: approved_at > cancelled_at > returned_at > updated_at.
func TestNotificationTimestampPriority(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	t3 := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	t4 := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

	r := baseRealloc("0001", "GAG-100", entity.ReallocationStatusReturned, "john")
	r.UpdatedAt = t4

	if got := NotificationTimestamp(&r); !got.Equal(t4) {
		t.Errorf("no action timestamps, want updated_at %v, got %v", t4, got)
	}
	r.ReturnedAt = ptr(t3)
	if got := NotificationTimestamp(&r); !got.Equal(t3) {
		t.Errorf("want returned_at %v, got %v", t3, got)
	}
	r.CancelledAt = ptr(t2)
	if got := NotificationTimestamp(&r); !got.Equal(t2) {
		t.Errorf("cancelled_at beats returned_at, want %v, got %v", t2, got)
	}
	r.ApprovedAt = ptr(t1)
	if got := NotificationTimestamp(&r); !got.Equal(t1) {
		t.Errorf("approved_at beats all, want %v, got %v", t1, got)
	}
}

func TestDeriveNotificationsSortedNewestFirst(t *testing.T) {
	early := baseRealloc("0001", "GAG-100", entity.ReallocationStatusApproved, "john")
	early.ApprovedAt = ptr(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	late := baseRealloc("0002", "GAG-101", entity.ReallocationStatusApproved, "john")
	late.ApprovedAt = ptr(time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC))

	items := DeriveNotifications([]entity.Reallocation{early, late}, "john")
	if len(items) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(items))
	}
	if items[0].GageSerialNo != "GAG-101" {
		t.Errorf("newest notification first, got %s", items[0].GageSerialNo)
	}
}

func TestFilterNotificationsByTimePeriod(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)
	items := []Notification{
		{ID: "a", Status: entity.ReallocationStatusApproved, Timestamp: now.Add(-2 * time.Hour)},              // today
		{ID: "b", Status: entity.ReallocationStatusApproved, Timestamp: now.AddDate(0, 0, -3)},                // this week
		{ID: "c", Status: entity.ReallocationStatusReturned, Timestamp: now.AddDate(0, 0, -20)},               // this month
		{ID: "d", Status: entity.ReallocationStatusCancelled, Timestamp: now.AddDate(0, -2, 0)},               // older
		{ID: "e", Status: entity.ReallocationStatusApproved, Timestamp: now.Add(-15 * time.Hour), Read: true}, // yesterday 23:00
	}

	// TODAY uses the start of the calendar day, not a rolling 24h window
	got := FilterNotifications(items, "", TimePeriodToday, "", now)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("TODAY filter: want [a], got %v", ids(got))
	}

	got = FilterNotifications(items, "", TimePeriodWeek, "", now)
	if len(got) != 3 {
		t.Errorf("WEEK filter: want 3 items, got %v", ids(got))
	}

	got = FilterNotifications(items, "", TimePeriodMonth, "", now)
	if len(got) != 4 {
		t.Errorf("MONTH filter: want 4 items, got %v", ids(got))
	}

	got = FilterNotifications(items, entity.ReallocationStatusReturned, "", "", now)
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("status filter: want [c], got %v", ids(got))
	}

	got = FilterNotifications(items, "", "", ReadStatusUnread, now)
	for _, n := range got {
		if n.Read {
			t.Errorf("UNREAD filter returned read notification %s", n.ID)
		}
	}

	// no filters passes everything through
	got = FilterNotifications(items, "", "", "", now)
	if len(got) != len(items) {
		t.Errorf("no filters: want %d items, got %d", len(items), len(got))
	}
}

// All three filters apply together: only items matching status AND time
// period AND read state survive. Filter vocabulary is case-insensitive.
func TestFilterNotificationsCombined(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)
	approved := entity.ReallocationStatusApproved
	cancelled := entity.ReallocationStatusCancelled
	returned := entity.ReallocationStatusReturned
	items := []Notification{
		{ID: "a", Status: approved, Timestamp: now.Add(-1 * time.Hour)},
		{ID: "b", Status: approved, Timestamp: now.AddDate(0, 0, -3), Read: true},
		{ID: "c", Status: approved, Timestamp: now.AddDate(0, 0, -10)},
		{ID: "d", Status: cancelled, Timestamp: now.AddDate(0, 0, -2)},
		{ID: "e", Status: returned, Timestamp: now.AddDate(0, 0, -1)},
		{ID: "f", Status: approved, Timestamp: now.AddDate(0, 0, -7)}, // exactly on the week boundary
		{ID: "g", Status: cancelled, Timestamp: now.Add(-1 * time.Hour), Read: true},
		{ID: "h", Status: approved, Timestamp: now.AddDate(0, 0, -20), Read: true},
		{ID: "i", Status: returned, Timestamp: now.AddDate(0, 0, -8)},
		{ID: "j", Status: approved, Timestamp: now.AddDate(0, 0, -6)},
	}

	got := FilterNotifications(items, "APPROVED", "week", "unread", now)
	want := []string{"a", "f", "j"}
	if len(got) != len(want) {
		t.Fatalf("combined filter: want %v, got %v", want, ids(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("combined filter: want %v, got %v", want, ids(got))
			break
		}
	}

	// uppercase status enum matches lowercase stored statuses too
	got = FilterNotifications(items, "CANCELLED", "", "", now)
	if len(got) != 2 {
		t.Errorf("uppercase status filter: want 3 items, got %v", ids(got))
	}
}

func ids(items []Notification) []string {
	out := make([]string, 0, len(items))
	for _, n := range items {
		out = append(out, n.ID)
	}
	return out
}

// A record approved then returned still exposes the approval timestamp;
// operators see separate notifications per status list, so the returned
// record carries the returned template even with approved_at set.
func TestDeriveNotificationsReturnedRecordKeepsTemplate(t *testing.T) {
	r := baseRealloc("0001", "GAG-200", entity.ReallocationStatusReturned, "john")
	r.ApprovedAt = ptr(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	r.ReturnedAt = ptr(time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC))

	items := DeriveNotifications([]entity.Reallocation{r}, "john")
	if len(items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(items))
	}
	if items[0].Message != "GAG-200 has been returned" {
		t.Errorf("unexpected message %q", items[0].Message)
	}
	if !items[0].Timestamp.Equal(*r.ApprovedAt) {
		t.Errorf("timestamp priority keeps approved_at, got %v", items[0].Timestamp)
	}
}
