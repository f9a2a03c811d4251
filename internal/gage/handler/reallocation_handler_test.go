package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/gagetrack/internal/config"
	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/repository"
	"github.com/bitfantasy/gagetrack/internal/gage/service"
	"github.com/bitfantasy/gagetrack/internal/gage/testutil"
	"github.com/bitfantasy/gagetrack/internal/shared/mailer"
)

func setupReallocationTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	authSvc := service.NewAuthService(repos.User, nil, config.JWTConfig{
		Secret:             testutil.JWTSecret,
		AccessTokenExpire:  time.Hour,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "gagetrack",
	})
	reallocSvc := service.NewReallocationService(repos.Reallocation, repos.Gage, repos.User, repos.ActivityLog, db)
	notifySvc := service.NewNotificationService(repos.Reallocation)

	reallocHandler := NewReallocationHandler(reallocSvc, authSvc)
	notifyHandler := NewNotificationHandler(notifySvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/reallocations", reallocHandler.Create)
	api.GET("/reallocations/:id", reallocHandler.Get)
	api.GET("/reallocations/status/:status", reallocHandler.ListByStatus)
	api.POST("/reallocations/:id/approve", reallocHandler.Approve)
	api.POST("/reallocations/:id/return", reallocHandler.Return)
	api.POST("/reallocations/:id/cancel", reallocHandler.Cancel)
	api.POST("/reallocations/:id/complete", reallocHandler.Complete)
	api.POST("/reallocations/:id/request-again", reallocHandler.RequestAgain)
	api.POST("/reallocations/:id/process-expired", reallocHandler.ProcessExpired)
	api.GET("/reallocations/validate/gage/:gageId/available", reallocHandler.CheckAvailable)
	api.GET("/notifications", notifyHandler.List)
	api.POST("/notifications/:id/ack", notifyHandler.Acknowledge)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedReallocationUsers(t *testing.T, env *testutil.TestEnv) {
	t.Helper()
	// admin matches DefaultTestToken identity
	testutil.SeedTestUser(t, env.DB, "test-user-001", "admin", entity.RoleGageAdmin)
	testutil.SeedTestUser(t, env.DB, "user-crib-001", "crib1", entity.RoleCribManager)
	testutil.SeedTestUser(t, env.DB, "user-op-001", "john", entity.RoleOperator)
}

func createRequest(t *testing.T, env *testutil.TestEnv, token, gageID string) string {
	t.Helper()
	body := map[string]interface{}{
		"gage_id":            gageID,
		"current_department": "Line 3 Assembly",
		"time_limit":         "one_day",
		"reason":             "Incoming inspection batch",
		"notify_operator":    "john",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	return data["id"].(string)
}

// Full happy path: create -> approve -> return -> complete -> request again.
func TestReallocationLifecycle(t *testing.T) {
	env := setupReallocationTest(t)
	token := testutil.DefaultTestToken()
	seedReallocationUsers(t, env)
	testutil.SeedTestGage(t, env.DB, "gage-001", "GAG-1001")

	id := createRequest(t, env, token, "gage-001")

	// gage now occupied by a pending request
	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/reallocations/validate/gage/gage-001/available", nil, token)
	resp := testutil.ParseResponse(w)
	if avail := resp["data"].(map[string]interface{})["available"].(bool); avail {
		t.Fatal("gage with pending request must not be available")
	}

	// approve: allocated_at and expires_at get set
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/approve", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("approve failed: %d %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["status"] != entity.ReallocationStatusApproved {
		t.Fatalf("expected approved, got %v", data["status"])
	}
	if data["expires_at"] == nil || data["allocated_at"] == nil {
		t.Fatal("approve must set allocated_at and expires_at")
	}

	// gage moved to the target department
	var gage entity.Gage
	if err := env.DB.First(&gage, "id = ?", "gage-001").Error; err != nil {
		t.Fatalf("load gage: %v", err)
	}
	if gage.Department != "Line 3 Assembly" {
		t.Fatalf("gage should move to target department, got %s", gage.Department)
	}

	// return requires the requester; admin created it, so admin returns it
	body := map[string]interface{}{"reason": "Inspection finished"}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/return", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("return failed: %d %s", w.Code, w.Body.String())
	}

	// gage restored to its original location
	if err := env.DB.First(&gage, "id = ?", "gage-001").Error; err != nil {
		t.Fatalf("reload gage: %v", err)
	}
	if gage.Department != "Calibration Crib" {
		t.Fatalf("gage should return to original department, got %s", gage.Department)
	}

	// close out
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/complete", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("complete failed: %d %s", w.Code, w.Body.String())
	}

	// completed record supports request-again with the repeated-request note
	body = map[string]interface{}{
		"time_limit": "two_hours",
		"reason":     "Second inspection batch",
	}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/request-again", body, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("request-again failed: %d %s", w.Code, w.Body.String())
	}
	resp = testutil.ParseResponse(w)
	data = resp["data"].(map[string]interface{})
	notes := data["notes"].(string)
	want := "Repeated request from admin. Previous usage completed."
	if notes != want {
		t.Fatalf("expected repeated-request notes %q, got %q", want, notes)
	}
	if data["status"] != entity.ReallocationStatusPendingApproval {
		t.Fatalf("new request must start pending, got %v", data["status"])
	}
}

// One gage can carry only one non-terminal request at a time.
func TestReallocationAvailabilityGuard(t *testing.T) {
	env := setupReallocationTest(t)
	token := testutil.DefaultTestToken()
	seedReallocationUsers(t, env)
	testutil.SeedTestGage(t, env.DB, "gage-002", "GAG-1002")

	createRequest(t, env, token, "gage-002")

	body := map[string]interface{}{
		"gage_id":            "gage-002",
		"current_department": "Line 5",
		"time_limit":         "one_week",
		"reason":             "Conflicting request",
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for second active request, got %d", w.Code)
	}
}

// Invalid transitions are rejected: return before approve, complete from approved.
func TestReallocationInvalidTransitions(t *testing.T) {
	env := setupReallocationTest(t)
	token := testutil.DefaultTestToken()
	seedReallocationUsers(t, env)
	testutil.SeedTestGage(t, env.DB, "gage-003", "GAG-1003")

	id := createRequest(t, env, token, "gage-003")

	body := map[string]interface{}{"reason": "too early"}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/return", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("return before approve must fail, got %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/approve", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("approve failed: %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/complete", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("complete from approved must fail, got %d", w.Code)
	}

	// double approve
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/approve", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("double approve must fail, got %d", w.Code)
	}
}

// Cancelling an approved request restores the gage location; a cancelled
// record cannot be requested again.
func TestReallocationCancel(t *testing.T) {
	env := setupReallocationTest(t)
	token := testutil.DefaultTestToken()
	seedReallocationUsers(t, env)
	testutil.SeedTestGage(t, env.DB, "gage-004", "GAG-1004")

	id := createRequest(t, env, token, "gage-004")
	testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/approve", nil, token)

	// cancel without a reason is rejected by binding
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/cancel", map[string]interface{}{}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("cancel without reason must fail, got %d", w.Code)
	}

	body := map[string]interface{}{"reason": "Gage needed for audit"}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/cancel", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel failed: %d %s", w.Code, w.Body.String())
	}

	var gage entity.Gage
	env.DB.First(&gage, "id = ?", "gage-004")
	if gage.Department != "Calibration Crib" {
		t.Fatalf("cancelled allocation should restore gage location, got %s", gage.Department)
	}

	// cancelled is not eligible for request-again
	body = map[string]interface{}{"time_limit": "one_day", "reason": "retry"}
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/request-again", body, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("request-again from cancelled must fail, got %d", w.Code)
	}

	// gage is free again
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/reallocations/validate/gage/gage-004/available", nil, token)
	resp := testutil.ParseResponse(w)
	if avail := resp["data"].(map[string]interface{})["available"].(bool); !avail {
		t.Fatal("gage should be available after cancellation")
	}
}

// An approved record past its expiry moves to expired and frees the gage.
func TestReallocationProcessExpired(t *testing.T) {
	env := setupReallocationTest(t)
	token := testutil.DefaultTestToken()
	seedReallocationUsers(t, env)
	testutil.SeedTestGage(t, env.DB, "gage-005", "GAG-1005")

	id := createRequest(t, env, token, "gage-005")
	testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/approve", nil, token)

	// not expired yet
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/process-expired", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("process-expired before expiry must fail, got %d", w.Code)
	}

	// push expires_at into the past
	past := time.Now().Add(-time.Hour)
	env.DB.Model(&entity.Reallocation{}).Where("id = ?", id).Update("expires_at", past)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/process-expired", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("process-expired failed: %d %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if status := resp["data"].(map[string]interface{})["status"]; status != entity.ReallocationStatusExpired {
		t.Fatalf("expected expired, got %v", status)
	}

	// expired record can be closed out
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/complete", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("complete from expired failed: %d", w.Code)
	}
}

// Operator notifications: the notify target sees an approval notification
// and can acknowledge it.
func TestReallocationOperatorNotifications(t *testing.T) {
	env := setupReallocationTest(t)
	adminToken := testutil.DefaultTestToken()
	johnToken := testutil.GenerateTestToken("user-op-001", "john", "john", entity.RoleOperator)
	seedReallocationUsers(t, env)
	testutil.SeedTestGage(t, env.DB, "gage-006", "GAG-1006")

	id := createRequest(t, env, adminToken, "gage-006")
	testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/approve", nil, adminToken)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/notifications", nil, johnToken)
	if w.Code != http.StatusOK {
		t.Fatalf("list notifications failed: %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	items := resp["data"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 notification for john, got %d", len(items))
	}
	n := items[0].(map[string]interface{})
	if n["message"] != "Request for GAG-1006 has been approved" {
		t.Fatalf("unexpected message %v", n["message"])
	}
	if n["read"].(bool) {
		t.Fatal("fresh notification must be unread")
	}

	// a user not targeted sees nothing
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/notifications", nil, adminToken)
	resp = testutil.ParseResponse(w)
	if items, ok := resp["data"].([]interface{}); ok && len(items) != 0 {
		t.Fatalf("admin should have no notifications, got %d", len(items))
	}

	// acknowledge marks it read
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/notifications/"+id+"/ack", nil, johnToken)
	if w.Code != http.StatusOK {
		t.Fatalf("ack failed: %d %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/notifications?read_status=UNREAD", nil, johnToken)
	resp = testutil.ParseResponse(w)
	if items, ok := resp["data"].([]interface{}); ok && len(items) != 0 {
		t.Fatalf("acknowledged notification must drop out of UNREAD, got %d", len(items))
	}

	// only the target can acknowledge
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/notifications/"+id+"/ack", nil, adminToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("ack by non-target must fail, got %d", w.Code)
	}
}

// The mail relay must receive real recipients: approvers on create, the
// requester plus the notify target on approve.
func TestReallocationMailRecipients(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	authSvc := service.NewAuthService(repos.User, nil, config.JWTConfig{
		Secret:             testutil.JWTSecret,
		AccessTokenExpire:  time.Hour,
		RefreshTokenExpire: 24 * time.Hour,
		Issuer:             "gagetrack",
	})
	reallocSvc := service.NewReallocationService(repos.Reallocation, repos.Gage, repos.User, repos.ActivityLog, db)

	var mu sync.Mutex
	var sent []mailer.Message
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg mailer.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode relay payload: %v", err)
		}
		mu.Lock()
		sent = append(sent, msg)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer relay.Close()
	reallocSvc.SetMailClient(mailer.NewClient(relay.URL))

	reallocHandler := NewReallocationHandler(reallocSvc, authSvc)
	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/reallocations", reallocHandler.Create)
	api.POST("/reallocations/:id/approve", reallocHandler.Approve)

	env := &testutil.TestEnv{DB: db, Router: router, T: t}
	token := testutil.DefaultTestToken()
	seedReallocationUsers(t, env)
	testutil.SeedTestUser(t, db, "user-head-001", "head1", entity.RolePlantHead)
	testutil.SeedTestGage(t, db, "gage-001", "GAG-1001")

	id := createRequest(t, env, token, "gage-001")

	mu.Lock()
	if len(sent) != 1 {
		mu.Unlock()
		t.Fatalf("expected 1 relay call after create, got %d", len(sent))
	}
	createMsg := sent[0]
	mu.Unlock()
	if len(createMsg.To) != 1 || createMsg.To[0] != "head1@test.com" {
		t.Fatalf("create should notify approvers, got recipients %v", createMsg.To)
	}

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/reallocations/"+id+"/approve", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("approve failed: %d %s", w.Code, w.Body.String())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 2 {
		t.Fatalf("expected 2 relay calls after approve, got %d", len(sent))
	}
	approveMsg := sent[1]
	// requester (admin) and notify target (john)
	want := map[string]bool{"admin@test.com": true, "john@test.com": true}
	if len(approveMsg.To) != 2 || !want[approveMsg.To[0]] || !want[approveMsg.To[1]] || approveMsg.To[0] == approveMsg.To[1] {
		t.Fatalf("approve should notify requester and operator, got %v", approveMsg.To)
	}
}
