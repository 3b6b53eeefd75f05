package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	settle "github.com/xraph/settle"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/rail"
	"github.com/xraph/settle/store/memory"
)

func newTestServer(t *testing.T, opts ...ServerOption) (http.Handler, *settle.Engine) {
	t.Helper()

	eng := settle.New(memory.New(), rail.NewMemory(),
		settle.WithLogger(slog.New(slog.DiscardHandler)),
		settle.WithTransferRetries(1, 5*time.Millisecond),
	)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	all := append([]ServerOption{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	return New(eng, all...).Handler(), eng
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

func createTripGroup(t *testing.T, handler http.Handler) string {
	t.Helper()
	rr := doRequest(t, handler, http.MethodPost, "/v1/groups", map[string]any{
		"name":     "Trip",
		"currency": "usd",
		"admin_id": "alice",
		"members":  []string{"bob", "carol", "dave"},
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create group: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	groupID, _ := decodeResponse(t, rr)["id"].(string)
	if groupID == "" {
		t.Fatalf("create group: missing id in response")
	}
	return groupID
}

func addTripExpense(t *testing.T, handler http.Handler, groupID, payer string, amount int64, split []string) string {
	t.Helper()
	rr := doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/expenses", map[string]any{
		"payer_id":    payer,
		"amount":      amount,
		"description": "shared cost",
		"split_among": split,
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("add expense: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	expenseID, _ := decodeResponse(t, rr)["id"].(string)
	if expenseID == "" {
		t.Fatalf("add expense: missing id in response")
	}
	return expenseID
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d body=%s", status, rr.Code, rr.Body.String())
	}
	if got := decodeResponse(t, rr)["code"]; got != code {
		t.Fatalf("expected code %s, got %v", code, got)
	}
}

// ──────────────────────────────────────────────────
// Health
// ──────────────────────────────────────────────────

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestServer(t)

	rr := doRequest(t, handler, http.MethodGet, "/healthz", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := decodeResponse(t, rr)["status"]; got != "ok" {
		t.Fatalf("expected status ok, got %v", got)
	}
}

// ──────────────────────────────────────────────────
// Groups
// ──────────────────────────────────────────────────

func TestCreateGroupReturnsContract(t *testing.T) {
	handler, _ := newTestServer(t)

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups", map[string]any{
		"name":     "  Trip  ",
		"admin_id": "alice",
		"members":  []string{"bob"},
	}, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	payload := decodeResponse(t, rr)
	groupID, _ := payload["id"].(string)
	if !strings.HasPrefix(groupID, "grp_") {
		t.Fatalf("expected grp_ prefixed id, got %q", groupID)
	}
	if payload["name"] != "Trip" {
		t.Fatalf("expected trimmed name Trip, got %v", payload["name"])
	}
	if payload["currency"] != "usd" {
		t.Fatalf("expected default currency usd, got %v", payload["currency"])
	}
	if payload["status"] != "active" {
		t.Fatalf("expected status active, got %v", payload["status"])
	}
	members, _ := payload["members"].([]any)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	admin, _ := members[0].(map[string]any)
	if admin["participant_id"] != "alice" || admin["role"] != "admin" {
		t.Fatalf("expected alice as admin first, got %v", admin)
	}
}

func TestCreateGroupValidationError(t *testing.T) {
	handler, _ := newTestServer(t)

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups", map[string]any{
		"name":     "",
		"admin_id": "alice",
	}, "")
	assertErrorCode(t, rr, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestCreateGroupRejectsInvalidBody(t *testing.T) {
	handler, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/groups", bytes.NewBufferString(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assertErrorCode(t, rr, http.StatusBadRequest, "BAD_REQUEST")
}

func TestGetGroupRejectsMalformedID(t *testing.T) {
	handler, _ := newTestServer(t)

	rr := doRequest(t, handler, http.MethodGet, "/v1/groups/not-an-id", nil, "")
	assertErrorCode(t, rr, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestGetGroupUnknownIDReturnsNotFound(t *testing.T) {
	handler, _ := newTestServer(t)

	rr := doRequest(t, handler, http.MethodGet, "/v1/groups/"+id.NewGroupID().String(), nil, "")
	assertErrorCode(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestListGroupsFiltersByStatus(t *testing.T) {
	handler, _ := newTestServer(t)

	createTripGroup(t, handler)
	archived := createTripGroup(t, handler)

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups/"+archived+"/archive", map[string]any{
		"requested_by": "alice",
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, handler, http.MethodGet, "/v1/groups", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}
	groups, _ := decodeResponse(t, rr)["groups"].([]any)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	rr = doRequest(t, handler, http.MethodGet, "/v1/groups?status=closed", nil, "")
	groups, _ = decodeResponse(t, rr)["groups"].([]any)
	if len(groups) != 1 {
		t.Fatalf("expected 1 closed group, got %d", len(groups))
	}
	closed, _ := groups[0].(map[string]any)
	if closed["id"] != archived {
		t.Fatalf("expected closed group %s, got %v", archived, closed["id"])
	}
}

// ──────────────────────────────────────────────────
// Members
// ──────────────────────────────────────────────────

func TestMemberEndpoints(t *testing.T) {
	handler, _ := newTestServer(t)
	groupID := createTripGroup(t, handler)

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/members", map[string]any{
		"participant_id": "erin",
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("add member: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	members, _ := decodeResponse(t, rr)["members"].([]any)
	if len(members) != 5 {
		t.Fatalf("expected 5 members, got %d", len(members))
	}

	rr = doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/members", map[string]any{
		"participant_id": "erin",
	}, "")
	assertErrorCode(t, rr, http.StatusConflict, "MEMBER_EXISTS")

	rr = doRequest(t, handler, http.MethodDelete, "/v1/groups/"+groupID+"/members/alice", nil, "")
	assertErrorCode(t, rr, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rr = doRequest(t, handler, http.MethodDelete, "/v1/groups/"+groupID+"/members/erin", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("remove member: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	addTripExpense(t, handler, groupID, "alice", 4000, []string{"alice", "bob"})
	rr = doRequest(t, handler, http.MethodDelete, "/v1/groups/"+groupID+"/members/dave", nil, "")
	assertErrorCode(t, rr, http.StatusConflict, "MEMBER_HAS_EXPENSES")
}

// ──────────────────────────────────────────────────
// Expenses and balances
// ──────────────────────────────────────────────────

func TestExpenseFlowAndBalances(t *testing.T) {
	handler, _ := newTestServer(t)
	groupID := createTripGroup(t, handler)

	addTripExpense(t, handler, groupID, "alice", 6000, []string{"alice", "bob", "carol", "dave"})

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/expenses", map[string]any{
		"payer_id":    "bob",
		"amount":      1000,
		"currency":    "eur",
		"description": "wrong currency",
		"split_among": []string{"alice", "bob"},
	}, "")
	assertErrorCode(t, rr, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rr = doRequest(t, handler, http.MethodGet, "/v1/groups/"+groupID+"/expenses", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list expenses: expected 200, got %d", rr.Code)
	}
	expenses, _ := decodeResponse(t, rr)["expenses"].([]any)
	if len(expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(expenses))
	}

	rr = doRequest(t, handler, http.MethodGet, "/v1/groups/"+groupID+"/balances", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("balances: expected 200, got %d", rr.Code)
	}
	balances, _ := decodeResponse(t, rr)["balances"].(map[string]any)
	if got := balances["alice"]; got != float64(4500) {
		t.Fatalf("expected alice +4500, got %v", got)
	}
	if got := balances["dave"]; got != float64(-1500) {
		t.Fatalf("expected dave -1500, got %v", got)
	}
}

func TestGetExpenseByID(t *testing.T) {
	handler, _ := newTestServer(t)
	groupID := createTripGroup(t, handler)
	expenseID := addTripExpense(t, handler, groupID, "alice", 2400, []string{"alice", "bob"})

	rr := doRequest(t, handler, http.MethodGet, "/v1/expenses/"+expenseID, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get expense: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["payer_id"] != "alice" {
		t.Fatalf("expected payer alice, got %v", payload["payer_id"])
	}
	amount, _ := payload["amount"].(map[string]any)
	if amount["amount"] != float64(2400) {
		t.Fatalf("expected amount 2400, got %v", amount["amount"])
	}
	shares, _ := payload["shares"].([]any)
	if len(shares) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(shares))
	}

	rr = doRequest(t, handler, http.MethodGet, "/v1/expenses/"+id.NewExpenseID().String(), nil, "")
	assertErrorCode(t, rr, http.StatusNotFound, "NOT_FOUND")
}

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

func TestSettlementFlow(t *testing.T) {
	handler, _ := newTestServer(t)
	groupID := createTripGroup(t, handler)

	addTripExpense(t, handler, groupID, "alice", 6000, []string{"alice", "bob", "carol", "dave"})
	addTripExpense(t, handler, groupID, "bob", 4000, []string{"alice", "bob", "carol", "dave"})

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/settlement", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("settlement: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["group_status"] != "settled" {
		t.Fatalf("expected group_status settled, got %v", payload["group_status"])
	}
	planMap, _ := payload["plan"].(map[string]any)
	txns, _ := planMap["transactions"].([]any)
	if len(txns) == 0 || len(txns) > 3 {
		t.Fatalf("expected 1-3 transactions, got %d", len(txns))
	}

	rr = doRequest(t, handler, http.MethodGet, "/v1/groups/"+groupID+"/runs", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("runs: expected 200, got %d", rr.Code)
	}
	runs, _ := decodeResponse(t, rr)["runs"].([]any)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run, _ := runs[0].(map[string]any)
	if run["outcome"] != "done" {
		t.Fatalf("expected outcome done, got %v", run["outcome"])
	}

	rr = doRequest(t, handler, http.MethodGet, "/v1/groups/"+groupID, nil, "")
	if got := decodeResponse(t, rr)["status"]; got != "settled" {
		t.Fatalf("expected group settled, got %v", got)
	}
}

// ──────────────────────────────────────────────────
// Archive
// ──────────────────────────────────────────────────

func TestArchiveRequiresRequestedBy(t *testing.T) {
	handler, _ := newTestServer(t)
	groupID := createTripGroup(t, handler)

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/archive", nil, "")
	assertErrorCode(t, rr, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestArchiveRejectsNonAdmin(t *testing.T) {
	handler, _ := newTestServer(t)
	groupID := createTripGroup(t, handler)

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/archive", map[string]any{
		"requested_by": "bob",
	}, "")
	assertErrorCode(t, rr, http.StatusForbidden, "FORBIDDEN")
}

func TestArchiveClosesGroup(t *testing.T) {
	handler, _ := newTestServer(t)
	groupID := createTripGroup(t, handler)

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/archive", map[string]any{
		"requested_by": "alice",
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := decodeResponse(t, rr)["status"]; got != "closed" {
		t.Fatalf("expected status closed, got %v", got)
	}

	rr = doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/expenses", map[string]any{
		"payer_id":    "alice",
		"amount":      100,
		"description": "too late",
		"split_among": []string{"alice"},
	}, "")
	assertErrorCode(t, rr, http.StatusConflict, "GROUP_CLOSED")
}

// ──────────────────────────────────────────────────
// Auth
// ──────────────────────────────────────────────────

func TestProtectedRouteWithoutBearerReturnsUnauthorized(t *testing.T) {
	handler, _ := newTestServer(t, WithAuth(NewTokenManager("test-secret", time.Hour)))

	rr := doRequest(t, handler, http.MethodGet, "/v1/groups", nil, "")
	assertErrorCode(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestProtectedRouteWithInvalidBearerReturnsUnauthorized(t *testing.T) {
	handler, _ := newTestServer(t, WithAuth(NewTokenManager("test-secret", time.Hour)))

	rr := doRequest(t, handler, http.MethodGet, "/v1/groups", nil, "definitely-not-a-token")
	assertErrorCode(t, rr, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestProtectedRouteWithValidBearerSucceeds(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	handler, _ := newTestServer(t, WithAuth(tm))

	token, err := tm.Generate("alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	rr := doRequest(t, handler, http.MethodGet, "/v1/groups", nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHealthBypassesAuth(t *testing.T) {
	handler, _ := newTestServer(t, WithAuth(NewTokenManager("test-secret", time.Hour)))

	rr := doRequest(t, handler, http.MethodGet, "/healthz", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestArchiveUsesCallerIdentity(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	handler, _ := newTestServer(t, WithAuth(tm))

	token, err := tm.Generate("alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	rr := doRequest(t, handler, http.MethodPost, "/v1/groups", map[string]any{
		"name":     "Trip",
		"admin_id": "alice",
		"members":  []string{"bob"},
	}, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create group: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	groupID, _ := decodeResponse(t, rr)["id"].(string)

	// No body: requested_by comes from the bearer token claims.
	rr = doRequest(t, handler, http.MethodPost, "/v1/groups/"+groupID+"/archive", nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("archive: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if got := decodeResponse(t, rr)["status"]; got != "closed" {
		t.Fatalf("expected status closed, got %v", got)
	}
}

// ──────────────────────────────────────────────────
// Error mapping
// ──────────────────────────────────────────────────

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"settlement in progress", settle.ErrSettlementInProgress, http.StatusConflict, "SETTLEMENT_IN_PROGRESS"},
		{"group closed", settle.ErrGroupClosed, http.StatusConflict, "GROUP_CLOSED"},
		{"member exists", settle.ErrMemberExists, http.StatusConflict, "MEMBER_EXISTS"},
		{"member removal", settle.ErrMemberRemoval, http.StatusConflict, "MEMBER_HAS_EXPENSES"},
		{"not admin", settle.ErrNotAdmin, http.StatusForbidden, "FORBIDDEN"},
		{"run cancelled", settle.ErrRunCancelled, http.StatusConflict, "RUN_CANCELLED"},
		{"store closed", settle.ErrStoreClosed, http.StatusServiceUnavailable, "SHUTTING_DOWN"},
		{"not found", settle.ErrGroupNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"validation", settle.ErrInvalidAmount, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"state conflict", settle.ErrGroupNotActive, http.StatusConflict, "CONFLICT"},
		{"invariant", settle.InvariantViolationError{Invariant: "conservation"}, http.StatusInternalServerError, "INVARIANT_VIOLATION"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _ := mapError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("mapError(%v) status = %d, want %d", tt.err, status, tt.wantStatus)
			}
			if code != tt.wantCode {
				t.Errorf("mapError(%v) code = %s, want %s", tt.err, code, tt.wantCode)
			}
		})
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler, _ := newTestServer(t)

	rr := doRequest(t, handler, http.MethodGet, "/healthz", nil, "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	echo := httptest.NewRecorder()
	handler.ServeHTTP(echo, req)
	if got := echo.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Fatalf("expected echoed request id fixed-id, got %q", got)
	}
}
