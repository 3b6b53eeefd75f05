package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	settle "github.com/xraph/settle"
	"github.com/xraph/settle/expense"
	"github.com/xraph/settle/group"
	"github.com/xraph/settle/id"
	"github.com/xraph/settle/plan"
	"github.com/xraph/settle/types"
)

// ──────────────────────────────────────────────────
// Health
// ──────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "UNHEALTHY", "store unreachable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ──────────────────────────────────────────────────
// Groups
// ──────────────────────────────────────────────────

type createGroupRequest struct {
	Name     string            `json:"name"`
	Currency string            `json:"currency"`
	AdminID  string            `json:"admin_id"`
	Members  []string          `json:"members"`
	Metadata map[string]string `json:"metadata"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	g, err := s.engine.CreateGroup(r.Context(), settle.CreateGroupInput{
		Name:     req.Name,
		Currency: req.Currency,
		AdminID:  req.AdminID,
		Members:  req.Members,
		Metadata: req.Metadata,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	opts := group.ListOpts{
		Status: group.Status(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}

	groups, err := s.engine.ListGroups(r.Context(), opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFrom(w, r)
	if !ok {
		return
	}

	g, err := s.engine.GetGroup(r.Context(), groupID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type addMemberRequest struct {
	ParticipantID string `json:"participant_id"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFrom(w, r)
	if !ok {
		return
	}

	var req addMemberRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	g, err := s.engine.AddMember(r.Context(), groupID, req.ParticipantID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFrom(w, r)
	if !ok {
		return
	}

	g, err := s.engine.RemoveMember(r.Context(), groupID, r.PathValue("participant"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type archiveGroupRequest struct {
	RequestedBy string `json:"requested_by"`
}

func (s *Server) handleArchiveGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFrom(w, r)
	if !ok {
		return
	}

	requestedBy := caller(r)
	if requestedBy == "" {
		var req archiveGroupRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		requestedBy = req.RequestedBy
	}
	if requestedBy == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "requested_by is required", nil)
		return
	}

	if err := s.engine.ArchiveGroup(r.Context(), groupID, requestedBy); err != nil {
		writeEngineError(w, err)
		return
	}

	g, err := s.engine.GetGroup(r.Context(), groupID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// ──────────────────────────────────────────────────
// Expenses
// ──────────────────────────────────────────────────

type addExpenseRequest struct {
	PayerID     string            `json:"payer_id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	SplitAmong  []string          `json:"split_among"`
	Metadata    map[string]string `json:"metadata"`
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFrom(w, r)
	if !ok {
		return
	}

	var req addExpenseRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	exp, err := s.engine.AddExpense(r.Context(), settle.AddExpenseInput{
		GroupID:     groupID,
		PayerID:     req.PayerID,
		Amount:      types.Money{Amount: req.Amount, Currency: req.Currency},
		Description: req.Description,
		SplitAmong:  req.SplitAmong,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFrom(w, r)
	if !ok {
		return
	}

	opts := expense.ListOpts{
		IncludeSettled: queryBool(r, "include_settled"),
		Limit:          queryInt(r, "limit"),
		Offset:         queryInt(r, "offset"),
	}

	expenses, err := s.engine.ListExpenses(r.Context(), groupID, opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expenseID, err := id.ParseExpenseID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid expense id", nil)
		return
	}

	exp, err := s.engine.GetExpense(r.Context(), expenseID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// ──────────────────────────────────────────────────
// Balances and settlement
// ──────────────────────────────────────────────────

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFrom(w, r)
	if !ok {
		return
	}

	positions, err := s.engine.GroupBalances(r.Context(), groupID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": positions})
}

func (s *Server) handleTriggerSettlement(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFrom(w, r)
	if !ok {
		return
	}

	result, err := s.engine.TriggerSettlement(r.Context(), groupID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupIDFrom(w, r)
	if !ok {
		return
	}

	opts := plan.ListOpts{
		Outcome: plan.Outcome(r.URL.Query().Get("outcome")),
		Limit:   queryInt(r, "limit"),
		Offset:  queryInt(r, "offset"),
	}

	runs, err := s.engine.ListRuns(r.Context(), groupID, opts)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// ──────────────────────────────────────────────────
// Request parsing helpers
// ──────────────────────────────────────────────────

// groupIDFrom parses the {id} path segment, writing a 422 on failure.
func groupIDFrom(w http.ResponseWriter, r *http.Request) (id.GroupID, bool) {
	groupID, err := id.ParseGroupID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid group id", nil)
		return id.Nil, false
	}
	return groupID, true
}

func queryInt(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	raw := r.URL.Query().Get(key)
	return raw == "1" || strings.EqualFold(raw, "true")
}
