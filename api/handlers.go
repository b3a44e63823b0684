/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the payroll engine via REST API. Handles HTTP request/response,
  JSON serialization and request validation, and delegates to payroll.Engine.

ENDPOINTS:
  Payroll:
    GET  /api/payroll/breakup?ctc=              Salary breakup for a CTC
    POST /api/payroll/calculate                 Recalculate a period
    GET  /api/payroll/{month}                   List entries
    GET  /api/payroll/{month}/summary           Period totals
    PUT  /api/payroll/{month}/approve-all       Approve every Pending entry
    GET  /api/payroll/export/{month}            CSV export (format, include_rejected)

  Entries:
    GET  /api/payroll/entries/{id}/breakdown    Presentation view
    PUT  /api/payroll/entries/{id}/approve      Approve one entry
    PUT  /api/payroll/entries/{id}/reject       Reject one entry
    PUT  /api/payroll/entries/{id}/reimbursements  Edit reimbursements
    GET  /api/payroll/entries/{id}/audit        Audit trail

  Employees:
    GET  /api/employees                         List roster
    POST /api/employees                         Create or update an employee

  Scenarios:
    GET  /api/scenarios                         List demo scenarios
    POST /api/scenarios/load                    Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entry, employee or period not found
  - 409: Illegal status transition, finalized entry, concurrent modification
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Approver identities are taken from the
  request body as given.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *payroll.Engine
	Roster payroll.Roster
	Logger *slog.Logger

	validate *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(engine *payroll.Engine, roster payroll.Roster, logger *slog.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Engine: engine, Roster: roster, Logger: logger, validate: v}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Roster.ListEmployees(r.Context())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveEmployee creates or replaces an employee's compensation record.
func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeDTO
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	emp, err := req.toEmployee()
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	if err := h.Roster.SaveEmployee(r.Context(), emp); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// GetBreakup returns the salary breakup for ?ctc=.
func (h *Handler) GetBreakup(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ctc")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "ctc query parameter is required", nil)
		return
	}
	ctc, err := decimal.NewFromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ctc must be a decimal", err)
		return
	}

	breakup, err := h.Engine.ComputeBreakup(ctc)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakupDTO(ctc, breakup))
}

// Calculate recalculates a period for the requested employees.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	month, err := payroll.ParseMonth(req.Month)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	inputs, failures, err := h.buildInputs(r, month, req)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	result, err := h.Engine.RecalculatePeriod(r.Context(), month, inputs, req.Force)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	resp := CalculateResponse{
		Month:      month.String(),
		Created:    result.Created,
		Superseded: result.Superseded,
		Entries:    toEntryDTOs(result.Entries),
		Failures:   failures,
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, FailureDTO{EmployeeID: string(f.EmployeeID), Error: f.Err.Error()})
	}
	if resp.Failures == nil {
		resp.Failures = []FailureDTO{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// buildInputs resolves employees from the roster and overlays attendance.
// Unknown employees become failures instead of aborting the batch.
func (h *Handler) buildInputs(r *http.Request, month payroll.Month, req CalculateRequest) ([]payroll.EntryInput, []FailureDTO, error) {
	ctx := r.Context()

	attendance := make(map[payroll.EmployeeID]AttendanceRequest, len(req.Attendance))
	var ids []payroll.EmployeeID
	add := func(id payroll.EmployeeID) {
		for _, existing := range ids {
			if existing == id {
				return
			}
		}
		ids = append(ids, id)
	}
	for _, a := range req.Attendance {
		id := payroll.EmployeeID(a.EmployeeID)
		if _, dup := attendance[id]; dup {
			return nil, nil, &payroll.ValidationError{Field: "attendance", Reason: fmt.Sprintf("duplicate employee %s", id)}
		}
		attendance[id] = a
		add(id)
	}
	for _, id := range req.EmployeeIDs {
		add(payroll.EmployeeID(id))
	}

	var employees []payroll.EmployeeCompensation
	var failures []FailureDTO
	if len(ids) == 0 {
		all, err := h.Roster.ListEmployees(ctx)
		if err != nil {
			return nil, nil, err
		}
		employees = all
	} else {
		for _, id := range ids {
			emp, err := h.Roster.GetEmployee(ctx, id)
			if errors.Is(err, payroll.ErrEmployeeNotFound) {
				failures = append(failures, FailureDTO{EmployeeID: string(id), Error: err.Error()})
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			employees = append(employees, *emp)
		}
	}

	inputs := make([]payroll.EntryInput, 0, len(employees))
	for _, emp := range employees {
		in := payroll.FullAttendance(emp, month)
		if a, ok := attendance[emp.ID]; ok {
			if a.WorkingDays != nil {
				in.WorkingDays = *a.WorkingDays
				in.PresentDays = *a.WorkingDays
			}
			if a.PresentDays != nil {
				in.PresentDays = *a.PresentDays
			}
			if a.Reimbursements != "" {
				v, err := decimal.NewFromString(a.Reimbursements)
				if err != nil {
					return nil, nil, &payroll.ValidationError{Field: "reimbursements", Reason: "is not a decimal"}
				}
				in.Reimbursements = v
			}
			if a.IncentiveAdjustment != nil {
				v, err := decimal.NewFromString(*a.IncentiveAdjustment)
				if err != nil {
					return nil, nil, &payroll.ValidationError{Field: "incentive_adjustment", Reason: "is not a decimal"}
				}
				in.IncentiveAdjustment = &v
			}
		}
		inputs = append(inputs, in)
	}
	return inputs, failures, nil
}

// ListEntries returns every entry of a month.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	month, ok := h.monthParam(w, r)
	if !ok {
		return
	}
	entries, err := h.Engine.Entries(r.Context(), month)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTOs(entries))
}

// GetSummary returns the period totals.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	month, ok := h.monthParam(w, r)
	if !ok {
		return
	}
	summary, err := h.Engine.Summary(r.Context(), month)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// ApproveAll approves every Pending entry of a month.
func (h *Handler) ApproveAll(w http.ResponseWriter, r *http.Request) {
	month, ok := h.monthParam(w, r)
	if !ok {
		return
	}
	var req ApproveRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	count, err := h.Engine.ApproveAll(r.Context(), month, req.ApprovedBy)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ApproveAllResponse{Month: month.String(), Count: count})
}

// Export streams a CSV export of a month.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	month, ok := h.monthParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	rawFormat := q.Get("format")
	if rawFormat == "" {
		rawFormat = string(payroll.FormatLedger)
	}
	format, err := payroll.ParseExportFormat(rawFormat)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	includeRejected := false
	if v := q.Get("include_rejected"); v != "" {
		if includeRejected, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "include_rejected must be a boolean", err)
			return
		}
	}

	data, err := h.Engine.Export(r.Context(), month, format, includeRejected)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payroll-%s-%s.csv"`, month, format))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// =============================================================================
// ENTRY HANDLERS
// =============================================================================

// GetBreakdown returns the presentation view of one entry.
func (h *Handler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	b, err := h.Engine.ProjectBreakdown(r.Context(), entryID(r))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBreakdownDTO(b))
}

// ApproveEntry approves one entry.
func (h *Handler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	entry, err := h.Engine.Approve(r.Context(), entryID(r), req.ApprovedBy)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// RejectEntry rejects one entry with a mandatory reason.
func (h *Handler) RejectEntry(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	entry, err := h.Engine.Reject(r.Context(), entryID(r), req.RejectedBy, req.Reason)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// UpdateReimbursements edits an entry's reimbursements.
func (h *Handler) UpdateReimbursements(w http.ResponseWriter, r *http.Request) {
	var req ReimbursementRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	amount, err := decimal.NewFromString(req.Reimbursements)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reimbursements must be a decimal", err)
		return
	}
	entry, err := h.Engine.UpdateReimbursements(r.Context(), entryID(r), amount)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// GetAuditTrail returns the audit history of an entry.
func (h *Handler) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.AuditTrail(r.Context(), entryID(r))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditDTOs(entries))
}

// =============================================================================
// HELPERS
// =============================================================================

func entryID(r *http.Request) payroll.EntryID {
	return payroll.EntryID(chi.URLParam(r, "id"))
}

func (h *Handler) monthParam(w http.ResponseWriter, r *http.Request) (payroll.Month, bool) {
	month, err := payroll.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return payroll.Month{}, false
	}
	return month, true
}

// decodeAndValidate decodes the JSON body into dst and runs struct validation.
// It writes a 400 and returns false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			writeError(w, http.StatusBadRequest, "Validation failed",
				fmt.Errorf("%s failed on %q", e.Namespace(), e.Tag()))
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeEngineError maps engine error categories onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payroll.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case payroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, payroll.ErrEntryFinalized):
		writeError(w, http.StatusConflict, "Entry is finalized", err)
	case errors.Is(err, payroll.ErrIllegalTransition):
		writeError(w, http.StatusConflict, "Illegal status transition", err)
	case errors.Is(err, payroll.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "Concurrent modification, retry", err)
	default:
		h.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
