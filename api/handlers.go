/*
handlers.go - HTTP API handlers for the lost-and-found service

PURPOSE:
  Exposes lostitem.Service via REST. Handles HTTP request/response and
  JSON serialization; every rule lives in the service.

ENDPOINTS:
  Items:
    GET    /api/items                     List committed cases
    POST   /api/items                     Commit a case
    GET    /api/items/search              Search (fundNo, finder, item, location, dateFrom, dateTo)
    GET    /api/items/{id}                Get one case
    PUT    /api/items/{id}                Update a case
    POST   /api/items/{id}/status         Change status
    POST   /api/items/{id}/steps          Add investigation step
    DELETE /api/items/{id}/steps/{stepID} Delete investigation step
    PUT    /api/items/{id}/finder         Replace finder
    PUT    /api/items/{id}/owner          Replace owner
    PUT    /api/items/{id}/collector      Replace collector
    POST   /api/items/{id}/receipts       Print a receipt
    POST   /api/items/{id}/reward/payout  Pay the finder reward
    POST   /api/items/{id}/reward/deposit Book an owner reward
    GET    /api/items/{id}/audit          Audit entries of one case

  Drafts:
    GET/POST   /api/drafts, GET/DELETE /api/drafts/{id}

  Cash ledger:
    GET/POST   /api/cashbook
    GET        /api/cashbook/totals?from=&to=
    GET        /api/cashbook/verify

  Misc:
    GET /api/numbers/next, GET /api/audit

ERROR HANDLING:
  Errors are returned as JSON {error, details, fields}:
  - 400: Validation errors, invalid input
  - 404: Case, draft or step not found
  - 409: Finder reward already paid
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Streuli81/LostTrack/generic"
	"github.com/Streuli81/LostTrack/lostitem"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *lostitem.Service
	log     logrus.FieldLogger
}

// NewHandler creates a new handler on svc.
func NewHandler(svc *lostitem.Service, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Service: svc, log: log.WithField("module", "api")}
}

// =============================================================================
// ITEM HANDLERS
// =============================================================================

// ListItems returns all committed cases.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	records, err := h.Service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// CommitItem validates and stores a case.
// POST /api/items
func (h *Handler) CommitItem(w http.ResponseWriter, r *http.Request) {
	var input generic.CaseRecord
	if !decode(w, r, &input) {
		return
	}
	rec, err := h.Service.Commit(r.Context(), &input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateItem replaces the editable fields of a case. The id in the path
// wins over the body.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var input generic.CaseRecord
	if !decode(w, r, &input) {
		return
	}
	input.ID = chi.URLParam(r, "id")
	rec, err := h.Service.Update(r.Context(), &input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// SearchItems filters cases by query parameters.
// GET /api/items/search?finder=muster&dateFrom=2026-03-01
func (h *Handler) SearchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := h.Service.Search(r.Context(), lostitem.Query{
		FundNo:   q.Get("fundNo"),
		Finder:   q.Get("finder"),
		Item:     q.Get("item"),
		Location: q.Get("location"),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Service.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// =============================================================================
// STEP HANDLERS
// =============================================================================

func (h *Handler) AddStep(w http.ResponseWriter, r *http.Request) {
	var req lostitem.StepInput
	if !decode(w, r, &req) {
		return
	}
	rec, step, err := h.Service.AddInvestigationStep(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, StepResponse{Record: rec, Step: step})
}

func (h *Handler) DeleteStep(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.DeleteInvestigationStep(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "stepID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// =============================================================================
// PARTY HANDLERS
// =============================================================================

// UpdateFinder replaces the finder. A JSON null removes it.
func (h *Handler) UpdateFinder(w http.ResponseWriter, r *http.Request) {
	var p *generic.Party
	if !decode(w, r, &p) {
		return
	}
	rec, err := h.Service.UpdateFinder(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) UpdateOwner(w http.ResponseWriter, r *http.Request) {
	var p *generic.Party
	if !decode(w, r, &p) {
		return
	}
	rec, err := h.Service.UpdateOwner(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) UpdateCollector(w http.ResponseWriter, r *http.Request) {
	var req CollectorRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.Service.UpdateCollector(r.Context(), chi.URLParam(r, "id"), req.Collector, req.SameAsFinder)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// =============================================================================
// RECEIPT & REWARD HANDLERS
// =============================================================================

func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req ReceiptRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, receipt, err := h.Service.CreateReceipt(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ReceiptResponse{Record: rec, Receipt: receipt})
}

// PayFinderReward posts the payout and sets the lock.
// POST /api/items/{id}/reward/payout
func (h *Handler) PayFinderReward(w http.ResponseWriter, r *http.Request) {
	in, ok := h.rewardInput(w, r)
	if !ok {
		return
	}
	rec, entry, err := h.Service.PayFinderReward(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PayoutResponse{Record: rec, Entry: entry})
}

func (h *Handler) ReceiveOwnerReward(w http.ResponseWriter, r *http.Request) {
	in, ok := h.rewardInput(w, r)
	if !ok {
		return
	}
	entry, err := h.Service.ReceiveOwnerReward(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PayoutResponse{Entry: entry})
}

func (h *Handler) rewardInput(w http.ResponseWriter, r *http.Request) (lostitem.RewardInput, bool) {
	var req RewardRequest
	if !decode(w, r, &req) {
		return lostitem.RewardInput{}, false
	}
	cents, _, err := req.Cents()
	if err != nil {
		h.fail(w, r, err)
		return lostitem.RewardInput{}, false
	}
	return lostitem.RewardInput{
		ID:          chi.URLParam(r, "id"),
		AmountCents: cents,
		Reason:      req.Reason,
		Actor:       req.Actor,
	}, true
}

// =============================================================================
// AUDIT & NUMBER HANDLERS
// =============================================================================

// ItemAudit returns the audit entries of one case.
func (h *Handler) ItemAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Service.Get(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.Service.AuditLog(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.AuditLog(r.Context(), r.URL.Query().Get("recordId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// NextNumber previews the next case number without consuming it.
func (h *Handler) NextNumber(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.PeekCaseNumber(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NextNumberResponse{FundNo: n})
}

// =============================================================================
// DRAFT HANDLERS
// =============================================================================

func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := h.Service.ListDrafts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drafts)
}

// SaveDraft stores a draft. Format problems come back in "errors" with
// status 200; the draft is saved regardless.
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var input generic.CaseRecord
	if !decode(w, r, &input) {
		return
	}
	draft, errs, err := h.Service.SaveDraft(r.Context(), &input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DraftResponse{Draft: draft, Errors: errs})
}

func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.Service.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteDraft(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CASHBOOK HANDLERS
// =============================================================================

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.Entries(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// PostEntry appends a manual ledger entry.
// POST /api/cashbook
func (h *Handler) PostEntry(w http.ResponseWriter, r *http.Request) {
	var req PostEntryRequest
	if !decode(w, r, &req) {
		return
	}
	cents, _, err := req.Cents()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.Service.PostEntry(r.Context(), lostitem.PostInput{
		Type:        req.Type,
		AmountCents: cents,
		CaseID:      req.CaseID,
		Reason:      req.Reason,
		CaseWorker:  req.CaseWorker,
		Actor:       req.Actor,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t, err := h.Service.Totals(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTotalsResponse(t))
}

// VerifyChain reports the chain state. A broken chain is a 200 with
// ok=false: the report is the answer, not a failure of the request.
func (h *Handler) VerifyChain(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.VerifyChain(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// fail maps a service error to its HTTP status.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *generic.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: err.Error(),
			Fields:  verr.Fields,
		})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, "Finder reward already paid", err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	default:
		h.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
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
