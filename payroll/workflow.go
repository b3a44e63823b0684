/*
workflow.go - Payroll entry approval state machine

PURPOSE:
  The only place that decides which status changes are legal. Holds no state
  of its own: every method operates on entries supplied by the caller and
  mutates only Status and the audit fields, never money.

TRANSITIONS:
  from \ action   approve          reject
  Pending         Approved         Rejected
  Approved        error            Rejected (reversal)
  Rejected        Approved (rev.)  error

  approve: Pending | Rejected -> Approved (Rejected only with AllowReversal)
  reject:  Pending | Approved -> Rejected (Approved only with AllowReversal)
  approving an Approved entry or rejecting a Rejected one is an
  IllegalTransition error, never a silent no-op.

AUDIT:
  Approval sets ApprovedBy/ApprovedOn and clears the rejection triple.
  Rejection sets RejectedBy/RejectedOn/RejectionReason and clears approval.
  At most one audit group is populated at any time.

SEE ALSO:
  - engine.go: Applies these rules to stored entries under a key lock
*/
package payroll

import (
	"strings"
	"time"
)

// Workflow holds the transition policy.
type Workflow struct {
	// AllowReversal permits Approved -> Rejected and Rejected -> Approved.
	// Without it Approved and Rejected are terminal.
	AllowReversal bool
}

func DefaultWorkflow() Workflow { return Workflow{AllowReversal: true} }

func (w Workflow) CanApprove(from Status) bool {
	switch from {
	case StatusPending:
		return true
	case StatusRejected:
		return w.AllowReversal
	}
	return false
}

func (w Workflow) CanReject(from Status) bool {
	switch from {
	case StatusPending:
		return true
	case StatusApproved:
		return w.AllowReversal
	}
	return false
}

// Approve moves e to Approved.
func (w Workflow) Approve(e *Entry, approverID string, at time.Time) error {
	if strings.TrimSpace(approverID) == "" {
		return &ValidationError{Field: "approved_by", Reason: "is required"}
	}
	if !w.CanApprove(e.Status) {
		return &TransitionError{EntryID: e.ID, From: e.Status, Action: "approve"}
	}

	approved := at
	e.Status = StatusApproved
	e.ApprovedBy = &approverID
	e.ApprovedOn = &approved
	e.RejectedBy = nil
	e.RejectedOn = nil
	e.RejectionReason = nil
	return nil
}

// Reject moves e to Rejected. The reason is mandatory.
func (w Workflow) Reject(e *Entry, rejecterID, reason string, at time.Time) error {
	if strings.TrimSpace(rejecterID) == "" {
		return &ValidationError{Field: "rejected_by", Reason: "is required"}
	}
	if strings.TrimSpace(reason) == "" {
		return &ValidationError{Field: "reason", Reason: "is required"}
	}
	if !w.CanReject(e.Status) {
		return &TransitionError{EntryID: e.ID, From: e.Status, Action: "reject"}
	}

	rejected := at
	e.Status = StatusRejected
	e.RejectedBy = &rejecterID
	e.RejectedOn = &rejected
	e.RejectionReason = &reason
	e.ApprovedBy = nil
	e.ApprovedOn = nil
	return nil
}

// ApproveAll approves every Pending entry in the batch and leaves the others
// untouched. Returns the approved entries.
func (w Workflow) ApproveAll(entries []*Entry, approverID string, at time.Time) ([]*Entry, error) {
	if strings.TrimSpace(approverID) == "" {
		return nil, &ValidationError{Field: "approved_by", Reason: "is required"}
	}
	var approved []*Entry
	for _, e := range entries {
		if e.Status != StatusPending {
			continue
		}
		if err := w.Approve(e, approverID, at); err != nil {
			return nil, err
		}
		approved = append(approved, e)
	}
	return approved, nil
}
