// Package velocity defines the heuristic antifraud data model (C3): flags,
// graded actions, and the evaluation context/result shapes.
package velocity

// Flag is an enumerated heuristic signal. Each flag carries a fixed score,
// configured alongside the scorer rather than hardcoded here (§9 Open
// Questions resolution: thresholds and per-flag scores are configuration).
type Flag string

const (
	FlagIPShortBurst       Flag = "IP_SHORT_BURST"
	FlagIPLongBurst        Flag = "IP_LONG_BURST"
	FlagSubjectUAMismatch  Flag = "SUBJECT_UA_MISMATCH"
	FlagDistinctPaths      Flag = "DISTINCT_PATHS"
	FlagInvoiceShortBurst  Flag = "INVOICE_SHORT_BURST"
	FlagPrecheckoutBurst   Flag = "PRECHECKOUT_BURST"
	FlagSuccessBurst       Flag = "SUCCESS_BURST"
)

// Action is one of the three graded antifraud outcomes.
type Action string

const (
	ActionLogOnly   Action = "LOG_ONLY"
	ActionSoftCap   Action = "SOFT_CAP"
	ActionHardBlock Action = "HARD_BLOCK"
)

// EventType discriminates the call site invoking the scorer, which in turn
// governs whether HARD_BLOCK may be returned (§4.2: only pre-capture).
type EventType string

const (
	EventInvoice     EventType = "invoice"
	EventPrecheckout EventType = "precheckout"
	EventSuccess     EventType = "success"
	EventWebhook     EventType = "webhook"
)

// PreCapture reports whether funds have not yet been captured for this event
// type — the only events allowed to carry a HARD_BLOCK verdict.
func (e EventType) PreCapture() bool {
	return e == EventInvoice || e == EventPrecheckout
}

// Context is the per-request input to Evaluate.
type Context struct {
	IP        string
	Subject   string
	Path      string
	UserAgent string
	EventType EventType
}

// Result is the scorer's verdict.
type Result struct {
	Flags  []Flag
	Action Action
}

// HasFlag reports whether flag is present in the result.
func (r Result) HasFlag(flag Flag) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
