package base

import "github.com/flowgate-io/flowcore/errs"

// ResultStatus is the outcome of a pass through the rule-check slots, per
// the explicit sum type of SPEC_FULL.md §9 (Admit / AdmitAfter / Block)
// rather than exceptions-as-control-flow.
type ResultStatus int

const (
	ResultStatusPass ResultStatus = iota
	ResultStatusBlocked
	// ResultStatusShouldWait is "admitted after sleeping WaitMs" — the
	// PriorityWaitException of spec.md §4.5/§7, admitted but flagged so
	// StatisticSlot records it as a borrowed pass (no thread-count bump).
	ResultStatusShouldWait
)

// TokenResult is the result object threaded through a SlotChain pass.
// RuleCheckSlots return a fresh struct (NewTokenResult*); the chain either
// resets the pooled ctx.RuleCheckResult to pass or replaces it with the
// first non-pass verdict.
type TokenResult struct {
	status   ResultStatus
	waitMs   int64
	blockErr *errs.BlockError
}

func NewTokenResultPass() *TokenResult {
	return &TokenResult{status: ResultStatusPass}
}

func (r *TokenResult) ResetToPass() {
	r.status = ResultStatusPass
	r.waitMs = 0
	r.blockErr = nil
}

func (r *TokenResult) BlockedWith(err *errs.BlockError) *TokenResult {
	r.status = ResultStatusBlocked
	r.blockErr = err
	r.waitMs = 0
	return r
}

func (r *TokenResult) ShouldWaitFor(waitMs int64) *TokenResult {
	r.status = ResultStatusShouldWait
	r.waitMs = waitMs
	r.blockErr = nil
	return r
}

// NewTokenResultBlocked builds a standalone blocked result, for
// RuleCheckSlots that construct their verdict outside the pooled
// ctx.RuleCheckResult (they return it directly from Check).
func NewTokenResultBlocked(err *errs.BlockError) *TokenResult {
	return (&TokenResult{}).BlockedWith(err)
}

// NewTokenResultShouldWait builds a standalone should-wait result.
func NewTokenResultShouldWait(waitMs int64) *TokenResult {
	return (&TokenResult{}).ShouldWaitFor(waitMs)
}

func (r *TokenResult) IsBlocked() bool     { return r.status == ResultStatusBlocked }
func (r *TokenResult) IsShouldWait() bool  { return r.status == ResultStatusShouldWait }
func (r *TokenResult) IsPass() bool        { return r.status == ResultStatusPass }
func (r *TokenResult) Status() ResultStatus { return r.status }
func (r *TokenResult) WaitMs() int64       { return r.waitMs }
func (r *TokenResult) BlockError() *errs.BlockError { return r.blockErr }
