/**
 * @description
 * The Holder domain model: one recipient's payout attempt record within a
 * batch payout, with the retry bookkeeping mutated on every attempt outcome.
 *
 * @notes
 * - RetryCounter only ever increases; NextRetryAt is set only while the
 *   holder is RETRYING; LastError is cleared on SUCCESS.
 * - SUCCESS and FAILED are terminal. FAILED is reached once the retry budget
 *   is exhausted.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// HolderStatus is the payment state of one recipient within a batch payout.
type HolderStatus string

const (
	HolderStatusPending  HolderStatus = "PENDING"
	HolderStatusRetrying HolderStatus = "RETRYING"
	HolderStatusSuccess  HolderStatus = "SUCCESS"
	HolderStatusFailed   HolderStatus = "FAILED"
)

// Holder is a per-recipient payout attempt record owned by a BatchPayout.
type Holder struct {
	ID            uuid.UUID    `json:"id"`
	BatchPayoutID uuid.UUID    `json:"batch_payout_id"`
	HederaAddress string       `json:"holder_hedera_address"`
	EvmAddress    string       `json:"holder_evm_address"`
	RetryCounter  int          `json:"retry_counter"`
	Status        HolderStatus `json:"status"`
	LastError     *string      `json:"last_error,omitempty"`
	NextRetryAt   *time.Time   `json:"next_retry_at,omitempty"`
	Amount        string       `json:"amount"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// NewHolder builds a PENDING holder record for a batch being assembled.
func NewHolder(batchPayoutID uuid.UUID, hederaAddress, evmAddress, amount string) *Holder {
	now := time.Now().UTC()
	return &Holder{
		ID:            uuid.New(),
		BatchPayoutID: batchPayoutID,
		HederaAddress: hederaAddress,
		EvmAddress:    evmAddress,
		Status:        HolderStatusPending,
		Amount:        amount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkSucceeded records a successful payment. The error and retry schedule
// are cleared; SUCCESS is terminal.
func (h *Holder) MarkSucceeded(now time.Time) {
	h.Status = HolderStatusSuccess
	h.LastError = nil
	h.NextRetryAt = nil
	h.UpdatedAt = now
}

// MarkFailed records a failed payment attempt. The retry counter increments;
// while budget remains the holder moves to RETRYING with an exponential
// backoff schedule (baseDelay * 2^(attempts-1)), otherwise to terminal FAILED.
func (h *Holder) MarkFailed(reason string, now time.Time, baseDelay time.Duration, maxAttempts int) {
	h.RetryCounter++
	h.LastError = &reason
	h.UpdatedAt = now

	if h.RetryCounter >= maxAttempts {
		h.Status = HolderStatusFailed
		h.NextRetryAt = nil
		return
	}

	backoff := baseDelay << uint(h.RetryCounter-1)
	next := now.Add(backoff)
	h.Status = HolderStatusRetrying
	h.NextRetryAt = &next
}
