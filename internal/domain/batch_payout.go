/**
 * @description
 * The BatchPayout domain model. A batch payout groups the holder payments of
 * one distribution that were executed as a single on-chain transaction, and
 * tracks the aggregate outcome across those holders.
 *
 * @notes
 * - Field validation happens at construction time; a batch payout that fails
 *   validation is never persisted. Each violated field raises its own
 *   sentinel error rather than a generic one.
 */

package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// BatchPayoutStatus is the aggregate outcome of a batch payout.
type BatchPayoutStatus string

const (
	BatchPayoutStatusInProgress         BatchPayoutStatus = "IN_PROGRESS"
	BatchPayoutStatusPartiallyCompleted BatchPayoutStatus = "PARTIALLY_COMPLETED"
	BatchPayoutStatusCompleted          BatchPayoutStatus = "COMPLETED"
	BatchPayoutStatusFailed             BatchPayoutStatus = "FAILED"
)

var (
	// Hedera transaction ids look like "0.0.1234@1700000000.123456789".
	hederaTransactionIDPattern = regexp.MustCompile(`^\d+\.\d+\.\d+@\d+\.\d+$`)
	// Hedera transaction hashes are 48-byte SHA-384 digests, 0x-prefixed,
	// with two optional leading variant chars (96-98 hex chars total).
	hederaTransactionHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{96,98}$`)
)

// BatchPayout is one submitted on-chain batch transaction covering a set of
// holder payments for a distribution. It owns its Holders (cascade delete).
type BatchPayout struct {
	ID                    uuid.UUID         `json:"id"`
	DistributionID        uuid.UUID         `json:"distribution_id"`
	Name                  string            `json:"name"`
	HederaTransactionID   *string           `json:"hedera_transaction_id,omitempty"`
	HederaTransactionHash *string           `json:"hedera_transaction_hash,omitempty"`
	HoldersNumber         int               `json:"holders_number"`
	Status                BatchPayoutStatus `json:"status"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// NewBatchPayout builds an IN_PROGRESS batch payout for a submitted on-chain
// transaction. The transaction id and hash must match the Hedera formats and
// the holder count must be positive.
func NewBatchPayout(distributionID uuid.UUID, name, hederaTransactionID, hederaTransactionHash string, holdersNumber int) (*BatchPayout, error) {
	if distributionID == uuid.Nil {
		return nil, ErrBatchPayoutDistributionRequired
	}
	if !hederaTransactionIDPattern.MatchString(hederaTransactionID) {
		return nil, ErrInvalidHederaTransactionID
	}
	if !hederaTransactionHashPattern.MatchString(hederaTransactionHash) {
		return nil, ErrInvalidHederaTransactionHash
	}
	if holdersNumber <= 0 {
		return nil, ErrInvalidHoldersNumber
	}

	txID := hederaTransactionID
	txHash := hederaTransactionHash
	now := time.Now().UTC()
	return &BatchPayout{
		ID:                    uuid.New(),
		DistributionID:        distributionID,
		Name:                  name,
		HederaTransactionID:   &txID,
		HederaTransactionHash: &txHash,
		HoldersNumber:         holdersNumber,
		Status:                BatchPayoutStatusInProgress,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// NewFailedBatchPayout records a batch whose on-chain submission itself
// failed. No transaction id or hash exists in that case; no holder outcomes
// are recorded against it.
func NewFailedBatchPayout(distributionID uuid.UUID, name string, holdersNumber int) (*BatchPayout, error) {
	if distributionID == uuid.Nil {
		return nil, ErrBatchPayoutDistributionRequired
	}
	if holdersNumber <= 0 {
		return nil, ErrInvalidHoldersNumber
	}

	now := time.Now().UTC()
	return &BatchPayout{
		ID:             uuid.New(),
		DistributionID: distributionID,
		Name:           name,
		HoldersNumber:  holdersNumber,
		Status:         BatchPayoutStatusFailed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// AggregateBatchStatus derives the batch status from per-holder outcomes of
// a successfully submitted batch: COMPLETED when every holder succeeded,
// PARTIALLY_COMPLETED when at least one but not all did, IN_PROGRESS while
// nothing has succeeded yet (failed holders may still be retried).
func AggregateBatchStatus(succeeded, total int) BatchPayoutStatus {
	switch {
	case total > 0 && succeeded == total:
		return BatchPayoutStatusCompleted
	case succeeded > 0:
		return BatchPayoutStatusPartiallyCompleted
	default:
		return BatchPayoutStatusInProgress
	}
}
