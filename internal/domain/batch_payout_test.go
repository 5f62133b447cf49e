package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

const (
	validTxID   = "0.0.5432@1756700000.123456789"
	validTxHash = "0x" + "ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56"
)

func TestNewBatchPayoutValidation(t *testing.T) {
	distributionID := uuid.New()

	tests := []struct {
		name    string
		distID  uuid.UUID
		txID    string
		txHash  string
		holders int
		wantErr error
	}{
		{name: "valid", distID: distributionID, txID: validTxID, txHash: validTxHash, holders: 3},
		{name: "missing distribution", distID: uuid.Nil, txID: validTxID, txHash: validTxHash, holders: 3, wantErr: ErrBatchPayoutDistributionRequired},
		{name: "malformed tx id", distID: distributionID, txID: "0.0.5432-1756700000", txHash: validTxHash, holders: 3, wantErr: ErrInvalidHederaTransactionID},
		{name: "tx hash missing prefix", distID: distributionID, txID: validTxID, txHash: strings.TrimPrefix(validTxHash, "0x"), holders: 3, wantErr: ErrInvalidHederaTransactionHash},
		{name: "tx hash too short", distID: distributionID, txID: validTxID, txHash: "0xabc123", holders: 3, wantErr: ErrInvalidHederaTransactionHash},
		{name: "zero holders", distID: distributionID, txID: validTxID, txHash: validTxHash, holders: 0, wantErr: ErrInvalidHoldersNumber},
		{name: "negative holders", distID: distributionID, txID: validTxID, txHash: validTxHash, holders: -1, wantErr: ErrInvalidHoldersNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch, err := NewBatchPayout(tt.distID, "march dividend", tt.txID, tt.txHash, tt.holders)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if batch.Status != BatchPayoutStatusInProgress {
				t.Fatalf("expected IN_PROGRESS, got %s", batch.Status)
			}
			if batch.HederaTransactionID == nil || *batch.HederaTransactionID != tt.txID {
				t.Fatal("transaction id not carried")
			}
			if batch.HederaTransactionHash == nil || *batch.HederaTransactionHash != tt.txHash {
				t.Fatal("transaction hash not carried")
			}
		})
	}
}

func TestNewBatchPayoutAcceptsVariantHashLengths(t *testing.T) {
	for _, extra := range []string{"", "a", "ab"} {
		hash := validTxHash + extra
		if _, err := NewBatchPayout(uuid.New(), "b", validTxID, hash, 1); err != nil {
			t.Fatalf("hash of %d hex chars rejected: %v", len(hash)-2, err)
		}
	}
}

func TestNewFailedBatchPayout(t *testing.T) {
	batch, err := NewFailedBatchPayout(uuid.New(), "april dividend", 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Status != BatchPayoutStatusFailed {
		t.Fatalf("expected FAILED, got %s", batch.Status)
	}
	if batch.HederaTransactionID != nil || batch.HederaTransactionHash != nil {
		t.Fatal("failed submission must not carry transaction identifiers")
	}

	if _, err := NewFailedBatchPayout(uuid.Nil, "x", 1); !errors.Is(err, ErrBatchPayoutDistributionRequired) {
		t.Fatalf("expected ErrBatchPayoutDistributionRequired, got %v", err)
	}
	if _, err := NewFailedBatchPayout(uuid.New(), "x", 0); !errors.Is(err, ErrInvalidHoldersNumber) {
		t.Fatalf("expected ErrInvalidHoldersNumber, got %v", err)
	}
}

func TestAggregateBatchStatus(t *testing.T) {
	tests := []struct {
		name      string
		succeeded int
		total     int
		want      BatchPayoutStatus
	}{
		{name: "all succeeded", succeeded: 5, total: 5, want: BatchPayoutStatusCompleted},
		{name: "some succeeded", succeeded: 2, total: 5, want: BatchPayoutStatusPartiallyCompleted},
		{name: "none succeeded yet", succeeded: 0, total: 5, want: BatchPayoutStatusInProgress},
		{name: "single holder success", succeeded: 1, total: 1, want: BatchPayoutStatusCompleted},
		{name: "empty batch", succeeded: 0, total: 0, want: BatchPayoutStatusInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateBatchStatus(tt.succeeded, tt.total); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
