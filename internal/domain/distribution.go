/**
 * @description
 * This file defines the Distribution domain model and its factory functions.
 * A Distribution represents a disbursement obligation for a tokenized asset:
 * either a payout of funds to the asset's holders or a corporate action
 * executed against the asset's life-cycle-cash-flow contract.
 *
 * @notes
 * - Monetary amounts are carried as decimal strings to avoid floating-point
 *   inaccuracies; arithmetic on them is done with math/big.
 * - The distribution type (PAYOUT vs CORPORATE_ACTION) is fixed at creation
 *   time and never mutated afterwards; it selects the execution strategy.
 */

package domain

import (
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DistributionStatus is the lifecycle state of a Distribution.
type DistributionStatus string

const (
	DistributionStatusScheduled DistributionStatus = "SCHEDULED"
	DistributionStatusCompleted DistributionStatus = "COMPLETED"
	DistributionStatusCancelled DistributionStatus = "CANCELLED"
	DistributionStatusFailed    DistributionStatus = "FAILED"
)

// DistributionType selects the execution strategy for a Distribution.
type DistributionType string

const (
	DistributionTypePayout          DistributionType = "PAYOUT"
	DistributionTypeCorporateAction DistributionType = "CORPORATE_ACTION"
)

// PayoutSubtype refines PAYOUT distributions by how they are triggered.
type PayoutSubtype string

const (
	PayoutSubtypeImmediate PayoutSubtype = "IMMEDIATE"
	PayoutSubtypeOneOff    PayoutSubtype = "ONE_OFF"
	PayoutSubtypeRecurring PayoutSubtype = "RECURRING"
	PayoutSubtypeAutomated PayoutSubtype = "AUTOMATED"
)

// AmountType states how a Distribution's amount is interpreted.
type AmountType string

const (
	// AmountTypeFixed is a total amount split across holders pro rata by balance.
	AmountTypeFixed AmountType = "FIXED"
	// AmountTypePerUnit is an amount paid per whole token unit held.
	AmountTypePerUnit AmountType = "PER_UNIT"
)

// Recurrency is the repeat interval of a RECURRING payout.
type Recurrency string

const (
	RecurrencyDaily     Recurrency = "DAILY"
	RecurrencyWeekly    Recurrency = "WEEKLY"
	RecurrencyMonthly   Recurrency = "MONTHLY"
	RecurrencyQuarterly Recurrency = "QUARTERLY"
	RecurrencyYearly    Recurrency = "YEARLY"
)

// Distribution is a scheduled or triggered disbursement obligation for an asset.
// The asset is referenced, not owned; batch payouts belonging to the
// distribution are owned and cascade-deleted with it.
type Distribution struct {
	ID            uuid.UUID           `json:"id"`
	AssetID       uuid.UUID           `json:"asset_id"`
	Status        DistributionStatus  `json:"status"`
	Type          DistributionType    `json:"type"`
	PayoutSubtype *PayoutSubtype      `json:"payout_subtype,omitempty"`
	ExecuteAt     *time.Time          `json:"execute_at,omitempty"`
	Recurrency    *Recurrency         `json:"recurrency,omitempty"`
	Amount        string              `json:"amount"`
	AmountType    AmountType          `json:"amount_type"`
	Concept       string              `json:"concept"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewPayoutDistribution builds a PAYOUT distribution for the given subtype,
// enforcing the per-subtype scheduling requirements:
// ONE_OFF and RECURRING require an execution time, RECURRING additionally
// requires a recurrency, IMMEDIATE and AUTOMATED take neither.
func NewPayoutDistribution(assetID uuid.UUID, subtype PayoutSubtype, executeAt *time.Time, recurrency *Recurrency, amount string, amountType AmountType, concept string) (*Distribution, error) {
	switch subtype {
	case PayoutSubtypeImmediate, PayoutSubtypeAutomated:
		executeAt = nil
		recurrency = nil
	case PayoutSubtypeOneOff:
		if executeAt == nil {
			return nil, ErrExecuteAtRequired
		}
		recurrency = nil
	case PayoutSubtypeRecurring:
		if executeAt == nil {
			return nil, ErrExecuteAtRequired
		}
		if recurrency == nil {
			return nil, ErrRecurrencyRequired
		}
		if !recurrency.valid() {
			return nil, ErrInvalidRecurrency
		}
	default:
		return nil, ErrInvalidPayoutSubtype
	}

	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if err := validateAmountType(amountType); err != nil {
		return nil, err
	}

	st := subtype
	now := time.Now().UTC()
	return &Distribution{
		ID:            uuid.New(),
		AssetID:       assetID,
		Status:        DistributionStatusScheduled,
		Type:          DistributionTypePayout,
		PayoutSubtype: &st,
		ExecuteAt:     executeAt,
		Recurrency:    recurrency,
		Amount:        strings.TrimSpace(amount),
		AmountType:    amountType,
		Concept:       concept,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// NewCorporateActionDistribution builds a CORPORATE_ACTION distribution.
// Corporate actions are always scheduled against an execution time.
func NewCorporateActionDistribution(assetID uuid.UUID, executeAt time.Time, amount string, amountType AmountType, concept string) (*Distribution, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	if err := validateAmountType(amountType); err != nil {
		return nil, err
	}

	at := executeAt
	now := time.Now().UTC()
	return &Distribution{
		ID:         uuid.New(),
		AssetID:    assetID,
		Status:     DistributionStatusScheduled,
		Type:       DistributionTypeCorporateAction,
		ExecuteAt:  &at,
		Amount:     strings.TrimSpace(amount),
		AmountType: amountType,
		Concept:    concept,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// NextOccurrence returns the successor execution time of a RECURRING
// distribution, or false when the distribution does not recur.
func (d *Distribution) NextOccurrence() (time.Time, bool) {
	if d.Recurrency == nil || d.ExecuteAt == nil {
		return time.Time{}, false
	}
	at := *d.ExecuteAt
	switch *d.Recurrency {
	case RecurrencyDaily:
		return at.AddDate(0, 0, 1), true
	case RecurrencyWeekly:
		return at.AddDate(0, 0, 7), true
	case RecurrencyMonthly:
		return at.AddDate(0, 1, 0), true
	case RecurrencyQuarterly:
		return at.AddDate(0, 3, 0), true
	case RecurrencyYearly:
		return at.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

func (r Recurrency) valid() bool {
	switch r {
	case RecurrencyDaily, RecurrencyWeekly, RecurrencyMonthly, RecurrencyQuarterly, RecurrencyYearly:
		return true
	default:
		return false
	}
}

func validateAmount(amount string) error {
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(amount))
	if !ok || rat.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateAmountType(t AmountType) error {
	switch t {
	case AmountTypeFixed, AmountTypePerUnit:
		return nil
	default:
		return ErrInvalidAmountType
	}
}
