/**
 * @description
 * Domain-level sentinel errors. Validation errors raised by entity
 * constructors abort the enclosing operation before anything is persisted;
 * the API layer maps them onto the HTTP error taxonomy.
 */

package domain

import "errors"

var (
	// Distribution validation.
	ErrInvalidPayoutSubtype = errors.New("invalid payout subtype")
	ErrExecuteAtRequired    = errors.New("execute_at is required for this payout subtype")
	ErrRecurrencyRequired   = errors.New("recurrency is required for recurring payouts")
	ErrInvalidRecurrency    = errors.New("invalid recurrency")
	ErrInvalidAmount        = errors.New("amount must be a positive decimal")
	ErrInvalidAmountType    = errors.New("invalid amount type")

	// Distribution lifecycle.
	ErrDistributionNotCancellable = errors.New("only scheduled distributions can be cancelled")

	// BatchPayout construction validation.
	ErrBatchPayoutDistributionRequired = errors.New("batch payout requires an owning distribution")
	ErrInvalidHederaTransactionID      = errors.New("invalid hedera transaction id")
	ErrInvalidHederaTransactionHash    = errors.New("invalid hedera transaction hash")
	ErrInvalidHoldersNumber            = errors.New("holders number must be positive")

	// Payout execution.
	ErrNoEligibleHolders = errors.New("distribution has no eligible holders")
	ErrAssetPaused       = errors.New("asset is paused on chain")
)
