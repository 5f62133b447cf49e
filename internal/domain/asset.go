/**
 * @description
 * The Asset domain model: a local mirror of a tokenized asset living on
 * chain. The mirror is refreshed from chain truth by the on-chain sync
 * before scheduled processing runs.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Asset mirrors an on-chain security token that distributions reference.
type Asset struct {
	ID                 uuid.UUID `json:"id"`
	HederaTokenAddress string    `json:"hedera_token_address"`
	EvmAddress         string    `json:"evm_address"`
	Name               string    `json:"name"`
	Symbol             string    `json:"symbol"`
	Decimals           int       `json:"decimals"`
	Paused             bool      `json:"paused"`
	CashFlowContractID string    `json:"cash_flow_contract_id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
