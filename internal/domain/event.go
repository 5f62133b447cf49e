/**
 * @description
 * Chain event and event-listener configuration models, plus the consensus
 * timestamp helpers used by the blockchain event processor.
 *
 * @notes
 * - Consensus timestamps are "seconds.nanoseconds" strings of variable
 *   length. Comparing them lexicographically is wrong ("99.5" > "100.1"),
 *   so all ordering goes through numeric comparison with math/big, which
 *   keeps full nanosecond precision where float64 would not.
 */

package domain

import (
	"math/big"
	"strings"
	"time"
)

// TransferEventName is the only chain event name relevant to payouts.
const TransferEventName = "Transfer"

// ChainEvent is one event fetched from the mirror node, already decoded.
// Value is a decimal string in the token's base units.
type ChainEvent struct {
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
}

// IsRelevantTransfer reports whether the event is a Transfer moving a
// positive value; anything else is ignored by the payout pipeline.
func (e ChainEvent) IsRelevantTransfer() bool {
	if e.Name != TransferEventName {
		return false
	}
	v, ok := new(big.Rat).SetString(strings.TrimSpace(e.Value))
	return ok && v.Sign() > 0
}

// ListenerConfig is the single-row configuration of the blockchain event
// listener. StartTimestamp is the monotonic cursor: the consensus timestamp
// of the last event window already processed. MirrorNodeURL, ContractID and
// StartTimestamp steer the fetch; TokenDecimals is informational only, since
// payout amount math always uses the decimals stored on the asset row.
type ListenerConfig struct {
	MirrorNodeURL  string    `json:"mirror_node_url"`
	ContractID     string    `json:"contract_id"`
	TokenDecimals  int       `json:"token_decimals"`
	StartTimestamp string    `json:"start_timestamp"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MergeListenerConfig overlays a persisted listener config over defaults,
// field by field; empty persisted fields keep the default.
func MergeListenerConfig(defaults ListenerConfig, persisted *ListenerConfig) ListenerConfig {
	if persisted == nil {
		return defaults
	}
	merged := defaults
	if persisted.MirrorNodeURL != "" {
		merged.MirrorNodeURL = persisted.MirrorNodeURL
	}
	if persisted.ContractID != "" {
		merged.ContractID = persisted.ContractID
	}
	if persisted.TokenDecimals != 0 {
		merged.TokenDecimals = persisted.TokenDecimals
	}
	if persisted.StartTimestamp != "" {
		merged.StartTimestamp = persisted.StartTimestamp
	}
	return merged
}

// CompareTimestamps orders two consensus timestamp strings numerically.
// It returns -1, 0 or 1. Unparseable values sort lowest so a corrupt
// candidate can never advance the cursor.
func CompareTimestamps(a, b string) int {
	ra, okA := new(big.Rat).SetString(strings.TrimSpace(a))
	rb, okB := new(big.Rat).SetString(strings.TrimSpace(b))
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	default:
		return ra.Cmp(rb)
	}
}

// MaxTimestamp returns the numerically greater of two consensus timestamps.
func MaxTimestamp(a, b string) string {
	if CompareTimestamps(a, b) >= 0 {
		return a
	}
	return b
}
