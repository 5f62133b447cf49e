/**
 * @description
 * This package provides a client for the custodial Hedera gateway that
 * fronts the asset-tokenization contracts. It encapsulates the HTTP calls
 * for address resolution, token metadata and pause-state queries, companion
 * contract deployment, batch payout submission and single-holder payments.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */

package hederaclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a client for the custodial Hedera gateway API.
type Client struct {
	BaseURL    string
	APIKey     string
	OperatorID string
	HTTPClient *http.Client
}

// NewClient creates a new Hedera gateway client.
func NewClient(baseURL, apiKey, operatorID string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		OperatorID: operatorID,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// TokenMetadata is the on-chain metadata of a security token.
type TokenMetadata struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// TokenHolder is one current holder of a token with its balance in base units.
type TokenHolder struct {
	HederaAddress string `json:"hedera_address"`
	EvmAddress    string `json:"evm_address"`
	Balance       string `json:"balance"`
}

// HolderPayment is one recipient instruction inside a batch payout.
type HolderPayment struct {
	HolderHederaAddress string `json:"holder_hedera_address"`
	HolderEvmAddress    string `json:"holder_evm_address"`
	Amount              string `json:"amount"`
}

// BatchPayoutRequest submits one on-chain transaction paying many holders.
type BatchPayoutRequest struct {
	TokenEvmAddress    string          `json:"token_evm_address"`
	PayoutTokenAddress string          `json:"payout_token_address"`
	Memo               string          `json:"memo"`
	Payments           []HolderPayment `json:"payments"`
}

// HolderOutcome is the per-recipient result reported for a submitted batch.
type HolderOutcome struct {
	HolderEvmAddress string `json:"holder_evm_address"`
	Succeeded        bool   `json:"succeeded"`
	Error            string `json:"error,omitempty"`
}

// BatchPayoutResult is the gateway's response to a batch payout submission.
type BatchPayoutResult struct {
	TransactionID   string          `json:"transaction_id"`
	TransactionHash string          `json:"transaction_hash"`
	Outcomes        []HolderOutcome `json:"outcomes"`
}

// CorporateActionRequest executes a corporate action against the token's
// life-cycle-cash-flow contract.
type CorporateActionRequest struct {
	TokenEvmAddress string `json:"token_evm_address"`
	Amount          string `json:"amount"`
	Memo            string `json:"memo"`
}

// TransactionResult carries the identifiers of a confirmed transaction.
type TransactionResult struct {
	TransactionID   string `json:"transaction_id"`
	TransactionHash string `json:"transaction_hash"`
}

// ResolveEvmAddress translates a Hedera token address (shard.realm.num) to
// its EVM address.
func (c *Client) ResolveEvmAddress(ctx context.Context, hederaTokenAddress string) (string, error) {
	var out struct {
		EvmAddress string `json:"evm_address"`
	}
	path := "/v1/tokens/" + url.PathEscape(hederaTokenAddress) + "/evm-address"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", err
	}
	return out.EvmAddress, nil
}

// GetTokenMetadata fetches name, symbol and decimals from the token contract.
func (c *Client) GetTokenMetadata(ctx context.Context, tokenEvmAddress string) (*TokenMetadata, error) {
	var out TokenMetadata
	path := "/v1/tokens/" + url.PathEscape(tokenEvmAddress) + "/metadata"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsPaused queries the token's on-chain pause state.
func (c *Client) IsPaused(ctx context.Context, tokenEvmAddress string) (bool, error) {
	var out struct {
		Paused bool `json:"paused"`
	}
	path := "/v1/tokens/" + url.PathEscape(tokenEvmAddress) + "/paused"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Paused, nil
}

// DeployLifeCycleCashFlow deploys the companion life-cycle-cash-flow
// contract for the token and returns its contract id.
func (c *Client) DeployLifeCycleCashFlow(ctx context.Context, tokenEvmAddress string) (string, error) {
	payload := map[string]string{
		"token_evm_address": tokenEvmAddress,
		"operator_id":       c.OperatorID,
	}
	var out struct {
		ContractID string `json:"contract_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/contracts/life-cycle-cash-flow", payload, &out); err != nil {
		return "", err
	}
	return out.ContractID, nil
}

// GetTokenHolders returns the token's current holder set with balances.
func (c *Client) GetTokenHolders(ctx context.Context, tokenEvmAddress string) ([]TokenHolder, error) {
	var out struct {
		Holders []TokenHolder `json:"holders"`
	}
	path := "/v1/tokens/" + url.PathEscape(tokenEvmAddress) + "/holders"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Holders, nil
}

// SubmitBatchPayout submits one transaction paying all requested holders and
// waits for the gateway's confirmation, which includes per-holder outcomes.
func (c *Client) SubmitBatchPayout(ctx context.Context, req BatchPayoutRequest) (*BatchPayoutResult, error) {
	var out BatchPayoutResult
	if err := c.do(ctx, http.MethodPost, "/v1/payouts/batch", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PayHolder re-attempts a single holder payment; used by the retry sweep.
func (c *Client) PayHolder(ctx context.Context, tokenEvmAddress string, payment HolderPayment) error {
	payload := struct {
		TokenEvmAddress string        `json:"token_evm_address"`
		Payment         HolderPayment `json:"payment"`
	}{tokenEvmAddress, payment}
	return c.do(ctx, http.MethodPost, "/v1/payouts/holder", payload, nil)
}

// ExecuteCorporateAction runs a corporate action through the token's
// life-cycle-cash-flow contract.
func (c *Client) ExecuteCorporateAction(ctx context.Context, req CorporateActionRequest) (*TransactionResult, error) {
	var out TransactionResult
	if err := c.do(ctx, http.MethodPost, "/v1/corporate-actions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("hedera gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hedera gateway returned %d for %s %s: %s", resp.StatusCode, method, path, snippet(raw))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode hedera gateway response: %w", err)
	}
	return nil
}

func snippet(raw []byte) string {
	s := string(raw)
	if len(s) > 200 {
		s = s[:200]
	}
	return strings.TrimSpace(s)
}
