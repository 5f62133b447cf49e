/**
 * @description
 * This package provides a client for the Hedera mirror node REST API. It
 * fetches contract log entries emitted after a given consensus timestamp and
 * decodes ERC-20 style Transfer logs into chain events for the payout
 * pipeline.
 *
 * @dependencies
 * - context, encoding/json, fmt, math/big, net/http, net/url, strings, time: Standard Go libraries.
 * - internal/domain: For the decoded ChainEvent shape.
 */

package mirrornode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tokenstudio/mass-payout-service/internal/domain"
)

// transferTopic is keccak256("Transfer(address,address,uint256)").
const transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

const maxLogPages = 20

// Client is a client for the Hedera mirror node REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new mirror node client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// contractLogsResponse mirrors GET /api/v1/contracts/{id}/results/logs.
type contractLogsResponse struct {
	Logs  []contractLog `json:"logs"`
	Links struct {
		Next *string `json:"next"`
	} `json:"links"`
}

type contractLog struct {
	Address   string   `json:"address"`
	Data      string   `json:"data"`
	Topics    []string `json:"topics"`
	Timestamp string   `json:"timestamp"`
}

// FetchTransferEvents returns all Transfer events logged by the contract
// strictly after the `since` consensus timestamp, following pagination links
// in consensus order. A non-empty mirrorNodeURL overrides the client's
// default base URL, so a persisted listener config can repoint the fetch
// without a restart.
func (c *Client) FetchTransferEvents(ctx context.Context, mirrorNodeURL, contractID, since string) ([]domain.ChainEvent, error) {
	base := strings.TrimRight(mirrorNodeURL, "/")
	if base == "" {
		base = c.BaseURL
	}
	path := fmt.Sprintf("/api/v1/contracts/%s/results/logs?order=asc&limit=100&timestamp=gt:%s",
		url.PathEscape(contractID), url.QueryEscape(since))

	var events []domain.ChainEvent
	for page := 0; path != "" && page < maxLogPages; page++ {
		body, err := c.get(ctx, base+path)
		if err != nil {
			return nil, err
		}

		var resp contractLogsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode mirror node logs: %w", err)
		}

		for _, lg := range resp.Logs {
			if ev, ok := decodeTransferLog(lg); ok {
				events = append(events, ev)
			}
		}

		path = ""
		if resp.Links.Next != nil {
			path = *resp.Links.Next
		}
	}
	return events, nil
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mirror node request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mirror node returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// decodeTransferLog turns a raw contract log into a ChainEvent when it is an
// ERC-20 Transfer. The from/to addresses sit in topics 1 and 2 as left-padded
// 32-byte words; the value is the ABI-encoded data word.
func decodeTransferLog(lg contractLog) (domain.ChainEvent, bool) {
	if len(lg.Topics) < 3 || !strings.EqualFold(lg.Topics[0], transferTopic) {
		return domain.ChainEvent{}, false
	}

	value, ok := decodeHexWord(lg.Data)
	if !ok {
		return domain.ChainEvent{}, false
	}

	return domain.ChainEvent{
		Name:      domain.TransferEventName,
		Timestamp: lg.Timestamp,
		From:      wordToAddress(lg.Topics[1]),
		To:        wordToAddress(lg.Topics[2]),
		Value:     value.String(),
	}, true
}

func decodeHexWord(data string) (*big.Int, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(data), "0x")
	if hex == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(hex, 16)
	return v, ok
}

func wordToAddress(word string) string {
	hex := strings.TrimPrefix(strings.TrimSpace(word), "0x")
	if len(hex) > 40 {
		hex = hex[len(hex)-40:]
	}
	return "0x" + strings.ToLower(hex)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
