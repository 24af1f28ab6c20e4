// Package algod is a minimal client for the node endpoints the wallet
// needs: suggested transaction parameters, raw transaction submission and a
// health probe.
package algod

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/meridian/algo-wallet/internal/config"
	"github/meridian/algo-wallet/internal/txn"
)

const tokenHeader = "X-Algo-API-Token" //nolint:gosec

// NetworkError is a non-2xx reply from the node.
type NetworkError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("node error (%d): %s", e.StatusCode, e.Message)
}

// Client talks to one algod node.
type Client struct {
	baseURL     string
	token       string
	roundWindow uint64
	httpc       *http.Client
	log         zerolog.Logger
}

// NewClient creates a client from config.
func NewClient(cfg config.AlgodConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("algod url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, errors.Wrap(err, "invalid algod url")
	}

	return &Client{
		baseURL:     cfg.URL,
		token:       cfg.Token,
		roundWindow: cfg.RoundWindow,
		httpc:       &http.Client{Timeout: cfg.RequestTimeout},
		log:         log.With().Str("component", "algod_client").Logger(),
	}, nil
}

// suggestedParamsResponse mirrors GET /v2/transactions/params.
type suggestedParamsResponse struct {
	ConsensusVersion string `json:"consensus-version"`
	Fee              uint64 `json:"fee"`
	GenesisHash      string `json:"genesis-hash"`
	GenesisID        string `json:"genesis-id"`
	LastRound        uint64 `json:"last-round"`
	MinFee           uint64 `json:"min-fee"`
}

// SuggestedParams fetches the current network parameters and derives the
// validity window: first valid at the node's last round, last valid one
// round window later.
func (c *Client) SuggestedParams(ctx context.Context) (*txn.Params, error) {
	var resp suggestedParamsResponse
	if err := c.get(ctx, "/v2/transactions/params", &resp); err != nil {
		return nil, errors.Wrap(err, "failed to fetch suggested params")
	}

	genesisHash, err := base64.StdEncoding.DecodeString(resp.GenesisHash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid genesis hash in params")
	}

	return &txn.Params{
		FeePerByte:  resp.Fee,
		MinFee:      resp.MinFee,
		FirstValid:  resp.LastRound,
		LastValid:   resp.LastRound + c.roundWindow,
		GenesisID:   resp.GenesisID,
		GenesisHash: genesisHash,
	}, nil
}

// SubmitRawTransaction posts signed transaction bytes and returns the
// assigned transaction id. Group submissions concatenate their envelopes
// into a single body.
func (c *Client) SubmitRawTransaction(ctx context.Context, raw []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transactions", bytes.NewReader(raw))
	if err != nil {
		return "", errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/x-binary")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "submit request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", c.nodeError(resp)
	}

	var body struct {
		TxID string `json:"txId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "failed to decode submit response")
	}

	c.log.Info().Str("tx_id", body.TxID).Int("bytes", len(raw)).Msg("Transaction submitted")

	return body.TxID, nil
}

// Health probes the node; nil means reachable and ready.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "health request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.nodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return c.nodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response body")
	}

	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set(tokenHeader, c.token)
	}
}

func (c *Client) nodeError(resp *http.Response) error {
	nodeErr := &NetworkError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(nodeErr); err != nil {
		nodeErr.Message = http.StatusText(resp.StatusCode)
	}

	return nodeErr
}
