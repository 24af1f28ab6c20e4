package jointaccount

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github/meridian/algo-wallet/internal/config"
)

// APIError is a non-2xx reply from the sign-request backend.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sign-request api error (%d): %s", e.StatusCode, e.Message)
}

// CreateSignRequestInput is the body of a proposal submission. The proposer
// may include signatures it already holds (its own, and those of co-located
// signers for sync proposals).
type CreateSignRequestInput struct {
	JointAddress        string         `json:"joint_account_address"`
	Proposer            string         `json:"proposer_address"`
	Type                Type           `json:"type"`
	RawTransactionLists [][]string     `json:"raw_transaction_lists"`
	Responses           []SignResponse `json:"responses,omitempty"`
}

// SignResponseInput is one participant's outcome submission.
type SignResponseInput struct {
	Outcome    Outcome  `json:"outcome"`
	Signatures []string `json:"signatures,omitempty"`
}

// SearchFilter narrows a sign-request search. Zero-value fields are not
// applied.
type SearchFilter struct {
	ParticipantAddresses []string `json:"participant_addresses,omitempty"`
	JointAddresses       []string `json:"joint_account_addresses,omitempty"`
	Status               Status   `json:"status,omitempty"`
}

// Client calls the joint-account sign-request endpoints of the mobile API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     zerolog.Logger

	metrics *Metrics
}

// NewClient creates a client from config.
func NewClient(cfg config.MobileAPIConfig, metrics *Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("mobile api base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "invalid mobile api base url")
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: cfg.RequestTimeout},
		log:     log.With().Str("component", "joint_account_client").Logger(),
		metrics: metrics,
	}, nil
}

// CreateSignRequest submits a new proposal and returns it with the
// server-assigned id, status and expiry.
func (c *Client) CreateSignRequest(ctx context.Context, input CreateSignRequestInput) (*Proposal, error) {
	var proposal Proposal
	err := c.do(ctx, "create", http.MethodPost, "/joint-accounts/sign-requests/", input, &proposal)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sign request")
	}

	c.log.Info().
		Str("sign_request_id", proposal.ID).
		Str("joint_address", proposal.JointAddress).
		Int("threshold", proposal.Threshold).
		Msg("Sign request created")

	return &proposal, nil
}

// GetSignRequest re-fetches a proposal by id.
func (c *Client) GetSignRequest(ctx context.Context, id string) (*Proposal, error) {
	var proposal Proposal
	err := c.do(ctx, "get", http.MethodGet, fmt.Sprintf("/joint-accounts/sign-requests/%s/", url.PathEscape(id)), nil, &proposal)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch sign request")
	}

	return &proposal, nil
}

// SubmitResponse records the participant's outcome on the proposal. Each
// participant may respond exactly once; the server echoes
// ErrDuplicateResponse otherwise.
func (c *Client) SubmitResponse(ctx context.Context, id string, participant string, input SignResponseInput) (*Proposal, error) {
	path := fmt.Sprintf("/joint-accounts/sign-requests/%s/responses/%s/",
		url.PathEscape(id), url.PathEscape(participant))

	var proposal Proposal
	if err := c.do(ctx, "respond", http.MethodPost, path, input, &proposal); err != nil {
		return nil, errors.Wrap(err, "failed to submit sign response")
	}

	c.log.Info().
		Str("sign_request_id", id).
		Str("participant", participant).
		Str("outcome", string(input.Outcome)).
		Msg("Sign response submitted")

	return &proposal, nil
}

// SearchSignRequests lists proposals matching the filter, with their
// transaction lists and current status.
func (c *Client) SearchSignRequests(ctx context.Context, filter SearchFilter) ([]*Proposal, error) {
	var result struct {
		Results []*Proposal `json:"results"`
	}
	if err := c.do(ctx, "search", http.MethodPost, "/joint-accounts/sign-requests/search/", filter, &result); err != nil {
		return nil, errors.Wrap(err, "failed to search sign requests")
	}

	return result.Results, nil
}

// do performs one API round trip and records it under the operation name.
func (c *Client) do(ctx context.Context, op string, method string, path string, body any, out any) error {
	err := c.roundTrip(ctx, method, path, body, out)
	c.metrics.observeRoundTrip(op, err)

	return err
}

func (c *Client) roundTrip(ctx context.Context, method string, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response body")
	}

	return nil
}

// apiError maps error replies to the proposal error taxonomy where the
// status code is unambiguous, and to *APIError otherwise.
func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return errors.Wrap(ErrProposalNotFound, apiErr.Message)
	case http.StatusConflict:
		return errors.Wrap(ErrDuplicateResponse, apiErr.Message)
	case http.StatusGone:
		return errors.Wrap(ErrProposalTerminal, apiErr.Message)
	}

	return apiErr
}
