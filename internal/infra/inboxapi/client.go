package inboxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"inbox-triage-agent/internal/domain"
	"inbox-triage-agent/internal/domain/model"
	"inbox-triage-agent/internal/domain/ports/adapter"
	"inbox-triage-agent/internal/infra/retry"
)

// Compile-time assurance the client satisfies the port
var _ adapter.InboxAPIAdapter = (*Client)(nil)

// Client talks to the Job Copilot inbox API over an authenticated HTTP
// channel. Transport failures and 5xx responses are retried with backoff;
// 4xx responses are returned to the caller untouched.
type Client struct {
	base   string // e.g., http://localhost:3000/api/v1
	token  string
	client *http.Client
	policy retry.Policy
	log    *zerolog.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, maxRetries int, logger *zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("inbox api base url empty")
	}
	if token == "" {
		return nil, errors.New("inbox api token empty")
	}
	compLog := logger.With().Str("component", "InboxAPIClient").Logger()
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		token:  token,
		client: &http.Client{Timeout: timeout},
		policy: retry.Policy{MaxAttempts: maxRetries, InitialDelay: time.Second, MaxDelay: timeout},
		log:    &compLog,
	}, nil
}

// FetchMessages returns up to limit messages carrying the given
// classification. The response must be a JSON array of message objects;
// anything else is an APIError.
func (c *Client) FetchMessages(ctx context.Context, classification model.Label, limit int) ([]model.Message, error) {
	query := url.Values{}
	query.Set("classification", string(classification))
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.do(ctx, http.MethodGet, "/messages", query, nil)
	if err != nil {
		return nil, &APIError{Op: "fetch_messages", Err: err}
	}

	messages, err := decodeMessages(body)
	if err != nil {
		return nil, &APIError{Op: "fetch_messages", Err: err}
	}
	return messages, nil
}

// decodeMessages decodes the fetch body strictly: the top level must be a
// JSON array (null included is rejected), and every element must carry a
// positive id. A malformed element fails the whole batch rather than
// letting a zero-valued message through.
func decodeMessages(body []byte) ([]model.Message, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return nil, fmt.Errorf("API did not return a list of messages: %w", err)
	}
	if elems == nil {
		return nil, errors.New("API did not return a list of messages: got null")
	}

	messages := make([]model.Message, 0, len(elems))
	for i, e := range elems {
		var m model.Message
		if err := json.Unmarshal(e, &m); err != nil {
			return nil, fmt.Errorf("message at index %d: %w", i, err)
		}
		if m.ID <= 0 {
			return nil, fmt.Errorf("message at index %d has no id", i)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// ClaimMessage takes exclusive processing rights for a message. 404 means
// gone, 409 means another worker won the race; both are a plain false. A
// successful response without a parseable body is optimistically treated as
// claim granted.
func (c *Client) ClaimMessage(ctx context.Context, id int64) (bool, error) {
	body, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/messages/%d/claim", id), nil, nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			switch se.Code {
			case http.StatusNotFound:
				c.log.Info().Int64("message_id", id).Err(domain.ErrNotClaimable).Msg("message not claimable (404)")
			case http.StatusConflict:
				c.log.Info().Int64("message_id", id).Err(domain.ErrAlreadyClaimed).Msg("message already claimed")
			default:
				c.log.Warn().Int64("message_id", id).Int("status", se.Code).Str("body", se.Body).
					Msg("unexpected status when claiming")
			}
			return false, nil
		}
		return false, &APIError{Op: "claim_message", Err: err}
	}

	var resp model.ClaimResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return true, nil
	}
	return resp.TriageInProgress != nil && *resp.TriageInProgress, nil
}

// UpdateMessage writes the final classification back. Absent payload fields
// are omitted from the wire. Failure after retries is a hard error.
func (c *Client) UpdateMessage(ctx context.Context, id int64, payload model.UpdatePayload) error {
	if _, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/messages/%d", id), nil, payload); err != nil {
		return &APIError{Op: "update_message", Err: err}
	}
	return nil
}

// do performs one authenticated request under the shared retry policy and
// returns the response body of a 2xx answer. A 4xx response comes back as a
// *StatusError without further attempts.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = b
	}

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var respBody []byte
	err := retry.Do(ctx, c.policy, retryableAPIError, func(ctx context.Context) error {
		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}
		respBody = body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// retryableAPIError retries transport-level failures and 5xx responses only.
func retryableAPIError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}
