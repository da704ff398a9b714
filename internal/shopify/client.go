package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/stockflow/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrRemoteCallFailed is returned when a request still fails after the
// configured number of attempts. It wraps the last error seen, including the
// response body when one was received.
var ErrRemoteCallFailed = errors.New("shopify request failed after retries")

// GraphQLError is one entry of the error envelope in a GraphQL response
type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLResponse is the raw result of an Admin API query
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// Client executes queries against the Shopify Admin GraphQL API with bounded
// retry. A failed attempt (transport error, non-2xx status, or an error
// envelope inside a 200 response) is retried up to MaxAttempts times with a
// linear backoff of attempt*BaseDelay between tries. The client holds no
// per-request state and is safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	apiVersion     string
	maxAttempts    int
	baseDelay      time.Duration
	attemptTimeout time.Duration

	// baseURL replaces the shop-derived endpoint when set; used by tests.
	baseURL string
}

// NewClient creates a new Shopify Admin API client
func NewClient(cfg config.ShopifyConfig) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	attemptTimeout := cfg.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = 10 * time.Second
	}

	return &Client{
		httpClient:     &http.Client{},
		apiVersion:     cfg.APIVersion,
		maxAttempts:    maxAttempts,
		baseDelay:      baseDelay,
		attemptTimeout: attemptTimeout,
	}
}

func (c *Client) endpoint(shop string) string {
	if c.baseURL != "" {
		return fmt.Sprintf("%s/admin/api/%s/graphql.json", c.baseURL, c.apiVersion)
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, c.apiVersion)
}

// Execute runs a GraphQL query for a shop, retrying failed attempts. The
// error from the final attempt is propagated; nothing is swallowed at this
// layer.
func (c *Client) Execute(ctx context.Context, shop, token, query string, variables map[string]interface{}) (*GraphQLResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		response, err := c.do(ctx, shop, token, query, variables)
		if err == nil {
			return response, nil
		}
		lastErr = err

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("shop", shop).
			Msg("Shopify request attempt failed")

		if attempt == c.maxAttempts {
			break
		}

		// Linear backoff: wait attempt*baseDelay before the next try
		select {
		case <-time.After(time.Duration(attempt) * c.baseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, errors.Wrapf(ErrRemoteCallFailed, "after %d attempts: %v", c.maxAttempts, lastErr)
}

// do performs a single attempt with its own timeout
func (c *Client) do(ctx context.Context, shop, token, query string, variables map[string]interface{}) (*GraphQLResponse, error) {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request body")
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.endpoint(shop), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "transport error")
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("unexpected status %d: %s", res.StatusCode, payload)
	}

	var response GraphQLResponse
	if err := json.Unmarshal(payload, &response); err != nil {
		return nil, errors.Wrap(err, "malformed response body")
	}

	if len(response.Errors) > 0 {
		detail, _ := json.Marshal(response.Errors)
		return nil, errors.Errorf("graphql errors: %s", detail)
	}

	return &response, nil
}

const orderNameQuery = `
query ($id: ID!) {
  order(id: $id) {
    id
    name
  }
}`

// FetchOrderName looks up the display name of an order (for example "#1001")
func (c *Client) FetchOrderName(ctx context.Context, shop, token, orderID string) (string, error) {
	response, err := c.Execute(ctx, shop, token, orderNameQuery, map[string]interface{}{"id": orderID})
	if err != nil {
		return "", err
	}

	var data struct {
		Order *struct {
			Name string `json:"name"`
		} `json:"order"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		return "", errors.Wrap(err, "failed to decode order payload")
	}
	if data.Order == nil || data.Order.Name == "" {
		return "", errors.Errorf("order %s not found", orderID)
	}

	return data.Order.Name, nil
}
