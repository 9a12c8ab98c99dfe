package rail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks to a payment gateway exposing a small JSON API.
type HTTPClient struct {
	baseUrl    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPClient(baseUrl, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseUrl:    baseUrl,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (rc *HTTPClient) CreateUpstreamPayment(ctx context.Context, req PaymentIntentRequest) (*UpstreamPayment, error) {
	payload := new(bytes.Buffer)
	if err := json.NewEncoder(payload).Encode(req); err != nil {
		return nil, err
	}
	result := &UpstreamPayment{}
	err := rc.Request(ctx, http.MethodPost, "/v1/payments", payload, result)
	if err != nil {
		return nil, err
	}
	if result.UpstreamRequestID == "" {
		return nil, fmt.Errorf("rail: response for request %s has no upstream id", req.RequestID)
	}
	return result, nil
}

func (rc *HTTPClient) CheckStatus(ctx context.Context, upstreamRequestID string) (*StatusResult, error) {
	result := &StatusResult{}
	err := rc.Request(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(upstreamRequestID)+"/status", nil, result)
	if err != nil {
		return nil, err
	}
	switch result.Status {
	case StatusPending, StatusVerified, StatusRejected:
		return result, nil
	default:
		return nil, fmt.Errorf("rail: unexpected status %q for %s", result.Status, upstreamRequestID)
	}
}

func (rc *HTTPClient) Request(ctx context.Context, method, endpoint string, body io.Reader, response interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, rc.baseUrl+endpoint, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if rc.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+rc.apiKey)
	}
	resp, err := rc.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrUnknownPayment
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rail: bad http response status code %d for request %s: %s", resp.StatusCode, httpReq.URL, msg)
	}
	return json.NewDecoder(resp.Body).Decode(response)
}
