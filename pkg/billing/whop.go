package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WhopConfig holds configuration for the Whop billing provider.
type WhopConfig struct {
	APIKey  string        `env:"WHOP_API_KEY,required"`
	AppID   string        `env:"WHOP_APP_ID"`
	BaseURL string        `env:"WHOP_API_BASE_URL" envDefault:"https://api.whop.com/v1"`
	Timeout time.Duration `env:"WHOP_HTTP_TIMEOUT" envDefault:"15s"`
}

// WhopProvider implements Provider against the Whop HTTP API.
type WhopProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewWhopProvider creates a Whop billing provider.
func NewWhopProvider(cfg WhopConfig, opts ...WhopOption) (*WhopProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	p := &WhopProvider{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// WhopOption configures the provider beyond what WhopConfig covers.
type WhopOption func(*WhopProvider)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) WhopOption {
	return func(p *WhopProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// inlinePlan is the plan definition embedded in a one-time checkout
// configuration. Whop expects the price as a decimal in major units and the
// currency as a lowercase code.
type inlinePlan struct {
	CompanyID    string `json:"company_id"`
	InitialPrice string `json:"initial_price"`
	Currency     string `json:"currency"`
	PlanType     string `json:"plan_type"`
}

type checkoutConfigurationRequest struct {
	Plan     *inlinePlan `json:"plan,omitempty"`
	PlanID   string      `json:"plan_id,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

// CreateOneTimeCheckout creates a checkout configuration with an inline
// one-time plan priced per book.
func (p *WhopProvider) CreateOneTimeCheckout(ctx context.Context, req OneTimeCheckoutRequest) (*CheckoutConfig, error) {
	if req.CompanyID == "" || req.BookID == "" || req.UserID == "" {
		return nil, errors.Join(ErrRequestFailed, errors.New("company, book and user IDs are required"))
	}

	body := checkoutConfigurationRequest{
		Plan: &inlinePlan{
			CompanyID:    req.CompanyID,
			InitialPrice: formatMinorUnits(req.Amount),
			Currency:     strings.ToLower(req.Currency),
			PlanType:     "one_time",
		},
		Metadata: Metadata{
			BookID:    req.BookID,
			UserID:    req.UserID,
			CompanyID: req.CompanyID,
		},
	}

	var out CheckoutConfig
	if err := p.post(ctx, "/checkout_configurations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubscriptionCheckout creates a checkout configuration against the
// pre-configured recurring plan. The metadata type marks the resulting
// payment events as subscription payments.
func (p *WhopProvider) CreateSubscriptionCheckout(ctx context.Context, req SubscriptionCheckoutRequest) (*CheckoutConfig, error) {
	if req.CompanyID == "" || req.PlanID == "" {
		return nil, errors.Join(ErrRequestFailed, errors.New("company and plan IDs are required"))
	}

	body := checkoutConfigurationRequest{
		PlanID: req.PlanID,
		Metadata: Metadata{
			Type:      MetadataTypeSubscription,
			CompanyID: req.CompanyID,
			UserID:    req.UserID,
		},
	}

	var out CheckoutConfig
	if err := p.post(ctx, "/checkout_configurations", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrieveCompany fetches a company record by ID.
func (p *WhopProvider) RetrieveCompany(ctx context.Context, companyID string) (*Company, error) {
	if companyID == "" {
		return nil, errors.Join(ErrRequestFailed, errors.New("company ID is required"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/companies/"+companyID, nil)
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}
	p.authorize(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrCompanyNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var company Company
	if err := json.NewDecoder(resp.Body).Decode(&company); err != nil {
		return nil, errors.Join(ErrUnexpectedResponse, err)
	}
	return &company, nil
}

func (p *WhopProvider) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	p.authorize(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(ErrUnexpectedResponse, err)
	}
	return nil
}

func (p *WhopProvider) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
}

func statusError(resp *http.Response) error {
	// Cap the body read so a misbehaving endpoint cannot balloon error logs.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return errors.Join(ErrUnexpectedResponse,
		fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
}

// formatMinorUnits renders minor units as the decimal string Whop expects,
// e.g. 590 -> "5.90".
func formatMinorUnits(amount int64) string {
	neg := ""
	if amount < 0 {
		neg = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", neg, amount/100, amount%100)
}
