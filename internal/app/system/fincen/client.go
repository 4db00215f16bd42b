// Package fincen is a client for the FinCEN BOIR e-filing API. Every call
// carries an OAuth2 client-credentials bearer token.
package fincen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Sandbox endpoints.
const (
	SandboxBaseURL  = "https://boiefiling-api.user-test.fincen.gov/preprod"
	SandboxTokenURL = "https://iam.fincen.gov/am/oauth2/realms/root/realms/Finance/access_token"
	SandboxScope    = "BOSS-EFILE-SANDBOX"
)

// ErrNotConfigured is returned when no client credentials are set.
var ErrNotConfigured = errors.New("FinCEN API is not configured")

// Config holds API credentials and endpoints. Empty URLs use the sandbox.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string
	Scope        string
}

// Status is the submission state reported by FinCEN.
type Status struct {
	ProcessID        string `json:"processId"`
	SubmissionStatus string `json:"submissionStatus"`
	BOIRID           string `json:"BOIRID,omitempty"`
	FinCENID         string `json:"fincenID,omitempty"`
	Errors           []struct {
		ErrorCode string `json:"ErrorCode"`
		ErrorText string `json:"ErrorText"`
	} `json:"errors,omitempty"`
}

// Terminal submission statuses.
const (
	StatusAccepted = "submission_accepted"
	StatusRejected = "submission_rejected"
)

// Accepted reports whether FinCEN accepted the report.
func (s *Status) Accepted() bool { return s.SubmissionStatus == StatusAccepted }

// Rejected reports whether FinCEN rejected the report.
func (s *Status) Rejected() bool { return s.SubmissionStatus == StatusRejected }

// APIError is a non-2xx API response.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fincen %s: %d %s", e.Op, e.Status, e.Body)
}

// Client calls the e-filing API. A nil Client answers every call with
// ErrNotConfigured.
type Client struct {
	base string
	http *http.Client
}

// New builds a Client whose HTTP transport fetches and refreshes tokens.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = SandboxTokenURL
	}
	if cfg.Scope == "" {
		cfg.Scope = SandboxScope
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       []string{cfg.Scope},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	base := &http.Client{Timeout: 30 * time.Second}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	hc := cc.Client(ctx)
	hc.Timeout = 60 * time.Second
	return &Client{base: strings.TrimRight(cfg.BaseURL, "/"), http: hc}, nil
}

// RequestProcessID starts a submission and returns its process id.
func (c *Client) RequestProcessID(ctx context.Context) (string, error) {
	var out struct {
		ProcessID string `json:"processId"`
	}
	if err := c.call(ctx, "processId", http.MethodGet, "/processId", "", nil, &out); err != nil {
		return "", err
	}
	if out.ProcessID == "" {
		return "", errors.New("fincen processId: empty response")
	}
	return out.ProcessID, nil
}

// UploadAttachment sends one identifying document image. partyID is the
// SeqNum of the party element the image belongs to.
func (c *Client) UploadAttachment(ctx context.Context, processID string, partyID int, fileName, contentType string, r io.Reader) error {
	path := fmt.Sprintf("/attachment/%s/%d/%s", url.PathEscape(processID), partyID, url.PathEscape(fileName))
	return c.call(ctx, "attachment", http.MethodPost, path, contentType, r, nil)
}

// UploadXML sends the BOIR document and returns the status FinCEN reports.
func (c *Client) UploadXML(ctx context.Context, processID, fileName string, xml []byte) (*Status, error) {
	path := fmt.Sprintf("/upload/BOIR/%s/%s", url.PathEscape(processID), url.PathEscape(fileName))
	var st Status
	if err := c.call(ctx, "upload", http.MethodPost, path, "application/xml", bytes.NewReader(xml), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Status fetches the state of a submission.
func (c *Client) Status(ctx context.Context, processID string) (*Status, error) {
	var st Status
	if err := c.call(ctx, "submissionStatus", http.MethodGet, "/submissionStatus/"+url.PathEscape(processID), "", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) call(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	if c == nil {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fincen %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &APIError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("fincen %s: decode: %w", op, err)
	}
	return nil
}
