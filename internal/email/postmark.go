package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const postmarkURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint, used in tests.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

// NewClient creates a Postmark email client. baseURL is the public URL of
// the app, used for links in email bodies.
func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      postmarkURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set. Email is optional;
// callers skip sending when unconfigured.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendPartnerInvite notifies someone that requesterName asked them to be an
// accountability partner.
func (c *Client) SendPartnerInvite(toEmail, requesterName string) error {
	subject := fmt.Sprintf("%s wants you as an accountability partner", requesterName)
	link := fmt.Sprintf("%s/partners", c.baseURL)
	textBody := fmt.Sprintf(
		"%s invited you to be their accountability partner on Pledge.\n\nSign in to accept:\n\n%s",
		requesterName, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>%s invited you to be their accountability partner on Pledge.</p><p><a href="%s">Sign in to accept</a></p>`,
		requesterName, link,
	)
	return c.send(toEmail, subject, htmlBody, textBody)
}

// SendWelcome greets a freshly registered user.
func (c *Client) SendWelcome(toEmail, name string) error {
	subject := "Welcome to Pledge"
	textBody := fmt.Sprintf(
		"Hi %s,\n\nYour account is ready. Check in every day to build your streak.\n\n%s",
		name, c.baseURL,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your account is ready. Check in every day to build your streak.</p><p><a href="%s">Open Pledge</a></p>`,
		name, c.baseURL,
	)
	return c.send(toEmail, subject, htmlBody, textBody)
}

func (c *Client) send(toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
