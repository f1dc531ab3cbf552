package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/stoqhq/stoq-backend/internal/config"
)

// Mailer delivers transactional email through an HTTP API.
type Mailer interface {
	SendVerificationEmail(to, name, token string) error
}

type httpMailer struct {
	httpClient  *http.Client
	apiURL      string
	apiKey      string
	from        string
	frontendURL string
}

func New(cfg *config.Config) Mailer {
	return &httpMailer{
		httpClient:  &http.Client{Timeout: cfg.MailTimeout},
		apiURL:      cfg.MailAPIURL,
		apiKey:      cfg.MailAPIKey,
		from:        cfg.MailFrom,
		frontendURL: cfg.FrontendURL,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *httpMailer) SendVerificationEmail(to, name, token string) error {
	link := m.frontendURL + "/verify-email?token=" + token
	req := sendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: "Verify your Stoq account",
		HTML: "<p>Hi " + name + ",</p>" +
			"<p>Welcome to Stoq. Please confirm your email address to activate your account:</p>" +
			"<p><a href=\"" + link + "\">Verify email</a></p>" +
			"<p>This link expires in 24 hours.</p>",
	}
	return m.send(&req)
}

func (m *httpMailer) send(req *sendRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	httpReq, err := http.NewRequest("POST", m.apiURL, bytes.NewBuffer(b))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email provider error: status %d", resp.StatusCode)
	}
	return nil
}
