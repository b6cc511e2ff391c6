package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phillip/campus-pay-go/config"
)

// email request payload for ZeptoMail API
type emailRequest struct {
	From     emailAddress  `json:"from"`
	To       []toRecipient `json:"to"`
	Subject  string        `json:"subject"`
	HtmlBody string        `json:"htmlbody"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type toRecipient struct {
	Email emailWithName `json:"email_address"`
}

type emailWithName struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// ZeptoMailer sends HTML mail through the ZeptoMail HTTP API.
type ZeptoMailer struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

func NewZeptoMailer(cfg config.EmailConfig, client *http.Client) *ZeptoMailer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &ZeptoMailer{apiURL: cfg.APIURL, apiKey: cfg.APIKey, from: cfg.From, client: client}
}

func (m *ZeptoMailer) Send(ctx context.Context, to, toName, subject, body string) error {
	payload := emailRequest{
		From:     emailAddress{Address: m.from},
		To:       []toRecipient{{Email: emailWithName{Address: to, Name: toName}}},
		Subject:  subject,
		HtmlBody: body,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("zeptomail API error: %s", resp.Status)
	}

	slog.Debug("Email sent", "to", to, "subject", subject)
	return nil
}
