package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"marketpulse/internal/pkg/config"
	"marketpulse/internal/pkg/errs"
)

type SMSChannel struct {
	gatewayURL string
	token      string
	client     *http.Client
}

func NewSMSChannel(cfg config.SMSConfig) *SMSChannel {
	return &SMSChannel{
		gatewayURL: cfg.GatewayURL,
		token:      cfg.APIToken,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

type smsRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send posts the message to the SMS gateway. The subject is folded into the
// text since short messages carry no subject line.
func (c *SMSChannel) Send(ctx context.Context, to, subject, body string) error {
	if c.gatewayURL == "" {
		return errs.New("sms gateway is not configured")
	}
	if to == "" {
		return errs.New("sms recipient is empty")
	}

	text := body
	if subject != "" {
		text = subject + "\n" + body
	}

	payload, err := json.Marshal(smsRequest{To: to, Text: text})
	if err != nil {
		return errs.Wrap(err, "failed to encode sms request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(payload))
	if err != nil {
		return errs.Wrap(err, "failed to build sms request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Wrap(err, "sms gateway request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.New(fmt.Sprintf("sms gateway returned status %d", resp.StatusCode))
	}
	return nil
}
