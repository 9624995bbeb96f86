package httpsink

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/integrations/notifier"
	"github.com/SIRI-bit-tech/courier-web/internal/models"
	"github.com/pkg/errors"
)

// Client delivers notifications through the external delivery service's HTTP
// API. The service owns retries and actual SMTP/SMS dispatch; we only map its
// responses onto the sink failure kinds.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sinkResponse struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) Notify(ctx context.Context, n notifier.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(models.ErrSinkUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 5 {
		return errors.Wrapf(models.ErrSinkUnavailable, "sink http %d", resp.StatusCode)
	}

	var out sinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return errors.Wrap(models.ErrSinkUnavailable, "decode sink response")
	}

	if resp.StatusCode/100 != 2 || out.Status == "failed" {
		switch out.Code {
		case "recipient_invalid":
			return errors.Wrap(models.ErrRecipientInvalid, out.Error)
		case "template_error":
			return errors.Wrap(models.ErrTemplateError, out.Error)
		default:
			return errors.Wrapf(models.ErrSink, "sink rejected: %s", out.Error)
		}
	}
	return nil
}
