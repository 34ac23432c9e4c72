package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/suPer8Hu/assist-platform/internal/tenant"
)

// SMSChannel posts the message to an SMS/WhatsApp gateway webhook.
type SMSChannel struct {
	url    string
	client *http.Client
}

func NewSMSChannel(url string, timeout time.Duration) *SMSChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SMSChannel{url: url, client: &http.Client{Timeout: timeout}}
}

func (*SMSChannel) Name() string { return tenant.ChannelSMS }

type smsReq struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

func (s *SMSChannel) Send(ctx context.Context, n Notification) error {
	if n.Phone == "" {
		return errors.New("no notification phone configured")
	}
	body, err := json.Marshal(smsReq{To: n.Phone, Body: n.Text()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
