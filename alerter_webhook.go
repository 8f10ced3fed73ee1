package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type WebhookAlerter struct {
	webhookURL    string
	hmacSecret    string
	customHeaders map[string]string
}

func NewWebhookAlerter(webhookURL, hmacSecret string, customHeaders map[string]string) *WebhookAlerter {
	return &WebhookAlerter{
		webhookURL:    webhookURL,
		hmacSecret:    hmacSecret,
		customHeaders: customHeaders,
	}
}

type webhookRequestPayload struct {
	Event       string  `json:"event"`
	Host        string  `json:"host"`
	Message     string  `json:"message"`
	LossPercent float64 `json:"loss_percent"`
	Timestamp   string  `json:"timestamp"`
}

func (w *WebhookAlerter) Send(ctx context.Context, alert AlertMessage) error {
	requestBody, err := json.Marshal(webhookRequestPayload{
		Event:       string(alert.Kind),
		Host:        alert.Target,
		Message:     fmt.Sprintf("Alert for %s: %s at %s", alert.Target, alert.Reason, alert.OccurredAt.Format(time.RFC3339)),
		LossPercent: alert.LossPercent,
		Timestamp:   alert.OccurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	var signature string
	if w.hmacSecret != "" {
		signer := hmac.New(sha256.New, []byte(w.hmacSecret))
		signer.Write(requestBody)
		signature = fmt.Sprintf("%x", signer.Sum(nil))
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(requestBody))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", "kestrel-webhook/1.0")
	for key, value := range w.customHeaders {
		request.Header.Set(key, value)
	}
	if signature != "" {
		request.Header.Set("X-Signature", signature)
	}

	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return err
	}
	defer func() {
		if response.Body != nil {
			_ = response.Body.Close()
		}
	}()
	if response.StatusCode == http.StatusTooManyRequests {
		return ErrAlerterRateLimited
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("%w: received non-2xx response code %d", ErrAlerterDropped, response.StatusCode)
	}

	return nil
}
