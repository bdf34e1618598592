// Package alerts delivers material shortage notifications to people who can
// act on them. Delivery never affects the plan edit that triggered it.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/metrics"
	"factory-backend/internal/models"
)

// Dispatcher receives the shortages computed after a plan create or update
type Dispatcher interface {
	OnShortagesDetected(ctx context.Context, planName string, shortages []models.MaterialShortage) error
}

// Message is the JSON body posted to the webhook
type Message struct {
	Channel   string                    `json:"channel,omitempty"`
	Text      string                    `json:"text"`
	PlanName  string                    `json:"plan_name"`
	Shortages []models.MaterialShortage `json:"shortages"`
	SentAt    time.Time                 `json:"sent_at"`
}

// FormatText renders the human-readable summary used by every channel
func FormatText(planName string, shortages []models.MaterialShortage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Material shortage for plan %q (%d materials)\n", planName, len(shortages))
	for _, s := range shortages {
		fmt.Fprintf(&b, "- %s %s: stock %s, demand %s, projected %s (min %s)\n",
			s.Code, s.Name, s.CurrentStock, s.Demand, s.ProjectedBalance, s.MinimumStock)
	}
	return strings.TrimRight(b.String(), "\n")
}

// WebhookDispatcher posts shortages to a chat-bot style webhook
type WebhookDispatcher struct {
	url     string
	channel string
	client  *http.Client
}

func NewWebhookDispatcher(url, channel string, timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{
		url:     url,
		channel: channel,
		client:  &http.Client{Timeout: timeout},
	}
}

func (d *WebhookDispatcher) OnShortagesDetected(ctx context.Context, planName string, shortages []models.MaterialShortage) error {
	body, err := json.Marshal(Message{
		Channel:   d.channel,
		Text:      FormatText(planName, shortages),
		PlanName:  planName,
		Shortages: shortages,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return apperrors.Dispatch(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Dispatch(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return apperrors.Dispatch(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.Dispatch(fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}
	return nil
}

// LogDispatcher writes shortages to the log. Used when no webhook is configured.
type LogDispatcher struct{}

func (LogDispatcher) OnShortagesDetected(_ context.Context, planName string, shortages []models.MaterialShortage) error {
	log.Printf("[Alerts] %s", FormatText(planName, shortages))
	return nil
}

// Async runs a Dispatcher off the caller's goroutine with its own timeout.
// Failures are logged and counted; they never reach the caller.
type Async struct {
	next    Dispatcher
	timeout time.Duration
	done    func() // test hook, called after each delivery attempt
}

func NewAsync(next Dispatcher, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Async{next: next, timeout: timeout}
}

// Notify hands the shortages to the wrapped dispatcher and returns at once
func (a *Async) Notify(planName string, shortages []models.MaterialShortage) {
	if a == nil || a.next == nil || len(shortages) == 0 {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Alerts] Dispatcher panicked for plan %q: %v", planName, r)
				metrics.AlertDispatchFailuresTotal.Inc()
			}
			if a.done != nil {
				a.done()
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.OnShortagesDetected(ctx, planName, shortages); err != nil {
			log.Printf("[Alerts] Failed to dispatch %d shortages for plan %q: %v", len(shortages), planName, apperrors.Dispatch(err))
			metrics.AlertDispatchFailuresTotal.Inc()
		}
	}()
}
