package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleShortages() []models.MaterialShortage {
	return []models.MaterialShortage{{
		MaterialID:       10,
		Code:             "M1",
		Name:             "Steel sheet",
		CurrentStock:     decimal.NewFromInt(150),
		MinimumStock:     decimal.NewFromInt(10),
		Demand:           decimal.NewFromInt(200),
		ProjectedBalance: decimal.NewFromInt(-50),
	}}
}

func TestWebhookDispatcherPostsJSON(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewWebhookDispatcher(srv.URL, "#planning", time.Second)
	err := d.OnShortagesDetected(context.Background(), "Week 42", sampleShortages())
	require.NoError(t, err)

	assert.Equal(t, "#planning", got.Channel)
	assert.Equal(t, "Week 42", got.PlanName)
	require.Len(t, got.Shortages, 1)
	assert.True(t, got.Shortages[0].ProjectedBalance.Equal(decimal.NewFromInt(-50)))
	assert.Contains(t, got.Text, "M1 Steel sheet")
}

func TestWebhookDispatcherReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bot offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookDispatcher(srv.URL, "", time.Second).
		OnShortagesDetected(context.Background(), "Week 42", sampleShortages())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindDispatch))
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookDispatcherUnreachable(t *testing.T) {
	err := NewWebhookDispatcher("http://127.0.0.1:1/hook", "", 200*time.Millisecond).
		OnShortagesDetected(context.Background(), "Week 42", sampleShortages())
	assert.True(t, apperrors.IsKind(err, apperrors.KindDispatch))
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls int
	err   error
	panic bool
}

func (r *recordingDispatcher) OnShortagesDetected(ctx context.Context, planName string, shortages []models.MaterialShortage) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.panic {
		panic("boom")
	}
	return r.err
}

func waitFor(t *testing.T, a *Async) func() {
	var wg sync.WaitGroup
	wg.Add(1)
	a.done = wg.Done
	return func() {
		ch := make(chan struct{})
		go func() { wg.Wait(); close(ch) }()
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("dispatch did not finish")
		}
	}
}

func TestAsyncSwallowsFailures(t *testing.T) {
	for _, next := range []*recordingDispatcher{
		{err: errors.New("unreachable")},
		{panic: true},
	} {
		a := NewAsync(next, time.Second)
		wait := waitFor(t, a)

		a.Notify("Week 42", sampleShortages())
		wait()
		assert.Equal(t, 1, next.calls)
	}
}

func TestAsyncSkipsEmptyShortageList(t *testing.T) {
	next := &recordingDispatcher{}
	a := NewAsync(next, time.Second)

	a.Notify("Week 42", nil)
	a.Notify("Week 42", []models.MaterialShortage{})
	time.Sleep(20 * time.Millisecond)

	next.mu.Lock()
	defer next.mu.Unlock()
	assert.Zero(t, next.calls)

	var nilAsync *Async
	assert.NotPanics(t, func() { nilAsync.Notify("x", sampleShortages()) })
}

func TestFormatText(t *testing.T) {
	text := FormatText("Week 42", sampleShortages())
	assert.Contains(t, text, `plan "Week 42" (1 materials)`)
	assert.Contains(t, text, "projected -50 (min 10)")
}
