package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// gatedFetcher blocks each endpoint until its gate is released.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	body  map[string]string
}

func newGatedFetcher(body map[string]string) *gatedFetcher {
	gates := make(map[string]chan struct{}, len(body))
	for endpoint := range body {
		gates[endpoint] = make(chan struct{})
	}
	return &gatedFetcher{gates: gates, body: body}
}

func (f *gatedFetcher) release(endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.gates[endpoint])
}

func (f *gatedFetcher) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	f.mu.Lock()
	gate, ok := f.gates[endpoint]
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("unknown endpoint")
	}
	select {
	case <-gate:
		return []byte(f.body[endpoint]), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestPreviewSessionDiscardsStaleResults(t *testing.T) {
	fetcher := newGatedFetcher(map[string]string{
		"/slow-scalar": `{"value": 10}`,
		"/fast-series": `{"labels": ["a", "b"], "values": [1, 2]}`,
	})
	telemetry := &testTelemetry{}
	var seen []PreviewSnapshot
	var seenMu sync.Mutex
	session := NewPreviewSession(fetcher,
		WithPreviewTelemetry(telemetry),
		WithPreviewListener(func(s PreviewSnapshot) {
			seenMu.Lock()
			seen = append(seen, s)
			seenMu.Unlock()
		}),
	)

	first := session.Select(context.Background(), "/slow-scalar")
	second := session.Select(context.Background(), "/fast-series")
	if second <= first {
		t.Fatalf("expected increasing tickets, got %d then %d", first, second)
	}
	if state := session.Snapshot().State; state != PreviewFetching {
		t.Fatalf("expected fetching state, got %s", state)
	}

	fetcher.release("/fast-series")
	waitForState(t, session, PreviewReady)
	fetcher.release("/slow-scalar")
	session.Wait()

	snap := session.Snapshot()
	if snap.Preview.Endpoint != "/fast-series" {
		t.Fatalf("expected latest endpoint to win, got %s", snap.Preview.Endpoint)
	}
	if snap.Preview.Classification.Shape != ShapeCategorical {
		t.Fatalf("expected categorical classification, got %+v", snap.Preview.Classification)
	}
	if snap.Ticket != second {
		t.Fatalf("expected ticket %d, got %d", second, snap.Ticket)
	}
	if !telemetry.has("dashboard.preview.stale_dropped") {
		t.Fatalf("expected stale drop telemetry, got %v", telemetry.events)
	}
	seenMu.Lock()
	defer seenMu.Unlock()
	for _, s := range seen {
		if s.Preview.Endpoint == "/slow-scalar" && s.State == PreviewReady {
			t.Fatalf("stale result leaked to listener: %+v", s)
		}
	}
}

func TestPreviewSessionTimeoutFails(t *testing.T) {
	fetcher := newGatedFetcher(map[string]string{"/never": `{}`})
	session := NewPreviewSession(fetcher, WithPreviewTimeout(20*time.Millisecond))
	session.Select(context.Background(), "/never")
	session.Wait()

	snap := session.Snapshot()
	if snap.State != PreviewFailed {
		t.Fatalf("expected failed state, got %s", snap.State)
	}
	if snap.Preview.Available || len(snap.Preview.Classification.AllowedTypes) != len(AllChartTypes()) {
		t.Fatalf("expected unavailable classification, got %+v", snap.Preview)
	}
	if err := session.Confirm(ChartRadar); err != nil {
		t.Fatalf("expected any type to be confirmable after failure, got %v", err)
	}
}

func TestPreviewSessionConfirmAndSubmit(t *testing.T) {
	fetcher := DataFetcherFunc(func(context.Context, string) ([]byte, error) {
		return []byte(`{"value": 3}`), nil
	})
	session := NewPreviewSession(fetcher)
	session.Choose(ChartPie)

	if _, err := session.Submit(); !errors.Is(err, errPreviewNotConfirm) {
		t.Fatalf("expected submit before confirm to fail, got %v", err)
	}
	session.Select(context.Background(), "/revenue")
	session.Wait()

	snap := session.Snapshot()
	if snap.State != PreviewReady || snap.SelectedType != ChartNumber {
		t.Fatalf("expected ready with number preselected, got %+v", snap)
	}
	if err := session.Confirm(ChartBar); !errors.Is(err, errPreviewNotAllowed) {
		t.Fatalf("expected disallowed type error, got %v", err)
	}
	if err := session.Confirm(ChartNumber); err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	final, err := session.Submit()
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if final.State != PreviewSubmitted || final.SelectedType != ChartNumber {
		t.Fatalf("unexpected final snapshot: %+v", final)
	}
}

func TestPreviewSessionConfirmWhileFetching(t *testing.T) {
	fetcher := newGatedFetcher(map[string]string{"/x": `{"value": 1}`})
	session := NewPreviewSession(fetcher)
	session.Select(context.Background(), "/x")
	if err := session.Confirm(ChartNumber); !errors.Is(err, errPreviewNotReady) {
		t.Fatalf("expected not ready error, got %v", err)
	}
	fetcher.release("/x")
	session.Wait()
}

func TestFetchPreviewWithoutFetcher(t *testing.T) {
	preview := FetchPreview(context.Background(), nil, "/x", 0)
	if preview.Available || preview.Error == "" {
		t.Fatalf("expected unavailable preview with error, got %+v", preview)
	}
}

func waitForState(t *testing.T, session *PreviewSession, state PreviewState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if session.Snapshot().State == state {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, got %s", state, session.Snapshot().State)
}

func TestPreviewSessionApply(t *testing.T) {
	session := NewPreviewSession(RegistryFetcher{Registry: NewRegistry()})
	ctx := context.Background()

	snap, err := session.Apply(ctx, PreviewCommand{Action: PreviewActionSelect, Endpoint: DataPathPrefix + "sales_by_category"})
	if err != nil || snap.State != PreviewFetching {
		t.Fatalf("unexpected select result %+v (%v)", snap, err)
	}
	session.Wait()
	if _, err := session.Apply(ctx, PreviewCommand{Action: PreviewActionChoose, Type: ChartPie}); err != nil {
		t.Fatalf("choose returned error: %v", err)
	}
	if _, err := session.Apply(ctx, PreviewCommand{Action: PreviewActionConfirm, Type: ChartNumber}); err == nil {
		t.Fatalf("expected number to be rejected for categorical data")
	}
	if _, err := session.Apply(ctx, PreviewCommand{Action: PreviewActionConfirm, Type: ChartPie}); err != nil {
		t.Fatalf("confirm returned error: %v", err)
	}
	snap, err = session.Apply(ctx, PreviewCommand{Action: PreviewActionSubmit})
	if err != nil || snap.State != PreviewSubmitted || snap.SelectedType != ChartPie {
		t.Fatalf("unexpected submit result %+v (%v)", snap, err)
	}
	if _, err := session.Apply(ctx, PreviewCommand{Action: "dance"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPreviewSessionListenerNeverEndsOnStaleResult(t *testing.T) {
	fetcher := newGatedFetcher(map[string]string{
		"/a": `{"value": 1}`,
		"/b": `{"labels": ["x"], "values": [2]}`,
	})
	fetcher.release("/a")

	stalled := make(chan struct{})
	resume := make(chan struct{})
	var stallOnce sync.Once
	var mu sync.Mutex
	var last PreviewSnapshot
	session := NewPreviewSession(fetcher, WithPreviewListener(func(s PreviewSnapshot) {
		if s.Preview.Endpoint == "/a" && s.State == PreviewReady {
			stallOnce.Do(func() {
				close(stalled)
				<-resume
			})
		}
		mu.Lock()
		last = s
		mu.Unlock()
	}))

	session.Select(context.Background(), "/a")
	<-stalled

	selected := make(chan struct{})
	go func() {
		session.Select(context.Background(), "/b")
		close(selected)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for session.Snapshot().Preview.Endpoint != "/b" {
		if time.Now().After(deadline) {
			t.Fatalf("second selection never started")
		}
		time.Sleep(time.Millisecond)
	}
	fetcher.release("/b")
	time.Sleep(20 * time.Millisecond)
	close(resume)

	<-selected
	session.Wait()

	mu.Lock()
	defer mu.Unlock()
	if last.Preview.Endpoint != "/b" || last.State != PreviewReady {
		t.Fatalf("listener ended on %s/%s, want /b/ready", last.Preview.Endpoint, last.State)
	}
	if snap := session.Snapshot(); snap.Ticket != last.Ticket {
		t.Fatalf("listener ticket %d differs from session ticket %d", last.Ticket, snap.Ticket)
	}
}
