package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultPreviewTimeout bounds a single data endpoint fetch.
const DefaultPreviewTimeout = 5 * time.Second

// PreviewState tracks an add/edit chart form.
type PreviewState string

const (
	PreviewIdle      PreviewState = "idle"
	PreviewFetching  PreviewState = "fetching"
	PreviewReady     PreviewState = "ready"
	PreviewFailed    PreviewState = "failed"
	PreviewConfirmed PreviewState = "confirmed"
	PreviewSubmitted PreviewState = "submitted"
)

var (
	errPreviewNotReady   = errors.New("dashboard: preview is still loading")
	errPreviewNotAllowed = errors.New("dashboard: chart type not allowed for endpoint")
	errPreviewNotConfirm = errors.New("dashboard: preview must be confirmed before submit")
)

// Preview is the outcome of fetching and classifying a data endpoint.
type Preview struct {
	Endpoint       string         `json:"endpoint"`
	Available      bool           `json:"available"`
	Classification Classification `json:"classification"`
	Payload        any            `json:"payload,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// FetchPreview fetches endpoint with the given timeout and classifies the
// response. Fetch errors, timeouts and non-JSON bodies produce an unavailable
// preview instead of an error.
func FetchPreview(ctx context.Context, fetcher DataFetcher, endpoint string, timeout time.Duration) Preview {
	preview := Preview{Endpoint: endpoint, Classification: Unavailable()}
	if fetcher == nil {
		preview.Error = "no data fetcher configured"
		return preview
	}
	if timeout <= 0 {
		timeout = DefaultPreviewTimeout
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := fetcher.Fetch(fetchCtx, endpoint)
	if err != nil {
		preview.Error = err.Error()
		return preview
	}
	payload, err := decodePayload(raw)
	if err != nil {
		preview.Error = fmt.Sprintf("decode preview: %v", err)
		return preview
	}
	preview.Available = true
	preview.Payload = payload
	preview.Classification = Classify(payload)
	return preview
}

// PreviewSnapshot is a point-in-time copy of a session.
type PreviewSnapshot struct {
	State        PreviewState `json:"state"`
	Ticket       uint64       `json:"ticket"`
	Preview      Preview      `json:"preview"`
	SelectedType ChartType    `json:"selectedType,omitempty"`
}

// PreviewSession drives the preview state machine of one chart form. Every
// Select supersedes earlier ones: results of older fetches are discarded when
// they complete, even if they finish last.
type PreviewSession struct {
	fetcher   DataFetcher
	timeout   time.Duration
	telemetry Telemetry
	onChange  func(PreviewSnapshot)

	mu       sync.Mutex
	ticket   uint64
	version  uint64
	state    PreviewState
	preview  Preview
	selected ChartType
	inflight sync.WaitGroup

	// notifyMu orders listener calls; delivered is the last version handed out.
	notifyMu  sync.Mutex
	delivered uint64
}

// PreviewOption customizes a PreviewSession.
type PreviewOption func(*PreviewSession)

// WithPreviewTimeout overrides DefaultPreviewTimeout.
func WithPreviewTimeout(timeout time.Duration) PreviewOption {
	return func(s *PreviewSession) {
		s.timeout = timeout
	}
}

// WithPreviewTelemetry records stale drops and failures.
func WithPreviewTelemetry(t Telemetry) PreviewOption {
	return func(s *PreviewSession) {
		s.telemetry = normalizeTelemetry(t)
	}
}

// WithPreviewListener receives accepted state changes in order. The listener
// runs synchronously and must not drive the session itself.
func WithPreviewListener(fn func(PreviewSnapshot)) PreviewOption {
	return func(s *PreviewSession) {
		s.onChange = fn
	}
}

// NewPreviewSession builds an idle session.
func NewPreviewSession(fetcher DataFetcher, opts ...PreviewOption) *PreviewSession {
	s := &PreviewSession{
		fetcher:   fetcher,
		timeout:   DefaultPreviewTimeout,
		telemetry: noopTelemetry{},
		state:     PreviewIdle,
		preview:   Preview{Classification: Unavailable()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select starts fetching a preview for endpoint and returns the ticket that
// identifies the request. The fetch runs in the background.
func (s *PreviewSession) Select(ctx context.Context, endpoint string) uint64 {
	s.mu.Lock()
	s.ticket++
	ticket := s.ticket
	s.state = PreviewFetching
	s.preview = Preview{Endpoint: endpoint, Classification: Unavailable()}
	snapshot, version := s.changedLocked()
	s.inflight.Add(1)
	s.mu.Unlock()

	s.notify(snapshot, version)

	go func() {
		defer s.inflight.Done()
		result := FetchPreview(ctx, s.fetcher, endpoint, s.timeout)
		s.complete(ctx, ticket, result)
	}()
	return ticket
}

func (s *PreviewSession) complete(ctx context.Context, ticket uint64, result Preview) {
	s.mu.Lock()
	if ticket != s.ticket {
		current := s.ticket
		s.mu.Unlock()
		s.telemetry.Record(ctx, "dashboard.preview.stale_dropped", map[string]any{
			"endpoint": result.Endpoint,
			"ticket":   ticket,
			"current":  current,
		})
		return
	}
	s.preview = result
	if result.Available {
		s.state = PreviewReady
		s.selected = result.Classification.Resolve(s.selected)
	} else {
		s.state = PreviewFailed
	}
	snapshot, version := s.changedLocked()
	s.mu.Unlock()

	if !result.Available {
		s.telemetry.Record(ctx, "dashboard.preview.unavailable", map[string]any{
			"endpoint": result.Endpoint,
			"error":    result.Error,
		})
	}
	s.notify(snapshot, version)
}

// Choose records the user's chart type selection while the form is open.
func (s *PreviewSession) Choose(t ChartType) {
	s.mu.Lock()
	s.selected = t
	s.mu.Unlock()
}

// Confirm accepts the current preview with the given chart type.
func (s *PreviewSession) Confirm(t ChartType) error {
	s.mu.Lock()
	if s.state != PreviewReady && s.state != PreviewFailed {
		s.mu.Unlock()
		return errPreviewNotReady
	}
	if !s.preview.Classification.Allows(t) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", errPreviewNotAllowed, t)
	}
	s.selected = t
	s.state = PreviewConfirmed
	snapshot, version := s.changedLocked()
	s.mu.Unlock()
	s.notify(snapshot, version)
	return nil
}

// Submit marks a confirmed session as submitted and returns its final snapshot.
func (s *PreviewSession) Submit() (PreviewSnapshot, error) {
	s.mu.Lock()
	if s.state != PreviewConfirmed {
		s.mu.Unlock()
		return PreviewSnapshot{}, errPreviewNotConfirm
	}
	s.state = PreviewSubmitted
	snapshot, version := s.changedLocked()
	s.mu.Unlock()
	s.notify(snapshot, version)
	return snapshot, nil
}

// Snapshot returns the current session state.
func (s *PreviewSession) Snapshot() PreviewSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until every fetch started so far has settled.
func (s *PreviewSession) Wait() {
	s.inflight.Wait()
}

func (s *PreviewSession) snapshotLocked() PreviewSnapshot {
	return PreviewSnapshot{
		State:        s.state,
		Ticket:       s.ticket,
		Preview:      s.preview,
		SelectedType: s.selected,
	}
}

// changedLocked bumps the state version and returns the new snapshot.
func (s *PreviewSession) changedLocked() (PreviewSnapshot, uint64) {
	s.version++
	return s.snapshotLocked(), s.version
}

// notify hands snapshots to the listener one at a time and never after a
// newer one, so a result that lost the race to a later Select stays hidden.
func (s *PreviewSession) notify(snapshot PreviewSnapshot, version uint64) {
	if s.onChange == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.delivered {
		return
	}
	s.delivered = version
	s.onChange(snapshot)
}

// Preview socket actions.
const (
	PreviewActionSelect  = "select"
	PreviewActionChoose  = "choose"
	PreviewActionConfirm = "confirm"
	PreviewActionSubmit  = "submit"
)

// PreviewCommand is a client message that drives a PreviewSession.
type PreviewCommand struct {
	Action   string    `json:"action"`
	Endpoint string    `json:"endpoint,omitempty"`
	Type     ChartType `json:"type,omitempty"`
}

// Apply runs cmd against the session and returns the resulting snapshot.
// Select returns immediately with the session in the fetching state.
func (s *PreviewSession) Apply(ctx context.Context, cmd PreviewCommand) (PreviewSnapshot, error) {
	switch cmd.Action {
	case PreviewActionSelect:
		s.Select(ctx, cmd.Endpoint)
	case PreviewActionChoose:
		s.Choose(cmd.Type)
	case PreviewActionConfirm:
		if err := s.Confirm(cmd.Type); err != nil {
			return s.Snapshot(), err
		}
	case PreviewActionSubmit:
		return s.Submit()
	default:
		return s.Snapshot(), fmt.Errorf("%w: unknown preview action %q", ErrValidation, cmd.Action)
	}
	return s.Snapshot(), nil
}
