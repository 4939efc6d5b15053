package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DataPathPrefix is the URL prefix under which registered sources are served.
const DataPathPrefix = "/api/data/"

// ErrUnknownSource is returned when a data source name is not registered.
var ErrUnknownSource = errors.New("dashboard: unknown data source")

// DataSource describes a data endpoint users can bind charts to.
type DataSource struct {
	Name        string `json:"name" yaml:"name"`
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Endpoint returns the path the source is served under.
func (s DataSource) Endpoint() string {
	return DataPathPrefix + s.Name
}

// DataProvider produces the JSON-compatible payload of a data source.
type DataProvider interface {
	Payload(ctx context.Context, source DataSource) (any, error)
}

// DataProviderFunc adapts a function into a DataProvider.
type DataProviderFunc func(ctx context.Context, source DataSource) (any, error)

// Payload calls f.
func (f DataProviderFunc) Payload(ctx context.Context, source DataSource) (any, error) {
	return f(ctx, source)
}

// StaticPayload returns a provider that always serves payload.
func StaticPayload(payload any) DataProvider {
	return DataProviderFunc(func(context.Context, DataSource) (any, error) {
		return payload, nil
	})
}

// SourceHook lets packages register data sources during init().
type SourceHook func(reg *Registry) error

var (
	globalHookMu sync.Mutex
	globalHooks  []SourceHook
)

// RegisterSourceHook registers a hook executed against new registries.
func RegisterSourceHook(h SourceHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// Registry stores data sources and the providers that serve them.
type Registry struct {
	mu        sync.RWMutex
	sources   map[string]DataSource
	providers map[string]DataProvider
}

// NewRegistry builds a registry seeded with the sample sources and applies global hooks.
func NewRegistry() *Registry {
	reg := NewEmptyRegistry()
	reg.registerDefaults()
	_ = reg.ApplyHooks()
	return reg
}

// NewEmptyRegistry builds a registry without sample sources or hooks.
func NewEmptyRegistry() *Registry {
	return &Registry{
		sources:   map[string]DataSource{},
		providers: map[string]DataProvider{},
	}
}

func (r *Registry) registerDefaults() {
	for _, item := range defaultDataSources() {
		_ = r.Register(item.source, StaticPayload(item.payload))
	}
}

// ApplyHooks executes registered source hooks.
func (r *Registry) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(r); err != nil {
			return err
		}
	}
	return nil
}

// Register stores a source and its provider, replacing any previous entry.
func (r *Registry) Register(source DataSource, provider DataProvider) error {
	source.Name = strings.TrimSpace(source.Name)
	if source.Name == "" {
		return fmt.Errorf("data source name is required")
	}
	if strings.Contains(source.Name, "/") {
		return fmt.Errorf("data source name %q must not contain '/'", source.Name)
	}
	if provider == nil {
		return fmt.Errorf("provider for %s cannot be nil", source.Name)
	}
	if source.Label == "" {
		source.Label = source.Name
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.Name] = source
	r.providers[source.Name] = provider
	return nil
}

// Source fetches a source by name.
func (r *Registry) Source(name string) (DataSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[name]
	return source, ok
}

// Sources returns all registered sources sorted by name.
func (r *Registry) Sources() []DataSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DataSource, 0, len(r.sources))
	for _, source := range r.sources {
		out = append(out, source)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Payload returns the encoded JSON payload of the named source.
func (r *Registry) Payload(ctx context.Context, name string) ([]byte, error) {
	r.mu.RLock()
	source, ok := r.sources[name]
	provider := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	payload, err := provider.Payload(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("dashboard: data source %s: %w", name, err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dashboard: encode data source %s: %w", name, err)
	}
	return data, nil
}

// RegistryFetcher serves DataPathPrefix endpoints from the registry and hands
// every other endpoint to Fallback.
type RegistryFetcher struct {
	Registry *Registry
	Fallback DataFetcher
}

// Fetch implements DataFetcher.
func (f RegistryFetcher) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if f.Registry != nil {
		if name, ok := strings.CutPrefix(endpoint, DataPathPrefix); ok {
			return f.Registry.Payload(ctx, strings.Trim(name, "/"))
		}
	}
	if f.Fallback == nil {
		return nil, fmt.Errorf("dashboard: no fetcher for endpoint %s", endpoint)
	}
	return f.Fallback.Fetch(ctx, endpoint)
}
