package crm

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// Override adjusts a module's endpoint or paging without code changes.
type Override struct {
	Path        string
	PageSubpath string
	PageSize    int
	// Paging is "server", "client" or empty to keep the default.
	Paging string
}

// Registry owns one store per CRM module. Build it once at startup and pass it to its consumers.
type Registry struct {
	modules  []Module
	byKey    map[string]Module
	leads    *module[Lead]
	workflow *LeadWorkflow
}

type registryConfig struct {
	overrides map[string]Override
	store     []collection.Option
	now       func() time.Time
}

// RegistryOption customises NewRegistry.
type RegistryOption func(*registryConfig)

// WithOverrides applies per-module overrides keyed by module key.
func WithOverrides(overrides map[string]Override) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.overrides = overrides
	}
}

// WithStoreOptions passes options to every store.
func WithStoreOptions(opts ...collection.Option) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.store = append(cfg.store, opts...)
	}
}

// WithNow sets the clock used by the lead workflow.
func WithNow(now func() time.Time) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.now = now
	}
}

// NewRegistry builds every module against client.
func NewRegistry(client *collection.Client, opts ...RegistryOption) (*Registry, error) {
	if client == nil {
		return nil, fmt.Errorf("crm: client is required")
	}
	cfg := registryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.now != nil {
		cfg.store = append(cfg.store, collection.WithClock(cfg.now))
	}

	r := &Registry{byKey: make(map[string]Module)}
	b := &builder{client: client, cfg: cfg, reg: r}

	register(b, customerSpec())
	register(b, bookingSpec())
	register(b, itinerarySpec())
	register(b, batchSpec())
	leads := register(b, leadSpec())
	register(b, invoiceSpec())
	register(b, paymentSpec())
	register(b, localSupportSpec())
	register(b, userSpec())
	register(b, roleSpec())
	if b.err != nil {
		return nil, b.err
	}

	for key := range cfg.overrides {
		if _, ok := r.byKey[key]; !ok {
			return nil, fmt.Errorf("%w: override for %q", ErrUnknownModule, key)
		}
	}

	r.leads = leads
	r.workflow = NewLeadWorkflow(leads.store, cfg.now)
	return r, nil
}

type builder struct {
	client *collection.Client
	cfg    registryConfig
	reg    *Registry
	err    error
}

func register[T any](b *builder, spec Spec[T]) *module[T] {
	if b.err != nil {
		return nil
	}
	if o, ok := b.cfg.overrides[spec.Key]; ok {
		var err error
		if spec, err = applyOverride(spec, o); err != nil {
			b.err = err
			return nil
		}
	}
	m, err := newModule(b.client, spec, b.cfg.store...)
	if err != nil {
		b.err = fmt.Errorf("crm: module %s: %w", spec.Key, err)
		return nil
	}
	b.reg.modules = append(b.reg.modules, m)
	b.reg.byKey[spec.Key] = m
	return m
}

func applyOverride[T any](spec Spec[T], o Override) (Spec[T], error) {
	if p := strings.Trim(o.Path, "/ "); p != "" {
		spec.Endpoint.Collection = p
	}
	if p := strings.Trim(o.PageSubpath, "/ "); p != "" {
		spec.Endpoint.PageSubpath = p
	}
	if o.PageSize > 0 {
		spec.PageSize = min(o.PageSize, viewquery.MaxPageSize)
	}
	switch strings.ToLower(strings.TrimSpace(o.Paging)) {
	case "":
	case "server":
		spec.Paging = viewquery.ServerPaging
	case "client":
		spec.Paging = viewquery.ClientPaging
	default:
		return spec, fmt.Errorf("crm: module %s: unknown paging %q", spec.Key, o.Paging)
	}
	return spec, nil
}

// Modules returns every module in navigation order.
func (r *Registry) Modules() []Module {
	return slices.Clone(r.modules)
}

// Keys returns the module keys in navigation order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.modules))
	for _, m := range r.modules {
		keys = append(keys, m.Definition().Key)
	}
	return keys
}

// Module returns the module registered under key.
func (r *Registry) Module(key string) (Module, error) {
	m, ok := r.byKey[strings.TrimSpace(key)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, key)
	}
	return m, nil
}

// Leads returns the typed leads store.
func (r *Registry) Leads() *collection.Store[Lead] {
	return r.leads.store
}

// LeadWorkflow returns the pipeline helper bound to the leads store.
func (r *Registry) LeadWorkflow() *LeadWorkflow {
	return r.workflow
}
