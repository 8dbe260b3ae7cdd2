package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "finitefield.org/travel-admin/internal/admin/collection"

const (
	opList   = "list"
	opPage   = "list_page"
	opGet    = "get"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// Codec maps raw records to entities. Decode must fail rather than return a partial entity.
type Codec[T any] struct {
	Decode func(Record) (T, error)
	ID     func(T) string
}

// Page is the result of ListPage.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

type storeConfig struct {
	logger *zap.Logger
	tracer trace.Tracer
	meter  metric.Meter
	floor  int
	now    func() time.Time
}

// Option customises Store construction.
type Option func(*storeConfig)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *storeConfig) {
		cfg.logger = logger
	}
}

// WithTracer injects a custom OpenTelemetry tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *storeConfig) {
		cfg.tracer = tracer
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(cfg *storeConfig) {
		cfg.meter = m
	}
}

// WithPageFloor sets the minimum totalPages kept after counters are recomputed. Only 0 and 1 are meaningful.
func WithPageFloor(floor int) Option {
	return func(cfg *storeConfig) {
		if floor < 0 {
			floor = 0
		}
		cfg.floor = floor
	}
}

// WithClock overrides the clock used for refresh timestamps.
func WithClock(now func() time.Time) Option {
	return func(cfg *storeConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

type mutationKind int

const (
	mutationUpsert mutationKind = iota
	mutationReplace
	mutationRemove
)

// mutation is a settled write kept while a list is in flight so the list result can be corrected.
type mutation[T any] struct {
	kind mutationKind
	id   string
	item T
	mark uint64
}

type operation struct {
	name    string
	seq     uint64
	list    bool
	start   time.Time
	span    trace.Span
	settled bool
}

// Store holds one collection of entities loaded from the CRM API.
// Operations may run concurrently. List results superseded by a newer list are discarded,
// and writes that settle while a list is in flight are replayed onto its result.
type Store[T any] struct {
	name     string
	client   *Client
	endpoint Endpoint
	codec    Codec[T]
	floor    int
	now      func() time.Time

	logger         *zap.Logger
	tracer         trace.Tracer
	latency        metric.Float64Histogram
	latencyEnabled bool

	mu            sync.Mutex
	items         []T
	pagination    Pagination
	status        Status
	inflight      int
	seq           uint64
	latestList    uint64
	listsInFlight int
	journal       []mutation[T]
	watchers      []chan struct{}
}

// NewStore builds a Store for the collection named name.
func NewStore[T any](name string, client *Client, endpoint Endpoint, codec Codec[T], opts ...Option) (*Store[T], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("collection: store name is required")
	}
	if client == nil {
		return nil, fmt.Errorf("collection %s: client is required", name)
	}
	if strings.Trim(endpoint.Collection, "/ ") == "" {
		return nil, fmt.Errorf("collection %s: endpoint path is required", name)
	}
	if codec.Decode == nil || codec.ID == nil {
		return nil, fmt.Errorf("collection %s: codec is incomplete", name)
	}

	cfg := storeConfig{floor: 0, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(instrumentationName)
	}
	meter := cfg.meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}

	latency, latencyErr := meter.Float64Histogram(
		"collection.operation.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for collection store operations"),
	)
	if latencyErr != nil {
		cfg.logger.Warn("collection: unable to register latency metric", zap.Error(latencyErr))
	}

	return &Store[T]{
		name:           name,
		client:         client,
		endpoint:       endpoint,
		codec:          codec,
		floor:          cfg.floor,
		now:            cfg.now,
		logger:         cfg.logger.With(zap.String("collection", name)),
		tracer:         cfg.tracer,
		latency:        latency,
		latencyEnabled: latencyErr == nil,
	}, nil
}

// Name returns the collection name.
func (s *Store[T]) Name() string {
	return s.name
}

// PageFloor returns the minimum totalPages kept after a delete.
func (s *Store[T]) PageFloor() int {
	return s.floor
}

// State returns a snapshot safe to read without further locking.
func (s *Store[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State[T]{
		Items:      slices.Clone(s.items),
		Pagination: s.pagination,
		Status:     s.status,
	}
}

// Items returns a copy of the loaded entities.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Status returns the current UI status.
func (s *Store[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Lookup returns the loaded entity with the given id.
func (s *Store[T]) Lookup(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if s.codec.ID(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Reset empties the store. Operations still in flight settle normally.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	s.items = nil
	s.pagination = Pagination{}
	if s.inflight == 0 {
		s.status = Status{}
	}
	s.mu.Unlock()
	s.notify()
}

// Subscribe registers a watcher notified after every state change. Notifications coalesce.
func (s *Store[T]) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, watcher := range s.watchers {
			if watcher == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

// ListAll loads the whole collection and replaces the loaded entities.
func (s *Store[T]) ListAll(ctx context.Context) (result []T, err error) {
	ctx, op := s.begin(ctx, opList, true)
	defer s.rescue(ctx, op, &err)
	resp, err := s.client.do(ctx, http.MethodGet, s.endpoint.Collection, nil, nil)
	if err != nil {
		return nil, s.settle(ctx, op, err, nil)
	}
	decoded := s.decodeList(resp)

	err = s.settle(ctx, op, nil, func() {
		if op.seq != s.latestList {
			s.logger.Debug("collection: discarding superseded list", zap.Uint64("seq", op.seq), zap.Uint64("latest", s.latestList))
			result = decoded
			return
		}
		s.items, _ = s.replay(op.seq, decoded, true)
		result = slices.Clone(s.items)
	})
	return result, err
}

// ListPage loads one server page and replaces the loaded entities and pagination together.
func (s *Store[T]) ListPage(ctx context.Context, page, limit int) (_ Page[T], err error) {
	ctx, op := s.begin(ctx, opPage, true)
	defer s.rescue(ctx, op, &err)
	if page < 1 {
		return Page[T]{}, s.settle(ctx, op, invalidArgument(opPage, "page must be at least 1"), nil)
	}
	if limit < 1 {
		return Page[T]{}, s.settle(ctx, op, invalidArgument(opPage, "limit must be positive"), nil)
	}

	query := url.Values{}
	query.Set(s.endpoint.pageParam(), strconv.Itoa(page))
	query.Set(s.endpoint.limitParam(), strconv.Itoa(limit))
	resp, err := s.client.do(ctx, http.MethodGet, joinPath(s.endpoint.Collection, s.endpoint.PageSubpath), query, nil)
	if err != nil {
		return Page[T]{}, s.settle(ctx, op, err, nil)
	}
	decoded := s.decodeList(resp)
	meta := pageMeta(resp.body, page, limit, len(decoded), s.floor)

	result := Page[T]{Items: decoded, Pagination: meta}
	err = s.settle(ctx, op, nil, func() {
		if op.seq != s.latestList {
			s.logger.Debug("collection: discarding superseded page", zap.Uint64("seq", op.seq), zap.Uint64("latest", s.latestList))
			return
		}
		var removed int
		s.items, removed = s.replay(op.seq, decoded, false)
		if removed > 0 && meta.TotalRecords > 0 {
			meta.TotalRecords = max(meta.TotalRecords-removed, 0)
			meta.TotalPages = TotalPagesFor(meta.TotalRecords, meta.Limit, s.floor)
		}
		s.pagination = meta
		result.Items = slices.Clone(s.items)
		result.Pagination = meta
	})
	return result, err
}

// GetByID loads one entity and upserts it.
func (s *Store[T]) GetByID(ctx context.Context, id string) (_ T, err error) {
	var zero T
	ctx, op := s.begin(ctx, opGet, false)
	defer s.rescue(ctx, op, &err)
	if !ValidID(id) {
		return zero, s.settle(ctx, op, invalidArgument(opGet, "id is required"), nil)
	}
	id = strings.TrimSpace(id)
	resp, err := s.client.do(ctx, http.MethodGet, joinPath(s.endpoint.Collection, id), nil, nil)
	if err != nil {
		return zero, s.settle(ctx, op, err, nil)
	}
	item, err := s.decodeSingle(opGet, resp)
	if err != nil {
		return zero, s.settle(ctx, op, err, nil)
	}
	return item, s.settle(ctx, op, nil, func() {
		s.items = Upsert(s.items, item, s.codec.ID)
		s.record(mutationUpsert, s.codec.ID(item), item)
	})
}

// Create posts data and upserts the entity returned by the API.
// data may be a Payload; anything else is sent as JSON.
func (s *Store[T]) Create(ctx context.Context, data any) (_ T, err error) {
	var zero T
	ctx, op := s.begin(ctx, opCreate, false)
	defer s.rescue(ctx, op, &err)
	resp, err := s.client.do(ctx, http.MethodPost, s.endpoint.Collection, nil, asPayload(data))
	if err != nil {
		return zero, s.settle(ctx, op, err, nil)
	}
	item, err := s.decodeSingle(opCreate, resp)
	if err != nil {
		return zero, s.settle(ctx, op, err, nil)
	}
	return item, s.settle(ctx, op, nil, func() {
		s.items = Upsert(s.items, item, s.codec.ID)
		s.record(mutationUpsert, s.codec.ID(item), item)
	})
}

// UpdateByID puts a partial update. The returned entity replaces a loaded copy but is never appended.
func (s *Store[T]) UpdateByID(ctx context.Context, id string, data any) (_ T, err error) {
	var zero T
	ctx, op := s.begin(ctx, opUpdate, false)
	defer s.rescue(ctx, op, &err)
	if !ValidID(id) {
		return zero, s.settle(ctx, op, invalidArgument(opUpdate, "id is required"), nil)
	}
	id = strings.TrimSpace(id)
	resp, err := s.client.do(ctx, http.MethodPut, joinPath(s.endpoint.Collection, id), nil, asPayload(data))
	if err != nil {
		return zero, s.settle(ctx, op, err, nil)
	}
	item, err := s.decodeSingle(opUpdate, resp)
	if err != nil {
		return zero, s.settle(ctx, op, err, nil)
	}
	return item, s.settle(ctx, op, nil, func() {
		s.items, _ = Replace(s.items, item, s.codec.ID)
		s.record(mutationReplace, s.codec.ID(item), item)
	})
}

// DeleteByID deletes one entity. Empty and placeholder ids fail with ErrInvalidArgument before any request.
func (s *Store[T]) DeleteByID(ctx context.Context, id string) (_ string, err error) {
	ctx, op := s.begin(ctx, opDelete, false)
	defer s.rescue(ctx, op, &err)
	if !ValidID(id) {
		return "", s.settle(ctx, op, invalidArgument(opDelete, "id is required"), nil)
	}
	id = strings.TrimSpace(id)
	if _, err := s.client.do(ctx, http.MethodDelete, joinPath(s.endpoint.Collection, id), nil, nil); err != nil {
		return "", s.settle(ctx, op, err, nil)
	}
	return id, s.settle(ctx, op, nil, func() {
		s.items, _ = Remove(s.items, id, s.codec.ID)
		if s.pagination.Limit > 0 && s.pagination.TotalRecords > 0 {
			s.pagination.TotalRecords--
			s.pagination.TotalPages = TotalPagesFor(s.pagination.TotalRecords, s.pagination.Limit, s.floor)
		}
		var zero T
		s.record(mutationRemove, id, zero)
	})
}

func (s *Store[T]) begin(ctx context.Context, name string, list bool) (context.Context, *operation) {
	ctx, span := s.tracer.Start(ctx, "collection."+s.name+"."+name,
		trace.WithAttributes(attribute.String("collection", s.name), attribute.String("op", name)))

	s.mu.Lock()
	s.seq++
	op := &operation{name: name, seq: s.seq, list: list, start: time.Now(), span: span}
	s.inflight++
	s.status.Phase = PhaseLoading
	s.status.Error = ""
	if list {
		s.latestList = op.seq
		s.listsInFlight++
	}
	s.mu.Unlock()

	s.notify()
	return ctx, op
}

// settle applies a successful result under the lock and closes the operation.
func (s *Store[T]) settle(ctx context.Context, op *operation, err error, apply func()) error {
	op.settled = true
	err = s.classify(op.name, err)

	s.mu.Lock()
	if err == nil && apply != nil {
		err = applySafely(op.name, apply)
	}
	s.inflight--
	if op.list {
		s.listsInFlight--
	}
	if s.listsInFlight == 0 {
		s.journal = nil
	}
	if s.inflight == 0 {
		s.status.Phase = PhaseSettled
	}
	if err != nil {
		s.status.Outcome = OutcomeFailed
		s.status.Error = Message(err)
	} else {
		s.status.Outcome = OutcomeOK
		s.status.Error = ""
		if op.list {
			s.status.RefreshedAt = s.now()
		}
	}
	s.mu.Unlock()

	s.notify()
	s.observe(ctx, op, err)
	return err
}

// rescue settles op as failed when the operation panicked before settling.
// It must be deferred directly so recover sees the panic.
func (s *Store[T]) rescue(ctx context.Context, op *operation, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	perr := panicError(op.name, r)
	if op.settled {
		*errp = perr
		return
	}
	*errp = s.settle(ctx, op, perr, nil)
}

func applySafely(op string, apply func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(op, r)
		}
	}()
	apply()
	return nil
}

// panicError reports a panic in the transport, the codec or a merge as a failed request.
func panicError(op string, r any) *Error {
	return &Error{Kind: KindNetwork, Op: op, Err: fmt.Errorf("panic: %v", r)}
}

// classify tags err with the operation and promotes 4xx write rejections to validation failures.
func (s *Store[T]) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if !errors.As(err, &ce) {
		return &Error{Kind: KindInvalidArgument, Op: op, Err: err}
	}
	out := *ce
	out.Op = op
	if out.Kind == KindHTTP && (op == opCreate || op == opUpdate) && out.Status >= 400 && out.Status < 500 {
		out.Kind = KindValidation
	}
	return &out
}

func (s *Store[T]) record(kind mutationKind, id string, item T) {
	if s.listsInFlight == 0 {
		return
	}
	s.journal = append(s.journal, mutation[T]{kind: kind, id: id, item: item, mark: s.seq})
}

// replay applies writes that settled after the list with sequence seq was dispatched.
// removed counts rows of items dropped by replayed deletes.
func (s *Store[T]) replay(seq uint64, items []T, full bool) (out []T, removed int) {
	out = slices.Clone(items)
	for _, m := range s.journal {
		if m.mark < seq {
			continue
		}
		switch m.kind {
		case mutationRemove:
			var ok bool
			if out, ok = Remove(out, m.id, s.codec.ID); ok {
				removed++
			}
		case mutationUpsert:
			if full {
				out = Upsert(out, m.item, s.codec.ID)
			} else {
				out, _ = Replace(out, m.item, s.codec.ID)
			}
		case mutationReplace:
			out, _ = Replace(out, m.item, s.codec.ID)
		}
	}
	return out, removed
}

func (s *Store[T]) decodeList(resp response) []T {
	entries := listEntries(resp.body, s.endpoint.ListKey)
	out := make([]T, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		item, err := s.codec.Decode(entry)
		if err != nil {
			dropped++
			continue
		}
		out = Upsert(out, item, s.codec.ID)
	}
	if dropped > 0 || resp.malformed {
		s.logger.Debug("collection: dropped list entries", zap.Int("dropped", dropped), zap.Bool("malformed", resp.malformed))
	}
	return out
}

func (s *Store[T]) decodeSingle(op string, resp response) (T, error) {
	var zero T
	rec, ok := singleEntry(resp.body, s.endpoint.ItemKey)
	if !ok {
		return zero, malformed(op, "response is not an object")
	}
	item, err := s.codec.Decode(rec)
	if err != nil {
		return zero, &Error{Kind: KindMalformedResponse, Op: op, Message: "response is not a valid record", Err: err}
	}
	return item, nil
}

func (s *Store[T]) notify() {
	s.mu.Lock()
	watchers := slices.Clone(s.watchers)
	s.mu.Unlock()
	for _, ch := range watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store[T]) observe(ctx context.Context, op *operation, err error) {
	elapsed := time.Since(op.start)
	outcome := OutcomeOK.String()
	if err != nil {
		outcome = OutcomeFailed.String()
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, Message(err))
		s.logger.Warn("collection: operation failed",
			zap.String("op", op.name),
			zap.Uint64("seq", op.seq),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	} else {
		op.span.SetStatus(codes.Ok, "")
		s.logger.Debug("collection: operation settled",
			zap.String("op", op.name),
			zap.Uint64("seq", op.seq),
			zap.Duration("elapsed", elapsed),
		)
	}
	op.span.End()

	if !s.latencyEnabled {
		return
	}
	s.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), metric.WithAttributes(
		attribute.String("collection", s.name),
		attribute.String("op", op.name),
		attribute.String("outcome", outcome),
	))
}
