package crm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// FieldType selects the form control used for a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "tel"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldSelect   FieldType = "select"
	FieldTextarea FieldType = "textarea"
	FieldTags     FieldType = "tags"
	FieldCheckbox FieldType = "checkbox"
	FieldFile     FieldType = "file"
)

// FormField describes one input of a module's create/edit form. Name is also the JSON key sent to the API.
type FormField struct {
	Name     string
	Label    string
	Type     FieldType
	Required bool
	Options  []string
	Help     string
}

// ColumnInfo describes one table column.
type ColumnInfo struct {
	Key      string
	Label    string
	Sortable bool
}

// Definition is the static description of a module.
type Definition struct {
	Key              string
	Label            string
	Singular         string
	Columns          []ColumnInfo
	Form             []FormField
	Paging           viewquery.Mode
	PageSize         int
	PageFloor        int
	DefaultRecency   bool
	ViewCapability   rbac.Capability
	ManageCapability rbac.Capability
}

// Multipart reports whether the form uploads files.
func (d Definition) Multipart() bool {
	for _, f := range d.Form {
		if f.Type == FieldFile {
			return true
		}
	}
	return false
}

// Cell is one rendered table cell. Tone selects a badge style when set.
type Cell struct {
	Text string
	Tone string
}

// Row is one rendered table row.
type Row struct {
	ID    string
	Title string
	Cells []Cell
}

// DetailField is one labelled value of a detail panel. HTML holds sanitized markup when set.
type DetailField struct {
	Label string
	Text  string
	HTML  string
}

// Detail is the rendered detail panel of one entity.
type Detail struct {
	ID     string
	Title  string
	Fields []DetailField
	Values map[string]string
}

// Listing is the rendered table of a module.
type Listing struct {
	Rows       []Row
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
	Query      viewquery.State
	Status     collection.Status
}

// HasPrev reports whether a previous page exists.
func (l Listing) HasPrev() bool { return l.Page > 1 }

// HasNext reports whether a following page exists.
func (l Listing) HasNext() bool { return l.Page < l.TotalPages }

// Input is a submitted create/edit form.
type Input struct {
	Values url.Values
	Files  []collection.File
}

// Get returns the trimmed value of name.
func (in Input) Get(name string) string {
	return strings.TrimSpace(in.Values.Get(name))
}

// Has reports whether name was submitted.
func (in Input) Has(name string) bool {
	return in.Values.Has(name)
}

// InputError reports a form value rejected before any request is sent.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("crm: %s: %s", e.Field, e.Message)
}

// ErrUnknownModule is returned when a module key is not registered.
var ErrUnknownModule = errors.New("crm: unknown module")

// Module is the entity-independent view of one CRM module used by the console and the CLI.
type Module interface {
	Definition() Definition
	Load(ctx context.Context, state viewquery.State) (Listing, error)
	View(state viewquery.State) Listing
	Detail(ctx context.Context, id string) (Detail, error)
	Create(ctx context.Context, in Input) (Detail, error)
	Update(ctx context.Context, id string, in Input) (Detail, error)
	Delete(ctx context.Context, id string) error
	Search(term string, limit int) []Row
	Status() collection.Status
	Count() int
	Subscribe() (<-chan struct{}, func())
}

// Column renders one table column of T.
type Column[T any] struct {
	Key    string
	Label  string
	Render func(T) string
	Tone   func(T) string
}

// Spec binds an entity type to its module metadata.
type Spec[T any] struct {
	Key              string
	Label            string
	Singular         string
	Endpoint         collection.Endpoint
	Paging           viewquery.Mode
	PageSize         int
	PageFloor        int
	ViewCapability   rbac.Capability
	ManageCapability rbac.Capability

	Codec    collection.Codec[T]
	Schema   viewquery.Schema[T]
	Title    func(T) string
	Columns  []Column[T]
	Form     []FormField
	Values   func(T) map[string]string
	Describe func(T) []DetailField
	// Payload overrides the default form-to-JSON mapping.
	Payload func(in Input, create bool) (any, error)
}

type module[T any] struct {
	spec  Spec[T]
	store *collection.Store[T]
}

func newModule[T any](client *collection.Client, spec Spec[T], opts ...collection.Option) (*module[T], error) {
	if spec.PageSize <= 0 {
		spec.PageSize = viewquery.DefaultPageSize
	}
	opts = append(opts, collection.WithPageFloor(spec.PageFloor))
	store, err := collection.NewStore(spec.Key, client, spec.Endpoint, spec.Codec, opts...)
	if err != nil {
		return nil, err
	}
	return &module[T]{spec: spec, store: store}, nil
}

func (m *module[T]) Definition() Definition {
	cols := make([]ColumnInfo, 0, len(m.spec.Columns))
	for _, c := range m.spec.Columns {
		_, sortable := m.spec.Schema.Fields[c.Key]
		cols = append(cols, ColumnInfo{Key: c.Key, Label: c.Label, Sortable: sortable})
	}
	return Definition{
		Key:              m.spec.Key,
		Label:            m.spec.Label,
		Singular:         m.spec.Singular,
		Columns:          cols,
		Form:             m.spec.Form,
		Paging:           m.spec.Paging,
		PageSize:         m.spec.PageSize,
		PageFloor:        m.spec.PageFloor,
		DefaultRecency:   m.spec.Schema.DefaultOrder != nil,
		ViewCapability:   m.spec.ViewCapability,
		ManageCapability: m.spec.ManageCapability,
	}
}

// Load fetches the collection (or the requested server page) and renders it.
// On failure the listing still reflects the previously loaded entities.
func (m *module[T]) Load(ctx context.Context, state viewquery.State) (Listing, error) {
	state = m.normalise(state)
	var err error
	if m.spec.Paging == viewquery.ServerPaging {
		_, err = m.store.ListPage(ctx, state.Page, state.PageSize)
	} else {
		_, err = m.store.ListAll(ctx)
	}
	return m.View(state), err
}

func (m *module[T]) View(state viewquery.State) Listing {
	state = m.normalise(state)
	snapshot := m.store.State()
	result := viewquery.Apply(m.spec.Schema, snapshot.Items, state.Query(m.spec.Paging))

	listing := Listing{
		Rows:       m.rows(result.Items),
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
		Query:      state,
		Status:     snapshot.Status,
	}
	if m.spec.Paging == viewquery.ServerPaging && snapshot.Pagination.Limit > 0 {
		p := snapshot.Pagination
		listing.Page = p.Page
		listing.PageSize = p.Limit
		listing.TotalItems = p.TotalRecords
		listing.TotalPages = max(p.TotalPages, 1)
	}
	listing.Query.Page = listing.Page
	return listing
}

func (m *module[T]) Detail(ctx context.Context, id string) (Detail, error) {
	item, err := m.store.GetByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return m.detail(item), nil
}

func (m *module[T]) Create(ctx context.Context, in Input) (Detail, error) {
	payload, err := m.payload(in, true)
	if err != nil {
		return Detail{}, err
	}
	item, err := m.store.Create(ctx, payload)
	if err != nil {
		return Detail{}, err
	}
	return m.detail(item), nil
}

func (m *module[T]) Update(ctx context.Context, id string, in Input) (Detail, error) {
	payload, err := m.payload(in, false)
	if err != nil {
		return Detail{}, err
	}
	item, err := m.store.UpdateByID(ctx, id, payload)
	if err != nil {
		return Detail{}, err
	}
	return m.detail(item), nil
}

func (m *module[T]) Delete(ctx context.Context, id string) error {
	_, err := m.store.DeleteByID(ctx, id)
	return err
}

func (m *module[T]) Search(term string, limit int) []Row {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	hits := viewquery.Filter(m.spec.Schema, m.store.Items(), term)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return m.rows(hits)
}

func (m *module[T]) Status() collection.Status {
	return m.store.Status()
}

func (m *module[T]) Count() int {
	snapshot := m.store.State()
	if m.spec.Paging == viewquery.ServerPaging && snapshot.Pagination.Limit > 0 {
		return snapshot.Pagination.TotalRecords
	}
	return len(snapshot.Items)
}

func (m *module[T]) Subscribe() (<-chan struct{}, func()) {
	return m.store.Subscribe()
}

func (m *module[T]) normalise(state viewquery.State) viewquery.State {
	if state.PageSize <= 0 {
		state.PageSize = m.spec.PageSize
	}
	if state.Page <= 0 {
		state.Page = 1
	}
	return state
}

func (m *module[T]) rows(items []T) []Row {
	out := make([]Row, 0, len(items))
	for _, item := range items {
		row := Row{ID: m.spec.Codec.ID(item), Cells: make([]Cell, 0, len(m.spec.Columns))}
		if m.spec.Title != nil {
			row.Title = m.spec.Title(item)
		}
		for _, col := range m.spec.Columns {
			cell := Cell{Text: col.Render(item)}
			if col.Tone != nil {
				cell.Tone = col.Tone(item)
			}
			row.Cells = append(row.Cells, cell)
		}
		out = append(out, row)
	}
	return out
}

func (m *module[T]) detail(item T) Detail {
	d := Detail{ID: m.spec.Codec.ID(item)}
	if m.spec.Title != nil {
		d.Title = m.spec.Title(item)
	}
	if m.spec.Describe != nil {
		d.Fields = m.spec.Describe(item)
	}
	if m.spec.Values != nil {
		d.Values = m.spec.Values(item)
	}
	return d
}

func (m *module[T]) payload(in Input, create bool) (any, error) {
	if m.spec.Payload != nil {
		return m.spec.Payload(in, create)
	}
	return formPayload(m.spec.Form, in, create)
}

// formPayload maps submitted form values to a JSON object. Absent fields are omitted so updates stay partial.
func formPayload(fields []FormField, in Input, create bool) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Type == FieldFile {
			continue
		}
		if f.Type == FieldCheckbox {
			if create || in.Has(f.Name) || in.Has(f.Name+"__present") {
				out[f.Name] = checkboxValue(in.Get(f.Name))
			}
			continue
		}
		if !in.Has(f.Name) {
			if create && f.Required {
				return nil, &InputError{Field: f.Name, Message: f.Label + " is required"}
			}
			continue
		}
		raw := in.Get(f.Name)
		if raw == "" {
			if f.Required {
				return nil, &InputError{Field: f.Name, Message: f.Label + " is required"}
			}
			if !create {
				out[f.Name] = emptyValue(f.Type)
			}
			continue
		}
		value, err := fieldValue(f, raw)
		if err != nil {
			return nil, err
		}
		out[f.Name] = value
	}
	return out, nil
}

func fieldValue(f FormField, raw string) (any, error) {
	switch f.Type {
	case FieldNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &InputError{Field: f.Name, Message: f.Label + " must be a number"}
		}
		return n, nil
	case FieldDate:
		if _, ok := collection.ParseTime(raw); !ok {
			return nil, &InputError{Field: f.Name, Message: f.Label + " must be a date"}
		}
		return raw, nil
	case FieldTags:
		return splitTags(raw), nil
	case FieldSelect:
		if len(f.Options) > 0 && !slices.Contains(f.Options, raw) {
			return nil, &InputError{Field: f.Name, Message: f.Label + " has an unknown value"}
		}
		return raw, nil
	}
	return raw, nil
}

func emptyValue(t FieldType) any {
	switch t {
	case FieldNumber:
		return 0
	case FieldTags:
		return []string{}
	}
	return ""
}

func checkboxValue(raw string) bool {
	switch strings.ToLower(raw) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
