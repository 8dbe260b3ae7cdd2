package testutil

import (
	"encoding/json"
	"fmt"
	"maps"
	"mime"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
)

const pageSubpath = "paginate"

// Doc is one stored CRM document.
type Doc = map[string]any

type failure struct {
	status int
	body   string
}

// FakeAPI is an in-memory CRM REST backend. Lists answer {"data": [...]}, page routes answer
// {"data": [...], "pagination": {...}} and writes echo {"data": doc}. Every request is counted.
type FakeAPI struct {
	t      testing.TB
	server *httptest.Server

	mu          sync.Mutex
	collections map[string][]Doc
	calls       map[string]int
	failures    map[string]failure
	seq         int
	now         func() time.Time
}

// NewFakeAPI starts a FakeAPI that is closed with the test.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		t:           t,
		collections: make(map[string][]Doc),
		calls:       make(map[string]int),
		failures:    make(map[string]failure),
		now:         func() time.Time { return time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC) },
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the API root.
func (f *FakeAPI) URL() string {
	return f.server.URL + "/api"
}

// Client returns a collection.Client rooted at the fake.
func (f *FakeAPI) Client(opts ...collection.ClientOption) *collection.Client {
	f.t.Helper()
	client, err := collection.NewClient(f.URL(), f.server.Client(), opts...)
	if err != nil {
		f.t.Fatalf("fake api client: %v", err)
	}
	return client
}

// Seed appends docs to a collection. Docs without "_id" get one.
func (f *FakeAPI) Seed(name string, docs ...Doc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range docs {
		doc = maps.Clone(doc)
		if _, ok := doc["_id"]; !ok {
			doc["_id"] = f.nextID(name)
		}
		f.collections[name] = append(f.collections[name], doc)
	}
}

// Fail makes method+path answer status with {"message": message} until cleared with status 0.
func (f *FakeAPI) Fail(method, path string, status int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := callKey(method, path)
	if status == 0 {
		delete(f.failures, key)
		return
	}
	body, _ := json.Marshal(map[string]string{"message": message})
	f.failures[key] = failure{status: status, body: string(body)}
}

// Calls returns how many requests hit method+path, e.g. Calls("GET", "/customers").
func (f *FakeAPI) Calls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[callKey(method, path)]
}

// TotalCalls returns the number of requests served.
func (f *FakeAPI) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Doc returns a copy of a stored document.
func (f *FakeAPI) Doc(name, id string) (Doc, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(name, id); i >= 0 {
		return maps.Clone(f.collections[name][i]), true
	}
	return nil, false
}

// Len returns the number of documents in a collection.
func (f *FakeAPI) Len(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.collections[name])
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	rest, ok := strings.CutPrefix(r.URL.Path, "/api/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	segs := strings.Split(strings.Trim(rest, "/"), "/")

	f.mu.Lock()
	key := callKey(r.Method, "/"+strings.Join(segs, "/"))
	f.calls[key]++
	fail, failing := f.failures[key]
	f.mu.Unlock()

	if failing {
		writeJSON(w, fail.status, json.RawMessage(fail.body))
		return
	}

	name := segs[0]
	switch {
	case len(segs) == 1 && r.Method == http.MethodGet:
		f.list(w, name)
	case len(segs) == 1 && r.Method == http.MethodPost:
		f.create(w, r, name)
	case len(segs) == 2 && segs[1] == pageSubpath && r.Method == http.MethodGet:
		f.page(w, r, name)
	case len(segs) == 2 && r.Method == http.MethodGet:
		f.get(w, name, segs[1])
	case len(segs) == 2 && (r.Method == http.MethodPut || r.Method == http.MethodPatch):
		f.update(w, r, name, segs[1])
	case len(segs) == 2 && r.Method == http.MethodDelete:
		f.remove(w, name, segs[1])
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "route not found"})
	}
}

func (f *FakeAPI) list(w http.ResponseWriter, name string) {
	f.mu.Lock()
	docs := cloneDocs(f.collections[name])
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": docs})
}

func (f *FakeAPI) page(w http.ResponseWriter, r *http.Request, name string) {
	page := positive(r.URL.Query().Get("page"), 1)
	limit := positive(r.URL.Query().Get("limit"), 10)

	f.mu.Lock()
	all := cloneDocs(f.collections[name])
	f.mu.Unlock()

	// Newest documents first, the way the CRM API pages.
	slices.Reverse(all)
	start := min((page-1)*limit, len(all))
	end := min(start+limit, len(all))
	writeJSON(w, http.StatusOK, map[string]any{
		"data": all[start:end],
		"pagination": map[string]int{
			"page":         page,
			"limit":        limit,
			"totalRecords": len(all),
			"totalPages":   collection.TotalPagesFor(len(all), limit, 0),
		},
	})
}

func (f *FakeAPI) get(w http.ResponseWriter, name, id string) {
	doc, ok := f.Doc(name, id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": doc})
}

func (f *FakeAPI) create(w http.ResponseWriter, r *http.Request, name string) {
	body, err := decodeBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	f.mu.Lock()
	body["_id"] = f.nextID(name)
	body["createdAt"] = f.now().Format(time.RFC3339)
	f.collections[name] = append(f.collections[name], body)
	doc := maps.Clone(body)
	f.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"data": doc})
}

func (f *FakeAPI) update(w http.ResponseWriter, r *http.Request, name, id string) {
	body, err := decodeBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	f.mu.Lock()
	i := f.index(name, id)
	if i < 0 {
		f.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	doc := f.collections[name][i]
	maps.Copy(doc, body)
	doc["_id"] = id
	doc["updatedAt"] = f.now().Format(time.RFC3339)
	out := maps.Clone(doc)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (f *FakeAPI) remove(w http.ResponseWriter, name, id string) {
	f.mu.Lock()
	i := f.index(name, id)
	if i >= 0 {
		f.collections[name] = slices.Delete(f.collections[name], i, i+1)
	}
	f.mu.Unlock()
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (f *FakeAPI) index(name, id string) int {
	return slices.IndexFunc(f.collections[name], func(d Doc) bool {
		return fmt.Sprint(d["_id"]) == id
	})
}

func (f *FakeAPI) nextID(name string) string {
	f.seq++
	prefix := name
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return prefix + "-" + strconv.Itoa(f.seq)
}

// decodeBody reads JSON or multipart bodies. Multipart fields holding JSON are decoded; files are
// recorded as "/uploads/<filename>".
func decodeBody(r *http.Request) (Doc, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		doc := Doc{}
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return doc, nil
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	doc := Doc{}
	for field, values := range r.MultipartForm.Value {
		if len(values) == 0 {
			continue
		}
		var decoded any
		if trimmed := strings.TrimSpace(values[0]); strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
			if json.Unmarshal([]byte(trimmed), &decoded) == nil {
				doc[field] = decoded
				continue
			}
		}
		doc[field] = values[0]
	}
	for field, files := range r.MultipartForm.File {
		if len(files) > 0 {
			doc[field] = "/uploads/" + files[0].Filename
		}
	}
	return doc, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func cloneDocs(docs []Doc) []Doc {
	out := make([]Doc, len(docs))
	for i, d := range docs {
		out[i] = maps.Clone(d)
	}
	return out
}

func positive(raw string, fallback int) int {
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	return fallback
}

func callKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}
