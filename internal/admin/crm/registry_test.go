package crm_test

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

func newRegistry(t *testing.T, handler http.Handler, opts ...crm.RegistryOption) *crm.Registry {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := collection.NewClient(srv.URL+"/api", nil)
	require.NoError(t, err)
	reg, err := crm.NewRegistry(client, opts...)
	require.NoError(t, err)
	return reg
}

func TestRegistryModules(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, http.NotFoundHandler())
	require.Equal(t, []string{
		"customers", "bookings", "itineraries", "batches", "leads",
		"invoices", "payments", "local-support", "users", "roles",
	}, reg.Keys())

	_, err := reg.Module("orders")
	require.ErrorIs(t, err, crm.ErrUnknownModule)

	for _, m := range reg.Modules() {
		def := m.Definition()
		require.NotEmpty(t, def.Label, def.Key)
		require.NotEmpty(t, def.Columns, def.Key)
		require.NotEmpty(t, def.ViewCapability, def.Key)
		require.Contains(t, []int{0, 1}, def.PageFloor, def.Key)
	}

	itineraries, err := reg.Module("itineraries")
	require.NoError(t, err)
	require.True(t, itineraries.Definition().Multipart())
	require.False(t, itineraries.Definition().DefaultRecency)
}

func TestRegistryRejectsUnknownOverride(t *testing.T) {
	t.Parallel()

	client, err := collection.NewClient("http://crm.invalid/api", nil)
	require.NoError(t, err)
	_, err = crm.NewRegistry(client, crm.WithOverrides(map[string]crm.Override{"orders": {PageSize: 5}}))
	require.ErrorIs(t, err, crm.ErrUnknownModule)
}

func TestServerPagedModuleUsesPaginationTotals(t *testing.T) {
	t.Parallel()

	var query atomic.Value
	reg := newRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/customers/paginate", r.URL.Path)
		query.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"customers":[
			{"_id":"c1","name":"Asha Rao","createdAt":"2024-01-01T00:00:00Z"},
			{"_id":"c2","name":"Vikram Iyer","createdAt":"2024-03-01T00:00:00Z"}
		],"pagination":{"page":2,"limit":2,"totalPages":4,"totalRecords":7}}`)
	}))
	customers, err := reg.Module("customers")
	require.NoError(t, err)

	state := viewquery.NewState(2)
	state.SetPage(2)
	listing, err := customers.Load(context.Background(), state)
	require.NoError(t, err)

	require.Equal(t, "limit=2&page=2", query.Load())
	require.Equal(t, 2, listing.Page)
	require.Equal(t, 4, listing.TotalPages)
	require.Equal(t, 7, listing.TotalItems)
	require.Equal(t, 7, customers.Count())
	require.Len(t, listing.Rows, 2)
	require.Equal(t, "c2", listing.Rows[0].ID, "newest first")
	require.Equal(t, collection.OutcomeOK, listing.Status.Outcome)
	require.False(t, listing.Status.RefreshedAt.IsZero())
}

func TestClientPagedModuleFiltersAndPaginatesLocally(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	reg := newRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Equal(t, "/api/local-support", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[
			{"_id":"s1","name":"Ravi","city":"Munnar","serviceType":"guide"},
			{"_id":"s2","name":"Meera","city":"Jaipur","serviceType":"driver"},
			{"_id":"s3","name":"Tenzin","city":"Leh","serviceType":"guide"}
		]}`)
	}))
	support, err := reg.Module("local-support")
	require.NoError(t, err)

	state := viewquery.NewState(2)
	listing, err := support.Load(context.Background(), state)
	require.NoError(t, err)
	require.Equal(t, 3, listing.TotalItems)
	require.Equal(t, 2, listing.TotalPages)
	require.Len(t, listing.Rows, 2)

	state.SetSearch("GUIDE")
	listing = support.View(state)
	require.Equal(t, 2, listing.TotalItems)
	require.Equal(t, "s1", listing.Rows[0].ID)
	require.Equal(t, "s3", listing.Rows[1].ID)

	state.SetSort(&viewquery.Sort{Key: "name", Direction: viewquery.Desc})
	listing = support.View(state)
	require.Equal(t, "s3", listing.Rows[0].ID)

	hits := support.Search("jaipur", 5)
	require.Len(t, hits, 1)
	require.Equal(t, "Meera", hits[0].Title)
	require.EqualValues(t, 1, calls.Load())
}

func TestModuleDeleteRejectsPlaceholderID(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	reg := newRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	bookings, err := reg.Module("bookings")
	require.NoError(t, err)

	for _, id := range []string{"", "  ", "undefined", "null"} {
		err := bookings.Delete(context.Background(), id)
		require.ErrorIs(t, err, collection.ErrInvalidArgument, id)
	}
	require.Zero(t, calls.Load())
	require.True(t, bookings.Status().Failed())
}

func TestItineraryCreateSendsMultipart(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/itineraries", r.URL.Path)
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Ladakh Explorer", r.FormValue("title"))
		_, header, err := r.FormFile("coverImage")
		require.NoError(t, err)
		require.Equal(t, "leh.png", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"itinerary":{"_id":"it9","title":"Ladakh Explorer","destination":"Leh","price":52000,
			"days":[{"title":"Arrive","description":"Rest at <b>hotel</b> <script>x()</script>"}]}}`)
	}))
	itineraries, err := reg.Module("itineraries")
	require.NoError(t, err)

	detail, err := itineraries.Create(context.Background(), crm.Input{
		Values: url.Values{"title": {"Ladakh Explorer"}, "destination": {"Leh"}, "price": {"52000"}},
		Files:  []collection.File{{Field: "coverImage", Name: "leh.png", ContentType: "image/png", Data: []byte("png")}},
	})
	require.NoError(t, err)
	require.Equal(t, "it9", detail.ID)
	require.Equal(t, "Ladakh Explorer", detail.Title)

	var day crm.DetailField
	for _, f := range detail.Fields {
		if strings.HasPrefix(f.Label, "Day 1") {
			day = f
		}
	}
	require.Equal(t, "Day 1: Arrive", day.Label)
	require.NotContains(t, day.HTML, "<script")
	require.Equal(t, 1, itineraries.Count())
}

func TestCreateValidationFailureKeepsServerMessage(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"message":"Email already registered"}`)
	}))
	customers, err := reg.Module("customers")
	require.NoError(t, err)

	_, err = customers.Create(context.Background(), crm.Input{Values: url.Values{"name": {"Asha"}, "email": {"a@example.com"}}})
	require.ErrorIs(t, err, collection.ErrValidation)
	require.Equal(t, "Email already registered", collection.Message(err))
	require.Equal(t, "Email already registered", customers.Status().Error)
}

func TestDateColumnsSortAcrossFormats(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[
			{"_id":"mar","code":"MAR","startDate":"2024-03-01"},
			{"_id":"jan","code":"JAN","startDate":"2024-01-15T10:00:00Z"},
			{"_id":"feb","code":"FEB","startDate":"2024-02-01"},
			{"_id":"dec","code":"DEC","startDate":1703059200000}
		]}`)
	}))
	batches, err := reg.Module("batches")
	require.NoError(t, err)

	state := viewquery.NewState(10)
	state.SetSort(&viewquery.Sort{Key: "startDate", Direction: viewquery.Asc})
	listing, err := batches.Load(context.Background(), state)
	require.NoError(t, err)

	ids := make([]string, 0, len(listing.Rows))
	for _, row := range listing.Rows {
		ids = append(ids, row.ID)
	}
	require.Equal(t, []string{"dec", "jan", "feb", "mar"}, ids)
}
