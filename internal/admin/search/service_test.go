package search_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/travel-admin/internal/admin/crm"
	"finitefield.org/travel-admin/internal/admin/search"
	"finitefield.org/travel-admin/internal/admin/testutil"
)

func visibleKeys(keys ...string) func(crm.Definition) bool {
	return func(def crm.Definition) bool {
		for _, k := range keys {
			if k == def.Key {
				return true
			}
		}
		return false
	}
}

func TestSearchGroupsHitsPerModule(t *testing.T) {
	t.Parallel()

	api := testutil.NewFakeAPI(t)
	api.Seed("customers",
		testutil.Doc{"name": "Asha Rao", "city": "Goa"},
		testutil.Doc{"name": "Vikram Iyer", "city": "Pune"},
	)
	api.Seed("local-support", testutil.Doc{"name": "Goa Cabs", "serviceType": "driver", "city": "Panaji"})
	api.Seed("itineraries", testutil.Doc{"title": "Kerala backwaters", "destination": "Kerala"})
	api.Fail(http.MethodGet, "/payments", http.StatusBadGateway, "ledger offline")

	reg, err := crm.NewRegistry(api.Client())
	require.NoError(t, err)
	svc := search.NewService(reg)

	visible := visibleKeys("customers", "local-support", "itineraries", "payments")
	res, err := svc.Search(context.Background(), search.Query{Term: "GOA"}, visible)
	require.NoError(t, err)
	require.Equal(t, "GOA", res.Term)

	groups := map[string]search.ResultGroup{}
	for _, g := range res.Groups {
		groups[g.Key] = g
	}
	require.Len(t, groups["customers"].Hits, 1)
	require.Equal(t, "Asha Rao", groups["customers"].Hits[0].Title)
	require.Len(t, groups["local-support"].Hits, 1)
	require.NotContains(t, groups, "itineraries", "groups without hits are dropped")
	require.Equal(t, "ledger offline", groups["payments"].Failed)
	require.Equal(t, 2, res.Total)

	before := api.TotalCalls()
	_, err = svc.Search(context.Background(), search.Query{Term: "asha"}, visible)
	require.NoError(t, err)
	require.Equal(t, before+1, api.TotalCalls(), "only the failed module is fetched again")
}

func TestSearchBlankTermSkipsWork(t *testing.T) {
	t.Parallel()

	api := testutil.NewFakeAPI(t)
	reg, err := crm.NewRegistry(api.Client())
	require.NoError(t, err)

	res, err := search.NewService(reg).Search(context.Background(), search.Query{Term: "  "}, nil)
	require.NoError(t, err)
	require.Empty(t, res.Groups)
	require.Zero(t, api.TotalCalls())
}
