package dashboard

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	admindashboard "finitefield.org/travel-admin/internal/admin/dashboard"
)

func TestBuildPageDataAndRender(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	overview := admindashboard.Overview{
		GeneratedAt: now,
		Cards: []admindashboard.Card{
			{Key: "customers", Label: "Customers", Count: 42, RefreshedAt: now.Add(-5 * time.Minute)},
			{Key: "payments", Label: "Payments", Error: "ledger offline"},
		},
		Pipeline: []admindashboard.StageCount{{Stage: "new", Count: 3}, {Stage: "won", Count: 1}},
		DueReminders: []admindashboard.Reminder{
			{LeadID: "lea-1", LeadName: "Kerala honeymoon", Note: "send quote", At: now.Add(-time.Hour)},
		},
	}

	data := BuildPageData("/admin", overview)
	require.Equal(t, "/admin/fragments/cards", data.CardsEndpoint)
	require.Equal(t, "5m ago", data.Cards.Cards[0].Updated)
	require.Equal(t, "failed", data.Cards.Cards[1].State)
	require.Equal(t, "-", data.Cards.Cards[1].Value)
	require.Equal(t, "/admin/leads?q=Kerala+honeymoon", data.Reminders[0].Href)

	var buf bytes.Buffer
	require.NoError(t, Page(data).Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	require.Equal(t, "every 60s", doc.Find("#dashboard-cards").AttrOr("hx-trigger", ""))
	require.Equal(t, "42", doc.Find(`[data-card="customers"] .card__value`).Text())
	require.Equal(t, "ledger offline", doc.Find(`[data-card="payments"] .card__error`).Text())
	require.Equal(t, "3", doc.Find(`[data-stage="new"] .pipeline__count`).Text())
	require.Equal(t, "Kerala honeymoon", doc.Find(".reminders__list a").Text())
}

func TestPageWithoutPipelineOmitsLeadSections(t *testing.T) {
	t.Parallel()

	data := BuildPageData("/", admindashboard.Overview{Cards: []admindashboard.Card{{Key: "invoices", Label: "Invoices"}}})
	var buf bytes.Buffer
	require.NoError(t, Page(data).Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	require.Equal(t, 0, doc.Find(".pipeline").Length())
	require.Equal(t, 0, doc.Find(".reminders").Length())
	require.Equal(t, "/invoices", doc.Find(`[data-card="invoices"] a`).AttrOr("href", ""))
}

func TestCardsFragmentShowsRefreshError(t *testing.T) {
	t.Parallel()

	data := CardsFragmentPayload("/admin", admindashboard.Overview{}, errors.New("payments: ledger offline"))
	var buf bytes.Buffer
	require.NoError(t, CardsFragment(data).Render(context.Background(), &buf))
	require.Contains(t, buf.String(), "payments: ledger offline")
}
