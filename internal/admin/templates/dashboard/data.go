package dashboard

import (
	"net/url"
	"strconv"
	"time"

	"finitefield.org/travel-admin/internal/admin/crm"
	admindashboard "finitefield.org/travel-admin/internal/admin/dashboard"
	"finitefield.org/travel-admin/internal/admin/templates/helpers"
)

// PageData represents the full dashboard SSR payload.
type PageData struct {
	Cards              CardsFragmentData
	Pipeline           []StageView
	Reminders          []ReminderView
	CardsEndpoint      string
	PollIntervalSecond int
}

// CardsFragmentData holds the module cards payload.
type CardsFragmentData struct {
	Cards []CardView
	Error string
}

// CardView is the rendered representation of a module card.
type CardView struct {
	Key     string
	Label   string
	Value   string
	Href    string
	State   string
	Error   string
	Updated string
}

// StageView is one pipeline column.
type StageView struct {
	Stage string
	Label string
	Count int
	Href  string
}

// ReminderView is one due follow-up.
type ReminderView struct {
	Lead string
	Note string
	Due  string
	Href string
}

// BuildPageData prepares the template payload for SSR rendering.
func BuildPageData(basePath string, overview admindashboard.Overview) PageData {
	data := PageData{
		Cards:              CardsFragmentPayload(basePath, overview, nil),
		CardsEndpoint:      helpers.JoinPath(basePath, "fragments", "cards"),
		PollIntervalSecond: 60,
	}
	for _, s := range overview.Pipeline {
		data.Pipeline = append(data.Pipeline, StageView{
			Stage: s.Stage,
			Label: crm.Label(s.Stage),
			Count: s.Count,
			Href:  helpers.JoinPath(basePath, "leads"),
		})
	}
	for _, r := range overview.DueReminders {
		data.Reminders = append(data.Reminders, ReminderView{
			Lead: r.LeadName,
			Note: r.Note,
			Due:  helpers.Date(r.At, "02 Jan 15:04"),
			Href: searchURL(basePath, "leads", r.LeadName),
		})
	}
	return data
}

// CardsFragmentPayload converts the overview cards. err is shown above the cards when the refresh failed as a whole.
func CardsFragmentPayload(basePath string, overview admindashboard.Overview, err error) CardsFragmentData {
	out := CardsFragmentData{Cards: make([]CardView, 0, len(overview.Cards))}
	if err != nil {
		out.Error = err.Error()
	}
	for _, c := range overview.Cards {
		out.Cards = append(out.Cards, cardView(basePath, c, overview.GeneratedAt))
	}
	return out
}

func cardView(basePath string, c admindashboard.Card, now time.Time) CardView {
	view := CardView{
		Key:     c.Key,
		Label:   c.Label,
		Value:   strconv.Itoa(c.Count),
		Href:    helpers.JoinPath(basePath, c.Key),
		State:   "ok",
		Updated: helpers.Relative(c.RefreshedAt, now),
	}
	switch {
	case c.Loading:
		view.State = "loading"
	case c.Error != "":
		view.State = "failed"
		view.Error = c.Error
		if c.RefreshedAt.IsZero() {
			view.Value = "-"
		}
	}
	return view
}

func searchURL(basePath, module, term string) string {
	return helpers.JoinPath(basePath, module) + "?" + url.Values{"q": {term}}.Encode()
}
