package dashboard

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/travel-admin/internal/admin/templates/helpers"
)

// Page renders the dashboard body. The cards fragment polls for fresh counts.
func Page(data PageData) templ.Component {
	return helpers.Component(func(ctx context.Context, h *helpers.HTML) {
		h.Open("section", "class", "dashboard")
		h.Open("div", "id", "dashboard-cards",
			"hx-get", data.CardsEndpoint,
			"hx-trigger", "every "+strconv.Itoa(data.PollIntervalSecond)+"s",
			"hx-swap", "innerHTML")
		h.Render(ctx, CardsFragment(data.Cards))
		h.Close("div")

		if len(data.Pipeline) > 0 {
			h.Open("section", "class", "pipeline", "aria-label", "Lead pipeline")
			h.Element("h2", "Lead pipeline")
			h.Raw(`<ol class="pipeline__stages">`)
			for _, s := range data.Pipeline {
				h.Open("li", "class", "pipeline__stage", "data-stage", s.Stage)
				h.Open("a", "href", s.Href)
				h.Element("span", s.Label, "class", "pipeline__label")
				h.Element("strong", strconv.Itoa(s.Count), "class", "pipeline__count")
				h.Close("a")
				h.Close("li")
			}
			h.Raw("</ol></section>")

			h.Open("section", "class", "reminders", "aria-label", "Due follow-ups")
			h.Element("h2", "Due follow-ups")
			if len(data.Reminders) == 0 {
				h.Element("p", "Nothing due.", "class", "reminders__empty")
			} else {
				h.Raw(`<ul class="reminders__list">`)
				for _, r := range data.Reminders {
					h.Raw("<li>")
					h.Element("a", r.Lead, "href", r.Href)
					h.Element("time", r.Due)
					if r.Note != "" {
						h.Element("span", r.Note, "class", "reminders__note")
					}
					h.Raw("</li>")
				}
				h.Raw("</ul>")
			}
			h.Close("section")
		}
		h.Close("section")
	})
}

// CardsFragment renders the module cards.
func CardsFragment(data CardsFragmentData) templ.Component {
	return helpers.Component(func(_ context.Context, h *helpers.HTML) {
		if data.Error != "" {
			h.Element("p", data.Error, "class", "alert alert--warning", "role", "alert")
		}
		h.Raw(`<ul class="cards">`)
		for _, c := range data.Cards {
			h.Open("li", "class", "card card--"+c.State, "data-card", c.Key)
			h.Open("a", "href", c.Href)
			h.Element("span", c.Label, "class", "card__label")
			h.Element("strong", c.Value, "class", "card__value")
			h.Close("a")
			if c.Error != "" {
				h.Element("span", c.Error, "class", "card__error")
			}
			h.Element("small", "Updated "+c.Updated, "class", "card__updated")
			h.Close("li")
		}
		h.Raw("</ul>")
	})
}
