package crm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// DayPlan is one day of an itinerary. Description is markdown.
type DayPlan struct {
	Day         int    `json:"day"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Itinerary is a sellable tour package.
type Itinerary struct {
	ID           string
	Title        string
	Destination  string
	DurationDays int
	Price        float64
	Currency     string
	Summary      string
	Inclusions   []string
	Days         []DayPlan
	CoverImage   string
	Timestamps
}

// DecodeItinerary maps a raw record to an Itinerary.
func DecodeItinerary(r collection.Record) (Itinerary, error) {
	id, err := requireID(r)
	if err != nil {
		return Itinerary{}, err
	}
	it := Itinerary{
		ID:           id,
		Title:        r.String("title"),
		Destination:  r.String("destination"),
		DurationDays: r.Int("durationDays"),
		Price:        r.Float("price"),
		Currency:     r.String("currency"),
		Summary:      r.String("summary"),
		Inclusions:   r.Strings("inclusions"),
		CoverImage:   r.String("coverImage"),
		Timestamps:   decodeTimestamps(r),
		Days:         []DayPlan{},
	}
	if it.Title == "" {
		it.Title = r.String("name")
	}
	for i, day := range r.Records("days") {
		plan := DayPlan{Day: day.Int("day"), Title: day.String("title"), Description: day.String("description")}
		if plan.Day == 0 {
			plan.Day = i + 1
		}
		it.Days = append(it.Days, plan)
	}
	if it.DurationDays == 0 {
		it.DurationDays = len(it.Days)
	}
	return it, nil
}

var itineraryForm = []FormField{
	{Name: "title", Label: "Title", Type: FieldText, Required: true},
	{Name: "destination", Label: "Destination", Type: FieldText, Required: true},
	{Name: "durationDays", Label: "Duration (days)", Type: FieldNumber},
	{Name: "price", Label: "Price", Type: FieldNumber, Required: true},
	{Name: "currency", Label: "Currency", Type: FieldText},
	{Name: "summary", Label: "Summary", Type: FieldTextarea},
	{Name: "inclusions", Label: "Inclusions", Type: FieldTags, Help: "Comma separated"},
	{Name: "days", Label: "Day plans", Type: FieldTextarea, Help: "One day per block, starting with '## Day title'. Markdown allowed."},
	{Name: "coverImage", Label: "Cover image", Type: FieldFile},
}

// itineraryPayload builds the multipart body the itinerary endpoints expect.
// Structured fields travel as JSON strings in form fields alongside the cover upload.
func itineraryPayload(in Input, create bool) (any, error) {
	fields, err := formPayload(itineraryForm, in, create)
	if err != nil {
		return nil, err
	}
	out := collection.Multipart{Fields: make(map[string]string, len(fields))}
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			if key == "days" {
				days, err := json.Marshal(ParseDayPlans(v))
				if err != nil {
					return nil, fmt.Errorf("crm: encode day plans: %w", err)
				}
				out.Fields[key] = string(days)
				continue
			}
			out.Fields[key] = v
		case float64:
			out.Fields[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			out.Fields[key] = strconv.Itoa(v)
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("crm: encode %s: %w", key, err)
			}
			out.Fields[key] = string(raw)
		}
	}
	for _, f := range in.Files {
		if f.Field == "coverImage" && len(f.Data) > 0 {
			out.Files = append(out.Files, f)
		}
	}
	return out, nil
}

// ParseDayPlans splits "## Title" blocks into day plans.
func ParseDayPlans(src string) []DayPlan {
	var (
		plans   []DayPlan
		current *DayPlan
		body    []string
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Description = strings.TrimSpace(strings.Join(body, "\n"))
		plans = append(plans, *current)
		body = body[:0]
	}
	for _, line := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
		if title, ok := strings.CutPrefix(strings.TrimSpace(line), "## "); ok {
			flush()
			current = &DayPlan{Day: len(plans) + 1, Title: strings.TrimSpace(title)}
			continue
		}
		if current == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			current = &DayPlan{Day: 1, Title: "Day 1"}
		}
		body = append(body, line)
	}
	flush()
	if plans == nil {
		return []DayPlan{}
	}
	return plans
}

// FormatDayPlans is the inverse of ParseDayPlans.
func FormatDayPlans(days []DayPlan) string {
	blocks := make([]string, 0, len(days))
	for _, d := range days {
		title := d.Title
		if title == "" {
			title = "Day " + strconv.Itoa(d.Day)
		}
		blocks = append(blocks, "## "+title+"\n"+d.Description)
	}
	return strings.Join(blocks, "\n\n")
}

func itinerarySpec() Spec[Itinerary] {
	return Spec[Itinerary]{
		Key:              "itineraries",
		Label:            "Itineraries",
		Singular:         "Itinerary",
		Endpoint:         collection.Endpoint{Collection: "itineraries", ListKey: "itineraries", ItemKey: "itinerary"},
		Paging:           viewquery.ClientPaging,
		PageFloor:        1,
		ViewCapability:   rbac.CapItinerariesView,
		ManageCapability: rbac.CapItinerariesManage,
		Codec: collection.Codec[Itinerary]{
			Decode: DecodeItinerary,
			ID:     func(it Itinerary) string { return it.ID },
		},
		Schema: viewquery.Schema[Itinerary]{
			Fields: map[string]viewquery.Accessor[Itinerary]{
				"title":        func(it Itinerary) viewquery.Value { return viewquery.OptionalString(it.Title) },
				"destination":  func(it Itinerary) viewquery.Value { return viewquery.OptionalString(it.Destination) },
				"durationDays": func(it Itinerary) viewquery.Value { return viewquery.Int(it.DurationDays) },
				"price":        func(it Itinerary) viewquery.Value { return viewquery.Number(it.Price) },
				"summary":      func(it Itinerary) viewquery.Value { return viewquery.OptionalString(it.Summary) },
			},
			Searchable: []string{"title", "destination", "summary"},
		},
		Title: func(it Itinerary) string { return it.Title },
		Columns: []Column[Itinerary]{
			{Key: "title", Label: "Title", Render: func(it Itinerary) string { return orDash(it.Title) }},
			{Key: "destination", Label: "Destination", Render: func(it Itinerary) string { return orDash(it.Destination) }},
			{Key: "durationDays", Label: "Days", Render: func(it Itinerary) string { return strconv.Itoa(it.DurationDays) }},
			{Key: "price", Label: "Price", Render: func(it Itinerary) string { return Money(it.Price, it.Currency) }},
		},
		Form: itineraryForm,
		Values: func(it Itinerary) map[string]string {
			return map[string]string{
				"title":        it.Title,
				"destination":  it.Destination,
				"durationDays": strconv.Itoa(it.DurationDays),
				"price":        strconv.FormatFloat(it.Price, 'f', -1, 64),
				"currency":     it.Currency,
				"summary":      it.Summary,
				"inclusions":   strings.Join(it.Inclusions, ", "),
				"days":         FormatDayPlans(it.Days),
			}
		},
		Describe: func(it Itinerary) []DetailField {
			fields := []DetailField{
				{Label: "Destination", Text: orDash(it.Destination)},
				{Label: "Duration", Text: strconv.Itoa(it.DurationDays) + " days"},
				{Label: "Price", Text: Money(it.Price, it.Currency)},
				{Label: "Summary", HTML: RenderMarkdown(it.Summary), Text: orDash(it.Summary)},
				{Label: "Inclusions", Text: orDash(strings.Join(it.Inclusions, ", "))},
			}
			for _, d := range it.Days {
				fields = append(fields, DetailField{
					Label: fmt.Sprintf("Day %d: %s", d.Day, d.Title),
					Text:  d.Description,
					HTML:  RenderMarkdown(d.Description),
				})
			}
			return fields
		},
		Payload: itineraryPayload,
	}
}
