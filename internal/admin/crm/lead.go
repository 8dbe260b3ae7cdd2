package crm

import (
	"strconv"
	"strings"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// LeadStages is the sales pipeline in order.
var LeadStages = []string{"new", "contacted", "qualified", "proposal", "won", "lost"}

// LeadStatuses are the follow-up states of a lead.
var LeadStatuses = []string{"open", "on_hold", "closed"}

var leadTones = map[string]string{
	"new":       "neutral",
	"contacted": "warning",
	"qualified": "warning",
	"proposal":  "warning",
	"won":       "success",
	"lost":      "danger",
}

// Remark is a note left on a lead.
type Remark struct {
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Reminder is a scheduled follow-up.
type Reminder struct {
	At   time.Time `json:"at"`
	Note string    `json:"note,omitempty"`
	Done bool      `json:"done"`
}

// Lead is a prospective customer enquiry.
type Lead struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Source       string
	Destination  string
	TravelDate   time.Time
	Travelers    int
	Budget       float64
	Stage        string
	Status       string
	AssignedTo   string
	AssigneeName string
	Remarks      []Remark
	Reminder     *Reminder
	Timestamps
}

// Closed reports whether the lead left the pipeline.
func (l Lead) Closed() bool {
	return l.Stage == "won" || l.Stage == "lost" || l.Status == "closed"
}

// DecodeLead maps a raw record to a Lead.
func DecodeLead(r collection.Record) (Lead, error) {
	id, err := requireID(r)
	if err != nil {
		return Lead{}, err
	}
	l := Lead{
		ID:          id,
		Name:        r.String("name"),
		Email:       r.String("email"),
		Phone:       r.String("phone"),
		Source:      r.String("source"),
		Destination: r.String("destination"),
		Travelers:   r.Int("travelers"),
		Budget:      r.Float("budget"),
		Stage:       strings.ToLower(r.String("stage")),
		Status:      strings.ToLower(r.String("status")),
		Remarks:     []Remark{},
		Timestamps:  decodeTimestamps(r),
	}
	l.TravelDate, _ = r.Time("travelDate")
	l.AssignedTo, l.AssigneeName = r.Ref("assignedTo", "name", "email")
	if l.Stage == "" {
		l.Stage = "new"
	}
	if l.Status == "" {
		l.Status = "open"
	}
	for _, raw := range r.Records("remarks") {
		remark := Remark{Text: raw.String("text"), Author: raw.String("author")}
		if remark.Text == "" {
			remark.Text = raw.String("remark")
		}
		remark.CreatedAt, _ = raw.Time("createdAt")
		if remark.Text != "" {
			l.Remarks = append(l.Remarks, remark)
		}
	}
	if rem := r.Record("reminder"); rem != nil {
		if at, ok := rem.Time("at"); ok {
			l.Reminder = &Reminder{At: at, Note: rem.String("note"), Done: rem.Bool("done")}
		}
	}
	return l, nil
}

func leadSpec() Spec[Lead] {
	return Spec[Lead]{
		Key:              "leads",
		Label:            "Leads",
		Singular:         "Lead",
		Endpoint:         collection.Endpoint{Collection: "leads", PageSubpath: "paginate", ListKey: "leads", ItemKey: "lead"},
		Paging:           viewquery.ServerPaging,
		PageFloor:        1,
		ViewCapability:   rbac.CapLeadsView,
		ManageCapability: rbac.CapLeadsManage,
		Codec: collection.Codec[Lead]{
			Decode: DecodeLead,
			ID:     func(l Lead) string { return l.ID },
		},
		Schema: viewquery.Schema[Lead]{
			Fields: map[string]viewquery.Accessor[Lead]{
				"name":        func(l Lead) viewquery.Value { return viewquery.OptionalString(l.Name) },
				"email":       func(l Lead) viewquery.Value { return viewquery.OptionalString(l.Email) },
				"phone":       func(l Lead) viewquery.Value { return viewquery.OptionalString(l.Phone) },
				"destination": func(l Lead) viewquery.Value { return viewquery.OptionalString(l.Destination) },
				"source":      func(l Lead) viewquery.Value { return viewquery.OptionalString(l.Source) },
				"stage":       func(l Lead) viewquery.Value { return viewquery.Int(stageIndex(l.Stage)) },
				"status":      func(l Lead) viewquery.Value { return viewquery.OptionalString(l.Status) },
				"budget":      func(l Lead) viewquery.Value { return viewquery.Number(l.Budget) },
				"followUp": func(l Lead) viewquery.Value {
					if l.Reminder == nil || l.Reminder.Done {
						return viewquery.Undefined()
					}
					return viewquery.Time(l.Reminder.At)
				},
				"createdAt": func(l Lead) viewquery.Value { return viewquery.Time(l.CreatedAt) },
			},
			Searchable:   []string{"name", "email", "phone", "destination", "source", "status"},
			DefaultOrder: recency(func(l Lead) Timestamps { return l.Timestamps }),
		},
		Title: func(l Lead) string { return l.Name },
		Columns: []Column[Lead]{
			{Key: "name", Label: "Name", Render: func(l Lead) string { return orDash(l.Name) }},
			{Key: "phone", Label: "Phone", Render: func(l Lead) string { return orDash(l.Phone) }},
			{Key: "destination", Label: "Destination", Render: func(l Lead) string { return orDash(l.Destination) }},
			{
				Key:    "stage",
				Label:  "Stage",
				Render: func(l Lead) string { return Label(l.Stage) },
				Tone:   func(l Lead) string { return toneFor(l.Stage, leadTones) },
			},
			{Key: "status", Label: "Status", Render: func(l Lead) string { return Label(l.Status) }},
			{Key: "followUp", Label: "Follow-up", Render: func(l Lead) string {
				if l.Reminder == nil || l.Reminder.Done {
					return "-"
				}
				return l.Reminder.At.Format("2006-01-02 15:04")
			}},
		},
		Form: []FormField{
			{Name: "name", Label: "Name", Type: FieldText, Required: true},
			{Name: "email", Label: "Email", Type: FieldEmail},
			{Name: "phone", Label: "Phone", Type: FieldPhone, Required: true},
			{Name: "source", Label: "Source", Type: FieldText},
			{Name: "destination", Label: "Destination", Type: FieldText},
			{Name: "travelDate", Label: "Travel date", Type: FieldDate},
			{Name: "travelers", Label: "Travellers", Type: FieldNumber},
			{Name: "budget", Label: "Budget", Type: FieldNumber},
			{Name: "stage", Label: "Stage", Type: FieldSelect, Options: LeadStages},
			{Name: "status", Label: "Status", Type: FieldSelect, Options: LeadStatuses},
			{Name: "assignedTo", Label: "Assigned user ID", Type: FieldText},
		},
		Values: func(l Lead) map[string]string {
			return map[string]string{
				"name":        l.Name,
				"email":       l.Email,
				"phone":       l.Phone,
				"source":      l.Source,
				"destination": l.Destination,
				"travelDate":  dateValue(l.TravelDate),
				"travelers":   strconv.Itoa(l.Travelers),
				"budget":      strconv.FormatFloat(l.Budget, 'f', -1, 64),
				"stage":       l.Stage,
				"status":      l.Status,
				"assignedTo":  l.AssignedTo,
			}
		},
		Describe: describeLead,
	}
}

func describeLead(l Lead) []DetailField {
	fields := []DetailField{
		{Label: "Email", Text: orDash(l.Email)},
		{Label: "Phone", Text: orDash(l.Phone)},
		{Label: "Source", Text: orDash(l.Source)},
		{Label: "Destination", Text: orDash(l.Destination)},
		{Label: "Travel date", Text: Day(l.TravelDate)},
		{Label: "Travellers", Text: strconv.Itoa(l.Travelers)},
		{Label: "Budget", Text: Money(l.Budget, "")},
		{Label: "Stage", Text: Label(l.Stage)},
		{Label: "Status", Text: Label(l.Status)},
		{Label: "Assigned to", Text: orDash(l.AssigneeName)},
	}
	if l.Reminder != nil {
		state := "pending"
		if l.Reminder.Done {
			state = "done"
		}
		fields = append(fields, DetailField{
			Label: "Follow-up",
			Text:  l.Reminder.At.Format("2006-01-02 15:04") + " (" + state + ") " + l.Reminder.Note,
		})
	}
	for _, r := range l.Remarks {
		label := "Remark"
		if r.Author != "" {
			label += " by " + r.Author
		}
		if !r.CreatedAt.IsZero() {
			label += " on " + Day(r.CreatedAt)
		}
		fields = append(fields, DetailField{Label: label, Text: r.Text})
	}
	return fields
}

func stageIndex(stage string) int {
	for i, s := range LeadStages {
		if s == stage {
			return i
		}
	}
	return len(LeadStages)
}

// LeadDetail renders l the way the leads module renders its detail panel.
func LeadDetail(l Lead) Detail {
	spec := leadSpec()
	return Detail{ID: l.ID, Title: spec.Title(l), Fields: describeLead(l), Values: spec.Values(l)}
}
