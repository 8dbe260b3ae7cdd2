package crm

import (
	"strings"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// LocalSupport is an on-ground contact at a destination: guide, driver, hotel desk.
type LocalSupport struct {
	ID          string
	Name        string
	ServiceType string
	City        string
	Country     string
	Phone       string
	Email       string
	Languages   []string
	Available   bool
	Notes       string
	Timestamps
}

// DecodeLocalSupport maps a raw record to a LocalSupport contact.
func DecodeLocalSupport(r collection.Record) (LocalSupport, error) {
	id, err := requireID(r)
	if err != nil {
		return LocalSupport{}, err
	}
	ls := LocalSupport{
		ID:          id,
		Name:        r.String("name"),
		ServiceType: r.String("serviceType"),
		City:        r.String("city"),
		Country:     r.String("country"),
		Phone:       r.String("phone"),
		Email:       r.String("email"),
		Languages:   r.Strings("languages"),
		Available:   true,
		Notes:       r.String("notes"),
		Timestamps:  decodeTimestamps(r),
	}
	if r.Has("available") {
		ls.Available = r.Bool("available")
	}
	if ls.ServiceType == "" {
		ls.ServiceType = r.String("role")
	}
	return ls, nil
}

func localSupportSpec() Spec[LocalSupport] {
	return Spec[LocalSupport]{
		Key:              "local-support",
		Label:            "Local support",
		Singular:         "Contact",
		Endpoint:         collection.Endpoint{Collection: "local-support", ListKey: "localSupports", ItemKey: "localSupport"},
		Paging:           viewquery.ClientPaging,
		PageFloor:        0,
		ViewCapability:   rbac.CapLocalSupportView,
		ManageCapability: rbac.CapLocalSupportManage,
		Codec: collection.Codec[LocalSupport]{
			Decode: DecodeLocalSupport,
			ID:     func(ls LocalSupport) string { return ls.ID },
		},
		Schema: viewquery.Schema[LocalSupport]{
			Fields: map[string]viewquery.Accessor[LocalSupport]{
				"name":        func(ls LocalSupport) viewquery.Value { return viewquery.OptionalString(ls.Name) },
				"serviceType": func(ls LocalSupport) viewquery.Value { return viewquery.OptionalString(ls.ServiceType) },
				"city":        func(ls LocalSupport) viewquery.Value { return viewquery.OptionalString(ls.City) },
				"country":     func(ls LocalSupport) viewquery.Value { return viewquery.OptionalString(ls.Country) },
				"phone":       func(ls LocalSupport) viewquery.Value { return viewquery.OptionalString(ls.Phone) },
				"languages":   func(ls LocalSupport) viewquery.Value { return viewquery.OptionalString(strings.Join(ls.Languages, ", ")) },
				"available":   func(ls LocalSupport) viewquery.Value { return viewquery.Bool(ls.Available) },
			},
			Searchable: []string{"name", "serviceType", "city", "country", "phone", "languages"},
		},
		Title: func(ls LocalSupport) string { return ls.Name },
		Columns: []Column[LocalSupport]{
			{Key: "name", Label: "Name", Render: func(ls LocalSupport) string { return orDash(ls.Name) }},
			{Key: "serviceType", Label: "Service", Render: func(ls LocalSupport) string { return Label(ls.ServiceType) }},
			{Key: "city", Label: "City", Render: func(ls LocalSupport) string { return orDash(ls.City) }},
			{Key: "phone", Label: "Phone", Render: func(ls LocalSupport) string { return orDash(ls.Phone) }},
			{Key: "languages", Label: "Languages", Render: func(ls LocalSupport) string { return orDash(strings.Join(ls.Languages, ", ")) }},
			{
				Key:   "available",
				Label: "Available",
				Render: func(ls LocalSupport) string {
					if ls.Available {
						return "Yes"
					}
					return "No"
				},
				Tone: func(ls LocalSupport) string {
					if ls.Available {
						return "success"
					}
					return "neutral"
				},
			},
		},
		Form: []FormField{
			{Name: "name", Label: "Name", Type: FieldText, Required: true},
			{Name: "serviceType", Label: "Service", Type: FieldSelect, Options: []string{"guide", "driver", "hotel", "agent", "emergency"}},
			{Name: "city", Label: "City", Type: FieldText, Required: true},
			{Name: "country", Label: "Country", Type: FieldText},
			{Name: "phone", Label: "Phone", Type: FieldPhone, Required: true},
			{Name: "email", Label: "Email", Type: FieldEmail},
			{Name: "languages", Label: "Languages", Type: FieldTags, Help: "Comma separated"},
			{Name: "available", Label: "Available", Type: FieldCheckbox},
			{Name: "notes", Label: "Notes", Type: FieldTextarea},
		},
		Values: func(ls LocalSupport) map[string]string {
			available := ""
			if ls.Available {
				available = "on"
			}
			return map[string]string{
				"name":        ls.Name,
				"serviceType": ls.ServiceType,
				"city":        ls.City,
				"country":     ls.Country,
				"phone":       ls.Phone,
				"email":       ls.Email,
				"languages":   strings.Join(ls.Languages, ", "),
				"available":   available,
				"notes":       ls.Notes,
			}
		},
		Describe: func(ls LocalSupport) []DetailField {
			return []DetailField{
				{Label: "Service", Text: Label(ls.ServiceType)},
				{Label: "Location", Text: orDash(strings.Trim(ls.City+", "+ls.Country, ", "))},
				{Label: "Phone", Text: orDash(ls.Phone)},
				{Label: "Email", Text: orDash(ls.Email)},
				{Label: "Languages", Text: orDash(strings.Join(ls.Languages, ", "))},
				{Label: "Notes", Text: orDash(ls.Notes)},
			}
		},
	}
}
