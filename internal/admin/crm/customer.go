package crm

import (
	"strconv"
	"strings"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// Customer is a traveller or account holder.
type Customer struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	City           string
	Country        string
	PassportNumber string
	Notes          string
	Tags           []string
	TotalBookings  int
	Timestamps
}

// DecodeCustomer maps a raw record to a Customer.
func DecodeCustomer(r collection.Record) (Customer, error) {
	id, err := requireID(r)
	if err != nil {
		return Customer{}, err
	}
	name := r.String("name")
	if name == "" {
		name = strings.TrimSpace(r.String("firstName") + " " + r.String("lastName"))
	}
	return Customer{
		ID:             id,
		Name:           name,
		Email:          r.String("email"),
		Phone:          r.String("phone"),
		City:           r.String("city"),
		Country:        r.String("country"),
		PassportNumber: r.String("passportNumber"),
		Notes:          r.String("notes"),
		Tags:           r.Strings("tags"),
		TotalBookings:  r.Int("totalBookings"),
		Timestamps:     decodeTimestamps(r),
	}, nil
}

func customerSpec() Spec[Customer] {
	return Spec[Customer]{
		Key:              "customers",
		Label:            "Customers",
		Singular:         "Customer",
		Endpoint:         collection.Endpoint{Collection: "customers", PageSubpath: "paginate", ListKey: "customers", ItemKey: "customer"},
		Paging:           viewquery.ServerPaging,
		PageFloor:        1,
		ViewCapability:   rbac.CapCustomersView,
		ManageCapability: rbac.CapCustomersManage,
		Codec: collection.Codec[Customer]{
			Decode: DecodeCustomer,
			ID:     func(c Customer) string { return c.ID },
		},
		Schema: viewquery.Schema[Customer]{
			Fields: map[string]viewquery.Accessor[Customer]{
				"name":          func(c Customer) viewquery.Value { return viewquery.OptionalString(c.Name) },
				"email":         func(c Customer) viewquery.Value { return viewquery.OptionalString(c.Email) },
				"phone":         func(c Customer) viewquery.Value { return viewquery.OptionalString(c.Phone) },
				"city":          func(c Customer) viewquery.Value { return viewquery.OptionalString(c.City) },
				"country":       func(c Customer) viewquery.Value { return viewquery.OptionalString(c.Country) },
				"totalBookings": func(c Customer) viewquery.Value { return viewquery.Int(c.TotalBookings) },
				"createdAt":     func(c Customer) viewquery.Value { return viewquery.Time(c.CreatedAt) },
			},
			Searchable:   []string{"name", "email", "phone", "city", "country"},
			DefaultOrder: recency(func(c Customer) Timestamps { return c.Timestamps }),
		},
		Title: func(c Customer) string { return c.Name },
		Columns: []Column[Customer]{
			{Key: "name", Label: "Name", Render: func(c Customer) string { return orDash(c.Name) }},
			{Key: "email", Label: "Email", Render: func(c Customer) string { return orDash(c.Email) }},
			{Key: "phone", Label: "Phone", Render: func(c Customer) string { return orDash(c.Phone) }},
			{Key: "city", Label: "City", Render: func(c Customer) string { return orDash(c.City) }},
			{Key: "totalBookings", Label: "Bookings", Render: func(c Customer) string { return strconv.Itoa(c.TotalBookings) }},
			{Key: "createdAt", Label: "Added", Render: func(c Customer) string { return Day(c.CreatedAt) }},
		},
		Form: []FormField{
			{Name: "name", Label: "Name", Type: FieldText, Required: true},
			{Name: "email", Label: "Email", Type: FieldEmail, Required: true},
			{Name: "phone", Label: "Phone", Type: FieldPhone},
			{Name: "city", Label: "City", Type: FieldText},
			{Name: "country", Label: "Country", Type: FieldText},
			{Name: "passportNumber", Label: "Passport number", Type: FieldText},
			{Name: "tags", Label: "Tags", Type: FieldTags, Help: "Comma separated"},
			{Name: "notes", Label: "Notes", Type: FieldTextarea},
		},
		Values: func(c Customer) map[string]string {
			return map[string]string{
				"name":           c.Name,
				"email":          c.Email,
				"phone":          c.Phone,
				"city":           c.City,
				"country":        c.Country,
				"passportNumber": c.PassportNumber,
				"tags":           strings.Join(c.Tags, ", "),
				"notes":          c.Notes,
			}
		},
		Describe: func(c Customer) []DetailField {
			return []DetailField{
				{Label: "Email", Text: orDash(c.Email)},
				{Label: "Phone", Text: orDash(c.Phone)},
				{Label: "Location", Text: orDash(strings.Trim(c.City+", "+c.Country, ", "))},
				{Label: "Passport", Text: orDash(c.PassportNumber)},
				{Label: "Tags", Text: orDash(strings.Join(c.Tags, ", "))},
				{Label: "Bookings", Text: strconv.Itoa(c.TotalBookings)},
				{Label: "Notes", Text: orDash(c.Notes)},
				{Label: "Added", Text: Day(c.CreatedAt)},
			}
		},
	}
}
