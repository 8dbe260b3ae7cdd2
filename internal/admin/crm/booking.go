package crm

import (
	"strconv"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// BookingStatuses are the states a booking moves through.
var BookingStatuses = []string{"pending", "confirmed", "cancelled", "completed"}

var bookingTones = map[string]string{
	"pending":   "warning",
	"confirmed": "success",
	"completed": "success",
	"cancelled": "danger",
}

// Booking reserves seats on an itinerary for a customer.
type Booking struct {
	ID            string
	BookingNumber string
	CustomerID    string
	CustomerName  string
	ItineraryID   string
	ItineraryName string
	BatchID       string
	Travelers     int
	Amount        float64
	AmountPaid    float64
	Currency      string
	Status        string
	TravelDate    time.Time
	Notes         string
	Timestamps
}

// Balance is the unpaid part of the booking amount.
func (b Booking) Balance() float64 {
	return b.Amount - b.AmountPaid
}

// DecodeBooking maps a raw record to a Booking. Customer and itinerary may be ids or populated objects.
func DecodeBooking(r collection.Record) (Booking, error) {
	id, err := requireID(r)
	if err != nil {
		return Booking{}, err
	}
	b := Booking{
		ID:            id,
		BookingNumber: r.String("bookingNumber"),
		Travelers:     r.Int("travelers"),
		Amount:        r.Float("amount"),
		AmountPaid:    r.Float("amountPaid"),
		Currency:      r.String("currency"),
		Status:        r.String("status"),
		Notes:         r.String("notes"),
		Timestamps:    decodeTimestamps(r),
	}
	b.CustomerID, b.CustomerName = r.Ref("customer", "name", "fullName", "email")
	if b.CustomerName == "" {
		b.CustomerName = r.String("customerName")
	}
	b.ItineraryID, b.ItineraryName = r.Ref("itinerary", "title", "name")
	b.BatchID, _ = r.Ref("batch")
	b.TravelDate, _ = r.Time("travelDate")
	if b.Status == "" {
		b.Status = "pending"
	}
	if b.Travelers == 0 && r.Has("pax") {
		b.Travelers = r.Int("pax")
	}
	return b, nil
}

func bookingSpec() Spec[Booking] {
	return Spec[Booking]{
		Key:              "bookings",
		Label:            "Bookings",
		Singular:         "Booking",
		Endpoint:         collection.Endpoint{Collection: "bookings", PageSubpath: "paginate", ListKey: "bookings", ItemKey: "booking"},
		Paging:           viewquery.ServerPaging,
		PageFloor:        0,
		ViewCapability:   rbac.CapBookingsView,
		ManageCapability: rbac.CapBookingsManage,
		Codec: collection.Codec[Booking]{
			Decode: DecodeBooking,
			ID:     func(b Booking) string { return b.ID },
		},
		Schema: viewquery.Schema[Booking]{
			Fields: map[string]viewquery.Accessor[Booking]{
				"bookingNumber": func(b Booking) viewquery.Value { return viewquery.OptionalString(b.BookingNumber) },
				"customer":      func(b Booking) viewquery.Value { return viewquery.OptionalString(b.CustomerName) },
				"itinerary":     func(b Booking) viewquery.Value { return viewquery.OptionalString(b.ItineraryName) },
				"status":        func(b Booking) viewquery.Value { return viewquery.OptionalString(b.Status) },
				"travelers":     func(b Booking) viewquery.Value { return viewquery.Int(b.Travelers) },
				"amount":        func(b Booking) viewquery.Value { return viewquery.Number(b.Amount) },
				"travelDate":    func(b Booking) viewquery.Value { return viewquery.Time(b.TravelDate) },
				"createdAt":     func(b Booking) viewquery.Value { return viewquery.Time(b.CreatedAt) },
			},
			Searchable:   []string{"bookingNumber", "customer", "itinerary", "status", "amount"},
			DefaultOrder: recency(func(b Booking) Timestamps { return b.Timestamps }),
		},
		Title: func(b Booking) string {
			if b.BookingNumber != "" {
				return b.BookingNumber
			}
			return b.ID
		},
		Columns: []Column[Booking]{
			{Key: "bookingNumber", Label: "Booking", Render: func(b Booking) string { return orDash(b.BookingNumber) }},
			{Key: "customer", Label: "Customer", Render: func(b Booking) string { return orDash(b.CustomerName) }},
			{Key: "itinerary", Label: "Itinerary", Render: func(b Booking) string { return orDash(b.ItineraryName) }},
			{Key: "travelDate", Label: "Travel date", Render: func(b Booking) string { return Day(b.TravelDate) }},
			{Key: "travelers", Label: "Pax", Render: func(b Booking) string { return strconv.Itoa(b.Travelers) }},
			{Key: "amount", Label: "Amount", Render: func(b Booking) string { return Money(b.Amount, b.Currency) }},
			{
				Key:    "status",
				Label:  "Status",
				Render: func(b Booking) string { return Label(b.Status) },
				Tone:   func(b Booking) string { return toneFor(b.Status, bookingTones) },
			},
		},
		Form: []FormField{
			{Name: "customer", Label: "Customer ID", Type: FieldText, Required: true},
			{Name: "itinerary", Label: "Itinerary ID", Type: FieldText, Required: true},
			{Name: "batch", Label: "Batch ID", Type: FieldText},
			{Name: "travelDate", Label: "Travel date", Type: FieldDate, Required: true},
			{Name: "travelers", Label: "Travellers", Type: FieldNumber, Required: true},
			{Name: "amount", Label: "Amount", Type: FieldNumber, Required: true},
			{Name: "amountPaid", Label: "Amount paid", Type: FieldNumber},
			{Name: "status", Label: "Status", Type: FieldSelect, Options: BookingStatuses},
			{Name: "notes", Label: "Notes", Type: FieldTextarea},
		},
		Values: func(b Booking) map[string]string {
			return map[string]string{
				"customer":   b.CustomerID,
				"itinerary":  b.ItineraryID,
				"batch":      b.BatchID,
				"travelDate": dateValue(b.TravelDate),
				"travelers":  strconv.Itoa(b.Travelers),
				"amount":     strconv.FormatFloat(b.Amount, 'f', -1, 64),
				"amountPaid": strconv.FormatFloat(b.AmountPaid, 'f', -1, 64),
				"status":     b.Status,
				"notes":      b.Notes,
			}
		},
		Describe: func(b Booking) []DetailField {
			return []DetailField{
				{Label: "Customer", Text: orDash(b.CustomerName)},
				{Label: "Itinerary", Text: orDash(b.ItineraryName)},
				{Label: "Travel date", Text: Day(b.TravelDate)},
				{Label: "Travellers", Text: strconv.Itoa(b.Travelers)},
				{Label: "Amount", Text: Money(b.Amount, b.Currency)},
				{Label: "Paid", Text: Money(b.AmountPaid, b.Currency)},
				{Label: "Balance", Text: Money(b.Balance(), b.Currency)},
				{Label: "Status", Text: Label(b.Status)},
				{Label: "Notes", Text: orDash(b.Notes)},
			}
		},
	}
}
