package crm

import (
	"strconv"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// BatchStatuses are the states of a departure batch.
var BatchStatuses = []string{"open", "full", "closed", "departed", "cancelled"}

var batchTones = map[string]string{
	"open":      "success",
	"full":      "warning",
	"closed":    "neutral",
	"departed":  "neutral",
	"cancelled": "danger",
}

// Batch is one scheduled departure of an itinerary.
type Batch struct {
	ID            string
	Code          string
	ItineraryID   string
	ItineraryName string
	StartDate     time.Time
	EndDate       time.Time
	Capacity      int
	Booked        int
	Status        string
	Timestamps
}

// SeatsLeft never goes below zero.
func (b Batch) SeatsLeft() int {
	return max(b.Capacity-b.Booked, 0)
}

// DecodeBatch maps a raw record to a Batch.
func DecodeBatch(r collection.Record) (Batch, error) {
	id, err := requireID(r)
	if err != nil {
		return Batch{}, err
	}
	b := Batch{
		ID:         id,
		Code:       r.String("code"),
		Capacity:   r.Int("capacity"),
		Booked:     r.Int("bookedSeats"),
		Status:     r.String("status"),
		Timestamps: decodeTimestamps(r),
	}
	if b.Code == "" {
		b.Code = r.String("name")
	}
	b.ItineraryID, b.ItineraryName = r.Ref("itinerary", "title", "name")
	b.StartDate, _ = r.Time("startDate")
	b.EndDate, _ = r.Time("endDate")
	if b.Status == "" {
		b.Status = "open"
	}
	return b, nil
}

func batchSpec() Spec[Batch] {
	return Spec[Batch]{
		Key:              "batches",
		Label:            "Batches",
		Singular:         "Batch",
		Endpoint:         collection.Endpoint{Collection: "batches", ListKey: "batches", ItemKey: "batch"},
		Paging:           viewquery.ClientPaging,
		PageFloor:        1,
		ViewCapability:   rbac.CapBatchesView,
		ManageCapability: rbac.CapBatchesManage,
		Codec: collection.Codec[Batch]{
			Decode: DecodeBatch,
			ID:     func(b Batch) string { return b.ID },
		},
		Schema: viewquery.Schema[Batch]{
			Fields: map[string]viewquery.Accessor[Batch]{
				"code":      func(b Batch) viewquery.Value { return viewquery.OptionalString(b.Code) },
				"itinerary": func(b Batch) viewquery.Value { return viewquery.OptionalString(b.ItineraryName) },
				"startDate": func(b Batch) viewquery.Value { return viewquery.Time(b.StartDate) },
				"endDate":   func(b Batch) viewquery.Value { return viewquery.Time(b.EndDate) },
				"seatsLeft": func(b Batch) viewquery.Value { return viewquery.Int(b.SeatsLeft()) },
				"status":    func(b Batch) viewquery.Value { return viewquery.OptionalString(b.Status) },
			},
			Searchable:   []string{"code", "itinerary", "status"},
			DefaultOrder: recency(func(b Batch) Timestamps { return b.Timestamps }),
		},
		Title: func(b Batch) string { return b.Code },
		Columns: []Column[Batch]{
			{Key: "code", Label: "Batch", Render: func(b Batch) string { return orDash(b.Code) }},
			{Key: "itinerary", Label: "Itinerary", Render: func(b Batch) string { return orDash(b.ItineraryName) }},
			{Key: "startDate", Label: "Starts", Render: func(b Batch) string { return Day(b.StartDate) }},
			{Key: "endDate", Label: "Ends", Render: func(b Batch) string { return Day(b.EndDate) }},
			{Key: "seatsLeft", Label: "Seats left", Render: func(b Batch) string {
				return strconv.Itoa(b.SeatsLeft()) + " / " + strconv.Itoa(b.Capacity)
			}},
			{
				Key:    "status",
				Label:  "Status",
				Render: func(b Batch) string { return Label(b.Status) },
				Tone:   func(b Batch) string { return toneFor(b.Status, batchTones) },
			},
		},
		Form: []FormField{
			{Name: "code", Label: "Batch code", Type: FieldText, Required: true},
			{Name: "itinerary", Label: "Itinerary ID", Type: FieldText, Required: true},
			{Name: "startDate", Label: "Start date", Type: FieldDate, Required: true},
			{Name: "endDate", Label: "End date", Type: FieldDate},
			{Name: "capacity", Label: "Capacity", Type: FieldNumber, Required: true},
			{Name: "bookedSeats", Label: "Booked seats", Type: FieldNumber},
			{Name: "status", Label: "Status", Type: FieldSelect, Options: BatchStatuses},
		},
		Values: func(b Batch) map[string]string {
			return map[string]string{
				"code":        b.Code,
				"itinerary":   b.ItineraryID,
				"startDate":   dateValue(b.StartDate),
				"endDate":     dateValue(b.EndDate),
				"capacity":    strconv.Itoa(b.Capacity),
				"bookedSeats": strconv.Itoa(b.Booked),
				"status":      b.Status,
			}
		},
		Describe: func(b Batch) []DetailField {
			return []DetailField{
				{Label: "Itinerary", Text: orDash(b.ItineraryName)},
				{Label: "Dates", Text: Day(b.StartDate) + " to " + Day(b.EndDate)},
				{Label: "Capacity", Text: strconv.Itoa(b.Capacity)},
				{Label: "Booked", Text: strconv.Itoa(b.Booked)},
				{Label: "Seats left", Text: strconv.Itoa(b.SeatsLeft())},
				{Label: "Status", Text: Label(b.Status)},
			}
		},
	}
}
