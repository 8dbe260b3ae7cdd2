package crm

import (
	"strconv"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// InvoiceStatuses are the billing states of an invoice.
var InvoiceStatuses = []string{"draft", "sent", "paid", "partially_paid", "overdue", "void"}

var invoiceTones = map[string]string{
	"draft":          "neutral",
	"sent":           "warning",
	"partially_paid": "warning",
	"paid":           "success",
	"overdue":        "danger",
	"void":           "neutral",
}

// Invoice bills a customer for a booking. Amounts are taken as issued by the API.
type Invoice struct {
	ID            string
	InvoiceNumber string
	CustomerID    string
	CustomerName  string
	BookingID     string
	Subtotal      float64
	Tax           float64
	Total         float64
	Currency      string
	Status        string
	IssuedAt      time.Time
	DueDate       time.Time
	Notes         string
	Timestamps
}

// DecodeInvoice maps a raw record to an Invoice.
func DecodeInvoice(r collection.Record) (Invoice, error) {
	id, err := requireID(r)
	if err != nil {
		return Invoice{}, err
	}
	inv := Invoice{
		ID:            id,
		InvoiceNumber: r.String("invoiceNumber"),
		Subtotal:      r.Float("subtotal"),
		Tax:           r.Float("tax"),
		Total:         r.Float("total"),
		Currency:      r.String("currency"),
		Status:        r.String("status"),
		Notes:         r.String("notes"),
		Timestamps:    decodeTimestamps(r),
	}
	inv.CustomerID, inv.CustomerName = r.Ref("customer", "name", "email")
	inv.BookingID, _ = r.Ref("booking")
	inv.IssuedAt, _ = r.Time("issuedAt")
	inv.DueDate, _ = r.Time("dueDate")
	if inv.Total == 0 && !r.Has("total") {
		inv.Total = inv.Subtotal + inv.Tax
	}
	if inv.Status == "" {
		inv.Status = "draft"
	}
	return inv, nil
}

func invoiceSpec() Spec[Invoice] {
	return Spec[Invoice]{
		Key:              "invoices",
		Label:            "Invoices",
		Singular:         "Invoice",
		Endpoint:         collection.Endpoint{Collection: "invoices", PageSubpath: "paginate", ListKey: "invoices", ItemKey: "invoice"},
		Paging:           viewquery.ServerPaging,
		PageFloor:        0,
		ViewCapability:   rbac.CapInvoicesView,
		ManageCapability: rbac.CapInvoicesManage,
		Codec: collection.Codec[Invoice]{
			Decode: DecodeInvoice,
			ID:     func(inv Invoice) string { return inv.ID },
		},
		Schema: viewquery.Schema[Invoice]{
			Fields: map[string]viewquery.Accessor[Invoice]{
				"invoiceNumber": func(inv Invoice) viewquery.Value { return viewquery.OptionalString(inv.InvoiceNumber) },
				"customer":      func(inv Invoice) viewquery.Value { return viewquery.OptionalString(inv.CustomerName) },
				"total":         func(inv Invoice) viewquery.Value { return viewquery.Number(inv.Total) },
				"status":        func(inv Invoice) viewquery.Value { return viewquery.OptionalString(inv.Status) },
				"issuedAt":      func(inv Invoice) viewquery.Value { return viewquery.Time(inv.IssuedAt) },
				"dueDate":       func(inv Invoice) viewquery.Value { return viewquery.Time(inv.DueDate) },
			},
			Searchable:   []string{"invoiceNumber", "customer", "status", "total"},
			DefaultOrder: recency(func(inv Invoice) Timestamps { return inv.Timestamps }),
		},
		Title: func(inv Invoice) string {
			if inv.InvoiceNumber != "" {
				return inv.InvoiceNumber
			}
			return inv.ID
		},
		Columns: []Column[Invoice]{
			{Key: "invoiceNumber", Label: "Invoice", Render: func(inv Invoice) string { return orDash(inv.InvoiceNumber) }},
			{Key: "customer", Label: "Customer", Render: func(inv Invoice) string { return orDash(inv.CustomerName) }},
			{Key: "issuedAt", Label: "Issued", Render: func(inv Invoice) string { return Day(inv.IssuedAt) }},
			{Key: "dueDate", Label: "Due", Render: func(inv Invoice) string { return Day(inv.DueDate) }},
			{Key: "total", Label: "Total", Render: func(inv Invoice) string { return Money(inv.Total, inv.Currency) }},
			{
				Key:    "status",
				Label:  "Status",
				Render: func(inv Invoice) string { return Label(inv.Status) },
				Tone:   func(inv Invoice) string { return toneFor(inv.Status, invoiceTones) },
			},
		},
		Form: []FormField{
			{Name: "customer", Label: "Customer ID", Type: FieldText, Required: true},
			{Name: "booking", Label: "Booking ID", Type: FieldText},
			{Name: "subtotal", Label: "Subtotal", Type: FieldNumber, Required: true},
			{Name: "tax", Label: "Tax", Type: FieldNumber},
			{Name: "total", Label: "Total", Type: FieldNumber},
			{Name: "currency", Label: "Currency", Type: FieldText},
			{Name: "issuedAt", Label: "Issued on", Type: FieldDate},
			{Name: "dueDate", Label: "Due date", Type: FieldDate},
			{Name: "status", Label: "Status", Type: FieldSelect, Options: InvoiceStatuses},
			{Name: "notes", Label: "Notes", Type: FieldTextarea},
		},
		Values: func(inv Invoice) map[string]string {
			return map[string]string{
				"customer": inv.CustomerID,
				"booking":  inv.BookingID,
				"subtotal": strconv.FormatFloat(inv.Subtotal, 'f', -1, 64),
				"tax":      strconv.FormatFloat(inv.Tax, 'f', -1, 64),
				"total":    strconv.FormatFloat(inv.Total, 'f', -1, 64),
				"currency": inv.Currency,
				"issuedAt": dateValue(inv.IssuedAt),
				"dueDate":  dateValue(inv.DueDate),
				"status":   inv.Status,
				"notes":    inv.Notes,
			}
		},
		Describe: func(inv Invoice) []DetailField {
			return []DetailField{
				{Label: "Customer", Text: orDash(inv.CustomerName)},
				{Label: "Booking", Text: orDash(inv.BookingID)},
				{Label: "Subtotal", Text: Money(inv.Subtotal, inv.Currency)},
				{Label: "Tax", Text: Money(inv.Tax, inv.Currency)},
				{Label: "Total", Text: Money(inv.Total, inv.Currency)},
				{Label: "Issued", Text: Day(inv.IssuedAt)},
				{Label: "Due", Text: Day(inv.DueDate)},
				{Label: "Status", Text: Label(inv.Status)},
				{Label: "Notes", Text: orDash(inv.Notes)},
			}
		},
	}
}
