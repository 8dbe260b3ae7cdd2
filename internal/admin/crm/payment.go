package crm

import (
	"strconv"
	"time"

	"finitefield.org/travel-admin/internal/admin/collection"
	"finitefield.org/travel-admin/internal/admin/rbac"
	"finitefield.org/travel-admin/internal/admin/viewquery"
)

// PaymentMethods accepted by the accounts team.
var PaymentMethods = []string{"cash", "card", "bank_transfer", "upi", "cheque"}

// PaymentStatuses are the settlement states of a payment.
var PaymentStatuses = []string{"pending", "completed", "failed", "refunded"}

var paymentTones = map[string]string{
	"pending":   "warning",
	"completed": "success",
	"failed":    "danger",
	"refunded":  "neutral",
}

// Payment is money received against an invoice or booking.
type Payment struct {
	ID           string
	Reference    string
	InvoiceID    string
	InvoiceLabel string
	CustomerID   string
	CustomerName string
	Amount       float64
	Currency     string
	Method       string
	Status       string
	PaidAt       time.Time
	Timestamps
}

// DecodePayment maps a raw record to a Payment.
func DecodePayment(r collection.Record) (Payment, error) {
	id, err := requireID(r)
	if err != nil {
		return Payment{}, err
	}
	p := Payment{
		ID:         id,
		Reference:  r.String("reference"),
		Amount:     r.Float("amount"),
		Currency:   r.String("currency"),
		Method:     r.String("method"),
		Status:     r.String("status"),
		Timestamps: decodeTimestamps(r),
	}
	if p.Reference == "" {
		p.Reference = r.String("transactionId")
	}
	p.InvoiceID, p.InvoiceLabel = r.Ref("invoice", "invoiceNumber")
	p.CustomerID, p.CustomerName = r.Ref("customer", "name", "email")
	p.PaidAt, _ = r.Time("paidAt")
	if p.Status == "" {
		p.Status = "completed"
	}
	return p, nil
}

func paymentSpec() Spec[Payment] {
	return Spec[Payment]{
		Key:              "payments",
		Label:            "Payments",
		Singular:         "Payment",
		Endpoint:         collection.Endpoint{Collection: "payments", ListKey: "payments", ItemKey: "payment"},
		Paging:           viewquery.ClientPaging,
		PageFloor:        1,
		ViewCapability:   rbac.CapPaymentsView,
		ManageCapability: rbac.CapPaymentsManage,
		Codec: collection.Codec[Payment]{
			Decode: DecodePayment,
			ID:     func(p Payment) string { return p.ID },
		},
		Schema: viewquery.Schema[Payment]{
			Fields: map[string]viewquery.Accessor[Payment]{
				"reference": func(p Payment) viewquery.Value { return viewquery.OptionalString(p.Reference) },
				"invoice":   func(p Payment) viewquery.Value { return viewquery.OptionalString(p.InvoiceLabel) },
				"customer":  func(p Payment) viewquery.Value { return viewquery.OptionalString(p.CustomerName) },
				"amount":    func(p Payment) viewquery.Value { return viewquery.Number(p.Amount) },
				"method":    func(p Payment) viewquery.Value { return viewquery.OptionalString(p.Method) },
				"status":    func(p Payment) viewquery.Value { return viewquery.OptionalString(p.Status) },
				"paidAt":    func(p Payment) viewquery.Value { return viewquery.Time(p.PaidAt) },
			},
			Searchable:   []string{"reference", "invoice", "customer", "method", "amount"},
			DefaultOrder: recency(func(p Payment) Timestamps { return p.Timestamps }),
		},
		Title: func(p Payment) string {
			if p.Reference != "" {
				return p.Reference
			}
			return p.ID
		},
		Columns: []Column[Payment]{
			{Key: "reference", Label: "Reference", Render: func(p Payment) string { return orDash(p.Reference) }},
			{Key: "invoice", Label: "Invoice", Render: func(p Payment) string { return orDash(p.InvoiceLabel) }},
			{Key: "customer", Label: "Customer", Render: func(p Payment) string { return orDash(p.CustomerName) }},
			{Key: "paidAt", Label: "Paid on", Render: func(p Payment) string { return Day(p.PaidAt) }},
			{Key: "method", Label: "Method", Render: func(p Payment) string { return Label(p.Method) }},
			{Key: "amount", Label: "Amount", Render: func(p Payment) string { return Money(p.Amount, p.Currency) }},
			{
				Key:    "status",
				Label:  "Status",
				Render: func(p Payment) string { return Label(p.Status) },
				Tone:   func(p Payment) string { return toneFor(p.Status, paymentTones) },
			},
		},
		Form: []FormField{
			{Name: "invoice", Label: "Invoice ID", Type: FieldText},
			{Name: "customer", Label: "Customer ID", Type: FieldText, Required: true},
			{Name: "amount", Label: "Amount", Type: FieldNumber, Required: true},
			{Name: "currency", Label: "Currency", Type: FieldText},
			{Name: "method", Label: "Method", Type: FieldSelect, Options: PaymentMethods, Required: true},
			{Name: "reference", Label: "Reference", Type: FieldText},
			{Name: "paidAt", Label: "Paid on", Type: FieldDate},
			{Name: "status", Label: "Status", Type: FieldSelect, Options: PaymentStatuses},
		},
		Values: func(p Payment) map[string]string {
			return map[string]string{
				"invoice":   p.InvoiceID,
				"customer":  p.CustomerID,
				"amount":    strconv.FormatFloat(p.Amount, 'f', -1, 64),
				"currency":  p.Currency,
				"method":    p.Method,
				"reference": p.Reference,
				"paidAt":    dateValue(p.PaidAt),
				"status":    p.Status,
			}
		},
		Describe: func(p Payment) []DetailField {
			return []DetailField{
				{Label: "Invoice", Text: orDash(p.InvoiceLabel)},
				{Label: "Customer", Text: orDash(p.CustomerName)},
				{Label: "Amount", Text: Money(p.Amount, p.Currency)},
				{Label: "Method", Text: Label(p.Method)},
				{Label: "Paid on", Text: Day(p.PaidAt)},
				{Label: "Status", Text: Label(p.Status)},
			}
		},
	}
}
