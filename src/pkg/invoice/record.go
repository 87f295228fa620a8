package invoice

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"invoice-bot/src/pkg/money"
)

// Record is one loosely-typed row as the store returns it (column name -> value).
type Record = map[string]any

// Column names of the invoices and invoice_items tables.
const (
	ColumnInvoiceID       = "invoice_id"
	ColumnCustomerName    = "customer_name"
	ColumnCustomerPhone   = "customer_phone"
	ColumnCustomerAddress = "customer_address"
	ColumnInvoiceDate     = "invoice_date"
	ColumnStatus          = "status"
	ColumnSubTotal        = "sub_total"
	ColumnDiscountAmount  = "discount_amount"
	ColumnShippingCost    = "shipping_cost"
	ColumnFinalTotal      = "final_total"
	ColumnProductName     = "product_name"
	ColumnDetails         = "details"
)

/*
Customer holds the customer fields of a header. Empty strings mean the
column was absent or null; renderers pick the fallback text.
*/
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

/*
Totals holds the four coerced monetary fields of a header.

SubTotal is authoritative for display and is never recomputed from items.
*/
type Totals struct {
	SubTotal       float64 `json:"sub_total"`
	DiscountAmount float64 `json:"discount_amount"`
	ShippingCost   float64 `json:"shipping_cost"`
	FinalTotal     float64 `json:"final_total"`
}

// Header is the single aggregate row describing one invoice.
type Header struct {
	ID       int64    `json:"invoice_id"`
	Customer Customer `json:"customer"`
	Date     string   `json:"invoice_date"`
	Status   string   `json:"status"`
	Totals   Totals   `json:"totals"`
}

// Item is one line entry of an invoice. Empty Name/Details mean absent.
type Item struct {
	Name     string  `json:"product_name"`
	Details  string  `json:"details"`
	SubTotal float64 `json:"sub_total"`
}

/*
Invoice is the per-request aggregate: one header plus its items in retrieval order.

It is built fresh for every request and never shared.
*/
type Invoice struct {
	Header Header `json:"header"`
	Items  []Item `json:"items"`
}

/*
FromRecords shapes the raw header row and item rows into an Invoice.

The requested id is used as the invoice id. Monetary fields go through
money.Coerce, text fields are stringified and empty/null values are kept
as "" so each renderer can apply its own fallback.
*/
func FromRecords(invoiceID int64, header Record, itemRecords []Record) Invoice {
	inv := Invoice{
		Header: Header{
			ID: invoiceID,
			Customer: Customer{
				Name:    Text(header[ColumnCustomerName]),
				Phone:   Text(header[ColumnCustomerPhone]),
				Address: Text(header[ColumnCustomerAddress]),
			},
			Date:   Text(header[ColumnInvoiceDate]),
			Status: Text(header[ColumnStatus]),
			Totals: Totals{
				SubTotal:       money.Coerce(header[ColumnSubTotal]),
				DiscountAmount: money.Coerce(header[ColumnDiscountAmount]),
				ShippingCost:   money.Coerce(header[ColumnShippingCost]),
				FinalTotal:     money.Coerce(header[ColumnFinalTotal]),
			},
		},
		Items: make([]Item, 0, len(itemRecords)),
	}

	for _, record := range itemRecords {
		inv.Items = append(inv.Items, Item{
			Name:     Text(record[ColumnProductName]),
			Details:  Text(record[ColumnDetails]),
			SubTotal: money.Coerce(record[ColumnSubTotal]),
		})
	}

	return inv
}

/*
Text stringifies a loosely-typed column value. nil becomes "".

Timestamps (as returned by SQL drivers) are rendered as RFC3339 so the
date formatter can parse them like the text form the REST API returns.
*/
func Text(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	case json.Number:
		return typed.String()
	case time.Time:
		return typed.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return typed.String()
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}

func orDefault(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
