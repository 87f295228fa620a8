package invoice

import (
	"html"
	"strconv"
	"strings"
	"time"

	"invoice-bot/src/pkg/money"
)

// Placeholder tokens recognized in the document body. The set is closed.
const (
	TokenInvoiceID       = "{{invoice_id}}"
	TokenInvoiceDate     = "{{invoice_date}}"
	TokenCustomerName    = "{{customer_name}}"
	TokenCustomerPhone   = "{{customer_phone}}"
	TokenCustomerAddress = "{{customer_address}}"
	TokenSubTotal        = "{{sub_total}}"
	TokenDiscountSection = "{{discount_section}}"
	TokenFinalTotal      = "{{final_total}}"
	TokenItemsRows       = "{{items_rows}}"
)

// Tokens lists every recognized placeholder.
var Tokens = []string{
	TokenInvoiceID,
	TokenInvoiceDate,
	TokenCustomerName,
	TokenCustomerPhone,
	TokenCustomerAddress,
	TokenSubTotal,
	TokenDiscountSection,
	TokenFinalTotal,
	TokenItemsRows,
}

// invoiceDateLayouts are the ISO-8601 shapes the store has been seen to return.
var invoiceDateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

/*
Populate replaces every recognized placeholder token in fragment with the
values derived from inv.

Substitution is a single pass over the fragment: replacement text is never
scanned again, so values that happen to contain "{{...}}" stay literal.
Tokens outside the recognized set are left untouched.
*/
func Populate(fragment string, inv Invoice, cfg Config) string {
	header := inv.Header
	suffix := cfg.CurrencySuffix

	replacer := strings.NewReplacer(
		TokenInvoiceID, strconv.FormatInt(header.ID, 10),
		TokenInvoiceDate, html.EscapeString(FormatInvoiceDate(header.Date)),
		TokenCustomerName, html.EscapeString(orDefault(header.Customer.Name, cfg.Unknown)),
		TokenCustomerPhone, html.EscapeString(orDefault(header.Customer.Phone, cfg.NotRegistered)),
		TokenCustomerAddress, html.EscapeString(orDefault(header.Customer.Address, cfg.NotRegistered)),
		TokenSubTotal, html.EscapeString(money.WithSuffix(money.Fixed(header.Totals.SubTotal), suffix)),
		TokenDiscountSection, DiscountSection(header.Totals, suffix),
		TokenFinalTotal, html.EscapeString(money.WithSuffix(money.Fixed(header.Totals.FinalTotal), suffix)),
		TokenItemsRows, ItemsRows(inv.Items, cfg),
	)
	return replacer.Replace(fragment)
}

/*
DiscountSection renders the discount and shipping rows of the totals table.

It is empty when both amounts are zero.
*/
func DiscountSection(totals Totals, currencySuffix string) string {
	section := ""
	if totals.DiscountAmount > 0 {
		section += `<tr><td>خصم:</td><td class="total">- ` + html.EscapeString(money.WithSuffix(money.Fixed(totals.DiscountAmount), currencySuffix)) + `</td></tr>`
	}
	if totals.ShippingCost > 0 {
		section += `<tr><td>مصاريف الشحن:</td><td class="total">+ ` + html.EscapeString(money.WithSuffix(money.Fixed(totals.ShippingCost), currencySuffix)) + `</td></tr>`
	}
	return section
}

/*
ItemsRows concatenates the markup row of every item in retrieval order.
Unlike the chat summary, the document shows all items.
*/
func ItemsRows(items []Item, cfg Config) string {
	var builder strings.Builder
	for _, item := range items {
		builder.WriteString(MarkupRow(item, cfg.DocumentItemDefaults, cfg.CurrencySuffix))
	}
	return builder.String()
}

/*
DocumentLines lays out the content of the populated document as plain text,
one entry per line, for renderers that cannot read markup. Like the document
it lists every item.
*/
func DocumentLines(inv Invoice, cfg Config) []string {
	header := inv.Header
	suffix := cfg.CurrencySuffix

	lines := []string{
		"التاريخ: " + FormatInvoiceDate(header.Date),
		"العميل: " + orDefault(header.Customer.Name, cfg.Unknown),
		"الهاتف: " + orDefault(header.Customer.Phone, cfg.NotRegistered),
		"العنوان: " + orDefault(header.Customer.Address, cfg.NotRegistered),
		"",
	}
	for _, item := range inv.Items {
		lines = append(lines, TextLine(item, cfg.DocumentItemDefaults, suffix))
	}

	lines = append(lines, "", "إجمالي المنتجات: "+money.WithSuffix(money.Fixed(header.Totals.SubTotal), suffix))
	if header.Totals.DiscountAmount > 0 {
		lines = append(lines, "خصم: - "+money.WithSuffix(money.Fixed(header.Totals.DiscountAmount), suffix))
	}
	if header.Totals.ShippingCost > 0 {
		lines = append(lines, "مصاريف الشحن: + "+money.WithSuffix(money.Fixed(header.Totals.ShippingCost), suffix))
	}
	return append(lines, "الإجمالي النهائي: "+money.WithSuffix(money.Fixed(header.Totals.FinalTotal), suffix))
}

/*
FormatInvoiceDate renders a stored ISO-8601 timestamp as "YYYY-MM-DD HH:MM".

A trailing "Z" is normalized to "+00:00" first. Text that does not parse is
returned verbatim.
*/
func FormatInvoiceDate(raw string) string {
	normalized := raw
	if strings.HasSuffix(normalized, "Z") {
		normalized = strings.TrimSuffix(normalized, "Z") + "+00:00"
	}

	for _, layout := range invoiceDateLayouts {
		parsed, parseErr := time.Parse(layout, normalized)
		if parseErr == nil {
			return parsed.Format("2006-01-02 15:04")
		}
	}
	return raw
}
