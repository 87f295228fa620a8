package invoice

import (
	"fmt"
	"html"

	"invoice-bot/src/pkg/money"
)

/*
TextLine renders one item for the chat summary.

Example:

	"  - Pen (blue) = 100.00 ج"
*/
func TextLine(item Item, defaults ItemDefaults, currencySuffix string) string {
	name := orDefault(item.Name, defaults.Name)
	details := orDefault(item.Details, defaults.Details)
	amount := money.WithSuffix(money.Fixed(item.SubTotal), currencySuffix)
	return fmt.Sprintf("  - %s (%s) = %s", name, details, amount)
}

/*
MarkupRow renders one item as a three-cell table row for the document body.

Cell text is HTML-escaped; the amount is not grouped, matching the PDF layout.
*/
func MarkupRow(item Item, defaults ItemDefaults, currencySuffix string) string {
	name := orDefault(item.Name, defaults.Name)
	details := orDefault(item.Details, defaults.Details)
	amount := money.WithSuffix(money.Fixed(item.SubTotal), currencySuffix)
	return "<tr><td>" + html.EscapeString(name) + "</td><td>" + html.EscapeString(details) + "</td><td>" + html.EscapeString(amount) + "</td></tr>\n"
}
