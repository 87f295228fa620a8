package invoice

import (
	"fmt"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"invoice-bot/src/pkg/money"
)

// Limits imposed by the chat transport. They are not configurable.
// TruncateAt plus the length of TruncationMarker must not exceed MessageLimit.
const (
	MaxSummaryItems  = 20
	MessageLimit     = 4096
	TruncateAt       = 4090
	TruncationMarker = "\n(...)"
)

const separatorLine = "----------------------------------------"

/*
Summary composes the chat-facing text for an invoice.

Layout:
  - header block: id, customer name, phone, address, status
  - items block: at most MaxSummaryItems lines plus one line counting the rest,
    or a fixed line when there are no items
  - totals block: subtotal, discount (only if > 0), shipping (only if > 0), final total

Customer, status and item text is escaped for the chat's Markdown mode. If
the result is longer than MessageLimit characters it is cut to the first
TruncateAt characters and TruncationMarker is appended.
*/
func Summary(inv Invoice, cfg Config) string {
	header := inv.Header
	suffix := cfg.CurrencySuffix

	parts := []string{
		fmt.Sprintf("🧾 **تفاصيل الفاتورة رقم: %d** 🧾", header.ID),
		separatorLine,
		fmt.Sprintf("▪️ *العميل:* %s", escapeMarkdown(orDefault(header.Customer.Name, cfg.Unknown))),
		fmt.Sprintf("▪️ *الهاتف:* %s", escapeMarkdown(orDefault(header.Customer.Phone, cfg.NotRegistered))),
		fmt.Sprintf("▪️ *العنوان:* %s", escapeMarkdown(orDefault(header.Customer.Address, cfg.NotRegistered))),
		fmt.Sprintf("▪️ *الحالة الحالية:* %s", escapeMarkdown(orDefault(header.Status, cfg.Unknown))),
		separatorLine,
		"📋 *تفاصيل الأوردر:*",
	}

	parts = append(parts, summaryItemLines(inv.Items, cfg)...)

	parts = append(parts,
		separatorLine,
		fmt.Sprintf("▪️ *إجمالي المنتجات:* %s", money.WithSuffix(money.Grouped(header.Totals.SubTotal), suffix)),
	)
	if header.Totals.DiscountAmount > 0 {
		parts = append(parts, fmt.Sprintf("▪️ *الخصم:* -%s", money.WithSuffix(money.Grouped(header.Totals.DiscountAmount), suffix)))
	}
	if header.Totals.ShippingCost > 0 {
		parts = append(parts, fmt.Sprintf("▪️ *الشحن:* +%s", money.WithSuffix(money.Grouped(header.Totals.ShippingCost), suffix)))
	}
	parts = append(parts, fmt.Sprintf("▪️ *الإجمالي النهائي:* **%s**", money.WithSuffix(money.Grouped(header.Totals.FinalTotal), suffix)))

	return Truncate(strings.Join(parts, "\n"))
}

func summaryItemLines(items []Item, cfg Config) (lines []string) {
	if len(items) == 0 {
		return []string{"  (لا توجد أصناف في هذه الفاتورة)"}
	}

	shown := items
	if len(shown) > MaxSummaryItems {
		shown = shown[:MaxSummaryItems]
	}
	for _, item := range shown {
		item.Name = escapeMarkdown(item.Name)
		item.Details = escapeMarkdown(item.Details)
		lines = append(lines, TextLine(item, escapeDefaults(cfg.TextItemDefaults), cfg.CurrencySuffix))
	}

	if len(items) > MaxSummaryItems {
		lines = append(lines, fmt.Sprintf("  (... و %d أصناف أخرى ...)", len(items)-MaxSummaryItems))
	}
	return lines
}

func escapeMarkdown(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}

func escapeDefaults(defaults ItemDefaults) ItemDefaults {
	return ItemDefaults{Name: escapeMarkdown(defaults.Name), Details: escapeMarkdown(defaults.Details)}
}

/*
Truncate enforces the transport limit on a message. Lengths are counted the
way the chat transport counts them, in UTF-16 code units, so a character
outside the Basic Multilingual Plane (most emoji) counts twice. The cut never
splits such a character.
*/
func Truncate(message string) string {
	if TextLength(message) <= MessageLimit {
		return message
	}

	units := 0
	for index, r := range message {
		width := utf16.RuneLen(r)
		if width < 1 {
			width = 1
		}
		if units+width > TruncateAt {
			return message[:index] + TruncationMarker
		}
		units += width
	}
	return message + TruncationMarker
}

// TextLength is the length of text in UTF-16 code units.
func TextLength(text string) (units int) {
	for _, r := range text {
		width := utf16.RuneLen(r)
		if width < 1 {
			width = 1
		}
		units += width
	}
	return units
}
