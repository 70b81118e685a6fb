package report

import (
	"bytes"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/tuumbleweed/xerr"

	"receipt-impact/src/pkg/impact"
)

var tierColors = map[impact.Tier]string{
	impact.TierGreen:  "#059669",
	impact.TierYellow: "#D97706",
	impact.TierRed:    "#DC2626",
}

var tierOrder = []impact.Tier{impact.TierGreen, impact.TierYellow, impact.TierRed}

/*
RenderHTML converts a Monthly report into a single HTML string using inline
CSS only, so the same document works as a file and as an email body.
*/
func RenderHTML(monthly Monthly) (htmlText string, e *xerr.Error) {
	var buffer bytes.Buffer

	buffer.WriteString("<!doctype html>")
	buffer.WriteString("<html>")
	buffer.WriteString("<head>")
	buffer.WriteString(`<meta charset="utf-8">`)
	buffer.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
	buffer.WriteString("</head>")

	bodyStyle := "margin:0;padding:0;background-color:#F3F4F6;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Inter,Arial,sans-serif;color:#111827;"
	buffer.WriteString(`<body style="` + bodyStyle + `">`)

	// Outer wrapper table (email-safe centering).
	buffer.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:collapse;background-color:#F3F4F6;">`)
	buffer.WriteString(`<tr><td align="center" style="padding:24px;">`)
	buffer.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="680" style="border-collapse:separate;width:680px;max-width:680px;">`)
	buffer.WriteString(`<tr><td style="padding:0;">`)

	// Header.
	buffer.WriteString(`<div style="padding:8px 4px 18px 4px;">`)
	buffer.WriteString(`<div style="font-size:24px;font-weight:800;line-height:1.2;">` + html.EscapeString(monthly.Title) + `</div>`)
	buffer.WriteString(`<div style="margin-top:6px;font-size:13px;line-height:1.5;color:#6B7280;">`)
	buffer.WriteString(`Period: ` + strong(monthly.Month.String()+" "+strconv.Itoa(monthly.Year)))
	buffer.WriteString(` &nbsp;•&nbsp; Receipts: ` + strong(formatIntHuman(int64(monthly.ReceiptCount))))
	buffer.WriteString(` &nbsp;•&nbsp; Timezone: ` + strong(monthly.Timezone))
	buffer.WriteString(`</div></div>`)

	// Summary card.
	buffer.WriteString(cardOpen())
	buffer.WriteString(`<div style="padding:18px;">`)
	buffer.WriteString(`<div style="font-size:12px;letter-spacing:0.10em;text-transform:uppercase;color:#6B7280;">Total footprint</div>`)
	buffer.WriteString(`<div style="margin-top:6px;font-size:34px;font-weight:900;line-height:1.1;">` + html.EscapeString(formatKg(monthly.Co2Total)) + `</div>`)
	buffer.WriteString(`<div style="margin-top:8px;font-size:13px;line-height:1.5;color:#6B7280;">`)
	buffer.WriteString(strong(formatKg(monthly.Co2PerReceipt)) + ` per receipt &nbsp;•&nbsp; `)
	buffer.WriteString(strong(fmt.Sprintf("%d%%", monthly.GreenPercentage)) + ` green products &nbsp;•&nbsp; `)
	buffer.WriteString(strong(fmt.Sprintf("%d/%d", monthly.GreenReceipts, monthly.ReceiptCount)) + ` green receipts`)
	buffer.WriteString(`</div>`)
	buffer.WriteString(`<div style="margin-top:14px;">`)
	for _, tier := range tierOrder {
		buffer.WriteString(`<span style="display:inline-block;margin-right:8px;padding:4px 10px;border-radius:999px;font-size:12px;font-weight:800;color:#FFFFFF;background-color:` + tierColors[tier] + `;">`)
		buffer.WriteString(html.EscapeString(string(tier)) + ` ` + strconv.Itoa(monthly.Tiers[tier]))
		buffer.WriteString(`</span>`)
	}
	buffer.WriteString(`</div></div>`)
	buffer.WriteString(cardClose())

	// Category table.
	buffer.WriteString(`<div style="padding:18px 0;">`)
	buffer.WriteString(`<div style="font-size:14px;font-weight:800;">CO2 by category</div>`)
	buffer.WriteString(`<div style="margin-top:4px;font-size:12px;line-height:1.5;color:#6B7280;">Share of the month's footprint.</div>`)
	if monthly.ReceiptCount == 0 || len(monthly.Rows) == 0 {
		buffer.WriteString(`<div style="margin-top:10px;padding:14px;border:1px dashed #D1D5DB;border-radius:12px;background-color:#FAFAFA;color:#6B7280;font-size:13px;">`)
		buffer.WriteString(`No receipts found for this month in the selected directory.`)
		buffer.WriteString(`</div>`)
	} else {
		buffer.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:separate;border-spacing:0 10px;">`)
		for _, row := range monthly.Rows {
			writeCategoryRow(&buffer, row)
		}
		buffer.WriteString(`</table>`)
	}
	buffer.WriteString(`</div>`)

	// Notes card.
	buffer.WriteString(cardOpen())
	buffer.WriteString(`<div style="padding:16px 18px;">`)
	buffer.WriteString(`<div style="font-size:13px;font-weight:900;">Notes</div>`)
	buffer.WriteString(`<div style="margin-top:10px;font-size:12px;line-height:1.7;color:#6B7280;">`)
	for _, note := range monthly.Notes {
		buffer.WriteString(`• ` + html.EscapeString(note) + `<br>`)
	}
	buffer.WriteString(`</div>`)
	buffer.WriteString(`<div style="margin-top:12px;font-size:11px;color:#9CA3AF;">Generated ` + html.EscapeString(monthly.GeneratedAt.Format("2006-01-02 15:04:05")) + `</div>`)
	buffer.WriteString(`</div>`)
	buffer.WriteString(cardClose())

	buffer.WriteString(`</td></tr></table>`)
	buffer.WriteString(`</td></tr></table>`)
	buffer.WriteString(`</body></html>`)

	return buffer.String(), nil
}

func writeCategoryRow(buffer *bytes.Buffer, row CategoryRow) {
	buffer.WriteString(`<tr><td style="padding:12px;background-color:#FFFFFF;border:1px solid #E5E7EB;border-radius:12px;">`)
	buffer.WriteString(`<table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%" style="border-collapse:collapse;"><tr>`)

	buffer.WriteString(`<td style="vertical-align:top;padding-right:10px;">`)
	buffer.WriteString(`<div style="display:inline-block;width:10px;height:10px;border-radius:999px;background-color:` + row.Color + `;margin-right:8px;"></div>`)
	buffer.WriteString(`<span style="font-size:14px;font-weight:800;">` + html.EscapeString(row.Category) + `</span>`)
	buffer.WriteString(`<span style="font-size:12px;color:#6B7280;"> (` + strconv.Itoa(row.ProductCount) + ` products)</span>`)
	buffer.WriteString(`</td>`)

	buffer.WriteString(`<td align="right" style="vertical-align:top;">`)
	buffer.WriteString(`<div style="font-size:14px;font-weight:900;">` + html.EscapeString(formatKg(row.Co2)) + `</div>`)
	buffer.WriteString(`<div style="margin-top:2px;font-size:12px;font-weight:800;color:#6B7280;">` + fmt.Sprintf("%.1f%%", row.Percent) + `</div>`)
	buffer.WriteString(`</td></tr>`)

	// Bar.
	buffer.WriteString(`<tr><td colspan="2" style="padding-top:10px;">`)
	buffer.WriteString(`<div style="width:100%;height:10px;border-radius:999px;background-color:#ECFDF5;overflow:hidden;border:1px solid #E5E7EB;">`)
	buffer.WriteString(`<div style="height:10px;width:` + strconv.Itoa(row.BarPercent) + `%;background-color:` + row.Color + `;border-radius:999px;"></div>`)
	buffer.WriteString(`</div></td></tr>`)

	buffer.WriteString(`</table></td></tr>`)
}

// RenderText is the plain-text alternative sent next to the HTML email.
func RenderText(monthly Monthly) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%s\n\n", monthly.Title)
	fmt.Fprintf(&builder, "Receipts: %d (%d green)\n", monthly.ReceiptCount, monthly.GreenReceipts)
	fmt.Fprintf(&builder, "Total footprint: %s (%s per receipt)\n", formatKg(monthly.Co2Total), formatKg(monthly.Co2PerReceipt))
	fmt.Fprintf(&builder, "Green products: %d%%\n", monthly.GreenPercentage)
	for _, tier := range tierOrder {
		fmt.Fprintf(&builder, "%s receipts: %d\n", tier, monthly.Tiers[tier])
	}
	if len(monthly.Rows) > 0 {
		builder.WriteString("\nCO2 by category:\n")
		for _, row := range monthly.Rows {
			fmt.Fprintf(&builder, "  %-24s %12s  %5.1f%%\n", row.Category, formatKg(row.Co2), row.Percent)
		}
	}
	return builder.String()
}

func strong(text string) string {
	return `<span style="font-weight:700;color:#111827;">` + html.EscapeString(text) + `</span>`
}

/*
cardOpen returns the opening HTML for a card-like container (email-safe).
*/
func cardOpen() string {
	return `<div style="background-color:#FFFFFF;border:1px solid #E5E7EB;border-radius:16px;box-shadow:0 8px 24px rgba(17,24,39,0.06);overflow:hidden;">`
}

func cardClose() string {
	return `</div>`
}

// formatKg renders a CO2 amount, e.g. 1234.5 -> "1,234.50 kg CO2e".
func formatKg(value float64) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	raw := strconv.FormatFloat(value, 'f', 2, 64)
	integerPart, fractionPart, _ := strings.Cut(raw, ".")
	return sign + groupThousands(integerPart, ",") + "." + fractionPart + " kg CO2e"
}

/*
groupThousands groups digits in a base-10 string using the provided separator.
*/
func groupThousands(raw string, sep string) string {
	if len(raw) <= 3 {
		return raw
	}

	var builder strings.Builder
	firstGroupLen := len(raw) % 3
	if firstGroupLen == 0 {
		firstGroupLen = 3
	}
	builder.WriteString(raw[:firstGroupLen])
	for index := firstGroupLen; index < len(raw); index += 3 {
		builder.WriteString(sep)
		builder.WriteString(raw[index : index+3])
	}
	return builder.String()
}

func formatIntHuman(value int64) string {
	return groupThousands(strconv.FormatInt(value, 10), ",")
}
