package core

// message.go builds the WhatsApp share report and links.

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // Asia/Kolkata on hosts without a zoneinfo database
	"unicode"
)

const (
	whatsAppAppURL = "whatsapp://send"
	whatsAppWebURL = "https://web.whatsapp.com/send"

	// indexWidth is the column width of the "Sr No." cell.
	indexWidth = 6
)

// FormatMessage renders the stock update report for the given collections.
// The index column is 1-based and independent of the records' own sr values.
func FormatMessage(inserted, missing RecordCollection) string {
	var b strings.Builder

	b.WriteString("📊 Stock Update Report 📊\n\n")
	b.WriteString("-----------------------------\n")
	fmt.Fprintf(&b, "✅ *Inserted:* %d\n", len(inserted))
	fmt.Fprintf(&b, "❌ *Missing:* %d\n\n", len(missing))

	if len(inserted) == 0 {
		b.WriteString("*Newly Stock (In):* None\n\n")
	} else {
		b.WriteString("*Newly Stock (In):*\n")
		writeTable(&b, inserted)
		b.WriteString("\n")
	}

	if len(missing) == 0 {
		b.WriteString("*Stock Sold (Out):* None\n")
	} else {
		b.WriteString("*Stock Sold (Out):*\n")
		writeTable(&b, missing)
	}

	return b.String()
}

func writeTable(b *strings.Builder, records RecordCollection) {
	b.WriteString("Sr No.  |  Scan Code\n")
	b.WriteString("----------------------\n")
	for i, r := range records {
		fmt.Fprintf(b, " %-*d    |   %s\n", indexWidth, i+1, plainText(r.ScanCode))
	}
}

// plainText replaces control characters so a scan code cannot break the
// table layout or the link encoding.
func plainText(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// SummaryText is the short report shown in the share preview.
func SummaryText(result UploadResult) string {
	return fmt.Sprintf("📊 *Stock Update Report* 📊\n\n✅ Inserted: %d\n❌ Missing: %d\n\nThank you!",
		result.RecordsInserted, result.MissingRecordsCount)
}

// Summary returns the short preview of a stored report, or "" when no
// report has been stored yet.
func (m ShareMessage) Summary() string {
	if m.Text == "" {
		return ""
	}
	return SummaryText(UploadResult{
		RecordsInserted:     m.RecordsInserted,
		MissingRecordsCount: m.MissingRecordsCount,
	})
}

// NewShareMessage builds the share payload for an upload result.
func NewShareMessage(result UploadResult, inserted, missing RecordCollection) ShareMessage {
	return ShareMessage{
		Text:                FormatMessage(inserted, missing),
		RecordsInserted:     result.RecordsInserted,
		InsertedRecords:     inserted,
		MissingRecordsCount: result.MissingRecordsCount,
		MissingRecords:      missing,
		WhatsappLink:        result.WhatsappLink,
	}
}

// ShareLink returns the link that opens WhatsApp with the report.
// A server supplied link always wins. Otherwise a deep link to phone is
// built, using the app scheme for mobile clients.
func ShareLink(share ShareMessage, phone string, mobile bool) string {
	if share.WhatsappLink != "" {
		return share.WhatsappLink
	}

	text := share.Text
	if text == "" {
		text = "No message received from backend."
	}

	base := whatsAppWebURL
	if mobile {
		base = whatsAppAppURL
	}
	return base + "?phone=" + encodeURIComponent(phone) + "&text=" + encodeURIComponent(text)
}

// encodeURIComponent percent-encodes s with spaces as %20.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// istLayout matches the en-IN long date format of the web client.
const istLayout = "02 January 2006, 03:04:05 pm"

// FormatTimestampIST renders t in India Standard Time.
func FormatTimestampIST(t time.Time) string {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*60*60+30*60)
	}
	return t.In(loc).Format(istLayout)
}
