// Package export serializes conversations to downloadable flat text
// formats. All encodings are deterministic, order-preserving
// projections of timestamp, author label and text.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
)

// ParseFormat validates a format query value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON, FormatTXT:
		return Format(s), nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatTXT:
		return "text/plain; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename builds a timestamp-suffixed download filename.
func Filename(personaID string, f Format, now time.Time) string {
	return fmt.Sprintf("chat_%s_%s.%s", personaID, now.Format("20060102_150405"), f)
}

const timestampLayout = "2006-01-02 15:04:05"

func authorLabel(m model.Message) string {
	if m.IsUser {
		return "user"
	}
	return "assistant"
}

type record struct {
	Timestamp string `json:"timestamp"`
	Author    string `json:"author"`
	Text      string `json:"text"`
}

// Export encodes the messages in the given format. Filtering to user
// messages only is applied before encoding.
func Export(messages []model.Message, f Format, onlyUser bool) ([]byte, error) {
	if onlyUser {
		filtered := make([]model.Message, 0, len(messages))
		for _, m := range messages {
			if m.IsUser {
				filtered = append(filtered, m)
			}
		}
		messages = filtered
	}

	switch f {
	case FormatJSON:
		return exportJSON(messages)
	case FormatTXT:
		return exportTXT(messages), nil
	case FormatCSV:
		return exportCSV(messages)
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

func exportCSV(messages []model.Message) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"timestamp", "author", "text"}); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	for _, m := range messages {
		row := []string{m.CreatedAt.Format(timestampLayout), authorLabel(m), m.Text}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func exportJSON(messages []model.Message) ([]byte, error) {
	records := make([]record, 0, len(messages))
	for _, m := range messages {
		records = append(records, record{
			Timestamp: m.CreatedAt.Format(timestampLayout),
			Author:    authorLabel(m),
			Text:      m.Text,
		})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling export records: %w", err)
	}
	return data, nil
}

func exportTXT(messages []model.Message) []byte {
	var buf bytes.Buffer
	for _, m := range messages {
		fmt.Fprintf(&buf, "[%s] %s: %s\n", m.CreatedAt.Format(timestampLayout), authorLabel(m), m.Text)
	}
	return buf.Bytes()
}
