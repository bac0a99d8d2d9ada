package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selimdilsadercan/iklim-chat-api/internal/model"
)

func sampleMessages() []model.Message {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []model.Message{
		{ID: "1", Text: "Merhaba", IsUser: true, CreatedAt: base},
		{ID: "2", Text: "Selam, nasılsın?", IsUser: false, CreatedAt: base.Add(time.Minute)},
	}
}

func TestExportCSVRoundTrip(t *testing.T) {
	data, err := Export(sampleMessages(), FormatCSV, false)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"timestamp", "author", "text"}, records[0])
	assert.Equal(t, []string{"2024-05-01 12:00:00", "user", "Merhaba"}, records[1])
	assert.Equal(t, []string{"2024-05-01 12:01:00", "assistant", "Selam, nasılsın?"}, records[2])
}

func TestExportCSVQuotesEmbeddedDelimiters(t *testing.T) {
	msgs := []model.Message{
		{Text: `virgül, ve "tırnak"`, IsUser: true, CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}

	data, err := Export(msgs, FormatCSV, false)
	require.NoError(t, err)

	// The raw encoding doubles quotes and wraps the field.
	assert.Contains(t, string(data), `"virgül, ve ""tırnak"""`)

	// Decoding recovers the original text.
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, `virgül, ve "tırnak"`, records[1][2])
}

func TestExportJSON(t *testing.T) {
	data, err := Export(sampleMessages(), FormatJSON, false)
	require.NoError(t, err)

	var records []struct {
		Timestamp string `json:"timestamp"`
		Author    string `json:"author"`
		Text      string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)
	assert.Equal(t, "user", records[0].Author)
	assert.Equal(t, "Merhaba", records[0].Text)
	assert.Equal(t, "assistant", records[1].Author)
	assert.Equal(t, "Selam, nasılsın?", records[1].Text)
}

func TestExportTXTRoundTrip(t *testing.T) {
	data, err := Export(sampleMessages(), FormatTXT, false)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2024-05-01 12:00:00] user: Merhaba", lines[0])
	assert.Equal(t, "[2024-05-01 12:01:00] assistant: Selam, nasılsın?", lines[1])
}

func TestExportOnlyUserMessages(t *testing.T) {
	data, err := Export(sampleMessages(), FormatCSV, true)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "user", records[1][1])
}

func TestExportPreservesOrder(t *testing.T) {
	msgs := sampleMessages()
	data, err := Export(msgs, FormatTXT, false)
	require.NoError(t, err)

	first := strings.Index(string(data), "Merhaba")
	second := strings.Index(string(data), "Selam")
	assert.Less(t, first, second)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)
	assert.Equal(t, "chat_yaprak_20240501_123045.csv", Filename("yaprak", FormatCSV, now))
}
