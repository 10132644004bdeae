package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(Dataset{
		Headers: []string{"Rank", "Student", "Eco-Points"},
		Rows: []map[string]string{
			{"Rank": "1", "Student": "Alice", "Eco-Points": "320"},
			{"Rank": "2", "Student": "Bob", "Eco-Points": "150"},
		},
	})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Rank", "Student", "Eco-Points"}, records[0])
	assert.Equal(t, []string{"2", "Bob", "150"}, records[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()

	_, err := exporter.Render(Dataset{})
	assert.Error(t, err)
}
