package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/urbanwatch/internal/models"
)

func decodeString(t *testing.T, doc string, format Format) []Record {
	t.Helper()
	records, err := Decode(strings.NewReader(doc), format)
	require.NoError(t, err)
	return records
}

func TestDecodeShapes(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected models.Camera
	}{
		{
			name: "flat_prefers_id",
			doc:  `[{"id":"A1","key":"k1","name":"Ngauranga","lat":-41.24,"lon":174.81,"region":"Wellington"}]`,
			expected: models.Camera{
				Key: "A1", Name: "Ngauranga", Location: models.Location{Lat: -41.24, Lon: 174.81}, Region: "Wellington",
			},
		},
		{
			name:     "flat_falls_back_to_key",
			doc:      `[{"key":"k1","name":"Terrace Tunnel","lat":-41.28,"lon":174.77}]`,
			expected: models.Camera{Key: "k1", Name: "Terrace Tunnel", Location: models.Location{Lat: -41.28, Lon: 174.77}},
		},
		{
			name:     "nested_prefers_key",
			doc:      `[{"cameras":[{"id":"A1","key":"k1","name":"Mt Victoria","latitude":-41.30,"longitude":174.79}]}]`,
			expected: models.Camera{Key: "k1", Name: "Mt Victoria", Location: models.Location{Lat: -41.30, Lon: 174.79}},
		},
		{
			name:     "nested_falls_back_to_id",
			doc:      `[{"cameras":[{"id":"A1","latitude":-41.30,"longitude":174.79,"direction":"North"}]}]`,
			expected: models.Camera{Key: "A1", Name: "A1", Location: models.Location{Lat: -41.30, Lon: 174.79}, Direction: "North"},
		},
		{
			name:     "numeric_id_and_direction",
			doc:      `[{"id":1042,"title":"SH1 Johnsonville","latitude":"-41.22","longitude":174.80,"direction":270}]`,
			expected: models.Camera{Key: "1042", Name: "SH1 Johnsonville", Location: models.Location{Lat: -41.22, Lon: 174.80}, Direction: "270"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := decodeString(t, tt.doc, FormatJSON)
			require.Len(t, records, 1)
			require.NoError(t, records[0].Err)
			assert.Equal(t, tt.expected, records[0].Camera)
		})
	}
}

func TestDecodeInvalidRecords(t *testing.T) {
	doc := `[
		{"id":"ok","lat":-41,"lon":174},
		{"id":"no-coords"},
		{"lat":-41,"lon":174},
		{"id":"bad-lat","lat":-95,"lon":174},
		{"id":"bad-lon","lat":-41,"lon":181},
		"not-an-object"
	]`

	records := decodeString(t, doc, FormatJSON)
	require.Len(t, records, 6)
	assert.NoError(t, records[0].Err)
	for _, rec := range records[1:] {
		assert.Error(t, rec.Err, "record %d", rec.Index)
	}
	assert.ErrorIs(t, records[2].Err, models.ErrMissingCameraKey)
}

func TestDecodeUnrecognisedDocuments(t *testing.T) {
	for _, doc := range []string{`{"cameras":[]}`, `[]`, `"text"`, `null`, `[{"cameras":[]}]`} {
		assert.Empty(t, decodeString(t, doc, FormatJSON), doc)
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(strings.NewReader(`[{"id":`), FormatJSON)
	assert.Error(t, err)
}

func TestDecodeYAML(t *testing.T) {
	doc := `
- cameras:
    - key: wgtn-01
      name: Basin Reserve
      latitude: -41.3005
      longitude: 174.7820
      region: Wellington
    - id: 17
      latitude: -41.2
      longitude: 174.9
`
	records := decodeString(t, doc, FormatYAML)
	require.Len(t, records, 2)
	require.NoError(t, records[0].Err)
	require.NoError(t, records[1].Err)
	assert.Equal(t, "wgtn-01", records[0].Camera.Key)
	assert.Equal(t, "Wellington", records[0].Camera.Region)
	assert.Equal(t, "17", records[1].Camera.Key)
}

func TestFormatFromName(t *testing.T) {
	assert.Equal(t, FormatYAML, formatFromName("cams.YML"))
	assert.Equal(t, FormatYAML, formatFromName("/x/cams.yaml"))
	assert.Equal(t, FormatJSON, formatFromName("cameras.json"))
	assert.Equal(t, FormatJSON, formatFromName("cameras"))
}
