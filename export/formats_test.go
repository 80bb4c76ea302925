package export_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ddicdi/export"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    export.Format
		wantErr bool
	}{
		{"", export.FormatJSONLD, false},
		{"jsonld", export.FormatJSONLD, false},
		{"JSON-LD", export.FormatJSONLD, false},
		{"xml", export.FormatXML, false},
		{"ttl", export.FormatTurtle, false},
		{" turtle ", export.FormatTurtle, false},
		{"nt", export.FormatNTriples, false},
		{"rdfxml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := export.ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, export.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormats(t *testing.T) {
	formats := export.Formats()
	require.Len(t, formats, 4)
	assert.Equal(t, export.FormatJSONLD, formats[0].Name)

	for _, info := range formats {
		got, ok := export.GetFormatInfo(info.Name)
		require.True(t, ok)
		assert.Equal(t, info, got)
		assert.NotEmpty(t, info.MIMEType)
		assert.Equal(t, '.', rune(info.Extension[0]))
	}
	assert.False(t, export.FormatRegistry[export.FormatJSONLD].RequiresConversion)
	assert.True(t, export.FormatRegistry[export.FormatTurtle].RequiresConversion)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "survey_DDICDI.jsonld", export.OutputName("/data/survey.sav", export.FormatJSONLD))
	assert.Equal(t, "survey_DDICDI.xml", export.OutputName("survey.sav", export.FormatXML))
	assert.Equal(t, "panel.wave1_DDICDI.ttl", export.OutputName("panel.wave1.dta", export.FormatTurtle))
	assert.Equal(t, "raw_DDICDI.nt", export.OutputName("raw", export.FormatNTriples))
}

func TestExporterUnsupportedFormat(t *testing.T) {
	_, err := export.NewExporter(export.Options{}).Marshal(nil, "yaml")
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)
}
