package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.ConversionsTotal == nil || r.NodesEmitted == nil || r.registry == nil {
		t.Fatal("metrics not initialized")
	}
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordConversion(t *testing.T) {
	r := NewRegistry()
	finished := time.Unix(1767225600, 0)

	r.RecordConversion(Conversion{
		InputFormat:  "spss",
		OutputFormat: "jsonld",
		Duration:     120 * time.Millisecond,
		Rows:         5,
		NodeTypes:    map[string]int{"InstanceValue": 10, "DataPoint": 10},
		Bytes:        2048,
		Finished:     finished,
	})
	r.RecordConversion(Conversion{InputFormat: "spss", OutputFormat: "jsonld", Err: errors.New("boom")})

	if got := testutil.ToFloat64(r.ConversionsTotal.WithLabelValues("spss", "jsonld", "ok")); got != 1 {
		t.Errorf("expected 1 ok conversion, got %v", got)
	}
	if got := testutil.ToFloat64(r.ConversionsTotal.WithLabelValues("spss", "jsonld", "error")); got != 1 {
		t.Errorf("expected 1 failed conversion, got %v", got)
	}
	if got := testutil.ToFloat64(r.RowsProcessed.WithLabelValues("spss")); got != 5 {
		t.Errorf("expected 5 rows, got %v", got)
	}
	if got := testutil.ToFloat64(r.NodesEmitted.WithLabelValues("InstanceValue")); got != 10 {
		t.Errorf("expected 10 instance values, got %v", got)
	}
	if got := testutil.ToFloat64(r.OutputBytes.WithLabelValues("jsonld")); got != 2048 {
		t.Errorf("expected 2048 bytes, got %v", got)
	}
	if got := testutil.ToFloat64(r.LastSuccess); got != float64(finished.Unix()) {
		t.Errorf("unexpected last success %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRegistry()
	r.RecordConversion(Conversion{InputFormat: "csv", OutputFormat: "turtle", Rows: 3})

	path := filepath.Join(t.TempDir(), "ddicdi.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`ddicdi_conversions_total{input_format="csv",output_format="turtle",status="ok"} 1`,
		`ddicdi_rows_processed_total{input_format="csv"} 3`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}

	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "absent", "x.prom")); err == nil {
		t.Error("expected error for missing directory")
	}
}
