package output

import (
	"bytes"
	"strings"
	"testing"
)

type row struct {
	App     string `json:"app"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, row{App: "db_meta", Name: "0037", Applied: true}); err != nil {
		t.Fatalf("PrintJSON failed: %v", err)
	}
	want := "{\n  \"app\": \"db_meta\",\n  \"name\": \"0037\",\n  \"applied\": true\n}\n"
	if buf.String() != want {
		t.Fatalf("unexpected JSON:\n%s", buf.String())
	}
}

func TestPrintYAML_UsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintYAML(&buf, []row{{App: "db_meta", Name: "0036"}}); err != nil {
		t.Fatalf("PrintYAML failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "- app: db_meta") || !strings.Contains(out, "  applied: false") {
		t.Fatalf("unexpected YAML:\n%s", out)
	}
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"APP", "MIGRATION"}, [][]string{
		{"db_meta", "0036_merge"},
		{"db_meta", "0037_auto"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", buf.String())
	}
	if lines[0] != "APP      MIGRATION" {
		t.Fatalf("columns not aligned: %q", lines[0])
	}
}

func TestPrintFormatted(t *testing.T) {
	var buf bytes.Buffer
	called := false
	err := PrintFormatted(&buf, FormatTable, nil, func() error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("table format should delegate, err=%v called=%v", err, called)
	}

	if err := PrintFormatted(&buf, "xml", nil, nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
