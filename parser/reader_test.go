package parser

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadTableCSV(t *testing.T) {
	content := "\xEF\xBB\xBFVIN,Make,Model,PhotoURLs\n" +
		"VIN001,Toyota,Camry,\"https://a/1.jpg https://a/2.jpg\"\n" +
		"VIN002,Honda\n" +
		"\n" +
		"VIN003,\"Ford, Inc\",F-150,\n"
	path := writeFile(t, "inventory.csv", content)

	table, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}

	if !reflect.DeepEqual(table.Headers, []string{"VIN", "Make", "Model", "PhotoURLs"}) {
		t.Fatalf("headers = %q", table.Headers)
	}
	if len(table.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(table.Records))
	}

	first := table.Records[0]
	if first.Row != 1 || first.Values["PhotoURLs"] != "https://a/1.jpg https://a/2.jpg" {
		t.Errorf("first record = %+v", first)
	}
	short := table.Records[1]
	if short.Values["Model"] != "" || short.Values["Make"] != "Honda" {
		t.Errorf("short row not padded: %+v", short)
	}
	if table.Records[2].Values["Make"] != "Ford, Inc" {
		t.Errorf("quoted delimiter not preserved: %+v", table.Records[2])
	}
}

func TestReadTableDelimiters(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "tab", file: "export.txt", content: "VIN\tMake\tModel\nVIN001\tToyota\tCamry\n"},
		{name: "pipe", file: "export.txt", content: "VIN|Make|Model\nVIN001|Toyota|Camry\n"},
		{name: "semicolon", file: "export.csv", content: "VIN;Make;Model\nVIN001;Toyota;Camry\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadTable(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("ReadTable failed: %v", err)
			}
			if len(table.Records) != 1 || table.Records[0].Values["Model"] != "Camry" {
				t.Fatalf("unexpected table: %+v", table)
			}
		})
	}
}

func TestReadTableRepeatedHeader(t *testing.T) {
	table, err := ParseDelimited([]byte("VIN,Price,Price\nVIN001,,18500\n"))
	if err != nil {
		t.Fatalf("ParseDelimited failed: %v", err)
	}
	if got := table.Records[0].Values["Price"]; got != "18500" {
		t.Fatalf("Price = %q, want first non-empty value", got)
	}
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    error
	}{
		{name: "empty csv", file: "empty.csv", content: "", want: ErrNoHeader},
		{name: "bom only", file: "bom.csv", content: "\xEF\xBB\xBF", want: ErrNoHeader},
		{name: "unsupported", file: "inventory.pdf", content: "%PDF", want: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(writeFile(t, tt.file, tt.content))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadTableMissingFile(t *testing.T) {
	_, err := ReadTable(filepath.Join(t.TempDir(), "gone.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestReadTableExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"VIN", "Make", "Price"},
		{"VIN001", "Subaru", "27,400"},
		{},
		{"VIN002", "Mazda"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	_ = f.Close()

	table, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if !reflect.DeepEqual(table.Headers, []string{"VIN", "Make", "Price"}) {
		t.Fatalf("headers = %q", table.Headers)
	}
	if len(table.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(table.Records))
	}
	if table.Records[0].Values["Price"] != "27,400" {
		t.Errorf("price = %q", table.Records[0].Values["Price"])
	}
	second := table.Records[1]
	if second.Row != 2 || second.Values["Make"] != "Mazda" || second.Values["Price"] != "" {
		t.Errorf("second record = %+v", second)
	}
}

func TestLoadVocabulary(t *testing.T) {
	path := writeFile(t, "vocab.yaml", `
features:
  - Heated Steering Wheel
  - Heated Seats
body_rules:
  - body_type: Convertible
    keywords: [CONVERTIBLE, ROADSTER]
  - body_type: SUV
    model_keywords: [QX60]
`)

	vocab, err := LoadVocabulary(path)
	if err != nil {
		t.Fatalf("LoadVocabulary failed: %v", err)
	}
	if !reflect.DeepEqual(vocab.Features, []string{"Heated Steering Wheel", "Heated Seats"}) {
		t.Errorf("features = %v", vocab.Features)
	}
	if len(vocab.BodyRules) != 2 || vocab.BodyRules[0].BodyType != "Convertible" {
		t.Errorf("body rules = %+v", vocab.BodyRules)
	}
	if !reflect.DeepEqual(vocab.EngineDescriptors, DefaultVocabulary().EngineDescriptors) {
		t.Errorf("engine descriptors should fall back to defaults, got %v", vocab.EngineDescriptors)
	}

	inf := NewInferencer(vocab)
	if got := inf.BodyType(wordForm("Miata Roadster"), wordForm("MX-5")); got != "Convertible" {
		t.Errorf("custom body rule not applied: %q", got)
	}
	if got := inf.BodyType(wordForm("QX60 Luxe"), wordForm("Pathfinder")); got != "" {
		t.Errorf("model keyword matched trim text: %q", got)
	}
	if got := inf.BodyType(wordForm("Luxe"), wordForm("QX60")); got != "SUV" {
		t.Errorf("model keyword not applied: %q", got)
	}
	if got := NewExtractor(vocab.Features).Extract("heated steering wheel"); !reflect.DeepEqual(got, []string{"Heated Steering Wheel"}) {
		t.Errorf("custom features not applied: %v", got)
	}
}

func TestLoadVocabularyInvalidRule(t *testing.T) {
	path := writeFile(t, "vocab.yaml", "body_rules:\n  - body_type: Truck\n")
	if _, err := LoadVocabulary(path); err == nil {
		t.Fatal("expected error for rule without keywords")
	}
}
