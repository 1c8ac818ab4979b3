package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-inventory-bridge/models"
)

func sampleVehicle() models.VehicleRecord {
	return models.VehicleRecord{
		VIN:         "1HGCM82633A004352",
		StockNumber: "A100",
		Year:        2019,
		Make:        "Honda",
		Model:       "Accord",
		Price:       0,
		Mileage:     42000,
		Images:      []string{"https://img/1.jpg", "https://img/2.jpg"},
		Image:       "https://img/1.jpg",
		Features:    []string{"Bluetooth", "Backup Camera"},
	}
}

func TestCSVWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "vehicles.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write([]models.VehicleRecord{sampleVehicle()}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "vin" || records[0][1] != "stock_number" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[0] != "1HGCM82633A004352" || row[6] != "0" || row[16] != "https://img/1.jpg https://img/2.jpg" || row[17] != "Bluetooth; Backup Camera" {
		t.Fatalf("unexpected row: %v", row)
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write([]models.VehicleRecord{sampleVehicle(), sampleVehicle()}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.VehicleRecord
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if decoded.VIN != "1HGCM82633A004352" || len(decoded.Images) != 2 {
			t.Fatalf("decoded = %+v", decoded)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 2 {
		t.Fatalf("json lines=%d, want 2", count)
	}
}

func TestNewOutputWriterDual(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "vehicles.csv")

	writer, err := NewOutputWriter("dual", csvPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write([]models.VehicleRecord{sampleVehicle()}); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(filepath.Join(dir, "vehicles.jsonl")); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestNewOutputWriterDualRejectsJSONLName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.jsonl")
	if _, err := NewOutputWriter("dual", path); err == nil {
		t.Fatal("expected error when csv and json outputs share a path")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("output file created despite the error: %v", err)
	}
}

func TestNewOutputWriterDualWriteAfterClose(t *testing.T) {
	writer, err := NewOutputWriter("dual", filepath.Join(t.TempDir(), "vehicles.csv"))
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}
	if err := writer.Write([]models.VehicleRecord{sampleVehicle()}); err == nil {
		t.Fatal("expected write after close to fail")
	}
}

func TestNewOutputWriterUnsupported(t *testing.T) {
	if _, err := NewOutputWriter("xml", filepath.Join(t.TempDir(), "out.xml")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWriterDeliverer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.jsonl")
	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	d := NewWriterDeliverer(writer)
	payload := models.NewPayload("inventory.csv", models.ParseResult{Vehicles: []models.VehicleRecord{sampleVehicle()}, TotalRows: 1})
	result := d.Deliver(context.Background(), payload)
	if result.Outcome != models.OutcomeSuccess {
		t.Fatalf("outcome = %q: %s", result.Outcome, result.Detail)
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Writing to a closed file surfaces as a retryable failure.
	result = d.Deliver(context.Background(), payload)
	if result.Outcome != models.OutcomeRetryableFailure || result.ErrorType != "write" {
		t.Fatalf("result after close = %+v", result)
	}
}
