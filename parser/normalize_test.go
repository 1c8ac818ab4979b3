package parser

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aluiziolira/go-inventory-bridge/models"
)

func TestNormalizeMissingVIN(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name string
		row  models.RawRow
	}{
		{name: "absent", row: models.RawRow{"Make": "Toyota"}},
		{name: "blank", row: models.RawRow{"VIN": "", "Make": "Toyota"}},
		{name: "whitespace", row: models.RawRow{"VIN": "   ", "Make": "Toyota"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, skipped := n.Normalize(3, tt.row)
			if skipped == nil {
				t.Fatal("expected row to be skipped")
			}
			if skipped.Row != 3 || skipped.Reason != ReasonMissingVIN {
				t.Fatalf("unexpected skip: %+v", skipped)
			}
		})
	}
}

func TestNormalizeUnparseableNumbersAccepted(t *testing.T) {
	n := NewNormalizer(nil)
	rec, skipped := n.Normalize(1, models.RawRow{
		"VIN":      "1HGCM82633A004352",
		"Year":     "N/A",
		"Price":    "call for price",
		"Odometer": "TMU",
	})
	if skipped != nil {
		t.Fatalf("row should be accepted, got %+v", skipped)
	}
	if rec.Year != 0 || rec.Price != 0 || rec.Mileage != 0 {
		t.Fatalf("expected zero numerics, got year=%d price=%v mileage=%d", rec.Year, rec.Price, rec.Mileage)
	}
}

func TestNormalizeFullRow(t *testing.T) {
	n := NewNormalizer(nil)
	rec, skipped := n.Normalize(1, models.RawRow{
		"VIN":              "5TFDY5F16MX012345",
		"StockNumber":      "",
		"Year":             "2021",
		"Make":             "Toyota",
		"Model":            "Tundra",
		"Trim":             "SR5 CrewMax",
		"SpecialPrice":     "",
		"Price":            "$41,995.00",
		"Odometer":         "38,120 mi",
		"WebAdDescription": "<p>One owner, <b>clean</b> Carfax</p>",
		"ExteriorColor":    "Magnetic Gray",
		"PhotoURLs":        "https://img/1.jpg https://img/2.jpg\nhttps://img/3.jpg",
		"EquipmentCode":    "4WD V8 5.7 Liter Backup Camera Tow Hitch",
		"BodyStyle":        "Other",
	})
	if skipped != nil {
		t.Fatalf("unexpected skip: %+v", skipped)
	}

	if rec.StockNumber != "VIN-012345" {
		t.Errorf("stock number = %q", rec.StockNumber)
	}
	if rec.Year != 2021 || rec.Price != 41995 || rec.Mileage != 38120 {
		t.Errorf("numerics: year=%d price=%v mileage=%d", rec.Year, rec.Price, rec.Mileage)
	}
	if rec.Description != "One owner, clean Carfax" {
		t.Errorf("description = %q", rec.Description)
	}
	wantImages := []string{"https://img/1.jpg", "https://img/2.jpg", "https://img/3.jpg"}
	if !reflect.DeepEqual(rec.Images, wantImages) {
		t.Errorf("images = %v", rec.Images)
	}
	if rec.Image != wantImages[0] {
		t.Errorf("image = %q", rec.Image)
	}
	wantFeatures := []string{"Backup Camera", "4WD", "V8", "Liter"}
	if !reflect.DeepEqual(rec.Features, wantFeatures) {
		t.Errorf("features = %v", rec.Features)
	}
	if rec.BodyType != "Truck" || rec.Drivetrain != DrivetrainAWD || rec.Engine != "V8 Liter" {
		t.Errorf("inference: body=%q drive=%q engine=%q", rec.BodyType, rec.Drivetrain, rec.Engine)
	}
}

func TestNormalizeColumnFallbacks(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name  string
		row   models.RawRow
		check func(models.VehicleRecord) bool
	}{
		{
			name:  "special price wins",
			row:   models.RawRow{"VIN": "X1", "SpecialPrice": "19,500", "Price": "21,000"},
			check: func(r models.VehicleRecord) bool { return r.Price == 19500 },
		},
		{
			name:  "internet price when others blank",
			row:   models.RawRow{"VIN": "X1", "SpecialPrice": " ", "Internet Price": "$9,999"},
			check: func(r models.VehicleRecord) bool { return r.Price == 9999 },
		},
		{
			name:  "mileage column",
			row:   models.RawRow{"VIN": "X1", "Mileage": "12,345.6"},
			check: func(r models.VehicleRecord) bool { return r.Mileage == 12346 },
		},
		{
			name:  "folded header names",
			row:   models.RawRow{"vin": "X1", "stock_number": "A100", "EXTERIOR COLOR": "Red"},
			check: func(r models.VehicleRecord) bool { return r.VIN == "X1" && r.StockNumber == "A100" && r.ExteriorColor == "Red" },
		},
		{
			name:  "explicit stock number kept",
			row:   models.RawRow{"VIN": "1FTFW1E50KFA00001", "Stock": "P2231"},
			check: func(r models.VehicleRecord) bool { return r.StockNumber == "P2231" },
		},
		{
			name:  "short vin stock fallback",
			row:   models.RawRow{"VIN": "ABC"},
			check: func(r models.VehicleRecord) bool { return r.StockNumber == "VIN-ABC" },
		},
		{
			name:  "no photos",
			row:   models.RawRow{"VIN": "X1"},
			check: func(r models.VehicleRecord) bool { return r.Images != nil && len(r.Images) == 0 && r.Image == "" },
		},
		{
			name:  "negative price clamped",
			row:   models.RawRow{"VIN": "X1", "Price": "-500"},
			check: func(r models.VehicleRecord) bool { return r.Price == 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, skipped := n.Normalize(1, tt.row)
			if skipped != nil {
				t.Fatalf("unexpected skip: %+v", skipped)
			}
			if !tt.check(rec) {
				t.Fatalf("unexpected record: %+v", rec)
			}
		})
	}
}

func TestNormalizeTable(t *testing.T) {
	n := NewNormalizer(nil)
	table := &Table{
		Headers: []string{"VIN", "Make", "Dealer Notes"},
		Records: []Record{
			{Row: 1, Values: models.RawRow{"VIN": "VIN00001", "Make": "Honda"}},
			{Row: 2, Values: models.RawRow{"VIN": "", "Make": "Ford"}},
			{Row: 3, Err: errors.New("bare quote")},
			{Row: 4, Values: models.RawRow{"VIN": "VIN00004", "Make": "Kia"}},
		},
	}

	result := n.NormalizeTable(table)

	if result.TotalRows != 4 {
		t.Errorf("total rows = %d, want 4", result.TotalRows)
	}
	if len(result.Vehicles) != 2 {
		t.Fatalf("vehicles = %d, want 2", len(result.Vehicles))
	}
	if result.Vehicles[0].VIN != "VIN00001" || result.Vehicles[1].VIN != "VIN00004" {
		t.Errorf("row order not preserved: %+v", result.Vehicles)
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("skipped = %d, want 2", len(result.Skipped))
	}
	if result.Skipped[0].Row != 2 || result.Skipped[0].Reason != ReasonMissingVIN {
		t.Errorf("skipped[0] = %+v", result.Skipped[0])
	}
	if result.Skipped[1].Row != 3 || result.Skipped[1].Reason != "Malformed line: bare quote" {
		t.Errorf("skipped[1] = %+v", result.Skipped[1])
	}
	if !reflect.DeepEqual(result.Unmapped, []string{"Dealer Notes"}) {
		t.Errorf("unmapped = %v", result.Unmapped)
	}
}

func TestNormalizeTableEmpty(t *testing.T) {
	result := NewNormalizer(nil).NormalizeTable(&Table{Headers: []string{"VIN"}})
	if result.TotalRows != 0 || result.Vehicles == nil || result.Skipped == nil {
		t.Fatalf("unexpected empty result: %+v", result)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"$12,995.00", 12995},
		{"12995", 12995},
		{"0", 0},
		{"", 0},
		{"N/A", 0},
		{"-", 0},
		{"$ 8,750.50 USD", 8750.5},
		{"1.5E+04", 0},
		{"12-15k", 0},
		{".99", 0.99},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParsePrice(tt.input); got != tt.expected {
				t.Fatalf("ParsePrice(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"2019", 2019},
		{" 2020 ", 2020},
		{"", 0},
		{"unknown", 0},
		{"2019-2020", 0},
		{"MY 2021", 2021},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseYear(tt.input); got != tt.expected {
				t.Fatalf("ParseYear(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseMileage(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"48,120 mi", 48120},
		{"12,345.6", 12346},
		{"-12", 0},
		{"10k-12k", 0},
		{"TMU", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseMileage(tt.input); got != tt.expected {
				t.Fatalf("ParseMileage(%q) = %d, want %d", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "  no markup here ", expected: "no markup here"},
		{name: "markup", input: "<p>Clean <b>Carfax</b><br>One owner</p>", expected: "Clean Carfax One owner"},
		{name: "script dropped", input: "<div>Great<script>alert(1)</script> deal</div>", expected: "Great deal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripHTML(tt.input); got != tt.expected {
				t.Fatalf("StripHTML(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
