// Package models defines data structures shared by the bridge packages.
package models

// RawRow maps a vendor column name to its cell value for one data line.
type RawRow map[string]string

// VehicleRecord is the normalized vehicle sent to the inventory consumer.
type VehicleRecord struct {
	VIN           string   `json:"vin"`
	StockNumber   string   `json:"stockNumber"`
	Year          int      `json:"year"`
	Make          string   `json:"make,omitempty"`
	Model         string   `json:"model,omitempty"`
	Trim          string   `json:"trim,omitempty"`
	Price         float64  `json:"price"`
	Mileage       int      `json:"mileage"`
	Description   string   `json:"description,omitempty"`
	ExteriorColor string   `json:"exteriorColor,omitempty"`
	InteriorColor string   `json:"interiorColor,omitempty"`
	Transmission  string   `json:"transmission,omitempty"`
	Images        []string `json:"images"`
	Image         string   `json:"image,omitempty"`
	Features      []string `json:"features,omitempty"`
	BodyType      string   `json:"bodyType,omitempty"`
	Drivetrain    string   `json:"drivetrain,omitempty"`
	Engine        string   `json:"engine,omitempty"`
	FuelType      string   `json:"fuelType,omitempty"`
}

// SkippedRow records a data row that was excluded from the batch.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParseResult is the in-memory batch produced from one inventory file.
type ParseResult struct {
	Vehicles  []VehicleRecord
	Skipped   []SkippedRow
	TotalRows int
	Unmapped  []string
}
