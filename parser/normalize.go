// Package parser reads vendor inventory exports and normalizes their rows into
// vehicle records.
package parser

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/aluiziolira/go-inventory-bridge/models"
)

// ReasonMissingVIN is the skip reason for rows without a VIN.
const ReasonMissingVIN = "Missing VIN"

// Column fallback chains. The first non-empty column wins.
var (
	ColumnsVIN          = []string{"VIN", "VehicleVIN", "VinNumber"}
	ColumnsStockNumber  = []string{"StockNumber", "Stock Number", "Stock", "Stk", "StockNo"}
	ColumnsYear         = []string{"Year", "ModelYear"}
	ColumnsMake         = []string{"Make"}
	ColumnsModel        = []string{"Model"}
	ColumnsTrim         = []string{"Trim", "Series"}
	ColumnsPrice        = []string{"SpecialPrice", "Price", "Internet Price", "SellingPrice", "AskingPrice"}
	ColumnsMileage      = []string{"Odometer", "Mileage", "Miles"}
	ColumnsDescription  = []string{"WebAdDescription", "Description", "Comments"}
	ColumnsExterior     = []string{"ExteriorColor", "ExtColor", "Color"}
	ColumnsInterior     = []string{"InteriorColor", "IntColor"}
	ColumnsTransmission = []string{"Transmission", "Trans"}
	ColumnsPhotos       = []string{"PhotoURLs", "PhotoURL", "Photos", "ImageURLs", "Images"}
	ColumnsFeatures     = []string{"EquipmentCode", "Features", "Options", "Equipment"}
	ColumnsBodyType     = []string{"BodyStyle", "BodyType", "Body"}
	ColumnsDrivetrain   = []string{"Drivetrain", "DriveType"}
	ColumnsEngine       = []string{"Engine", "EngineDescription"}
	ColumnsFuelType     = []string{"FuelType", "Fuel"}
)

var allChains = [][]string{
	ColumnsVIN, ColumnsStockNumber, ColumnsYear, ColumnsMake, ColumnsModel, ColumnsTrim,
	ColumnsPrice, ColumnsMileage, ColumnsDescription, ColumnsExterior, ColumnsInterior,
	ColumnsTransmission, ColumnsPhotos, ColumnsFeatures, ColumnsBodyType, ColumnsDrivetrain,
	ColumnsEngine, ColumnsFuelType,
}

// Normalizer turns vendor rows into vehicle records.
type Normalizer struct {
	extractor  *Extractor
	inferencer *Inferencer
}

// NewNormalizer wires the feature extractor and inferencer for vocab.
func NewNormalizer(vocab *Vocabulary) *Normalizer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Normalizer{
		extractor:  NewExtractor(vocab.Features),
		inferencer: NewInferencer(vocab),
	}
}

// Normalize maps one data row (1-based rowNum) to a record. A row is rejected
// only when its VIN is blank.
func (n *Normalizer) Normalize(rowNum int, row models.RawRow) (models.VehicleRecord, *models.SkippedRow) {
	cols := newColumnIndex(row)

	vin := cols.first(ColumnsVIN)
	if err := ValidateVIN(vin); err != nil {
		return models.VehicleRecord{}, &models.SkippedRow{Row: rowNum, Reason: ReasonMissingVIN}
	}

	images := SplitPhotos(cols.first(ColumnsPhotos))
	rec := models.VehicleRecord{
		VIN:           vin,
		StockNumber:   cols.first(ColumnsStockNumber),
		Year:          ParseYear(cols.first(ColumnsYear)),
		Make:          cols.first(ColumnsMake),
		Model:         cols.first(ColumnsModel),
		Trim:          cols.first(ColumnsTrim),
		Price:         ParsePrice(cols.first(ColumnsPrice)),
		Mileage:       ParseMileage(cols.first(ColumnsMileage)),
		Description:   StripHTML(cols.first(ColumnsDescription)),
		ExteriorColor: cols.first(ColumnsExterior),
		InteriorColor: cols.first(ColumnsInterior),
		Transmission:  cols.first(ColumnsTransmission),
		Images:        images,
		Features:      n.extractor.Extract(cols.first(ColumnsFeatures)),
		BodyType:      cols.first(ColumnsBodyType),
		Drivetrain:    cols.first(ColumnsDrivetrain),
		Engine:        cols.first(ColumnsEngine),
		FuelType:      cols.first(ColumnsFuelType),
	}
	if rec.StockNumber == "" {
		rec.StockNumber = DeriveStockNumber(vin)
	}
	if len(images) > 0 {
		rec.Image = images[0]
	}

	n.inferencer.Apply(&rec)
	return rec, nil
}

// NormalizeTable normalizes every record of a table into one batch.
func (n *Normalizer) NormalizeTable(table *Table) models.ParseResult {
	result := models.ParseResult{
		Vehicles: []models.VehicleRecord{},
		Skipped:  []models.SkippedRow{},
		Unmapped: n.UnmappedColumns(table.Headers),
	}
	for _, record := range table.Records {
		result.TotalRows++
		if record.Err != nil {
			result.Skipped = append(result.Skipped, models.SkippedRow{
				Row:    record.Row,
				Reason: fmt.Sprintf("Malformed line: %v", record.Err),
			})
			continue
		}
		rec, skipped := n.Normalize(record.Row, record.Values)
		if skipped != nil {
			result.Skipped = append(result.Skipped, *skipped)
			continue
		}
		result.Vehicles = append(result.Vehicles, rec)
	}
	return result
}

// UnmappedColumns lists headers that no fallback chain reads, sorted.
func (n *Normalizer) UnmappedColumns(headers []string) []string {
	known := make(map[string]struct{})
	for _, chain := range allChains {
		for _, name := range chain {
			known[foldKey(name)] = struct{}{}
		}
	}
	var out []string
	for _, h := range headers {
		if h == "" {
			continue
		}
		if _, ok := known[foldKey(h)]; !ok {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out
}

// ValidateVIN rejects blank identifiers.
func ValidateVIN(vin string) error {
	if strings.TrimSpace(vin) == "" {
		return fmt.Errorf("vehicle missing vin")
	}
	return nil
}

// DeriveStockNumber builds the fallback stock number from the VIN tail.
func DeriveStockNumber(vin string) string {
	runes := []rune(vin)
	if len(runes) > 6 {
		runes = runes[len(runes)-6:]
	}
	return "VIN-" + string(runes)
}

// SplitPhotos splits a whitespace-delimited URL list, keeping order.
func SplitPhotos(raw string) []string {
	fields := strings.Fields(raw)
	if fields == nil {
		return []string{}
	}
	return fields
}

// ParseYear returns 0 for blank or unparseable input.
func ParseYear(raw string) int {
	v, ok := parseNumber(raw)
	if !ok || v < 0 || v > math.MaxInt32 {
		return 0
	}
	return int(v)
}

// ParseMileage returns 0 for blank, negative, or unparseable input.
func ParseMileage(raw string) int {
	v, ok := parseNumber(raw)
	if !ok || v < 0 || v > math.MaxInt32 {
		return 0
	}
	return int(math.Round(v))
}

// ParsePrice strips currency formatting; 0 is a valid price.
func ParsePrice(raw string) float64 {
	v, ok := parseNumber(raw)
	if !ok || v < 0 {
		return 0
	}
	return v
}

// numberPattern matches one numeric group with optional thousands separators
// and a leading minus sign.
var numberPattern = regexp.MustCompile(`-?(?:\d[\d,]*(?:\.\d+)?|\.\d+)`)

// parseNumber accepts text holding exactly one numeric group, so
// "$12,995.00" and "48,120 mi" parse while "N/A", "2019-2020" and "1.5E+04"
// do not.
func parseNumber(raw string) (float64, bool) {
	groups := numberPattern.FindAllString(raw, 2)
	if len(groups) != 1 {
		return 0, false
	}

	v, err := strconv.ParseFloat(strings.ReplaceAll(groups[0], ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// columnIndex resolves column names exactly first, then by folded key.
type columnIndex struct {
	row    models.RawRow
	folded map[string]string
}

func newColumnIndex(row models.RawRow) columnIndex {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	folded := make(map[string]string, len(row))
	for _, name := range names {
		value := row[name]
		key := foldKey(name)
		if existing, ok := folded[key]; ok && strings.TrimSpace(existing) != "" {
			continue
		}
		folded[key] = value
	}
	return columnIndex{row: row, folded: folded}
}

func (c columnIndex) first(chain []string) string {
	for _, name := range chain {
		if v := strings.TrimSpace(c.row[name]); v != "" {
			return v
		}
		if v := strings.TrimSpace(c.folded[foldKey(name)]); v != "" {
			return v
		}
	}
	return ""
}

func foldKey(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, name)
}
