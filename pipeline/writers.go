package pipeline

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-inventory-bridge/models"
)

// OutputWriter defines the interface for local vehicle output.
type OutputWriter interface {
	Write(vehicles []models.VehicleRecord) error
	Close() error
	Validate() error
}

// NewOutputWriter creates a writer for format (csv, json or dual). In dual
// mode the JSON lines go next to filename with a .jsonl extension.
func NewOutputWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename)
	case "dual":
		jsonFilename, err := jsonlSibling(filename)
		if err != nil {
			return nil, err
		}
		csvWriter, err := NewCSVWriter(filename)
		if err != nil {
			return nil, err
		}
		jsonWriter, err := NewJSONWriter(jsonFilename)
		if err != nil {
			csvWriter.Close()
			return nil, err
		}
		return teeWriter{csvWriter, jsonWriter}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// jsonlSibling returns the .jsonl path written next to a dual-mode CSV file.
func jsonlSibling(filename string) (string, error) {
	sibling := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".jsonl"
	if filepath.Clean(sibling) == filepath.Clean(filename) {
		return "", fmt.Errorf("dual output %s would write csv and json to the same file", filename)
	}
	return sibling, nil
}

// teeWriter sends every batch to each writer in order. Each writer guards its
// own file.
type teeWriter []OutputWriter

func (t teeWriter) Write(vehicles []models.VehicleRecord) error {
	for _, w := range t {
		if err := w.Write(vehicles); err != nil {
			return err
		}
	}
	return nil
}

func (t teeWriter) Close() error {
	var errs []error
	for _, w := range t {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

func (t teeWriter) Validate() error {
	var errs []error
	for _, w := range t {
		errs = append(errs, w.Validate())
	}
	return errors.Join(errs...)
}

// WriterDeliverer satisfies Deliverer by writing batches to local files
// instead of posting them. It backs dry runs.
type WriterDeliverer struct {
	writer OutputWriter
}

// NewWriterDeliverer wraps writer.
func NewWriterDeliverer(writer OutputWriter) *WriterDeliverer {
	return &WriterDeliverer{writer: writer}
}

// Deliver writes the payload's vehicles. Write errors are retryable.
func (d *WriterDeliverer) Deliver(_ context.Context, payload *models.Payload) models.DeliveryResult {
	start := time.Now()
	if err := d.writer.Write(payload.Vehicles); err != nil {
		return models.DeliveryResult{
			Outcome:   models.OutcomeRetryableFailure,
			Detail:    err.Error(),
			ErrorType: "write",
			Duration:  time.Since(start),
		}
	}
	return models.DeliveryResult{
		Outcome:  models.OutcomeSuccess,
		Detail:   fmt.Sprintf("wrote %d vehicles from %s", len(payload.Vehicles), payload.Meta.Filename),
		Duration: time.Since(start),
	}
}

var csvHeader = []string{
	"vin", "stock_number", "year", "make", "model", "trim", "price", "mileage",
	"exterior_color", "interior_color", "transmission", "body_type", "drivetrain",
	"engine", "fuel_type", "image", "images", "features",
}

// CSVWriter writes vehicle records to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filepath.Dir(filename)); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
	}, nil
}

// Write appends vehicles to the CSV output. Images are space separated and
// features joined with "; ".
func (cw *CSVWriter) Write(vehicles []models.VehicleRecord) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, v := range vehicles {
		record := []string{
			v.VIN,
			v.StockNumber,
			strconv.Itoa(v.Year),
			v.Make,
			v.Model,
			v.Trim,
			strconv.FormatFloat(v.Price, 'f', -1, 64),
			strconv.Itoa(v.Mileage),
			v.ExteriorColor,
			v.InteriorColor,
			v.Transmission,
			v.BodyType,
			v.Drivetrain,
			v.Engine,
			v.FuelType,
			v.Image,
			strings.Join(v.Images, " "),
			strings.Join(v.Features, "; "),
		}
		if err := cw.writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has content.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.file.Name())
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filepath.Dir(filename)); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends vehicles in JSONL format, using the consumer's field names.
func (jw *JSONWriter) Write(vehicles []models.VehicleRecord) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for i := range vehicles {
		if err := jw.encoder.Encode(&vehicles[i]); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	info, err := os.Stat(jw.file.Name())
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}
