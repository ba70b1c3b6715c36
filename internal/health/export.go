package health

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mrcode/control-tray/internal/models"
)

const (
	bloodGlucoseType = "HKQuantityTypeIdentifierBloodGlucose"
	exportTimeLayout = "2006-01-02 15:04:05 -0700"
)

// ExportSource reads blood glucose records from an Apple Health export.xml
type ExportSource struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// NewExportSource creates a source backed by the export file at path
func NewExportSource(path string, logger *slog.Logger) *ExportSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportSource{
		path:   path,
		now:    time.Now,
		logger: logger.With("component", "health", "source", "export"),
	}
}

// RequestAuthorization reports whether the export file can be opened
func (s *ExportSource) RequestAuthorization(_ context.Context) (bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return false, nil
		}
		return false, err
	}
	_ = f.Close()
	return true, nil
}

// FetchGlucoseData streams the export and keeps glucose records inside the window
func (s *ExportSource) FetchGlucoseData(ctx context.Context) ([]models.Reading, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening health export: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	start, end := Window(s.now())
	readings, err := decodeExport(ctx, f, start, end)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("health export read", "count", len(readings))
	return readings, nil
}

type exportRecord struct {
	Type      string `xml:"type,attr"`
	Unit      string `xml:"unit,attr"`
	StartDate string `xml:"startDate,attr"`
	Value     string `xml:"value,attr"`
}

// decodeExport walks the document token by token so multi-gigabyte exports
// are never held in memory.
func decodeExport(ctx context.Context, r io.Reader, start, end time.Time) ([]models.Reading, error) {
	dec := xml.NewDecoder(r)
	var readings []models.Reading

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing health export: %w", err)
		}

		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "Record" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var rec exportRecord
		if err := dec.DecodeElement(&rec, &el); err != nil {
			return nil, fmt.Errorf("parsing health record: %w", err)
		}
		if rec.Type != bloodGlucoseType {
			continue
		}

		reading, err := rec.toReading()
		if err != nil {
			return nil, err
		}
		if inWindow(reading.Time, start, end) {
			readings = append(readings, reading)
		}
	}

	sortAscending(readings)
	return readings, nil
}

func (r exportRecord) toReading() (models.Reading, error) {
	at, err := time.Parse(exportTimeLayout, r.StartDate)
	if err != nil {
		return models.Reading{}, fmt.Errorf("parsing record date %q: %w", r.StartDate, err)
	}

	value, err := strconv.ParseFloat(r.Value, 64)
	if err != nil {
		return models.Reading{}, fmt.Errorf("parsing record value %q: %w", r.Value, err)
	}

	mmol, err := toMmol(value, r.Unit)
	if err != nil {
		return models.Reading{}, err
	}

	return models.NewReading(mmol, at, models.SourceHealth), nil
}

// toMmol accepts "mg/dL" and the molar form "mmol<180.15588...>/L"
func toMmol(value float64, unit string) (float64, error) {
	switch {
	case strings.EqualFold(unit, "mg/dL"):
		return MgdlToMmol(value), nil
	case strings.HasPrefix(unit, "mmol"):
		return value, nil
	default:
		return 0, fmt.Errorf("unsupported glucose unit %q", unit)
	}
}
