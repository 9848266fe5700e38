package services

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ngenohkevin/clinic-analytics/internal/models"
)

// SnapshotSource provides the latest accepted analytics snapshot
type SnapshotSource interface {
	Snapshot() (*models.AnalyticsExport, error)
}

// ExportService serializes the latest analytics snapshot into a
// downloadable report. Exporting is rejected while no snapshot exists.
type ExportService struct {
	source SnapshotSource
}

// NewExportService creates a new export service instance
func NewExportService(source SnapshotSource) *ExportService {
	return &ExportService{
		source: source,
	}
}

// BuildExport returns the export envelope for the latest snapshot
func (s *ExportService) BuildExport() (*models.AnalyticsExport, error) {
	export, err := s.source.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to build analytics export: %w", err)
	}
	return export, nil
}

// WriteJSON writes the export as indented JSON
func (s *ExportService) WriteJSON(w io.Writer) error {
	export, err := s.BuildExport()
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Filename names the download artifact after the date-range selector and
// the current date.
func (s *ExportService) Filename() (string, error) {
	export, err := s.source.Snapshot()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("analytics-report-%s-%s.json", export.DateRange, time.Now().Format(dateLayout)), nil
}
