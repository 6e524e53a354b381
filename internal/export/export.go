// Package export appends leads and outreach events to CSV files and reads
// leads back for the campaign.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// appendRecord writes one record to path, creating the file with header when
// it does not exist yet.
func appendRecord(path string, header, record []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			f.Close()
			return fmt.Errorf("writing header: %w", err)
		}
	}
	if err := w.Write(record); err != nil {
		f.Close()
		return fmt.Errorf("writing row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// LeadWriter appends qualified leads to a dated CSV.
type LeadWriter struct {
	path   string
	logger *zap.Logger
}

// NewLeadWriter creates a writer for the leads CSV at path.
func NewLeadWriter(path string, logger *zap.Logger) *LeadWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadWriter{path: path, logger: logger}
}

// Path returns the file the writer appends to.
func (w *LeadWriter) Path() string { return w.path }

// Append writes one lead. A failed write is logged and reported as false;
// the run carries on.
func (w *LeadWriter) Append(row LeadRow) bool {
	if err := appendRecord(w.path, LeadColumns, row.record()); err != nil {
		w.logger.Warn("lead export failed", zap.String("domain", row.Domain), zap.Error(err))
		return false
	}
	return true
}

// OutreachColumns is the outreach log schema.
var OutreachColumns = []string{"Date", "Domain", "Company", "Email", "Template", "Type", "Subject", "Status"}

// OutreachRow is one send recorded in the outreach log.
type OutreachRow struct {
	Date     string
	Domain   string
	Company  string
	Email    string
	Template string
	Type     string
	Subject  string
	Status   string
}

// OutreachWriter appends sends to the outreach log.
type OutreachWriter struct {
	path   string
	logger *zap.Logger
}

// NewOutreachWriter creates a writer for the outreach log at path.
func NewOutreachWriter(path string, logger *zap.Logger) *OutreachWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutreachWriter{path: path, logger: logger}
}

// Append writes one send. Failures are logged and ignored.
func (w *OutreachWriter) Append(row OutreachRow) bool {
	record := []string{row.Date, row.Domain, row.Company, row.Email, row.Template, row.Type, row.Subject, row.Status}
	if err := appendRecord(w.path, OutreachColumns, record); err != nil {
		w.logger.Warn("outreach export failed", zap.String("domain", row.Domain), zap.Error(err))
		return false
	}
	return true
}
