package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/altafino/consultation-report/internal/report"
	"github.com/altafino/consultation-report/internal/storage"
)

// ErrNoRecords is returned when publishing an outcome without records.
var ErrNoRecords = errors.New("outcome has no records")

// Publisher renders records into a report file and stores it.
type Publisher struct {
	Writer        report.Writer
	Storage       storage.ReportStorage
	NamingPattern string
	Logger        *slog.Logger

	now func() time.Time
}

// Publish writes the records of out and returns where the report was
// stored.
func (p *Publisher) Publish(ctx context.Context, account string, out Outcome) (string, error) {
	if len(out.Records) == 0 {
		return "", ErrNoRecords
	}

	now := time.Now
	if p.now != nil {
		now = p.now
	}

	var buf bytes.Buffer
	if err := p.Writer.Write(&buf, out.Records); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	filename := report.Filename(p.NamingPattern, account, now(), p.Writer.Extension())
	location, err := p.Storage.Save(ctx, filename, buf.Bytes(), p.Writer.ContentType())
	if err != nil {
		return "", fmt.Errorf("failed to store report: %w", err)
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("stored report",
		"run_id", out.RunID,
		"location", location,
		"records", len(out.Records),
		"bytes", buf.Len())

	return location, nil
}
