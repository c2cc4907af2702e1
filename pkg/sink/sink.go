// Package sink writes collected records to durable storage. One artifact
// per worker, flushed exactly once at batch completion.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/twitter"
)

// Sink accepts a worker's accumulated records
type Sink interface {
	Flush(workerID int, records []twitter.Record) error
}

// FileSink writes each worker's records as a JSON array artifact
type FileSink struct {
	outputDir string
	logger    logger.Logger
}

// NewFileSink creates the output directory and returns a sink writing
// into it.
func NewFileSink(outputDir string, log logger.Logger) (*FileSink, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileSink{outputDir: outputDir, logger: log}, nil
}

// Flush writes the worker's full accumulator to res_worker_<id>.json.
// An empty accumulator still produces an artifact: partial results are
// success, and every worker leaves a trace of having run.
func (s *FileSink) Flush(workerID int, records []twitter.Record) error {
	if records == nil {
		records = []twitter.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	path := filepath.Join(s.outputDir, fmt.Sprintf("res_worker_%d.json", workerID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.InfoWithFields("worker artifact written", map[string]interface{}{
		"worker_id": workerID,
		"records":   len(records),
		"path":      path,
	})
	return nil
}
