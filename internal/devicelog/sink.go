// Package devicelog appends raw device output to a text log.
package devicelog

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/olt-gateway/pkg/file"
	"github.com/rs/zerolog"
)

// Separator terminates every record.
var Separator = strings.Repeat("=", 50)

// TimestampLayout is the layout of the record header timestamp.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Sink consumes (deviceID, tag, content) records.
type Sink interface {
	Write(deviceID, tag, content string) error
}

// FileSink writes records to an append-only writer. Each record is emitted
// with a single Write under a mutex, so concurrent callers never interleave.
type FileSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	now    func() time.Time
	logger zerolog.Logger
}

// NewFileSink opens path for appending.
func NewFileSink(path string, fileClient file.FileOperations, logger zerolog.Logger) (*FileSink, error) {
	wc, err := fileClient.OpenAppend(path)
	if err != nil {
		return nil, fmt.Errorf("open device log %s: %w", path, err)
	}
	s := NewWriterSink(wc, logger)
	s.closer = wc
	return s, nil
}

// NewWriterSink writes records to w.
func NewWriterSink(w io.Writer, logger zerolog.Logger) *FileSink {
	return &FileSink{
		w:      w,
		now:    time.Now,
		logger: logger,
	}
}

// Format renders one record.
func Format(ts time.Time, deviceID, tag, content string) string {
	return fmt.Sprintf("[%s] %s - %s\n%s\n%s\n", ts.Format(TimestampLayout), deviceID, tag, content, Separator)
}

// Write appends one record.
func (s *FileSink) Write(deviceID, tag, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := Format(s.now(), deviceID, tag, content)
	if _, err := io.WriteString(s.w, record); err != nil {
		s.logger.Error().Err(err).Str("olt", deviceID).Str("tag", tag).Msg("Failed to write device log record")
		return err
	}

	s.logger.Debug().Str("olt", deviceID).Str("tag", tag).Int("bytes", len(content)).Msg("Device log record written")
	return nil
}

// Close closes the underlying file, if any.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
