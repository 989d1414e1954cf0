// Package eventlog appends timestamped lines to the persistent event log.
package eventlog

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TimeLayout is the timestamp format of every event line.
const TimeLayout = "01-02-2006 15:04:05"

// Recorder appends one event to durable storage.
type Recorder interface {
	Record(msg string) error
}

// File writes events to a file. The file is opened for every record so a
// storage outage only loses the events written while it lasts.
type File struct {
	path string
	now  func() time.Time
}

// New creates a File recorder for path.
func New(path string) *File {
	return &File{path: path, now: time.Now}
}

// Path returns the log file path.
func (f *File) Path() string {
	return f.path
}

// Record appends "<timestamp> <msg>" to the log.
func (f *File) Record(msg string) error {
	line := FormatLine(f.now(), msg)

	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	if _, err := fh.Write(line); err != nil {
		fh.Close()
		return fmt.Errorf("write event log: %w", err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}

// FormatLine renders one event line, newline terminated.
func FormatLine(t time.Time, msg string) []byte {
	var buf bytes.Buffer
	w := zerolog.ConsoleWriter{
		Out:        &buf,
		NoColor:    true,
		PartsOrder: []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
		FormatTimestamp: func(i any) string {
			return fmt.Sprint(i)
		},
	}
	l := zerolog.New(w)
	l.Log().
		Str(zerolog.TimestampFieldName, t.Format(TimeLayout)).
		Msg(strings.TrimRight(msg, "\n"))
	return buf.Bytes()
}
