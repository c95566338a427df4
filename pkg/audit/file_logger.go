package audit

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileLogger writes audit events as JSON lines via logrus. The audit
// trail uses its own logger instance so its output format and
// destination are independent of the application log.
type FileLogger struct {
	log  *logrus.Logger
	file *os.File
	mu   sync.Mutex
}

// NewFileLogger creates an audit logger appending to the given path.
func NewFileLogger(path string) (*FileLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(file)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	log.SetLevel(logrus.InfoLevel)

	return &FileLogger{log: log, file: file}, nil
}

// NewWriterLogger creates an audit logger writing to an arbitrary
// writer. Used by tests.
func NewWriterLogger(w io.Writer) *FileLogger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
	return &FileLogger{log: log}
}

// Record implements Logger
func (l *FileLogger) Record(ctx context.Context, event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"event_type": string(event.EventType),
		"status":     string(event.Status),
		"user_id":    event.UserID,
		"request_id": event.RequestID,
		"method":     event.Method,
		"path":       event.Path,
		"remote_ip":  event.RemoteIP,
		"task_id":    event.TaskID,
		"reason":     event.Reason,
	}).Info("audit")
}

// Close implements Logger
func (l *FileLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
