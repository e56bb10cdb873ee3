package rod

import (
	"bytes"
	"log/slog"
	"sync"
)

// logWriter turns browser stdout and stderr into debug records, one per line.
type logWriter struct {
	logger *slog.Logger

	mu  sync.Mutex
	buf []byte
}

func newLogWriter(logger *slog.Logger) *logWriter {
	return &logWriter{logger: logger.With("component", "chrome")}
}

// Write logs every complete line in p and keeps the remainder for the next call.
func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(w.buf[:i])
		w.buf = w.buf[i+1:]
		if len(line) > 0 {
			w.logger.Debug("browser output", "line", string(line))
		}
	}
	return len(p), nil
}
