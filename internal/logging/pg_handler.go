package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/stoqhq/stoq-backend/internal/models"
)

const (
	logFlushInterval = 5 * time.Second
	logBatchSize     = 50
)

// PGHandler is an slog.Handler that batches ERROR+ records into the
// system_logs table. Writes are buffered and flushed on an interval so a
// burst of errors cannot stall request handling on database inserts.
// Handlers derived via WithAttrs share one buffer and flush loop.
type PGHandler struct {
	core      *logSink
	baseAttrs []slog.Attr
}

type logSink struct {
	db     *gorm.DB
	mu     sync.Mutex
	buffer []models.SystemLog
	ticker *time.Ticker
	done   chan struct{}
}

func NewPGHandler(db *gorm.DB) *PGHandler {
	sink := &logSink{
		db:     db,
		buffer: make([]models.SystemLog, 0, logBatchSize),
		ticker: time.NewTicker(logFlushInterval),
		done:   make(chan struct{}),
	}
	go sink.flushLoop()
	return &PGHandler{core: sink}
}

func (s *logSink) flushLoop() {
	for {
		select {
		case <-s.ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *logSink) flush() {
	s.mu.Lock()
	if len(s.buffer) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.buffer
	s.buffer = make([]models.SystemLog, 0, logBatchSize)
	s.mu.Unlock()

	if err := s.db.CreateInBatches(batch, logBatchSize).Error; err != nil {
		slog.Error("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// Stop flushes the remaining buffer and ends the flush loop.
func (h *PGHandler) Stop() {
	h.core.ticker.Stop()
	close(h.core.done)
}

// Enabled only handles ERROR and above.
func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	assign := func(a slog.Attr) {
		switch a.Key {
		case "trace_id":
			entry.TraceID = a.Value.String()
		case "user_id":
			s := a.Value.String()
			entry.UserID = &s
		case "action":
			entry.Action = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		default:
			extra[a.Key] = a.Value.Any()
		}
	}
	for _, a := range h.baseAttrs {
		assign(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		assign(a)
		return true
	})

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}

	s := h.core
	s.mu.Lock()
	s.buffer = append(s.buffer, entry)
	needFlush := len(s.buffer) >= logBatchSize
	s.mu.Unlock()

	if needFlush {
		go s.flush()
	}
	return nil
}

func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	merged := append(append([]slog.Attr{}, h.baseAttrs...), attrs...)
	return &PGHandler{core: h.core, baseAttrs: merged}
}

func (h *PGHandler) WithGroup(name string) slog.Handler {
	return h
}
