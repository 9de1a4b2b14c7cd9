package host

import (
	"encoding/hex"
	"log/slog"
	"os"
)

// NewLogger creates a *slog.Logger with the given handler.
// If handler is nil, uses a text handler to stderr at Info level.
func NewLogger(handler slog.Handler) *slog.Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return slog.New(handler)
}

// LoggingStore wraps a Store and logs every host call at Debug level.
//
// Host calls are the unit of gas at the storage boundary, so tracing them is
// the primary way to understand what a contract method costs. Intended for
// simulation only; a real host store is never wrapped.
type LoggingStore struct {
	inner Store
	log   *slog.Logger

	gets uint64
	sets uint64
}

// NewLoggingStore creates a LoggingStore around inner.
// If logger is nil, a default text logger is used.
func NewLoggingStore(inner Store, logger *slog.Logger) *LoggingStore {
	if logger == nil {
		logger = NewLogger(nil)
	}
	return &LoggingStore{inner: inner, log: logger}
}

// Get forwards to the inner store and logs the outcome.
func (s *LoggingStore) Get(key []byte) ([]byte, bool) {
	v, ok := s.inner.Get(key)
	s.gets++
	s.log.Debug("store get",
		slog.String("key", hex.EncodeToString(key)),
		slog.Bool("hit", ok),
		slog.Int("value_len", len(v)),
	)
	return v, ok
}

// Set forwards to the inner store and logs the write.
func (s *LoggingStore) Set(key, value []byte) {
	s.sets++
	s.log.Debug("store set",
		slog.String("key", hex.EncodeToString(key)),
		slog.Int("value_len", len(value)),
	)
	s.inner.Set(key, value)
}

// Counts returns the number of Get and Set calls seen so far.
func (s *LoggingStore) Counts() (gets, sets uint64) {
	return s.gets, s.sets
}
