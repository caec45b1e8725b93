package logger

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileLogger implements Tier 2: rotating JSON-lines file logging.
// Entries are queued on a channel and written in batches by one goroutine;
// when the queue is full new entries are dropped rather than blocking callers.
type FileLogger struct {
	config    *Config
	logger    *lumberjack.Logger
	buffer    chan *LogEntry
	closeChan chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewFileLogger creates a new file logger
func NewFileLogger(config *Config) (*FileLogger, error) {
	if !config.File.Enabled {
		return nil, fmt.Errorf("file logging is not enabled")
	}

	fl := &FileLogger{
		config: config,
		logger: &lumberjack.Logger{
			Filename:   config.File.Path,
			MaxSize:    config.File.MaxSizeMB,
			MaxBackups: config.File.MaxBackups,
			MaxAge:     config.File.MaxAgeDays,
			Compress:   config.File.Compress,
		},
		buffer:    make(chan *LogEntry, config.File.BufferSize),
		closeChan: make(chan struct{}),
	}

	fl.wg.Add(1)
	go fl.batchWriter()

	return fl, nil
}

// log queues a log entry for the file
func (fl *FileLogger) log(level LogLevel, msg string, component Component, source LogSource, fields map[string]interface{}) {
	select {
	case fl.buffer <- newEntry(level, msg, component, source, fields):
	default:
		// queue full, drop
	}
}

func (fl *FileLogger) batchWriter() {
	defer fl.wg.Done()

	ticker := time.NewTicker(fl.config.File.BatchInterval)
	defer ticker.Stop()

	batch := make([]*LogEntry, 0, fl.config.File.BatchSize)
	for {
		select {
		case entry := <-fl.buffer:
			batch = append(batch, entry)
			if len(batch) >= fl.config.File.BatchSize {
				batch = fl.flush(batch)
			}

		case <-ticker.C:
			batch = fl.flush(batch)

		case <-fl.closeChan:
			// Drain whatever is still queued
			for {
				select {
				case entry := <-fl.buffer:
					batch = append(batch, entry)
				default:
					fl.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes batch as JSON lines and returns it emptied
func (fl *FileLogger) flush(batch []*LogEntry) []*LogEntry {
	for _, entry := range batch {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		_, _ = fl.logger.Write(append(data, '\n'))
	}
	return batch[:0]
}

// Close flushes pending entries and closes the file
func (fl *FileLogger) Close() error {
	fl.closeOnce.Do(func() { close(fl.closeChan) })
	fl.wg.Wait()

	if err := fl.logger.Close(); err != nil {
		return fmt.Errorf("failed to close file logger: %w", err)
	}
	return nil
}

// Rotate triggers manual log rotation
func (fl *FileLogger) Rotate() error {
	return fl.logger.Rotate()
}
