package logger

import (
	"github.com/op/go-logging"
)

// ProgressLogger logs the progress of a large S3 download. Write it
// alongside the destination file with io.MultiWriter or io.TeeReader.
type ProgressLogger struct {
	logger         *logging.Logger
	chunkNumber    int
	totalBytes     int64
	fileSize       int64
	lastPctPrinted float64
	prefix         string
}

const _100MB = int64(104857600)
const _1GB = int64(1073741824)
const _10GB = int64(10737418240)

// NewProgressLogger creates a new ProgressLogger.
func NewProgressLogger(logger *logging.Logger, prefix string, fileSize int64) *ProgressLogger {
	return &ProgressLogger{
		logger:         logger,
		prefix:         prefix,
		chunkNumber:    1,
		totalBytes:     0,
		lastPctPrinted: 0.0,
		fileSize:       fileSize,
	}
}

// Write counts bytes as they stream past, logging meaningful progress
// without being too verbose. It never returns an error.
func (e *ProgressLogger) Write(p []byte) (n int, err error) {
	e.totalBytes += int64(len(p))
	if e.fileSize <= 0 {
		return len(p), nil
	}
	pctComplete := (float64(e.totalBytes) / float64(e.fileSize)) * 100
	if e.shouldPrint(pctComplete) {
		e.logger.Infof("%s : chunk %d, %d of %d bytes, %3.2f%% complete",
			e.prefix, e.chunkNumber, e.totalBytes, e.fileSize, pctComplete)
		e.lastPctPrinted = pctComplete
	}
	e.chunkNumber++
	return len(p), nil
}

// TotalBytes returns the number of bytes written so far.
func (e *ProgressLogger) TotalBytes() int64 {
	return e.totalBytes
}

// shouldPrint returns true if the logger should print a message to the log.
// Small files download quickly, so we don't log them at all.
func (e *ProgressLogger) shouldPrint(pctComplete float64) bool {
	diff := pctComplete - e.lastPctPrinted
	if e.fileSize > _10GB {
		return diff >= float64(1.0)
	}
	if e.fileSize > _1GB {
		return diff >= 5.0
	}
	if e.fileSize > _100MB {
		return diff >= 20.0
	}
	return false
}
