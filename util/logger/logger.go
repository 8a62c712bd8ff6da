package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path"
	"path/filepath"

	"github.com/op/go-logging"
)

/*
InitLogger creates and returns a logger suitable for logging
human-readable messages. Messages always go to stderr, and also to
<logDir>/<process name>.log when logDir is not empty. Also returns
the path to the log file, which is empty when there is none.
*/
func InitLogger(logDir string, logLevel logging.Level) (*logging.Logger, string, error) {
	processName := path.Base(os.Args[0])
	writers := []io.Writer{os.Stderr}
	filename := ""
	if logDir != "" {
		filename = filepath.Join(logDir, fmt.Sprintf("%s.log", processName))
		writer, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, "", fmt.Errorf("Cannot open log file '%s': %v", filename, err)
		}
		writers = append(writers, writer)
	}
	return initLogger(processName, logLevel, writers...), filename, nil
}

// InitWriterLogger returns a logger that writes only to w. Tests use
// this to capture log output.
func InitWriterLogger(name string, w io.Writer, logLevel logging.Level) *logging.Logger {
	return initLogger(name, logLevel, w)
}

func initLogger(name string, logLevel logging.Level, writers ...io.Writer) *logging.Logger {
	log := logging.MustGetLogger(name)
	format := logging.MustStringFormatter("[%{level}] %{message}")
	backends := make([]logging.Backend, len(writers))
	for i, w := range writers {
		backend := logging.NewLogBackend(w, "", stdlog.LstdFlags|stdlog.LUTC)
		backends[i] = logging.NewBackendFormatter(backend, format)
	}
	leveled := logging.MultiLogger(backends...)
	leveled.SetLevel(logLevel, name)
	log.SetBackend(leveled)
	return log
}
