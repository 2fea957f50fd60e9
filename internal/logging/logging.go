package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

const prefix = "tcping "

// Options selects where diagnostic logs go. Probe output owns stdout, so logs are
// written to Stderr when Verbose is set and to a rotated File when one is named.
type Options struct {
	Verbose    bool
	Stderr     io.Writer
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func New(opts Options) (*log.Logger, io.Closer) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.Verbose {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}

	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10), // megabytes
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 30), // days
			Compress:   opts.Compress,
		}
		writers = append(writers, file)
		closer = file
	}

	if len(writers) == 0 {
		return log.New(io.Discard, prefix, log.LstdFlags|log.LUTC), closer
	}
	return log.New(io.MultiWriter(writers...), prefix, log.LstdFlags|log.LUTC), closer
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
