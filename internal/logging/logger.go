package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sgeisler/testinator/internal/constants"
)

// Options controls logger construction.
type Options struct {
	// Verbose selects debug level.
	Verbose bool
	// Quiet selects warn level. Verbose wins when both are set.
	Quiet bool
	// Console receives human-facing log output. Defaults to os.Stderr.
	Console io.Writer
	// DisableFile skips the rotating log file.
	DisableFile bool
}

// New creates the run logger. Output goes to the console (pretty on a
// terminal, JSON otherwise) and, unless disabled, to the rotating log file
// under Home(). The returned closer releases the file and is never nil.
//
// A log file that cannot be created is reported through the error, but
// the console logger is still returned and usable.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	level := SelectLevel(opts.Verbose, opts.Quiet)
	out := selectOutput(console)

	var closer io.Closer = nopCloser{}
	var fileErr error
	if !opts.DisableFile {
		lj, err := newFileWriter()
		if err != nil {
			fileErr = err
		} else {
			closer = lj
			out = zerolog.MultiLevelWriter(out, NewFilteringWriter(lj))
		}
	}

	logger := zerolog.New(out).
		Level(level).
		Hook(NewSensitiveDataHook()).
		With().Timestamp().Logger()
	return logger, closer, fileErr
}

// NewWithWriter creates a logger writing JSON to w only. Intended for tests.
func NewWithWriter(verbose, quiet bool, w io.Writer) zerolog.Logger {
	return zerolog.New(w).
		Level(SelectLevel(verbose, quiet)).
		Hook(NewSensitiveDataHook()).
		With().Timestamp().Logger()
}

// SelectLevel determines the log level from the verbosity flags.
func SelectLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// selectOutput uses the console writer on a terminal without NO_COLOR and
// plain JSON everywhere else.
func selectOutput(w io.Writer) io.Writer {
	f, ok := w.(*os.File)
	if ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == "" { //nolint:gosec // file descriptors fit in int
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return w
}

func newFileWriter() (*lumberjack.Logger, error) {
	path, err := LogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   constants.LogCompress,
	}, nil
}

// Home returns the testinator home directory: $TESTINATOR_HOME when set,
// otherwise ~/.testinator.
func Home() (string, error) {
	if home := os.Getenv(constants.HomeEnvVar); home != "" {
		return home, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(userHome, constants.AppHome), nil
}

// LogFilePath returns the path of the rotating log file.
func LogFilePath() (string, error) {
	home, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.LogsDir, constants.CLILogFileName), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
