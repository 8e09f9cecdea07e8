package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled logging for Lookout components.
// Every component of a process writes to the same rotated JSON file in
// ~/.lookout/logs/, and optionally to a console writer.
type Logger struct {
	sessionID string
	component string
	logPath   string
	zap       *zap.Logger
	sugar     *zap.SugaredLogger
	writer    io.Writer
	closeOnce sync.Once
}

var (
	// Global session ID for the current execution
	sessionID     string
	sessionIDOnce sync.Once

	// logDir is the directory where log files are stored
	logDir string

	initOnce sync.Once
	initErr  error

	// sink is shared so components never open the file twice
	sinkMu sync.Mutex
	sink   *lumberjack.Logger

	// console, when set, receives human-readable output in addition to the file
	console io.Writer

	level = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// Rotation limits for the log file.
const (
	maxSizeMB  = 20
	maxBackups = 5
	maxAgeDays = 14
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		if logDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				initErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			logDir = filepath.Join(homeDir, ".lookout", "logs")
		}

		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
	})
	return initErr
}

// SetLogDirectory moves subsequent log files to dir. Loggers created earlier
// keep writing to the previous file.
func SetLogDirectory(dir string) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	logDir = dir
	initOnce = sync.Once{}
	initErr = nil
	if sink != nil {
		_ = sink.Close()
		sink = nil
	}
}

// SetLevel changes the minimum level of every logger. Accepts debug, info, warn or error.
func SetLevel(name string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level.SetLevel(l)
	return nil
}

// SetConsole mirrors logs created after the call to w. Pass nil to stop.
func SetConsole(w io.Writer) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	console = w
}

func fileSink() (*lumberjack.Logger, string) {
	sinkMu.Lock()
	defer sinkMu.Unlock()

	if sink == nil {
		sink = &lumberjack.Logger{
			Filename:   filepath.Join(logDir, fmt.Sprintf("%s-lookout.log", getSessionID())),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
		}
	}
	return sink, sink.Filename
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

func consoleCore(w io.Writer) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(w), level)
}

// NewLogger creates a new logger for a specific component.
// The logger writes to ~/.lookout/logs/<session-id>-lookout.log
//
// If the log directory cannot be created it returns a logger writing to stderr
// along with the error, so callers can warn and carry on.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	file, logPath := fileSink()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(file), level),
	}

	sinkMu.Lock()
	mirror := console
	sinkMu.Unlock()
	if mirror != nil {
		cores = append(cores, consoleCore(mirror))
	}

	base := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)).
		Named(component).
		With(zap.String("session_id", getSessionID()))

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		logPath:   logPath,
		zap:       base,
		sugar:     base.Sugar(),
		writer:    file,
	}, nil
}

func newFallbackLogger(component string, err error) *Logger {
	base := zap.New(consoleCore(os.Stderr)).Named(component)
	base.Warn("failed to initialize file logging, falling back to stderr", zap.Error(err))

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		zap:       base,
		sugar:     base.Sugar(),
		writer:    os.Stderr,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	base := zap.NewNop()
	return &Logger{
		component: "nop",
		zap:       base,
		sugar:     base.Sugar(),
		writer:    io.Discard,
	}
}

// Printf logs a formatted message at info level
func (l *Logger) Printf(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Debugf logs a debug-level message
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Infof logs an info-level message
func (l *Logger) Infof(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warnf logs a warning-level message
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Errorf logs an error-level message
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Zap exposes the structured logger for callers that log fields.
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Writer returns the raw destination of this logger
func (l *Logger) Writer() io.Writer {
	return l.writer
}

// SessionID returns the current session ID
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogPath returns the path to the log file, or "" when logging to stderr
func (l *Logger) LogPath() string {
	return l.logPath
}

// Component returns the name the logger was created with
func (l *Logger) Component() string {
	return l.component
}

// Close flushes buffered entries. Safe to call multiple times. The shared
// file stays open for other components until Shutdown.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.logPath != "" {
			err = l.zap.Sync()
		}
	})
	return err
}

// Shutdown closes the shared log file.
func Shutdown() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}

// GetSessionID returns the current global session ID
func GetSessionID() string {
	return getSessionID()
}

// GetLogDirectory returns the directory where logs are stored
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
