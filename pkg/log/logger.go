package log

import (
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// Only the first stack line ("goroutine 123 [running]:") is needed.
	minStackBufSize = 32
	// Shortest stack header that can still carry a goroutine id.
	minStackTraceLen = 12
	// len("goroutine ").
	goroutinePrefixLen = 10
	unknownGoroutine   = "unknown"
	consoleTimeFormat  = "15:04:05"
)

var (
	Logger     zerolog.Logger
	stackPool  sync.Pool
	loggerLock sync.Mutex
)

func init() {
	stackPool.New = func() interface{} {
		return make([]byte, minStackBufSize)
	}

	configure(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: consoleTimeFormat}, zerolog.InfoLevel)
}

// goroutineID extracts the current goroutine id from a truncated stack header.
func goroutineID() string {
	bufInterface := stackPool.Get()
	buf, ok := bufInterface.([]byte)
	if !ok {
		return unknownGoroutine
	}
	defer stackPool.Put(buf) //nolint:staticcheck // buf is a slice, this is the correct usage

	stackLen := runtime.Stack(buf, false)
	if stackLen < minStackTraceLen {
		return unknownGoroutine
	}

	idx := goroutinePrefixLen
	start := idx
	for idx < stackLen && buf[idx] >= '0' && buf[idx] <= '9' {
		idx++
	}

	if idx > start {
		return string(buf[start:idx])
	}
	return unknownGoroutine
}

func newLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

func configure(out io.Writer, level zerolog.Level) {
	loggerLock.Lock()
	defer loggerLock.Unlock()

	Logger = newLogger(out, level)
	log.Logger = Logger
}

// Info starts an info level event.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error starts an error level event.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn starts a warning level event.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug starts a debug level event.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal starts a fatal level event; Msg exits the process.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	loggerLock.Lock()
	defer loggerLock.Unlock()

	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}

// SetJSONOutput replaces the console writer with newline-delimited JSON on out,
// keeping the current level.
func SetJSONOutput(out io.Writer) {
	configure(out, Logger.GetLevel())
}

// SetLevel parses a zerolog level name ("debug", "info", "warn", ...) and applies it.
func SetLevel(name string) error {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return err
	}

	loggerLock.Lock()
	defer loggerLock.Unlock()

	Logger = Logger.Level(level)
	log.Logger = Logger
	return nil
}
