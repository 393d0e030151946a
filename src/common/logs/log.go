// Package logs provides the logger used by every dbmeta component. Output
// goes to stdout, stderr or systemd journald.
package logs

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
)

// LogOutput is a log destination
type LogOutput string

const (
	OutputStdout   LogOutput = "stdout"
	OutputStderr   LogOutput = "stderr"
	OutputJournald LogOutput = "journald"
	// OutputAuto picks journald when it is reachable, stderr otherwise
	OutputAuto LogOutput = "auto"
)

// Logger wraps the charm logger and remembers where it writes
type Logger struct {
	*log.Logger
	output LogOutput
}

// Config holds logger settings
type Config struct {
	Output LogOutput
	// Level is one of debug, info, warn, error
	Level  string
	Prefix string
}

// DefaultConfig returns the default logger settings
func DefaultConfig() Config {
	return Config{
		Output: OutputAuto,
		Level:  "info",
	}
}

func journaldAvailable() bool {
	if _, err := exec.LookPath("systemd-cat"); err != nil {
		return false
	}
	_, err := os.Stat("/run/systemd/journal/socket")
	return err == nil
}

// ParseLevel converts a level name to a log.Level, defaulting to info
func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// New creates a Logger from cfg. Migration progress is written to stderr by
// default so that command output on stdout stays machine readable.
func New(cfg Config) *Logger {
	var writer io.Writer = os.Stderr
	output := OutputStderr

	switch cfg.Output {
	case OutputStdout:
		writer, output = os.Stdout, OutputStdout
	case OutputJournald, OutputAuto:
		if journaldAvailable() {
			writer, output = newJournaldWriter(), OutputJournald
		}
	}

	return NewWithWriter(writer, output, cfg)
}

// NewWithWriter creates a Logger that writes to w
func NewWithWriter(w io.Writer, output LogOutput, cfg Config) *Logger {
	return &Logger{
		Logger: log.NewWithOptions(w, log.Options{
			Level:           ParseLevel(cfg.Level),
			Prefix:          cfg.Prefix,
			ReportTimestamp: true,
		}),
		output: output,
	}
}

// NewDefault creates a Logger with DefaultConfig
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// Discard returns a Logger that drops everything
func Discard() *Logger {
	return NewWithWriter(io.Discard, OutputStderr, Config{Level: "error"})
}

// Output returns the effective destination
func (l *Logger) Output() LogOutput {
	return l.output
}

type journaldWriter struct {
	identifier string
}

func newJournaldWriter() *journaldWriter {
	return &journaldWriter{identifier: "dbmeta"}
}

// Write pipes p through systemd-cat, falling back to stderr
func (w *journaldWriter) Write(p []byte) (int, error) {
	cmd := exec.Command("systemd-cat", "-t", w.identifier)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return os.Stderr.Write(p)
	}
	if err := cmd.Start(); err != nil {
		return os.Stderr.Write(p)
	}

	n, _ := stdin.Write(p)
	stdin.Close()
	_ = cmd.Wait()

	return n, nil
}
