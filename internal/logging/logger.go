package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/2beens/gymplanner/pkg"
)

const (
	defaultMaxSizeMB  = 50
	sentryFlushPeriod = 2 * time.Second
)

type LoggerSetupParams struct {
	LogFileName   string
	LogToStdout   bool
	LogLevel      string
	LogFormatJSON bool
	// MaxSizeMB is the size at which the log file is rotated, 50 if unset.
	MaxSizeMB  int
	MaxBackups int

	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
	Release          string
}

// Setup configures the global logrus logger. The returned func flushes
// buffered Sentry events and is safe to call when Sentry is off.
func Setup(params LoggerSetupParams) func() {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetLevel(GetLevel(params.LogLevel))

	flush := func() {}
	if params.SentryEnabled {
		err := sentry.Init(sentry.ClientOptions{
			Environment:      params.Environment,
			Dsn:              params.SentryDSN,
			TracesSampleRate: 1.0,
			ServerName:       params.SentryServerName,
			Release:          params.Release,
		})
		if err != nil {
			logrus.Errorf("sentry.Init: %s", err)
		} else {
			logrus.AddHook(NewSentryHook([]logrus.Level{
				logrus.PanicLevel,
				logrus.FatalLevel,
				logrus.ErrorLevel,
			}))
			flush = func() { sentry.Flush(sentryFlushPeriod) }
			logrus.Infoln("Sentry set up successfully")
		}
	}

	logrus.SetOutput(output(params))
	return flush
}

func output(params LoggerSetupParams) io.Writer {
	if params.LogFileName == "" {
		logrus.Println("writing logs only to STDOUT")
		return os.Stdout
	}

	if !strings.HasSuffix(params.LogFileName, ".log") {
		params.LogFileName += ".log"
	}
	maxSize := params.MaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}

	// rotated files are kept indefinitely unless MaxBackups is set
	fileLogger := &lumberjack.Logger{
		Filename:   params.LogFileName,
		MaxSize:    maxSize,
		MaxBackups: params.MaxBackups,
		LocalTime:  false,
		Compress:   true,
	}

	if params.LogToStdout {
		logrus.Println("writing logs to file and STDOUT")
		return pkg.NewCombinedWriter(os.Stdout, fileLogger)
	}
	return fileLogger
}

func GetLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "info":
		return logrus.InfoLevel
	case "trace":
		return logrus.TraceLevel
	case "warn", "warning":
		return logrus.WarnLevel
	default:
		return logrus.TraceLevel
	}
}
