package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"appsmith/common"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

var once sync.Once

var log zerolog.Logger

const logFileName = "appsmith.log"

func GetLogLevel() zerolog.Level {
	logLevel, err := strconv.Atoi(os.Getenv("SMITH_LOG_LEVEL"))
	if err != nil {
		logLevel = int(zerolog.InfoLevel) // default to INFO
	}

	return zerolog.Level(logLevel)
}

// Get returns the process-wide logger, writing to the console and, when the
// state home is available, appending to a log file there as well.
func Get() zerolog.Logger {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}

		var output io.Writer = consoleWriter

		stateHome, err := common.GetAppsmithStateHome()
		if err == nil {
			logFile, err := os.OpenFile(
				filepath.Join(stateHome, logFileName),
				os.O_APPEND|os.O_CREATE|os.O_WRONLY,
				0644,
			)
			if err == nil {
				output = zerolog.MultiLevelWriter(consoleWriter, logFile)
			}
		}

		var gitRevision string
		goVersion := "unknown"
		buildInfo, ok := debug.ReadBuildInfo()
		if ok {
			goVersion = buildInfo.GoVersion
			for _, v := range buildInfo.Settings {
				if v.Key == "vcs.revision" {
					gitRevision = v.Value
					break
				}
			}
		}

		log = zerolog.New(output).
			Level(GetLogLevel()).
			With().
			Timestamp().
			Str("git_revision", gitRevision).
			Str("go_version", goVersion).
			Logger()
	})

	return log
}
