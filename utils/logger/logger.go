package logger

import (
	"fmt"
	"log/slog"
	"reflect"

	sloglogrus "github.com/samber/slog-logrus/v2"
	"github.com/sirupsen/logrus"
)

type stringer interface {
	String() string
}

const objWidth = 20

func objToString(obj any) (objStr string) {
	if obj == nil {
		objStr = "NIL"
	} else if stringerObj, ok := obj.(stringer); ok {
		objStr = stringerObj.String()
	} else if objStr, ok = obj.(string); ok {
	} else {
		t := reflect.TypeOf(obj)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		objStr = t.Name()
	}
	if len(objStr) > objWidth {
		objStr = objStr[:objWidth]
	}
	return
}

// Init sets the global level and the text formatter shared by every caller.
func Init(lvl logrus.Level) {
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		PadLevelText:    true,
		TimestampFormat: "2006/02/01 15:04:05",
	})
}

// Slog returns a log/slog logger writing through logrus.
func Slog() *slog.Logger {
	return slog.New(sloglogrus.Option{
		Level:  toSlogLevel(logrus.GetLevel()),
		Logger: logrus.StandardLogger(),
	}.NewLogrusHandler())
}

func toSlogLevel(lvl logrus.Level) slog.Level {
	switch {
	case lvl >= logrus.DebugLevel:
		return slog.LevelDebug
	case lvl == logrus.InfoLevel:
		return slog.LevelInfo
	case lvl == logrus.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func write(lvl logrus.Level, object any, message string) {
	logrus.StandardLogger().Logf(lvl, "|%20s|%-100s", objToString(object), message)
}

func Trace(object any, message string) {
	if logrus.GetLevel() < logrus.TraceLevel {
		return
	}
	write(logrus.TraceLevel, object, message)
}

func Tracef(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.TraceLevel {
		return
	}
	write(logrus.TraceLevel, object, fmt.Sprintf(message, args...))
}

func Debug(object any, message string) {
	if logrus.GetLevel() < logrus.DebugLevel {
		return
	}
	write(logrus.DebugLevel, object, message)
}

func Debugf(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.DebugLevel {
		return
	}
	write(logrus.DebugLevel, object, fmt.Sprintf(message, args...))
}

func Info(object any, message string) {
	if logrus.GetLevel() < logrus.InfoLevel {
		return
	}
	write(logrus.InfoLevel, object, message)
}

func Infof(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.InfoLevel {
		return
	}
	write(logrus.InfoLevel, object, fmt.Sprintf(message, args...))
}

func Warning(object any, message string) {
	if logrus.GetLevel() < logrus.WarnLevel {
		return
	}
	write(logrus.WarnLevel, object, message)
}

func Warningf(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.WarnLevel {
		return
	}
	write(logrus.WarnLevel, object, fmt.Sprintf(message, args...))
}

func Error(object any, message string) {
	if logrus.GetLevel() < logrus.ErrorLevel {
		return
	}
	write(logrus.ErrorLevel, object, message)
}

func Errorf(object any, message string, args ...any) {
	if logrus.GetLevel() < logrus.ErrorLevel {
		return
	}
	write(logrus.ErrorLevel, object, fmt.Sprintf(message, args...))
}
