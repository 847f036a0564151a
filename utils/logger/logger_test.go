package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type named struct{}

func (named) String() string { return "a-very-long-object-name-for-logging" }

type plain struct{}

func TestObjToString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "NIL", objToString(nil))
	require.Equal(t, "a-very-long-object-n", objToString(named{}))
	require.Equal(t, "plain", objToString(&plain{}))
	require.Equal(t, "packer", objToString("packer"))
}

//nolint:paralleltest // mutates the global logrus logger
func TestLevelFiltering(t *testing.T) {
	out := logrus.StandardLogger().Out
	defer logrus.SetOutput(out)
	buf := new(bytes.Buffer)
	logrus.SetOutput(buf)
	Init(logrus.WarnLevel)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	Debugf("rules", "hidden %d", 1)
	Warningf("rules", "shown %d", 2)
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown 2")

	buf.Reset()
	Slog().Warn("bridged")
	require.Contains(t, buf.String(), "bridged")
}
