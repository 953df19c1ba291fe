package log

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiscardEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestNewBadgerLogrusAdapter(t *testing.T) {
	adapter := NewBadgerLogrusAdapter(newDiscardEntry())
	assert.NotNil(t, adapter)
}

func TestBadgerLogrusAdapter_Methods(t *testing.T) {
	adapter := NewBadgerLogrusAdapter(newDiscardEntry())

	assert.NotPanics(t, func() { adapter.Errorf("error %s", "test") })
	assert.NotPanics(t, func() { adapter.Warningf("warning %d", 42) })
	assert.NotPanics(t, func() { adapter.Infof("info %v", true) })
	assert.NotPanics(t, func() { adapter.Debugf("debug") })
}

func TestBadgerLogrusAdapter_Levels(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	adapter := NewBadgerLogrusAdapter(logrus.NewEntry(logger).WithField("component", "badgerdb"))

	adapter.Errorf("e")
	adapter.Warningf("w")
	adapter.Infof("i")
	adapter.Debugf("d")

	entries := hook.AllEntries()
	require.Len(t, entries, 4)
	assert.Equal(t, logrus.ErrorLevel, entries[0].Level)
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, logrus.DebugLevel, entries[2].Level, "badger info is demoted")
	assert.Equal(t, logrus.DebugLevel, entries[3].Level)
	assert.Equal(t, "badgerdb", entries[0].Data["component"])
}
