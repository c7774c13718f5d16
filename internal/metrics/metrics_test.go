package metrics

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/aws/clock-bound/internal/clockbound"
	"github.com/aws/clock-bound/internal/config"
	"github.com/aws/clock-bound/internal/shm"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewClientRequiresHosts(t *testing.T) {
	_, err := NewClient(config.ElasticsearchConfig{}, testLogger())
	require.Error(t, err)
}

func TestNewClientDefaultsIndex(t *testing.T) {
	c, err := NewClient(config.ElasticsearchConfig{Hosts: []string{"http://localhost:9999"}}, testLogger())
	require.NoError(t, err)
	require.Equal(t, "clockbound-events", c.index)
}

func TestNewClientHonorsConfiguredIndex(t *testing.T) {
	c, err := NewClient(config.ElasticsearchConfig{Hosts: []string{"http://localhost:9999"}, Index: "custom-index"}, testLogger())
	require.NoError(t, err)
	require.Equal(t, "custom-index", c.index)
}

func TestOnPublishTracksTransitionAcrossCalls(t *testing.T) {
	c, err := NewClient(config.ElasticsearchConfig{Hosts: []string{"http://localhost:9999"}}, testLogger())
	require.NoError(t, err)

	c.OnPublish(shm.ClockErrorBound{ClockStatus: clockbound.StatusSynchronized, AsOf: clockbound.TimeSpec{Sec: 1}}, "SYNCHRONIZED", "RELIABLE")
	require.Equal(t, "SYNCHRONIZED", c.lastClockStatus)

	c.OnPublish(shm.ClockErrorBound{ClockStatus: clockbound.StatusFreeRunning, AsOf: clockbound.TimeSpec{Sec: 2}}, "FREE_RUNNING", "RELIABLE")
	require.Equal(t, "FREE_RUNNING", c.lastClockStatus)
}
