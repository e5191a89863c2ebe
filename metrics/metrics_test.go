package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/iwls/spectrum"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	points := []spectrum.AccessPoint{
		{SSID: "home", HardwareAddress: "aa", Quality: 1.0, Channel: 2},
		{SSID: "cafe", HardwareAddress: "bb", Quality: 0.9, Channel: 11},
	}
	c.Observe(spectrum.Band24.Compose(points, "aa"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.AccessPoints))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ChannelLoad.WithLabelValues("2")))
	assert.Equal(t, 0.5, testutil.ToFloat64(c.ChannelLoad.WithLabelValues("1")))
	assert.Equal(t, 14.0, testutil.ToFloat64(c.Suggested.WithLabelValues("current")))
	assert.Equal(t, 14.0, testutil.ToFloat64(c.Suggested.WithLabelValues("new")))

	c.Observe(spectrum.Band24.Compose(points, ""))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Suggested.WithLabelValues("current")))
}

func TestObserveScan(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.ObserveScan(nil)
	c.ObserveScan(nil)
	c.ObserveScan(errors.New("busy"))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Scans.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Scans.WithLabelValues("error")))
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollector(reg)
	require.NoError(t, err)
	b, err := NewCollector(reg)
	require.NoError(t, err)
	assert.Same(t, a.ChannelLoad, b.ChannelLoad)
}

func TestHandler(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	c.Observe(spectrum.Band24.Compose(nil, ""))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.True(t, strings.Contains(string(body), `iwls_channel_load{channel="14"} 0`))
	assert.Contains(t, string(body), "iwls_access_points 0")
}
