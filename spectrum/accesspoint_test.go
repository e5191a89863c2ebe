package spectrum

import (
	"math"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalToQuality(t *testing.T) {
	tests := []struct {
		level string
		want  float64
	}{
		{"-100", 0.0},
		{"-50", 1.0},
		{"0", 1.0},
		{"-200", 0.0},
		{"-75", 0.5},
		{"-62.5", 0.75},
		{" -50 ", 1.0},
		{"foo", 0.0},
		{"", 0.0},
		{"NaN", 0.0},
		{"+Inf", 1.0},
		{"-Inf", 0.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, SignalToQuality(tt.level), 1e-12, "level %q", tt.level)
	}
}

func TestSignalToQualityBounds(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("quality stays in [0, 1]", prop.ForAll(
		func(level float64) bool {
			q := SignalToQuality(strconv.FormatFloat(level, 'f', -1, 64))
			return !math.IsNaN(q) && q >= 0 && q <= 1
		},
		gen.Float64(),
	))
	properties.Property("quality never decreases with signal", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			qa := SignalToQuality(strconv.FormatFloat(a, 'f', -1, 64))
			qb := SignalToQuality(strconv.FormatFloat(b, 'f', -1, 64))
			return qa <= qb
		},
		gen.Float64Range(-150, 0),
		gen.Float64Range(-150, 0),
	))
	properties.TestingRun(t)
}

func TestParseChannel(t *testing.T) {
	assert.Equal(t, Channel(1), ParseChannel("1"))
	assert.Equal(t, Channel(165), ParseChannel("165"))
	assert.Equal(t, Channel(6), ParseChannel(" 6\n"))
	assert.Equal(t, UnknownChannel, ParseChannel("0"))
	assert.Equal(t, UnknownChannel, ParseChannel("-3"))
	assert.Equal(t, UnknownChannel, ParseChannel("foo"))
	assert.Equal(t, UnknownChannel, ParseChannel(""))
	assert.Equal(t, UnknownChannel, ParseChannel("6.5"))
}

func TestNormalize(t *testing.T) {
	records := []RawRecord{
		{SSID: "weak", HardwareAddress: "aa:00:00:00:00:01", SignalLevel: "-90", Channel: "1"},
		{SSID: "strong", HardwareAddress: "aa:00:00:00:00:02", SignalLevel: "-50", Channel: "6"},
		{SSID: "dup", HardwareAddress: "aa:00:00:00:00:01", SignalLevel: "-40", Channel: "11"},
		{SSID: "tie-a", HardwareAddress: "aa:00:00:00:00:03", SignalLevel: "-75", Channel: "x"},
		{SSID: "tie-b", HardwareAddress: "aa:00:00:00:00:04", SignalLevel: "-75", Channel: "0"},
	}

	points := Normalize(records)
	require.Len(t, points, 4)

	assert.Equal(t, "strong", points[0].SSID)
	assert.Equal(t, "tie-a", points[1].SSID)
	assert.Equal(t, "tie-b", points[2].SSID)
	assert.Equal(t, "weak", points[3].SSID)

	// first occurrence wins on duplicate addresses
	assert.Equal(t, Channel(1), points[3].Channel)
	assert.InDelta(t, 0.2, points[3].Quality, 1e-12)
	assert.Equal(t, "-90 dBm", points[3].Signal)

	assert.Equal(t, UnknownChannel, points[1].Channel)
	assert.Equal(t, UnknownChannel, points[2].Channel)
}

func TestNormalizeMissingSignal(t *testing.T) {
	points := Normalize([]RawRecord{
		{SSID: "quiet", HardwareAddress: "aa", SignalLevel: "", Channel: "6"},
		{SSID: "padded", HardwareAddress: "bb", SignalLevel: " -70 ", Channel: "1"},
	})
	require.Len(t, points, 2)
	assert.Equal(t, "-70 dBm", points[0].Signal)
	assert.Equal(t, "? dBm", points[1].Signal)
	assert.Equal(t, 0.0, points[1].Quality)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]RawRecord{}))
}
