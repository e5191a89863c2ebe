package spectrum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeWithCurrent(t *testing.T) {
	points := []AccessPoint{
		point(0.9, 11, "a"),
		point(0.3, 5, "b"),
		point(1.0, 2, "current"),
	}

	r := Band24.Compose(points, "current")
	require.NotNil(t, r.Current)
	assert.Equal(t, "current", r.Current.SSID)
	assert.Equal(t, []Channel{14, 1, 6, 2, 7}, r.Staying)
	assert.Equal(t, []Channel{14, 6, 7, 8, 13}, r.NewNetwork)
	assert.Equal(t, Band24.Loads(points), r.Loads)

	assert.True(t, r.IsCurrent(points[2]))
	assert.False(t, r.IsCurrent(points[0]))
}

func TestComposeMatchesByAddress(t *testing.T) {
	// a copy with the same address is still the current access point
	points := []AccessPoint{point(1.0, 2, "current")}
	other := points[0]

	r := Band24.Compose(points, other.HardwareAddress)
	require.NotNil(t, r.Current)
	assert.True(t, r.IsCurrent(other))
	assert.Equal(t, []Channel{14, 11, 6, 1, 13}, r.Staying)
}

func TestComposeUnknownCurrent(t *testing.T) {
	points := []AccessPoint{point(1.0, 2, "a")}

	for _, addr := range []string{"", "ff:ff:ff:ff:ff:ff"} {
		r := Band24.Compose(points, addr)
		assert.Nil(t, r.Current)
		assert.Nil(t, r.Staying)
		assert.Equal(t, []Channel{14, 11, 6, 13, 12}, r.NewNetwork)
		assert.False(t, r.IsCurrent(points[0]))
	}
}

func TestComposeEmpty(t *testing.T) {
	r := Band24.Compose(nil, "")
	assert.Nil(t, r.Current)
	assert.Equal(t, []Channel{14, 11, 6, 1, 13}, r.NewNetwork)
	assert.Len(t, r.Loads, 14)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "12.3%", Percent(0.1234))
	assert.Equal(t, "100.0%", Percent(1))
	assert.Equal(t, "0.0%", Percent(0))
}

func TestSummary(t *testing.T) {
	loads := Band24.Loads([]AccessPoint{point(1.0, 2, "a")})
	assert.Equal(t,
		"1 is 50.0%, 2 is 100.0%, 3 is 50.0%, 4 is 25.0%, 5 is 12.5%, 6 is 6.2%, others are 0.0%",
		Summary(loads))

	// a single idle channel is listed on its own
	loads = []ChannelLoad{{Channel: 1, Load: 0.5}, {Channel: 2, Load: 0}}
	assert.Equal(t, "1 is 50.0%, 2 is 0.0%", Summary(loads))

	loads = []ChannelLoad{{Channel: 1, Load: 0}, {Channel: 2, Load: 0}}
	assert.Equal(t, "others are 0.0%", Summary(loads))

	assert.Equal(t, "", Summary(nil))
}
