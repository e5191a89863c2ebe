package spectrum

import "strconv"

// Channel is a wireless channel number. Zero means the channel is unknown.
type Channel int

const (
	UnknownChannel Channel = 0
	MinChannel     Channel = 1

	// Channels closer than this share spectrum at 20 MHz width.
	MinChannelsDistance = 5
)

var priorityChannels = [...]Channel{1, 6, 11, 14}

// Band is the channel universe the engine works over: 1..MaxChannel.
type Band struct {
	MaxChannel Channel
}

var (
	Band24  = Band{MaxChannel: 14}
	BandAll = Band{MaxChannel: 233}
)

// Valid reports whether c is a known channel inside the band.
func (b Band) Valid(c Channel) bool {
	return c >= MinChannel && c <= b.MaxChannel
}

// Readable renders a channel for listings.
func (b Band) Readable(c Channel) string {
	if !b.Valid(c) {
		return "Unknown"
	}
	return strconv.Itoa(int(c))
}

// Overlaps reports whether two channels interfere. The top channel of the band
// sits further away from its neighbors than the numbering suggests (2.4 GHz
// channel 14 is 12 MHz above 13), so it is shifted by two before comparing.
// See https://en.wikipedia.org/wiki/List_of_WLAN_channels
func (b Band) Overlaps(x, y Channel) bool {
	x, y = b.shift(x), b.shift(y)
	d := x - y
	if d < 0 {
		d = -d
	}
	return d < MinChannelsDistance
}

func (b Band) shift(c Channel) Channel {
	if c == b.MaxChannel {
		return c + 2
	}
	return c
}

// Neighbors returns the channels overlapping x below and above it, nearest first.
func (b Band) Neighbors(x Channel) (lower, upper []Channel) {
	const limit = MinChannelsDistance - 1

	lower = make([]Channel, 0, limit)
	for y, i := x, 0; y > MinChannel && i < limit; i++ {
		y--
		if b.Overlaps(y, x) {
			lower = append(lower, y)
		}
	}

	upper = make([]Channel, 0, limit)
	for y, i := x, 0; y < b.MaxChannel && i < limit; i++ {
		y++
		if b.Overlaps(y, x) {
			upper = append(upper, y)
		}
	}
	return lower, upper
}

// IsPriority reports whether id is one of the standard non-overlapping channels.
func IsPriority(id Channel) bool {
	for _, c := range priorityChannels {
		if c == id {
			return true
		}
	}
	return false
}
