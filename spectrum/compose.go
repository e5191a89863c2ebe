package spectrum

import (
	"fmt"
	"strings"
)

// Report is everything a single scan pass tells about the band.
type Report struct {
	Points []AccessPoint `json:"access_points"`

	// Current is the access point the host is associated with, if it was seen.
	Current *AccessPoint `json:"current,omitempty"`

	// Staying ranks channels for the current network, ignoring its own emissions.
	// It is nil when Current is nil.
	Staying []Channel `json:"staying,omitempty"`

	// NewNetwork ranks channels for a network that does not exist yet.
	NewNetwork []Channel `json:"new_network"`

	Loads []ChannelLoad `json:"loads"`
}

// Compose builds a report for the access points. currentAddress identifies the
// associated access point by hardware address and may be empty.
func (b Band) Compose(points []AccessPoint, currentAddress string) Report {
	r := Report{
		Points:     points,
		NewNetwork: b.Suggest(points),
		Loads:      b.Loads(points),
	}

	if cur, ok := Find(points, currentAddress); ok {
		r.Current = &cur
		others := make([]AccessPoint, 0, len(points))
		for _, p := range points {
			if p.HardwareAddress != cur.HardwareAddress {
				others = append(others, p)
			}
		}
		r.Staying = b.Suggest(others)
	}
	return r
}

// Find looks up an access point by hardware address.
func Find(points []AccessPoint, address string) (AccessPoint, bool) {
	if address == "" {
		return AccessPoint{}, false
	}
	for _, p := range points {
		if p.HardwareAddress == address {
			return p, true
		}
	}
	return AccessPoint{}, false
}

// IsCurrent reports whether p is the associated access point of the report.
func (r Report) IsCurrent(p AccessPoint) bool {
	return r.Current != nil && r.Current.HardwareAddress == p.HardwareAddress
}

// Percent formats a unit value as a percentage with one decimal.
func Percent(x float64) string {
	return fmt.Sprintf("%.1f%%", x*100)
}

// Summary lists channel loads as percentages. When more than one channel is
// idle, the idle ones are folded into a trailing "others are 0.0%".
func Summary(loads []ChannelLoad) string {
	isZero := func(x float64) bool { return x <= epsilon }

	zeros := 0
	for _, l := range loads {
		if isZero(l.Load) {
			zeros++
		}
	}
	collapse := zeros > 1

	parts := make([]string, 0, len(loads)+1)
	for _, l := range loads {
		if collapse && isZero(l.Load) {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d is %s", l.Channel, Percent(l.Load)))
	}
	if collapse {
		parts = append(parts, "others are 0.0%")
	}
	return strings.Join(parts, ", ")
}
