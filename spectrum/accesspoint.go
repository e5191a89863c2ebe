package spectrum

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	MinSignal = -100.0
	MaxSignal = -50.0
)

// RawRecord is an access point as reported by a scan source, before any parsing.
type RawRecord struct {
	SSID            string `json:"ssid"`
	HardwareAddress string `json:"bssid"`
	SignalLevel     string `json:"signal"`
	Channel         string `json:"channel"`
}

// AccessPoint is a normalized scan result. Quality is in [0, 1].
type AccessPoint struct {
	SSID            string  `json:"ssid"`
	HardwareAddress string  `json:"bssid"`
	Quality         float64 `json:"quality"`
	Channel         Channel `json:"channel"`
	Signal          string  `json:"signal"`
}

func (ap AccessPoint) String() string {
	return fmt.Sprintf("%s %s %.2f %d", ap.SSID, ap.HardwareAddress, ap.Quality, ap.Channel)
}

// signalText is the listing form of a raw level; a missing level shows as "?".
func signalText(level string) string {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "?"
	}
	return level + " dBm"
}

// Normalize parses raw records, keeps the first record seen for every hardware
// address and orders the survivors by descending quality.
func Normalize(records []RawRecord) []AccessPoint {
	seen := make(map[string]struct{}, len(records))
	points := make([]AccessPoint, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.HardwareAddress]; ok {
			continue
		}
		seen[r.HardwareAddress] = struct{}{}
		points = append(points, AccessPoint{
			SSID:            r.SSID,
			HardwareAddress: r.HardwareAddress,
			Quality:         SignalToQuality(r.SignalLevel),
			Channel:         ParseChannel(r.Channel),
			Signal:          signalText(r.SignalLevel),
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Quality > points[j].Quality
	})
	return points
}

// SignalToQuality maps a signal level in dBm onto [0, 1]. Unparseable input is
// treated as the weakest signal.
func SignalToQuality(level string) float64 {
	signal, err := strconv.ParseFloat(strings.TrimSpace(level), 64)
	if err != nil || math.IsNaN(signal) {
		signal = MinSignal
	}
	signal = clamp(signal, MinSignal, MaxSignal)
	return clamp((signal-MinSignal)/(MaxSignal-MinSignal), 0, 1)
}

// ParseChannel returns UnknownChannel for anything that is not a positive integer.
func ParseChannel(id string) Channel {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || n <= 0 {
		return UnknownChannel
	}
	return Channel(n)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
