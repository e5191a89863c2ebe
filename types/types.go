package types

import (
	"fmt"
	"time"

	"github.com/taigrr/iwls/spectrum"
)

type NetworkCollection []Network

type ChannelLoadCollection []ChannelLoad

type SuggestionCollection []Suggestion

type ConnectivityCollection []Connectivity

type PingCollection []Ping

type Network struct {
	SSID      string    `json:"ssid"`
	BSSID     string    `json:"bssid"`
	Channel   int       `json:"channel"`
	Quality   float64   `json:"quality"`
	Current   bool      `json:"current"`
	Timestamp time.Time `json:"timestamp"`
}

type ChannelLoad struct {
	Channel   int       `json:"channel"`
	Load      float64   `json:"load"`
	Timestamp time.Time `json:"timestamp"`
}

// Suggestion is a ranked channel list. Kind is "current" or "new".
type Suggestion struct {
	Kind      string    `json:"kind"`
	SSID      string    `json:"ssid,omitempty"`
	Channels  []int     `json:"channels"`
	Timestamp time.Time `json:"timestamp"`
}

type Connectivity struct {
	Timestamp time.Time `json:"timestamp"`
	Connected bool      `json:"connected"`
}

type Ping struct {
	Timestamp time.Time `json:"timestamp"`
	RTT       int64     `json:"rtt"`
}

type MetricSet struct {
	Networks     NetworkCollection      `json:"networks"`
	Loads        ChannelLoadCollection  `json:"loads"`
	Suggestions  SuggestionCollection   `json:"suggestions"`
	Connectivity ConnectivityCollection `json:"connectivity"`
	Pings        PingCollection         `json:"pings"`
}

const (
	SuggestionCurrent = "current"
	SuggestionNew     = "new"
)

// FromReport flattens a report taken at ts into wire records.
func FromReport(r spectrum.Report, ts time.Time) MetricSet {
	var m MetricSet
	for _, p := range r.Points {
		m.Networks = append(m.Networks, Network{
			SSID:      p.SSID,
			BSSID:     p.HardwareAddress,
			Channel:   int(p.Channel),
			Quality:   p.Quality,
			Current:   r.IsCurrent(p),
			Timestamp: ts,
		})
	}
	for _, l := range r.Loads {
		m.Loads = append(m.Loads, ChannelLoad{Channel: int(l.Channel), Load: l.Load, Timestamp: ts})
	}
	if r.Current != nil {
		m.Suggestions = append(m.Suggestions, Suggestion{
			Kind:      SuggestionCurrent,
			SSID:      r.Current.SSID,
			Channels:  channels(r.Staying),
			Timestamp: ts,
		})
	}
	m.Suggestions = append(m.Suggestions, Suggestion{
		Kind:      SuggestionNew,
		Channels:  channels(r.NewNetwork),
		Timestamp: ts,
	})
	return m
}

// Merge appends the records of o to m.
func (m *MetricSet) Merge(o MetricSet) {
	m.Networks = append(m.Networks, o.Networks...)
	m.Loads = append(m.Loads, o.Loads...)
	m.Suggestions = append(m.Suggestions, o.Suggestions...)
	m.Connectivity = append(m.Connectivity, o.Connectivity...)
	m.Pings = append(m.Pings, o.Pings...)
}

// Stamp sets the timestamp of every record in m to ts.
func (m *MetricSet) Stamp(ts time.Time) {
	for i := range m.Networks {
		m.Networks[i].Timestamp = ts
	}
	for i := range m.Loads {
		m.Loads[i].Timestamp = ts
	}
	for i := range m.Suggestions {
		m.Suggestions[i].Timestamp = ts
	}
	for i := range m.Connectivity {
		m.Connectivity[i].Timestamp = ts
	}
	for i := range m.Pings {
		m.Pings[i].Timestamp = ts
	}
}

// Empty reports whether m carries no records at all.
func (m MetricSet) Empty() bool {
	return len(m.Networks) == 0 && len(m.Loads) == 0 && len(m.Suggestions) == 0 &&
		len(m.Connectivity) == 0 && len(m.Pings) == 0
}

func channels(cs []spectrum.Channel) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = int(c)
	}
	return out
}

func (n Network) String() string {
	return fmt.Sprintf("%s %s %d %.2f", n.SSID, n.BSSID, n.Channel, n.Quality)
}

func (l ChannelLoad) String() string {
	return fmt.Sprintf("%d %s", l.Channel, spectrum.Percent(l.Load))
}
