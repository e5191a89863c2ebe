package spectrum

import "sort"

// ChannelLoad is the estimated congestion of one channel.
type ChannelLoad struct {
	Channel Channel `json:"channel"`
	Load    float64 `json:"load"`
}

// Loads estimates the congestion of every channel in the band. An access point
// counts fully on its own channel; on overlapping channels its contribution is
// halved for every step away from it.
func (b Band) Loads(points []AccessPoint) []ChannelLoad {
	if b.MaxChannel < MinChannel {
		return nil
	}
	buckets := make([][]float64, b.MaxChannel)
	add := func(c Channel, q float64) {
		buckets[c-1] = append(buckets[c-1], q)
	}

	for _, p := range points {
		if !b.Valid(p.Channel) {
			continue
		}
		add(p.Channel, p.Quality)

		lower, upper := b.Neighbors(p.Channel)
		q := p.Quality
		for _, c := range lower {
			q *= 0.5
			add(c, q)
		}
		q = p.Quality
		for _, c := range upper {
			q *= 0.5
			add(c, q)
		}
	}

	loads := make([]ChannelLoad, len(buckets))
	for i, samples := range buckets {
		loads[i] = ChannelLoad{Channel: Channel(i + 1), Load: median(samples)}
	}
	return loads
}

// median returns the element at index len/2 of the sorted samples, which is
// the upper median for even sizes. It does not modify its argument.
func median(samples []float64) float64 {
	switch len(samples) {
	case 0:
		return 0
	case 1:
		return samples[0]
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}
