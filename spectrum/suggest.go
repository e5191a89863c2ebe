package spectrum

import (
	"math"
	"sort"
)

const (
	MaxSuggestions = 5

	// Priority channels below this load are preferred over everything else.
	LowLoad = 0.2
)

// Suggest ranks the band's channels for the given access points, best first.
func (b Band) Suggest(points []AccessPoint) []Channel {
	return Rank(b.Loads(points))
}

// Rank orders a load table: idle priority channels first, then the rest, each
// group by ascending load with higher channel ids winning ties.
func Rank(loads []ChannelLoad) []Channel {
	var head, tail []ChannelLoad
	for _, l := range loads {
		if IsPriority(l.Channel) && l.Load < LowLoad {
			head = append(head, l)
		} else {
			tail = append(tail, l)
		}
	}
	sortLoads(head)
	sortLoads(tail)

	result := make([]Channel, 0, MaxSuggestions)
	for _, group := range [][]ChannelLoad{head, tail} {
		for _, l := range group {
			if len(result) == MaxSuggestions {
				return result
			}
			result = append(result, l.Channel)
		}
	}
	return result
}

func sortLoads(loads []ChannelLoad) {
	sort.SliceStable(loads, func(i, j int) bool {
		return lessLoad(loads[i], loads[j])
	})
}

func lessLoad(a, b ChannelLoad) bool {
	if math.Abs(a.Load-b.Load) < epsilon {
		return a.Channel > b.Channel
	}
	return a.Load < b.Load
}

// epsilon is the difference between 1 and the next representable float64.
var epsilon = math.Nextafter(1, 2) - 1
