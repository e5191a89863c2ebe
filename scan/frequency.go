package scan

// FrequencyToChannel maps a center frequency in MHz to its channel number.
// Frequencies outside the 2.4, 5 and 6 GHz bands map to 0.
func FrequencyToChannel(mhz int) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return (mhz - 2407) / 5
	case mhz >= 5160 && mhz <= 5885:
		return (mhz - 5000) / 5
	case mhz >= 5955 && mhz <= 7115:
		return (mhz - 5950) / 5
	}
	return 0
}
