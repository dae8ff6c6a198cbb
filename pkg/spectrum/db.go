package spectrum

import "math"

// MinMagnitude is the floor applied before converting to decibels.
const MinMagnitude = 1e-7

// Decibels converts a linear magnitude to dB.
func Decibels(mag float64) float64 {
	return 20 * math.Log10(math.Max(MinMagnitude, mag))
}

// ToDecibels converts a magnitude spectrum to dB.
func ToDecibels(mag []float64) []float64 {
	out := make([]float64, len(mag))
	for i, m := range mag {
		out[i] = Decibels(m)
	}
	return out
}

// Normalize maps db into [0, 1] over the range [minDB, maxDB].
func Normalize(db, minDB, maxDB float64) float64 {
	if maxDB <= minDB {
		return 0
	}
	return math.Max(0, math.Min(1, (db-minDB)/(maxDB-minDB)))
}
