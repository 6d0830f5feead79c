package forecast

import "math"

// SeedHash folds a string into a 32-bit signed hash (h = h*31 + rune).
func SeedHash(seed string) int32 {
	var h int32
	for _, r := range seed {
		h = h*31 + int32(r)
	}
	return h
}

// SeededUnit maps a seed string to a reproducible value in [0,1).
func SeededUnit(seed string) float64 {
	x := math.Sin(float64(SeedHash(seed))) * 10000
	return x - math.Floor(x)
}

// SeededRange maps a seed string to a reproducible value in [lo,hi).
func SeededRange(seed string, lo, hi float64) float64 {
	return lo + (hi-lo)*SeededUnit(seed)
}
