package utils

// GoldenGamma is the 64-bit golden-ratio increment used to spread
// sequential indices across the seed space.
const GoldenGamma uint64 = 0x9E3779B97F4A7C15

// SplitMix64 scrambles x into a well-distributed 64-bit value.
// Equal inputs always give equal outputs.
func SplitMix64(x uint64) uint64 {
	x += GoldenGamma
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// DeriveSeed returns the seed of the index-th child of parent.
func DeriveSeed(parent, index uint64) uint64 {
	return SplitMix64(parent ^ index*GoldenGamma)
}

// UnitFloat maps a seed to [0, 1) using its top 53 bits.
func UnitFloat(seed uint64) float64 {
	return float64(seed>>11) / (1 << 53)
}
