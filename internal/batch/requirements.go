package batch

import "math"

// SackCapacityKg is how many kilograms of fresh beans one sack holds.
const SackCapacityKg = 50

// RacksPerSack is how many fermentation racks each sack's worth of beans
// spreads across.
const RacksPerSack = 2

// SacksNeeded computes the sacks required to hold weightKg of fresh beans.
func SacksNeeded(weightKg float64) int {
	if weightKg <= 0 {
		return 0
	}
	return int(math.Ceil(weightKg / SackCapacityKg))
}

// RacksNeeded computes the racks required to ferment weightKg of beans.
func RacksNeeded(weightKg float64) int {
	return SacksNeeded(weightKg) * RacksPerSack
}
