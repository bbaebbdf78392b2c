// Package route implements deterministic operator-order selection from the
// S7 permutation space.
//
// Route selection is the audit anchor of the pipeline: identical
// (seed, metrics) must always yield an identical RouteSpec so an
// independent verifier can re-derive the same operator execution order.
package route

import "sync"

const (
	// SlotCount is the number of operator slots a route orders.
	SlotCount = 7
	// PermCount is the size of the S7 permutation space.
	PermCount = 5040
)

// Slot labels the seven route positions. Four bind to concrete operators;
// RES1, ADAPTER and RES2 are reserved pass-throughs kept so route ids stay
// stable if they are ever bound.
type Slot string

const (
	SlotDoubleKick     Slot = "DK"
	SlotSweep          Slot = "SW"
	SlotPathInvariance Slot = "PI"
	SlotWeightTransfer Slot = "WT"
	SlotReserved1      Slot = "RES1"
	SlotAdapter        Slot = "ADAPTER"
	SlotReserved2      Slot = "RES2"
)

// slotOrder fixes which slot label each permutation element 1..7 refers to.
var slotOrder = [SlotCount]Slot{
	SlotDoubleKick,
	SlotSweep,
	SlotPathInvariance,
	SlotWeightTransfer,
	SlotReserved1,
	SlotAdapter,
	SlotReserved2,
}

var (
	permOnce  sync.Once
	permTable [][SlotCount]int
)

// permutations returns the full lexicographic enumeration of the 5040
// permutations of {1..7}. The table is built once and shared read-only;
// callers must not mutate entries.
func permutations() [][SlotCount]int {
	permOnce.Do(func() {
		permTable = make([][SlotCount]int, 0, PermCount)
		var cur [SlotCount]int
		used := [SlotCount + 1]bool{}
		enumerate(&cur, &used, 0)
	})
	return permTable
}

func enumerate(cur *[SlotCount]int, used *[SlotCount + 1]bool, depth int) {
	if depth == SlotCount {
		permTable = append(permTable, *cur)
		return
	}
	for n := 1; n <= SlotCount; n++ {
		if used[n] {
			continue
		}
		used[n] = true
		cur[depth] = n
		enumerate(cur, used, depth+1)
		used[n] = false
	}
}
