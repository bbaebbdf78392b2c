package route

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mef-lab/coagula/internal/canon"
)

// RouteSpec is an immutable operator-order record. Sigma is a permutation
// of {1..7}; Slots is sigma mapped onto the fixed slot labels.
type RouteSpec struct {
	RouteID   string          `json:"route_id"`
	Sigma     [SlotCount]int  `json:"sigma"`
	Slots     [SlotCount]Slot `json:"slots"`
	MeshScore float64         `json:"mesh_score"`
}

// Validate checks that sigma is a bijection on {1..7}.
func (r RouteSpec) Validate() error {
	var seen [SlotCount + 1]bool
	for _, n := range r.Sigma {
		if n < 1 || n > SlotCount || seen[n] {
			return &RouteError{
				Code:    ErrCodeMalformedRoute,
				Message: fmt.Sprintf("sigma %v is not a bijection on 1..%d", r.Sigma, SlotCount),
			}
		}
		seen[n] = true
	}
	return nil
}

// meshScorePrecision is the decimal rounding applied to the mesh score
// before it enters the selection hash. Kept at 6 for cross-implementation
// route compatibility.
const meshScorePrecision = 6

// SelectRoute deterministically maps (seed, metrics) to a RouteSpec.
//
// Derivation:
//  1. mesh_score = 0.10*betti + 0.70*lambda_gap + 0.20*persistence
//     (strict: missing metrics are a MissingMetric error)
//  2. hash the canonical serialization of seed and the 6-decimal-rounded
//     mesh score
//  3. k = floor(|mesh_score|*1000) mod 5040,
//     index = (hash + k) mod 5040
//  4. sigma = lexicographic permutation table entry at index
//  5. slots = sigma mapped onto {DK, SW, PI, WT, RES1, ADAPTER, RES2}
//  6. route_id = hash(seed, sigma) truncated to 16 hex characters
//
// Identical inputs always return an identical RouteSpec; independent
// verifiers re-derive routes from the same data. The k decorrelation term
// is kept exactly as documented for compatibility; it is not assumed to
// resist adversarial seed selection.
func SelectRoute(seed string, metrics MeshMetrics) (RouteSpec, error) {
	score, err := Score(seed, metrics)
	if err != nil {
		return RouteSpec{}, err
	}

	rounded := fmt.Sprintf("%.*f", meshScorePrecision, score)
	digest := canon.SumWithDomain(canon.DomainRoute, canon.NewEncoder().
		String("seed", seed).
		String("mesh_score", rounded).
		Bytes())

	hashValue := binary.BigEndian.Uint64(digest[:8])
	k := uint64(math.Floor(math.Abs(score)*1000)) % PermCount
	index := (hashValue + k) % PermCount

	sigma := permutations()[index]

	var slots [SlotCount]Slot
	for i, n := range sigma {
		slots[i] = slotOrder[n-1]
	}

	routeID := canon.ShortID(canon.DomainRoute, canon.NewEncoder().
		String("seed", seed).
		Ints("sigma", sigma[:]).
		Bytes())

	return RouteSpec{
		RouteID:   routeID,
		Sigma:     sigma,
		Slots:     slots,
		MeshScore: score,
	}, nil
}
