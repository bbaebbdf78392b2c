package route

import "github.com/mef-lab/coagula/internal/operator"

// BuildChain constructs the operator chain a RouteSpec orders. Fresh
// operator instances are created per call so stateful counters (Sweep,
// WeightTransfer) never leak between derivations - a rebuilt chain from
// the same spec and params behaves identically.
//
// Reserved slots (RES1, ADAPTER, RES2) have no bound operator and are
// skipped; they keep their position in the permutation so route ids stay
// compatible if they are ever bound.
func BuildChain(spec RouteSpec, params operator.Params) (*operator.Chain, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	ops := make([]operator.Operator, 0, SlotCount)
	for _, slot := range spec.Slots {
		switch slot {
		case SlotDoubleKick:
			ops = append(ops, operator.NewDoubleKick(params.DoubleKick))
		case SlotSweep:
			ops = append(ops, operator.NewSweep(params.Sweep))
		case SlotPathInvariance:
			ops = append(ops, operator.NewPathInvariance(params.PathInvariance))
		case SlotWeightTransfer:
			ops = append(ops, operator.NewWeightTransfer(params.WeightTransfer))
		case SlotReserved1, SlotAdapter, SlotReserved2:
			// Pass-through.
		}
	}
	return operator.NewChain(ops...), nil
}
