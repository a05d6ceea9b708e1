package reconcile

// Decision is the outcome of comparing desired link env pairs with the live ones.
type Decision int

const (
	DecisionSkip Decision = iota
	DecisionRebuild
)

func (d Decision) String() string {
	switch d {
	case DecisionSkip:
		return "skip"
	case DecisionRebuild:
		return "rebuild"
	default:
		return "unknown"
	}
}

// Decide returns DecisionSkip when every desired pair is already live.
// A subset check can prove an addition landed but never that a variable was
// removed, so forceRebuild always wins.
func Decide(desired, live []string, forceRebuild bool) Decision {
	if forceRebuild {
		return DecisionRebuild
	}
	liveSet := make(map[string]struct{}, len(live))
	for _, pair := range live {
		liveSet[pair] = struct{}{}
	}
	for _, pair := range desired {
		if _, ok := liveSet[pair]; !ok {
			return DecisionRebuild
		}
	}
	return DecisionSkip
}
