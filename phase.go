package crossing

// Phase is the light colour currently shown to one lane.
type Phase string

const (
	Green  Phase = "GREEN"
	Yellow Phase = "YELLOW"
	Red    Phase = "RED"
)

// PhaseCycle is the order a light cycle steps through, starting from the
// first transition out of the initial RED.
var PhaseCycle = []Phase{Green, Yellow, Red}

func (p Phase) String() string {
	return string(p)
}

// AllowsEntry reports whether a waiting car may be evaluated for admission.
func (p Phase) AllowsEntry() bool {
	return p == Green || p == Yellow
}

// Next returns the phase that follows p in the cycle.
func (p Phase) Next() Phase {
	switch p {
	case Green:
		return Yellow
	case Yellow:
		return Red
	default:
		return Green
	}
}

// Valid reports whether p is one of the three light colours.
func (p Phase) Valid() bool {
	return p == Green || p == Yellow || p == Red
}
