package automated

// SignalValve is the "no physical valve" variant: it generates a valve
// position with the usual actuator, interlocks, commands, and end-switch
// events, but carries no flow characteristic. It is used where simplified
// modeling needs a position signal without position-dependent physics, for
// example a control-rod drive or a bypass indication.
type SignalValve struct {
	Valve
}

// NewSignalValve creates a signal valve with the default actuator travel.
func NewSignalValve(name string) *SignalValve {
	return &SignalValve{Valve: *NewValve(name)}
}
