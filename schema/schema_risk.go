package schema

// RiskSignal is one triggered risk heuristic.
type RiskSignal struct {
	Type    SignalType `json:"type"`
	Message string     `json:"message"`
	Mode    SignalMode `json:"mode"`
}

// RiskResult groups the triggered signals for one package.
// Clean packages never produce a RiskResult.
type RiskResult struct {
	Name    string       `json:"name"`
	Version string       `json:"version"`
	Signals []RiskSignal `json:"signals"`
	Blocked bool         `json:"blocked"`
}

// NewRiskResult builds a result from triggered signals, or returns nil when none triggered.
func NewRiskResult(name, version string, signals []RiskSignal) *RiskResult {
	if len(signals) == 0 {
		return nil
	}
	blocked := false
	for _, s := range signals {
		if s.Mode == BlockMode {
			blocked = true
			break
		}
	}
	return &RiskResult{Name: name, Version: version, Signals: signals, Blocked: blocked}
}

// SignalTypes returns the types of the contained signals in order.
func (r RiskResult) SignalTypes() []SignalType {
	types := make([]SignalType, 0, len(r.Signals))
	for _, s := range r.Signals {
		types = append(types, s.Type)
	}
	return types
}

// OwnerChange describes a publisher set that differs from the recorded baseline.
type OwnerChange struct {
	Name           string   `json:"name"`
	PreviousOwners []string `json:"previous_owners"`
	CurrentOwners  []string `json:"current_owners"`
}
