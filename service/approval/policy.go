package approval

// Policy decides which documents may proceed without a human decision.
type Policy struct {
	// AutoApproveLimit is the risk amount at which human approval becomes
	// mandatory. A document at exactly the limit is gated.
	AutoApproveLimit float64 `yaml:"autoApproveLimit" json:"autoApproveLimit"`

	// RestrictedActions always require human approval regardless of the
	// risk amount.
	RestrictedActions []string `yaml:"restrictedActions" json:"restrictedActions"`
}

// DefaultPolicy returns the standard gate: $100 limit, outward-facing
// actions always gated.
func DefaultPolicy() Policy {
	return Policy{
		AutoApproveLimit:  100,
		RestrictedActions: []string{"erp.post", "comms.send", "contacts.create"},
	}
}

func (p Policy) restricted(action string) bool {
	for _, candidate := range p.RestrictedActions {
		if candidate == action {
			return true
		}
	}
	return false
}
