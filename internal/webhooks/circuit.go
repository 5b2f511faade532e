package webhooks

// CircuitState is the health state of one subscription.
type CircuitState string

const (
	// CircuitClosed means deliveries flow.
	CircuitClosed CircuitState = "closed"
	// CircuitOpen means the subscription is disabled until an operator enables it.
	CircuitOpen CircuitState = "open"
)

const (
	DefaultMinAttempts      = 10
	DefaultFailureThreshold = 0.5
)

// CircuitPolicy decides when a subscription trips.
type CircuitPolicy struct {
	// MinAttempts is the sample size that must be exceeded before tripping.
	MinAttempts int
	// FailureThreshold is the failed/total ratio that must be exceeded.
	FailureThreshold float64
}

// DefaultCircuitPolicy trips above 50% failures once more than 10 attempts are recorded.
func DefaultCircuitPolicy() CircuitPolicy {
	return CircuitPolicy{MinAttempts: DefaultMinAttempts, FailureThreshold: DefaultFailureThreshold}
}

func (p CircuitPolicy) withDefaults() CircuitPolicy {
	if p.MinAttempts <= 0 {
		p.MinAttempts = DefaultMinAttempts
	}
	if p.FailureThreshold <= 0 || p.FailureThreshold > 1 {
		p.FailureThreshold = DefaultFailureThreshold
	}
	return p
}

// ShouldTrip reports whether the counters exceed both the sample size and the ratio.
func (p CircuitPolicy) ShouldTrip(total, failed int64) bool {
	if total <= int64(p.MinAttempts) {
		return false
	}
	return float64(failed)/float64(total) > p.FailureThreshold
}

// circuit is a closed -> open state machine. It never closes itself.
type circuit struct {
	policy CircuitPolicy
	state  CircuitState
}

func newCircuit(policy CircuitPolicy) circuit {
	return circuit{policy: policy, state: CircuitClosed}
}

// observe evaluates the counters after a recorded failure and reports whether
// this call opened the circuit.
func (c *circuit) observe(total, failed int64) bool {
	if c.state == CircuitOpen {
		return false
	}
	if !c.policy.ShouldTrip(total, failed) {
		return false
	}
	c.state = CircuitOpen
	return true
}

func (c *circuit) open()        { c.state = CircuitOpen }
func (c *circuit) close()       { c.state = CircuitClosed }
func (c *circuit) closed() bool { return c.state == CircuitClosed }
