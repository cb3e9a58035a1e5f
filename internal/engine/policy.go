package engine

// RetryPolicy decides whether the lifecycle may start another iteration.
type RetryPolicy interface {
	// Allow reports whether iteration (1-based) may run.
	Allow(iteration int) bool
}

type unboundedPolicy struct{}

func (unboundedPolicy) Allow(int) bool { return true }

// Unbounded returns a policy that never stops retrying.
func Unbounded() RetryPolicy {
	return unboundedPolicy{}
}

type maxIterationsPolicy int

func (p maxIterationsPolicy) Allow(iteration int) bool {
	return iteration <= int(p)
}

// MaxIterations returns a policy allowing at most n iterations.
// n <= 0 means unbounded.
func MaxIterations(n int) RetryPolicy {
	if n <= 0 {
		return Unbounded()
	}
	return maxIterationsPolicy(n)
}
