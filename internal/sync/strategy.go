package sync

// Strategy defines the behavior for reconciling a file that diverged from
// the template.
type Strategy string

const (
	// StrategyPrompt asks the interactive resolver whenever upstream changes
	// collide with local modifications.
	StrategyPrompt Strategy = "prompt"

	// StrategyUpstream takes the upstream version, discarding local changes.
	StrategyUpstream Strategy = "upstream"

	// StrategyLocal keeps the local version, ignoring upstream changes.
	StrategyLocal Strategy = "local"

	// StrategyManual flags divergence as a conflict to be merged by hand.
	StrategyManual Strategy = "manual"
)

// IsValid returns true if the strategy is recognized.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyPrompt, StrategyUpstream, StrategyLocal, StrategyManual:
		return true
	default:
		return false
	}
}

// AllStrategies returns all supported merge strategies.
func AllStrategies() []Strategy {
	return []Strategy{StrategyPrompt, StrategyUpstream, StrategyLocal, StrategyManual}
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategyPrompt:
		return "Ask interactively when local changes collide with upstream"
	case StrategyUpstream:
		return "Take the upstream version, discarding local changes"
	case StrategyLocal:
		return "Keep the local version, ignoring upstream changes"
	case StrategyManual:
		return "Flag divergence as a conflict for manual merging"
	default:
		return "Unknown strategy"
	}
}

// Rule binds a glob pattern to a merge strategy.
type Rule struct {
	// Pattern is a slash-separated glob, with ** crossing directories.
	Pattern string

	// Strategy applies to every path the pattern matches.
	Strategy Strategy
}

// StrategyResolver maps file paths to merge strategies using an ordered rule
// list. Rules are checked in declaration order and the first matching
// pattern wins, so authors put specific patterns before broad ones.
type StrategyResolver struct {
	rules    []Rule
	fallback Strategy
}

// NewStrategyResolver creates a resolver over the given rules. The fallback
// strategy applies when no rule matches; an invalid fallback degrades to
// StrategyPrompt.
func NewStrategyResolver(rules []Rule, fallback Strategy) *StrategyResolver {
	if !fallback.IsValid() {
		fallback = StrategyPrompt
	}
	return &StrategyResolver{rules: rules, fallback: fallback}
}

// Resolve returns the strategy for the given path.
func (sr *StrategyResolver) Resolve(path string) Strategy {
	for _, rule := range sr.rules {
		if matchPattern(path, rule.Pattern) {
			return rule.Strategy
		}
	}
	return sr.fallback
}

// Rules returns the ordered rule list.
func (sr *StrategyResolver) Rules() []Rule {
	return sr.rules
}

// Fallback returns the strategy used when no rule matches.
func (sr *StrategyResolver) Fallback() Strategy {
	return sr.fallback
}
