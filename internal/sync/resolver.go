package sync

// Resolution is the terminal choice an interactive resolver returns for a
// conflicted file.
type Resolution string

const (
	// ResolutionUpstream applies the upstream version.
	ResolutionUpstream Resolution = "upstream"

	// ResolutionLocal keeps the local version.
	ResolutionLocal Resolution = "local"

	// ResolutionSkip leaves the file untouched for this run.
	ResolutionSkip Resolution = "skip"

	// ResolutionManual defers the file to a manual merge.
	ResolutionManual Resolution = "manual"
)

// IsValid returns true if the resolution is recognized.
func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionUpstream, ResolutionLocal, ResolutionSkip, ResolutionManual:
		return true
	default:
		return false
	}
}

// String returns the string representation of the resolution.
func (r Resolution) String() string {
	return string(r)
}

// Resolver settles files the engine cannot decide on its own. Implementations
// may loop internally (show the full diff, redraw) but must block until a
// terminal Resolution is chosen. The engine treats a resolver error as an
// unresolved conflict, not as a run failure.
type Resolver interface {
	Resolve(path, diff string) (Resolution, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(path, diff string) (Resolution, error)

// Resolve calls the wrapped function.
func (f ResolverFunc) Resolve(path, diff string) (Resolution, error) {
	return f(path, diff)
}
