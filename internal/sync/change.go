package sync

// ChangeStatus classifies how a path changed between two template revisions.
type ChangeStatus string

const (
	// StatusAdded indicates the path exists upstream but not at the baseline.
	StatusAdded ChangeStatus = "added"

	// StatusModified indicates the path exists on both sides with different content.
	StatusModified ChangeStatus = "modified"

	// StatusDeleted indicates the path was removed upstream.
	StatusDeleted ChangeStatus = "deleted"
)

// IsValid returns true if the status is recognized.
func (s ChangeStatus) IsValid() bool {
	switch s {
	case StatusAdded, StatusModified, StatusDeleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s ChangeStatus) String() string {
	return string(s)
}

// Change records a single path that differs between the last synchronized
// revision and the sync target. The change set is computed once per run and
// never mutated afterwards.
type Change struct {
	// Path is the file path relative to the template root, slash-separated.
	Path string

	// Status is the kind of upstream change.
	Status ChangeStatus
}
