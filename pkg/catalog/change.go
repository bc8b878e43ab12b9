package catalog

// ChangeType names what happened to a catalog entry.
type ChangeType string

const (
	ChangeLoaded  ChangeType = "loaded"
	ChangeRemoved ChangeType = "removed"
	ChangeFailed  ChangeType = "error"
)

// Change describes one catalog mutation. Entry is set for ChangeLoaded and
// Err for ChangeFailed.
type Change struct {
	Type  ChangeType
	ID    string
	Entry *Entry
	Err   error
}
