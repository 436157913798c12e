package models

// SessionFacts is the persisted minimum needed to resume the flow.
// Approved implies Token is non-empty.
type SessionFacts struct {
	Token    string
	Approved bool
}

// HasToken reports whether the core auth and verification flow has been
// completed at least once.
func (f SessionFacts) HasToken() bool {
	return f.Token != ""
}
