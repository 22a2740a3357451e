package model

// MatchResult is the outcome of scoring one live capture against the
// enrolled templates. The zero value means no confident match. It lives
// only for the duration of one verification call.
type MatchResult struct {
	Name   string
	UserID int64
	Score  float64
}

// Matched reports whether an identity was resolved.
func (m MatchResult) Matched() bool {
	return m.UserID != 0
}
