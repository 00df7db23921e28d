package models

// InsertOutcome is the result of adding sentences through the service.
type InsertOutcome struct {
	Success bool      `json:"success"`
	Count   int       `json:"count"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Err     error     `json:"-"`
}

// Match is one (text, score) pair returned to search callers.
type Match struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SearchOutcome is the result of a search through the service.
// Matches are ordered best first; Kind and Err are set only on failure.
type SearchOutcome struct {
	Query   string    `json:"query"`
	Matches []Match   `json:"best_matches"`
	Kind    ErrorKind `json:"kind,omitempty"`
	Err     error     `json:"-"`
}

// OK reports whether the search succeeded.
func (o *SearchOutcome) OK() bool {
	return o.Err == nil
}
