package recorder

import "time"

// Outcome classifies a refresh attempt.
type Outcome string

const (
	OutcomeOK     Outcome = "OK"
	OutcomeStale  Outcome = "STALE"
	OutcomeFailed Outcome = "FAILED"
)

// RefreshEvent holds the result of one price refresh for one symbol.
type RefreshEvent struct {
	Time    time.Time
	Symbol  string
	Name    string
	Price   float64 // zero unless Outcome is OK
	Version int64
	Asks    int // number of ask levels averaged
	Outcome Outcome
	Error   string
}

// Recorder persists the refresh history for auditing.
type Recorder interface {
	RecordRefresh(evt *RefreshEvent) error
	Recent(symbol string, limit int) ([]RefreshEvent, error)
	Close() error
}
