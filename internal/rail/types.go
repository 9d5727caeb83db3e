package rail

// Status is the operational state of a train as shown in the live feed.
type Status string

const (
	StatusOnTime    Status = "On Time"
	StatusDelayed   Status = "Delayed"
	StatusCancelled Status = "Cancelled"
	StatusBoarding  Status = "Boarding"
	StatusArrived   Status = "Arrived"
)

// Valid reports whether s is one of the feed statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOnTime, StatusDelayed, StatusCancelled, StatusBoarding, StatusArrived:
		return true
	}
	return false
}

// Next-station sentinels used instead of a station name.
const (
	NextFinalDestination = "Final Destination"
	NextOperationalIssue = "Due to Operational Issues"
	NextEnRoute          = "En Route"
)

// Train is immutable reference data loaded once at startup.
type Train struct {
	ID          string
	Name        string
	FromStation string // station id
	ToStation   string // station id
	Category    string
}

// ScheduleStop is one ordered stop of a train's timetable.
// The first stop of a schedule has no arrival, the last has no departure.
type ScheduleStop struct {
	TrainID   string
	StationID string
	Arrival   ClockMinutes
	Departure ClockMinutes
	HaltMin   int
	Seq       int
}

// Station maps an identifier to a display name.
type Station struct {
	ID   string
	Name string
}

// StatusSnapshot is the derived status record for one train at one tick.
// Snapshots are recomputed whole each tick and never partially mutated
// outside a tick boundary.
type StatusSnapshot struct {
	TrainID     string `json:"id"`
	Name        string `json:"name"`
	From        string `json:"from"`
	To          string `json:"to"`
	Departure   string `json:"departure"`
	Arrival     string `json:"arrival"`
	Status      Status `json:"status"`
	DelayMin    int    `json:"delay"`
	NextStation string `json:"nextStation"`
	Platform    int    `json:"platform"`
	Progress    int    `json:"progress"`
}

// Override is an operator-issued status correction for one train. It pins
// status, delay and next-station until replaced or cleared; progress is
// always recomputed from the clock.
type Override struct {
	TrainID     string `json:"trainId"`
	Status      Status `json:"status"`
	DelayMin    int    `json:"delay"`
	NextStation string `json:"nextStation"` // empty keeps the derived value
}
