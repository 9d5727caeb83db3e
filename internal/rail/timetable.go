package rail

import (
	"fmt"
	"sort"
)

// Timetable holds the immutable reference data the simulation derives from:
// trains, their ordered stop schedules and the station name table.
type Timetable struct {
	trains    []Train
	schedules map[string][]ScheduleStop // train id -> stops sorted by Seq
	stations  map[string]string
}

// NewTimetable validates and indexes reference data. It fails fast when a
// schedule row references an unknown train identifier; structural problems
// inside a single train's schedule (too few stops, broken sequence numbers)
// are left for derivation time so one bad schedule cannot block the rest of
// the feed from loading.
func NewTimetable(trains []Train, stops []ScheduleStop, stations []Station) (*Timetable, error) {
	tt := &Timetable{
		trains:    make([]Train, len(trains)),
		schedules: make(map[string][]ScheduleStop, len(trains)),
		stations:  make(map[string]string, len(stations)),
	}
	copy(tt.trains, trains)

	known := make(map[string]bool, len(trains))
	for _, t := range trains {
		if t.ID == "" {
			return nil, fmt.Errorf("train with empty identifier (%q)", t.Name)
		}
		if known[t.ID] {
			return nil, fmt.Errorf("duplicate train identifier %q", t.ID)
		}
		known[t.ID] = true
	}

	for _, s := range stops {
		if !known[s.TrainID] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTrain, s.TrainID)
		}
		tt.schedules[s.TrainID] = append(tt.schedules[s.TrainID], s)
	}
	for id := range tt.schedules {
		sched := tt.schedules[id]
		sort.Slice(sched, func(i, j int) bool { return sched[i].Seq < sched[j].Seq })
	}

	for _, st := range stations {
		tt.stations[st.ID] = st.Name
	}
	return tt, nil
}

// StationName resolves a station identifier to its display name. The lookup
// is total: unknown identifiers resolve to themselves.
func (tt *Timetable) StationName(id string) string {
	if name, ok := tt.stations[id]; ok {
		return name
	}
	return id
}

// Trains returns the reference trains in load order.
func (tt *Timetable) Trains() []Train {
	out := make([]Train, len(tt.trains))
	copy(out, tt.trains)
	return out
}

// HasTrain reports whether the identifier belongs to the reference data.
func (tt *Timetable) HasTrain(id string) bool {
	for _, t := range tt.trains {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Schedule returns the ordered stops for one train, nil when none are loaded.
func (tt *Timetable) Schedule(trainID string) []ScheduleStop {
	return tt.schedules[trainID]
}

// ValidateSchedule checks the structural invariants a schedule must satisfy
// before a leg can be located: at least two stops and sequence numbers
// strictly increasing from 1.
func ValidateSchedule(stops []ScheduleStop) error {
	if len(stops) < 2 {
		return ErrScheduleTooShort
	}
	for i, s := range stops {
		if s.Seq != i+1 {
			return fmt.Errorf("%w: stop %d has seq %d", ErrBadStopSequence, i, s.Seq)
		}
	}
	return nil
}
