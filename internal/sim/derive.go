package sim

import (
	"math"

	"railstatus-simulator/internal/rail"
)

// Escalation applied when a train sits at the origin past its scheduled
// departure: up to graceWindowMin late it reports Delayed with a fixed
// nominal delay rather than Boarding.
const (
	graceWindowMin = 10
	graceDelayMin  = 10
	jitterStartMin = 5
	jitterFlipOdds = 0.08
)

type legState int

const (
	legBeforeDeparture legState = iota
	legEnRoute
	legArrived
)

// legPosition is the leg locator result: which inter-station segment a train
// occupies at a simulated instant, or whether it has not yet departed or has
// already terminated.
type legPosition struct {
	state legState
	index int // index of the most recently departed stop when en route
}

// effectiveDeparture is the instant a train leaves a stop: the departure
// time, falling back to arrival for the terminal stop.
func effectiveDeparture(s rail.ScheduleStop) rail.ClockMinutes {
	if s.Departure != rail.NoTime {
		return s.Departure
	}
	return s.Arrival
}

// locateLeg walks the stops in sequence order and tracks the highest stop
// already departed at now. The walk ends at the first future stop, or at an
// overnight wrap: a stop whose time precedes its predecessor's lies beyond
// this calendar day and can never be reached today.
func locateLeg(stops []rail.ScheduleStop, now rail.ClockMinutes) legPosition {
	idx := -1
	prev := rail.NoTime
	for i, s := range stops {
		t := effectiveDeparture(s)
		if t == rail.NoTime {
			continue
		}
		if prev != rail.NoTime && t < prev {
			break
		}
		prev = t
		if t <= now {
			idx = i
		} else {
			break
		}
	}
	switch {
	case idx < 0:
		return legPosition{state: legBeforeDeparture}
	case idx >= len(stops)-1:
		return legPosition{state: legArrived, index: idx}
	default:
		return legPosition{state: legEnRoute, index: idx}
	}
}

// progressPercent computes the 0-100 completion of the whole journey. The
// bar advances by exactly one leg's share at each boundary and interpolates
// by elapsed-time fraction inside the current leg, so it is continuous and
// never decreases while the clock advances.
func progressPercent(stops []rail.ScheduleStop, pos legPosition, now rail.ClockMinutes) int {
	switch pos.state {
	case legArrived:
		return 100
	case legBeforeDeparture:
		return 0
	}
	legs := len(stops) - 1

	cur := stops[pos.index]
	next := stops[pos.index+1]
	legStart := cur.Departure
	if legStart == rail.NoTime {
		legStart = cur.Arrival
	}
	legEnd := next.Arrival
	if legEnd == rail.NoTime {
		legEnd = next.Departure
	}

	frac := 0.0
	if legStart != rail.NoTime && legEnd != rail.NoTime && legEnd > legStart {
		frac = float64(now-legStart) / float64(legEnd-legStart)
		frac = math.Min(1, math.Max(0, frac))
	}
	total := float64(pos.index)/float64(legs) + frac/float64(legs)
	total = math.Min(1, math.Max(0, total))
	return int(math.Round(total * 100))
}

// platformFor derives a stable platform number from the train identifier:
// the trailing decimal digit plus one, or a byte-sum fallback for
// identifiers that do not end in a digit.
func platformFor(trainID string) int {
	if trainID == "" {
		return 1
	}
	last := trainID[len(trainID)-1]
	if last >= '0' && last <= '9' {
		return int(last-'0')%10 + 1
	}
	sum := 0
	for i := 0; i < len(trainID); i++ {
		sum += int(trainID[i])
	}
	return sum%10 + 1
}

// boardingStatus decides the status of a train that has not departed yet.
// A train sitting at the origin up to graceWindowMin past its scheduled
// departure escalates from Boarding to Delayed with a fixed nominal delay.
func boardingStatus(dep, now rail.ClockMinutes) (rail.Status, int) {
	if dep != rail.NoTime && now > dep && now-dep <= graceWindowMin {
		return rail.StatusDelayed, graceDelayMin
	}
	return rail.StatusBoarding, 0
}

// deriveSnapshot recomputes one train's status record from its schedule and
// the simulated instant. It returns an error when the schedule cannot define
// a leg; callers skip that train for the current tick.
func deriveSnapshot(t rail.Train, stops []rail.ScheduleStop, tt *rail.Timetable, now rail.ClockMinutes) (rail.StatusSnapshot, error) {
	if err := rail.ValidateSchedule(stops); err != nil {
		return rail.StatusSnapshot{}, err
	}

	origin := stops[0]
	terminal := stops[len(stops)-1]
	pos := locateLeg(stops, now)

	snap := rail.StatusSnapshot{
		TrainID:   t.ID,
		Name:      t.Name,
		From:      tt.StationName(t.FromStation),
		To:        tt.StationName(t.ToStation),
		Departure: origin.Departure.String(),
		Arrival:   terminal.Arrival.String(),
		Status:    rail.StatusOnTime,
		Platform:  platformFor(t.ID),
	}

	switch pos.state {
	case legBeforeDeparture:
		snap.Status, snap.DelayMin = boardingStatus(origin.Departure, now)
		snap.NextStation = tt.StationName(stops[1].StationID)
	case legEnRoute:
		snap.NextStation = tt.StationName(stops[pos.index+1].StationID)
		snap.Departure = stops[pos.index].Departure.String()
	case legArrived:
		snap.Status = rail.StatusArrived
		snap.NextStation = rail.NextFinalDestination
	}

	snap.Progress = progressPercent(stops, pos, now)
	return snap, nil
}
