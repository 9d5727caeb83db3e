package rail

import "errors"

var (
	// ErrUnknownTrain is a load-time failure: a schedule row references a
	// train identifier that is not part of the reference data.
	ErrUnknownTrain = errors.New("schedule references unknown train")

	// ErrScheduleTooShort marks a schedule that cannot define a leg.
	ErrScheduleTooShort = errors.New("schedule has fewer than two stops")

	// ErrBadStopSequence marks sequence numbers that are not strictly
	// increasing from 1.
	ErrBadStopSequence = errors.New("stop sequence numbers not strictly increasing from 1")

	// ErrBadClock marks an unparseable time-of-day string.
	ErrBadClock = errors.New("malformed clock time")

	// ErrTrainNotFound is returned for overrides or queries that reference
	// a train outside the reference data.
	ErrTrainNotFound = errors.New("train not found")

	// ErrInvalidStatus is returned for overrides carrying a status outside
	// the feed vocabulary.
	ErrInvalidStatus = errors.New("invalid status")
)
