package rail

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrains() []Train {
	return []Train{
		{ID: "12000", Name: "Rajdhani NDLS-HWH", FromStation: "NDLS", ToStation: "HWH", Category: "Rajdhani"},
		{ID: "12010", Name: "Duronto HWH-SBC", FromStation: "HWH", ToStation: "SBC", Category: "Duronto"},
	}
}

func testStops() []ScheduleStop {
	mustClock := func(s string) ClockMinutes {
		c, err := ParseClock(s)
		if err != nil {
			panic(err)
		}
		return c
	}
	return []ScheduleStop{
		{TrainID: "12000", StationID: "NDLS", Arrival: NoTime, Departure: mustClock("08:15"), Seq: 1},
		{TrainID: "12000", StationID: "CNB", Arrival: mustClock("13:00"), Departure: mustClock("13:05"), HaltMin: 5, Seq: 2},
		{TrainID: "12000", StationID: "HWH", Arrival: mustClock("21:45"), Departure: NoTime, Seq: 4},
		{TrainID: "12010", StationID: "HWH", Arrival: NoTime, Departure: mustClock("09:00"), Seq: 1},
		{TrainID: "12010", StationID: "SBC", Arrival: mustClock("19:45"), Departure: NoTime, Seq: 2},
	}
}

func testStations() []Station {
	return []Station{
		{ID: "NDLS", Name: "New Delhi"},
		{ID: "HWH", Name: "Howrah Junction"},
		{ID: "CNB", Name: "Kanpur Central"},
		{ID: "SBC", Name: "Bangalore City"},
	}
}

func TestNewTimetable(t *testing.T) {
	tt, err := NewTimetable(testTrains(), testStops(), testStations())
	require.NoError(t, err)

	trains := tt.Trains()
	require.Len(t, trains, 2)
	assert.Equal(t, "12000", trains[0].ID)
	assert.Equal(t, "12010", trains[1].ID)

	sched := tt.Schedule("12000")
	require.Len(t, sched, 3)
	for i := 1; i < len(sched); i++ {
		assert.Less(t, sched[i-1].Seq, sched[i].Seq)
	}

	assert.True(t, tt.HasTrain("12010"))
	assert.False(t, tt.HasTrain("99999"))
	assert.Nil(t, tt.Schedule("99999"))
}

func TestNewTimetableRejectsUnknownTrainReference(t *testing.T) {
	stops := append(testStops(), ScheduleStop{TrainID: "77777", StationID: "CNB", Seq: 1})
	_, err := NewTimetable(testTrains(), stops, testStations())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownTrain))
}

func TestNewTimetableRejectsDuplicateTrains(t *testing.T) {
	trains := append(testTrains(), Train{ID: "12000", Name: "dup"})
	_, err := NewTimetable(trains, nil, nil)
	require.Error(t, err)
}

func TestStationNameFallsBackToIdentifier(t *testing.T) {
	tt, err := NewTimetable(testTrains(), testStops(), testStations())
	require.NoError(t, err)

	assert.Equal(t, "New Delhi", tt.StationName("NDLS"))
	assert.Equal(t, "ZZZ", tt.StationName("ZZZ"))
}

func TestValidateSchedule(t *testing.T) {
	tt, err := NewTimetable(testTrains(), testStops(), testStations())
	require.NoError(t, err)

	assert.NoError(t, ValidateSchedule(tt.Schedule("12010")))

	// 12000's stop sequence jumps from 2 to 4
	err = ValidateSchedule(tt.Schedule("12000"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadStopSequence))

	err = ValidateSchedule(tt.Schedule("12000")[:1])
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScheduleTooShort))

	assert.ErrorIs(t, ValidateSchedule(nil), ErrScheduleTooShort)
}
