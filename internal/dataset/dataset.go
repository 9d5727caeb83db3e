package dataset

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gocarina/gocsv"

	"railstatus-simulator/internal/rail"
)

//go:embed seed/*.csv
var seedFS embed.FS

type trainRow struct {
	TrainNo     string `csv:"train_no"`
	TrainName   string `csv:"train_name"`
	FromStation string `csv:"from_station"`
	ToStation   string `csv:"to_station"`
	Category    string `csv:"category"`
}

type scheduleRow struct {
	TrainNo   string `csv:"train_no"`
	StationID string `csv:"station_id"`
	Arrival   string `csv:"arrival"`
	Departure string `csv:"departure"`
	HaltMin   int    `csv:"halt_min"`
	Seq       int    `csv:"seq"`
}

type stationRow struct {
	ID   string `csv:"id"`
	Name string `csv:"name"`
}

type overrideRow struct {
	TrainNo     string `csv:"train_no"`
	Status      string `csv:"status"`
	DelayMin    int    `csv:"delay_min"`
	NextStation string `csv:"next_station"`
}

// Load reads trains.csv, schedules.csv, stations.csv and the optional
// overrides.csv from a directory and builds the timetable.
func Load(dir string) (*rail.Timetable, []rail.Override, error) {
	return loadFS(os.DirFS(dir))
}

// LoadEmbedded builds the timetable from the seed tables compiled into the
// binary, so the simulator runs without any external data source.
func LoadEmbedded() (*rail.Timetable, []rail.Override, error) {
	sub, err := fs.Sub(seedFS, "seed")
	if err != nil {
		return nil, nil, err
	}
	return loadFS(sub)
}

func loadFS(fsys fs.FS) (*rail.Timetable, []rail.Override, error) {
	var trainRows []*trainRow
	if err := readCSV(fsys, "trains.csv", &trainRows); err != nil {
		return nil, nil, err
	}
	var scheduleRows []*scheduleRow
	if err := readCSV(fsys, "schedules.csv", &scheduleRows); err != nil {
		return nil, nil, err
	}
	var stationRows []*stationRow
	if err := readCSV(fsys, "stations.csv", &stationRows); err != nil {
		return nil, nil, err
	}

	trains := make([]rail.Train, 0, len(trainRows))
	for _, r := range trainRows {
		trains = append(trains, rail.Train{
			ID:          r.TrainNo,
			Name:        r.TrainName,
			FromStation: r.FromStation,
			ToStation:   r.ToStation,
			Category:    r.Category,
		})
	}

	stops := make([]rail.ScheduleStop, 0, len(scheduleRows))
	for _, r := range scheduleRows {
		arr, err := rail.ParseClock(r.Arrival)
		if err != nil {
			return nil, nil, fmt.Errorf("schedules.csv train %s seq %d arrival: %w", r.TrainNo, r.Seq, err)
		}
		dep, err := rail.ParseClock(r.Departure)
		if err != nil {
			return nil, nil, fmt.Errorf("schedules.csv train %s seq %d departure: %w", r.TrainNo, r.Seq, err)
		}
		stops = append(stops, rail.ScheduleStop{
			TrainID:   r.TrainNo,
			StationID: r.StationID,
			Arrival:   arr,
			Departure: dep,
			HaltMin:   r.HaltMin,
			Seq:       r.Seq,
		})
	}

	stations := make([]rail.Station, 0, len(stationRows))
	for _, r := range stationRows {
		stations = append(stations, rail.Station{ID: r.ID, Name: r.Name})
	}

	tt, err := rail.NewTimetable(trains, stops, stations)
	if err != nil {
		return nil, nil, err
	}

	overrides, err := loadOverrides(fsys)
	if err != nil {
		return nil, nil, err
	}
	return tt, overrides, nil
}

// loadOverrides reads overrides.csv when present. These are seed overrides
// applied once at startup; a missing file just means none.
func loadOverrides(fsys fs.FS) ([]rail.Override, error) {
	var rows []*overrideRow
	if err := readCSV(fsys, "overrides.csv", &rows); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	overrides := make([]rail.Override, 0, len(rows))
	for _, r := range rows {
		status := rail.Status(r.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("overrides.csv train %s: %w: %q", r.TrainNo, rail.ErrInvalidStatus, r.Status)
		}
		overrides = append(overrides, rail.Override{
			TrainID:     r.TrainNo,
			Status:      status,
			DelayMin:    r.DelayMin,
			NextStation: r.NextStation,
		})
	}
	return overrides, nil
}

func readCSV(fsys fs.FS, name string, out any) error {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	if err := gocsv.UnmarshalBytes(b, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
