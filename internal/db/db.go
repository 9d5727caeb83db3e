package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"railstatus-simulator/internal/rail"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// FetchTrains returns the reference trains in stable load order.
func FetchTrains(ctx context.Context, db *sql.DB) ([]rail.Train, error) {
	q := `SELECT train_no, train_name, from_station, to_station, COALESCE(category, '')
          FROM trains ORDER BY train_no`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query trains: %w", err)
	}
	defer rows.Close()

	var trains []rail.Train
	for rows.Next() {
		var t rail.Train
		if err := rows.Scan(&t.ID, &t.Name, &t.FromStation, &t.ToStation, &t.Category); err != nil {
			return nil, err
		}
		trains = append(trains, t)
	}
	return trains, rows.Err()
}

// FetchScheduleStops returns every train's stops ordered by train and
// sequence. arrival and departure are "HH:MM" text columns, empty when the
// stop has no such event.
func FetchScheduleStops(ctx context.Context, db *sql.DB) ([]rail.ScheduleStop, error) {
	q := `SELECT train_no, station_id, COALESCE(arrival, ''), COALESCE(departure, ''),
                 COALESCE(halt_min, 0), seq
          FROM schedule_stops ORDER BY train_no, seq`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query schedule_stops: %w", err)
	}
	defer rows.Close()

	var stops []rail.ScheduleStop
	for rows.Next() {
		var s rail.ScheduleStop
		var arr, dep string
		if err := rows.Scan(&s.TrainID, &s.StationID, &arr, &dep, &s.HaltMin, &s.Seq); err != nil {
			return nil, err
		}
		if s.Arrival, err = rail.ParseClock(arr); err != nil {
			return nil, fmt.Errorf("train %s seq %d arrival: %w", s.TrainID, s.Seq, err)
		}
		if s.Departure, err = rail.ParseClock(dep); err != nil {
			return nil, fmt.Errorf("train %s seq %d departure: %w", s.TrainID, s.Seq, err)
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// FetchStations returns the station name table.
func FetchStations(ctx context.Context, db *sql.DB) ([]rail.Station, error) {
	q := `SELECT id, name FROM stations ORDER BY id`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer rows.Close()

	var stations []rail.Station
	for rows.Next() {
		var st rail.Station
		if err := rows.Scan(&st.ID, &st.Name); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// LoadTimetable fetches all reference data and builds the timetable.
func LoadTimetable(ctx context.Context, db *sql.DB) (*rail.Timetable, error) {
	trains, err := FetchTrains(ctx, db)
	if err != nil {
		return nil, err
	}
	stops, err := FetchScheduleStops(ctx, db)
	if err != nil {
		return nil, err
	}
	stations, err := FetchStations(ctx, db)
	if err != nil {
		return nil, err
	}
	return rail.NewTimetable(trains, stops, stations)
}
