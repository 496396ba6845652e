// Package store is the gateway to the cooler's relational database.
// Every call is a single round trip; nothing is cached between calls.
package store

import (
	"context"
	"errors"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// ErrNoSetting means the cooler_settings table is empty. The table must be
// bootstrapped before the controller starts.
var ErrNoSetting = errors.New("store: no cooler setting recorded")

// Op names a gateway operation. Used in logs and metric labels.
type Op string

const (
	OpInsertReading   Op = "insert_reading"
	OpLatestSetting   Op = "latest_setting"
	OpInsertSetting   Op = "insert_setting"
	OpLatestReading   Op = "latest_reading"
	OpHouseParameters Op = "house_parameters"
	OpForecast        Op = "forecast"
	OpReadingsSince   Op = "readings_since"
)

// Gateway is everything the controller needs from the database.
type Gateway interface {
	// InsertReading appends a reading and returns the affected row count.
	InsertReading(ctx context.Context, r logic.Reading) (int64, error)

	// LatestSetting returns the newest setting, or ErrNoSetting.
	LatestSetting(ctx context.Context) (logic.Setting, error)

	// InsertSetting appends a new current setting.
	InsertSetting(ctx context.Context, s logic.Setting) error

	// LatestReading returns the newest reading for role, or the sentinel
	// reading when the sensor has never reported.
	LatestReading(ctx context.Context, role logic.Role) (logic.Reading, error)

	// HouseParameters returns the newest house parameters. An empty table
	// yields zero parameters.
	HouseParameters(ctx context.Context) (logic.HouseParameters, error)

	// Forecast returns up to logic.ForecastHorizon temperatures, oldest first.
	Forecast(ctx context.Context) ([]float64, error)

	// ReadingsSince returns the role's readings from the last days days, oldest first.
	ReadingsSince(ctx context.Context, role logic.Role, days int) ([]logic.Reading, error)
}
