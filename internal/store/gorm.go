package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sweeney/swamp-cooler/internal/logic"
)

// DefaultTimeout bounds each database round trip.
const DefaultTimeout = 5 * time.Second

// serverNow stamps appended rows with the database clock, the same clock the
// operator UI uses when it appends settings.
var serverNow = gorm.Expr("CURRENT_TIMESTAMP")

type sensorRow struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	SensorID    string    `gorm:"column:sensor_id;size:32;not null;index:idx_sensor_time,priority:1"`
	Timestamp   time.Time `gorm:"column:timestamp;index:idx_sensor_time,priority:2"`
	Temperature float64   `gorm:"column:temperature"`
	Humidity    float64   `gorm:"column:humidity"`
}

func (sensorRow) TableName() string { return "sensor_data" }

type settingRow struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp          time.Time `gorm:"column:timestamp;index"`
	Setting            string    `gorm:"column:setting;size:64;not null"`
	DesiredTemperature float64   `gorm:"column:desired_temperature"`
}

func (settingRow) TableName() string { return "cooler_settings" }

type houseRow struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	Latitude    float64 `gorm:"column:latitude"`
	Longitude   float64 `gorm:"column:longitude"`
	HouseVolume float64 `gorm:"column:house_volume"`
	LoFanVolume float64 `gorm:"column:lo_fan_volume"`
	HiFanVolume float64 `gorm:"column:hi_fan_volume"`
	Efficiency  float64 `gorm:"column:efficiency"`
}

func (houseRow) TableName() string { return "house_settings" }

type forecastRow struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	Temperature float64 `gorm:"column:temperature"`
}

func (forecastRow) TableName() string { return "forecast" }

// GormStore implements Gateway on top of gorm.
// Sensor rows carry the device identifier; roles are mapped on the way in and out.
type GormStore struct {
	db      *gorm.DB
	ids     map[logic.Role]string
	roles   map[string]logic.Role
	timeout time.Duration
	now     func() time.Time
}

// OpenMySQL connects to a MySQL/MariaDB database.
func OpenMySQL(dsn string, ids map[logic.Role]string) (*GormStore, error) {
	return Open(mysql.Open(dsn), ids)
}

// Open connects through any gorm dialector and checks the connection.
func Open(dialector gorm.Dialector, ids map[logic.Role]string) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(log.New(os.Stderr, "store: ", log.LstdFlags), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	roles := make(map[string]logic.Role, len(ids))
	for role, id := range ids {
		roles[id] = role
	}

	return &GormStore{
		db:      db,
		ids:     ids,
		roles:   roles,
		timeout: DefaultTimeout,
		now:     time.Now,
	}, nil
}

// Migrate creates or updates the four tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.db.WithContext(ctx).AutoMigrate(&sensorRow{}, &settingRow{}, &houseRow{}, &forecastRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) sensorID(role logic.Role) (string, error) {
	id, ok := s.ids[role]
	if !ok {
		return "", fmt.Errorf("unknown sensor role %q", role)
	}
	return id, nil
}

func (s *GormStore) toReading(row sensorRow) logic.Reading {
	return logic.Reading{
		Sensor:      s.roles[row.SensorID],
		Temperature: row.Temperature,
		Humidity:    row.Humidity,
		ReceivedAt:  row.Timestamp,
	}
}

// InsertReading appends a sensor_data row. The timestamp is assigned by the database.
func (s *GormStore) InsertReading(ctx context.Context, r logic.Reading) (int64, error) {
	id, err := s.sensorID(r.Sensor)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", OpInsertReading, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := s.db.WithContext(ctx).Model(&sensorRow{}).Create(map[string]interface{}{
		"sensor_id":   id,
		"timestamp":   serverNow,
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
	})
	if res.Error != nil {
		return 0, fmt.Errorf("%s: %w", OpInsertReading, res.Error)
	}
	return res.RowsAffected, nil
}

// LatestSetting returns the newest cooler_settings row.
func (s *GormStore) LatestSetting(ctx context.Context) (logic.Setting, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row settingRow
	err := s.db.WithContext(ctx).Order("timestamp DESC").Order("id DESC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return logic.Setting{}, ErrNoSetting
	}
	if err != nil {
		return logic.Setting{}, fmt.Errorf("%s: %w", OpLatestSetting, err)
	}
	return logic.ParseSetting(row.Setting, row.DesiredTemperature, row.Timestamp), nil
}

// InsertSetting appends a cooler_settings row stamped by the database.
func (s *GormStore) InsertSetting(ctx context.Context, setting logic.Setting) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Model(&settingRow{}).Create(map[string]interface{}{
		"timestamp":           serverNow,
		"setting":             setting.String(),
		"desired_temperature": setting.DesiredTemperature,
	}).Error
	if err != nil {
		return fmt.Errorf("%s: %w", OpInsertSetting, err)
	}
	return nil
}

// LatestReading returns the newest reading for role or the sentinel reading.
func (s *GormStore) LatestReading(ctx context.Context, role logic.Role) (logic.Reading, error) {
	id, err := s.sensorID(role)
	if err != nil {
		return logic.Reading{}, fmt.Errorf("%s: %w", OpLatestReading, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row sensorRow
	err = s.db.WithContext(ctx).
		Where("sensor_id = ?", id).
		Order("timestamp DESC").Order("id DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return logic.SentinelReading(role), nil
	}
	if err != nil {
		return logic.Reading{}, fmt.Errorf("%s: %w", OpLatestReading, err)
	}
	r := s.toReading(row)
	r.Sensor = role
	return r, nil
}

// HouseParameters returns the row with the highest id.
func (s *GormStore) HouseParameters(ctx context.Context) (logic.HouseParameters, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row houseRow
	err := s.db.WithContext(ctx).Order("id DESC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return logic.HouseParameters{}, nil
	}
	if err != nil {
		return logic.HouseParameters{}, fmt.Errorf("%s: %w", OpHouseParameters, err)
	}
	return logic.HouseParameters{
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
		HouseVolume: row.HouseVolume,
		LoFanVolume: row.LoFanVolume,
		HiFanVolume: row.HiFanVolume,
		Efficiency:  row.Efficiency,
	}, nil
}

// Forecast returns the first logic.ForecastHorizon forecast rows by id.
func (s *GormStore) Forecast(ctx context.Context) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []forecastRow
	if err := s.db.WithContext(ctx).Order("id ASC").Limit(logic.ForecastHorizon).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", OpForecast, err)
	}
	temps := make([]float64, len(rows))
	for i, row := range rows {
		temps[i] = row.Temperature
	}
	return temps, nil
}

// ReadingsSince returns the role's readings newer than days days ago.
func (s *GormStore) ReadingsSince(ctx context.Context, role logic.Role, days int) ([]logic.Reading, error) {
	if days < 1 {
		return nil, fmt.Errorf("%s: days must be at least 1, got %d", OpReadingsSince, days)
	}
	id, err := s.sensorID(role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpReadingsSince, err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	var rows []sensorRow
	err = s.db.WithContext(ctx).
		Where("sensor_id = ? AND timestamp >= ?", id, since).
		Order("timestamp ASC").Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpReadingsSince, err)
	}
	out := make([]logic.Reading, len(rows))
	for i, row := range rows {
		out[i] = s.toReading(row)
		out[i].Sensor = role
	}
	return out, nil
}
