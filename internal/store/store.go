// Package store keeps the results of every run in a SQLite database so lens
// choices from different inputs can be compared later.
package store

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseModels lists the tables created by Open.
var DatabaseModels = []interface{}{
	&Run{},
	&Setup{},
	&SurfacePoint{},
}

// Run is one invocation over an input file.
type Run struct {
	gorm.Model
	Input   string `gorm:"size:255;index"`
	Setups  []Setup
	Surface []SurfacePoint
}

// Setup holds the derived figures of one optical setup, all in SI.
type Setup struct {
	gorm.Model
	RunID             uint   `gorm:"index"`
	Name              string `gorm:"size:127"`
	Camera            string `gorm:"size:63"`
	FocalLength       float64
	FNumber           float64
	Magnification     float64
	ObjectDistance    float64
	ApertureFraction  float64
	PeakDensity       float64
	PeakFill          float64
	Regime            string `gorm:"size:31"`
	SaturationDensity float64
	NoiseFloorDensity float64
	ReferenceCounts   float64
	Parameters        datatypes.JSON // unified setup parameters the figures were derived from
}

// SurfacePoint is one ranked entry of the performance surface.
type SurfacePoint struct {
	gorm.Model
	RunID       uint `gorm:"index"`
	Rank        int
	FNumber     float64
	FieldOfView float64
	Value       float64
	Relative    float64
}

type Store struct {
	db *gorm.DB
}

// Open connects to the database at path, creating it and its tables when
// needed. An empty path opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	if path == "" {
		// every new connection would see its own empty memory database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(DatabaseModels...); err != nil {
		return nil, fmt.Errorf("migrating %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun stores a run together with its setups and surface points.
func (s *Store) SaveRun(input string, setups []Setup, surface []SurfacePoint) (*Run, error) {
	run := &Run{Input: input, Setups: setups, Surface: surface}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		return nil, fmt.Errorf("saving run of %q: %w", input, err)
	}
	return run, nil
}

// LatestRun returns the most recent run of input with its setups ordered by
// name and its surface by rank.
func (s *Store) LatestRun(input string) (*Run, error) {
	var run Run
	err := s.db.
		Preload("Setups", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("Surface", func(db *gorm.DB) *gorm.DB { return db.Order("rank") }).
		Where("input = ?", input).
		Order("id desc").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("no run of %q stored: %w", input, err)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LeastSaturated lists stored setups by descending saturation density, the
// setups that tolerate the densest beams first.
func (s *Store) LeastSaturated(limit int) ([]Setup, error) {
	var setups []Setup
	err := s.db.Order("saturation_density desc").Limit(limit).Find(&setups).Error
	return setups, err
}
