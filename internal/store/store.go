package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/awaistahir/powershare/internal/engine"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Household is one of the tenants sharing the building's supply
type Household struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store handles persistent storage using SQLite
type Store struct {
	db *sql.DB
}

// NewStore creates a new store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initialize creates the database schema
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS households (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS intervals (
		id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		appliance_type TEXT NOT NULL,
		day_of_week TEXT NOT NULL,
		day_index INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_intervals_household ON intervals(household_id, day_index, start_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveHousehold saves or updates a household
func (s *Store) SaveHousehold(h *Household) error {
	query := `INSERT INTO households (id, name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`

	_, err := s.db.Exec(query, h.ID, h.Name, time.Now())
	return err
}

// GetHousehold retrieves a household by ID
func (s *Store) GetHousehold(id string) (*Household, error) {
	var h Household
	err := s.db.QueryRow(`SELECT id, name FROM households WHERE id = ?`, id).Scan(&h.ID, &h.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("household %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ListHouseholds returns every household ordered by ID
func (s *Store) ListHouseholds() ([]Household, error) {
	rows, err := s.db.Query(`SELECT id, name FROM households ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	households := []Household{}
	for rows.Next() {
		var h Household
		if err := rows.Scan(&h.ID, &h.Name); err != nil {
			return nil, err
		}
		households = append(households, h)
	}
	return households, rows.Err()
}

// CreateInterval validates iv, assigns it a fresh ID and stores it
func (s *Store) CreateInterval(iv *engine.Interval) error {
	if err := iv.Validate(); err != nil {
		return err
	}
	iv.ID = uuid.NewString()

	query := `INSERT INTO intervals
		(id, household_id, owner_id, appliance_type, day_of_week, day_index, start_time, end_time, description, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, iv.ID, iv.HouseholdID, iv.OwnerID, string(iv.ApplianceType), string(iv.DayOfWeek),
		dayIndex(iv.DayOfWeek), iv.StartTime, iv.EndTime, iv.Description, time.Now())
	if err != nil {
		return fmt.Errorf("inserting interval: %w", err)
	}
	return nil
}

// UpdateInterval rewrites an existing interval. The ID and owning household
// cannot change.
func (s *Store) UpdateInterval(iv *engine.Interval) error {
	existing, err := s.GetInterval(iv.ID)
	if err != nil {
		return err
	}
	iv.HouseholdID = existing.HouseholdID
	if iv.OwnerID == "" {
		iv.OwnerID = existing.OwnerID
	}
	if err := iv.Validate(); err != nil {
		return err
	}

	query := `UPDATE intervals SET owner_id = ?, appliance_type = ?, day_of_week = ?, day_index = ?,
		start_time = ?, end_time = ?, description = ?, updated_at = ?
		WHERE id = ?`

	_, err = s.db.Exec(query, iv.OwnerID, string(iv.ApplianceType), string(iv.DayOfWeek), dayIndex(iv.DayOfWeek),
		iv.StartTime, iv.EndTime, iv.Description, time.Now(), iv.ID)
	if err != nil {
		return fmt.Errorf("updating interval: %w", err)
	}
	return nil
}

// GetInterval retrieves a single interval by ID
func (s *Store) GetInterval(id string) (*engine.Interval, error) {
	query := `SELECT id, household_id, owner_id, appliance_type, day_of_week, start_time, end_time, description
		FROM intervals WHERE id = ?`

	iv, err := scanInterval(s.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interval %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return iv, nil
}

// DeleteInterval deletes an interval by ID
func (s *Store) DeleteInterval(id string) error {
	res, err := s.db.Exec(`DELETE FROM intervals WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("interval %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListIntervals retrieves a household's schedule in week order
func (s *Store) ListIntervals(householdID string) ([]engine.Interval, error) {
	query := `SELECT id, household_id, owner_id, appliance_type, day_of_week, start_time, end_time, description
		FROM intervals WHERE household_id = ? ORDER BY day_index, start_time, id`

	rows, err := s.db.Query(query, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	intervals := []engine.Interval{}
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, *iv)
	}
	return intervals, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInterval(row scanner) (*engine.Interval, error) {
	var iv engine.Interval
	var appliance, day string

	err := row.Scan(&iv.ID, &iv.HouseholdID, &iv.OwnerID, &appliance, &day, &iv.StartTime, &iv.EndTime, &iv.Description)
	if err != nil {
		return nil, err
	}
	iv.ApplianceType = engine.ApplianceType(appliance)
	iv.DayOfWeek = engine.Weekday(day)
	return &iv, nil
}

func dayIndex(d engine.Weekday) int {
	for i, w := range engine.Weekdays {
		if w == d {
			return i
		}
	}
	return len(engine.Weekdays)
}
