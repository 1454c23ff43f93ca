/*
Package sqlite provides the SQLite-backed Store and Directory.

PURPOSE:
  Production persistence for duties, monthly calculations and crew profiles.
  The same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  payroll.Store:   duties + monthly calculations
  crew.Directory:  profiles and position updates

REPLACEMENT TRANSACTION:
  ReplaceDuties wraps delete-then-insert for one (user, month, year) in a
  single database transaction, so no reader ever observes the intermediate
  zero-duty state.

KEY TABLES:
  profiles:             crew identity and position
  duties:               one row per duty; flight numbers and sectors as JSON
  monthly_calculations: derived figures + the rate table snapshot as JSON,
                        UNIQUE(user_id, month, year) upsert target

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single writer,
  better crash recovery.

USAGE:
  store, err := sqlite.New("./data/crewpay.db")
  if err != nil { ... }
  defer store.Close()

SEE ALSO:
  - payroll/store.go: Interface contract
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/payroll"
	"github.com/warp/crewpay/rates"
)

// Store implements payroll.Store and crew.Directory using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT,
		airline TEXT,
		position TEXT NOT NULL,
		nationality TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS duties (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		duty_type TEXT NOT NULL,
		flight_numbers_json TEXT,
		sectors_json TEXT,
		report_minutes INTEGER,
		debrief_minutes INTEGER,
		cross_day BOOLEAN DEFAULT FALSE,
		duty_hours TEXT NOT NULL,
		rest_hours TEXT NOT NULL,
		source TEXT NOT NULL,
		pair_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Month replacement and listing (hot path)
	CREATE INDEX IF NOT EXISTS idx_duties_user_month
		ON duties(user_id, year, month);

	-- One duty per member per date. Layover pair halves live on adjacent
	-- dates and never collide.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_duties_user_date
		ON duties(user_id, date);

	CREATE INDEX IF NOT EXISTS idx_duties_pair
		ON duties(pair_id) WHERE pair_id IS NOT NULL AND pair_id != '';

	CREATE TABLE IF NOT EXISTS monthly_calculations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		rates_json TEXT NOT NULL,
		fixed_pay TEXT NOT NULL,
		flight_pay TEXT NOT NULL,
		per_diem_pay TEXT NOT NULL,
		standby_pay TEXT NOT NULL,
		total_pay TEXT NOT NULL,
		total_duty_hours TEXT NOT NULL,
		flight_count INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(user_id, month, year)
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_user
		ON monthly_calculations(user_id, year, month);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DUTIES
// =============================================================================

func (s *Store) ListDuties(ctx context.Context, userID crew.ID, month time.Month, year int) ([]duty.Duty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, date, duty_type, flight_numbers_json, sectors_json,
		       report_minutes, debrief_minutes, cross_day, duty_hours, rest_hours,
		       source, pair_id, created_at, updated_at
		FROM duties
		WHERE user_id = ? AND month = ? AND year = ?
		ORDER BY date`,
		string(userID), int(month), year)
	if err != nil {
		return nil, fmt.Errorf("list duties: %w", err)
	}
	defer rows.Close()

	var duties []duty.Duty
	for rows.Next() {
		d, err := scanDuty(rows)
		if err != nil {
			return nil, err
		}
		duties = append(duties, d)
	}
	return duties, rows.Err()
}

func (s *Store) ReplaceDuties(ctx context.Context, userID crew.ID, month time.Month, year int, duties []duty.Duty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM duties WHERE user_id = ? AND month = ? AND year = ?`,
		string(userID), int(month), year); err != nil {
		return fmt.Errorf("delete duties: %w", err)
	}

	for _, d := range duties {
		flightsJSON, err := json.Marshal(d.FlightNumbers)
		if err != nil {
			return fmt.Errorf("marshal flight numbers: %w", err)
		}
		sectorStrings := make([]string, len(d.Sectors))
		for i, sec := range d.Sectors {
			sectorStrings[i] = sec.String()
		}
		sectorsJSON, err := json.Marshal(sectorStrings)
		if err != nil {
			return fmt.Errorf("marshal sectors: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO duties (
				id, user_id, date, month, year, duty_type,
				flight_numbers_json, sectors_json,
				report_minutes, debrief_minutes, cross_day,
				duty_hours, rest_hours, source, pair_id,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, string(d.UserID), d.Date.String(), int(month), year, string(d.Type),
			string(flightsJSON), string(sectorsJSON),
			d.ReportTime.Minutes, d.DebriefTime.Minutes, d.CrossDay,
			d.DutyHours.String(), d.RestHours.String(), string(d.Source), d.PairID,
			d.CreatedAt.UTC().Format(time.RFC3339), d.UpdatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert duty %s: %w", d.Date, err)
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDuty(row rowScanner) (duty.Duty, error) {
	var d duty.Duty
	var userID, dateStr, dutyType, flightsJSON, sectorsJSON string
	var reportMinutes, debriefMinutes int
	var dutyHours, restHours, source, pairID string
	var createdAt, updatedAt string

	if err := row.Scan(&d.ID, &userID, &dateStr, &dutyType, &flightsJSON, &sectorsJSON,
		&reportMinutes, &debriefMinutes, &d.CrossDay, &dutyHours, &restHours,
		&source, &pairID, &createdAt, &updatedAt); err != nil {
		return duty.Duty{}, fmt.Errorf("scan duty: %w", err)
	}

	d.UserID = crew.ID(userID)
	d.Type = duty.Type(dutyType)
	d.Source = duty.Source(source)
	d.PairID = pairID
	d.ReportTime = duty.ClockTime{Minutes: reportMinutes}
	d.DebriefTime = duty.ClockTime{Minutes: debriefMinutes}

	date, err := duty.ParseDate(dateStr)
	if err != nil {
		return duty.Duty{}, fmt.Errorf("scan duty date: %w", err)
	}
	d.Date = date

	if err := json.Unmarshal([]byte(flightsJSON), &d.FlightNumbers); err != nil {
		return duty.Duty{}, fmt.Errorf("unmarshal flight numbers: %w", err)
	}
	var sectorStrings []string
	if err := json.Unmarshal([]byte(sectorsJSON), &sectorStrings); err != nil {
		return duty.Duty{}, fmt.Errorf("unmarshal sectors: %w", err)
	}
	for _, s := range sectorStrings {
		sec, err := duty.ParseSector(s)
		if err != nil {
			return duty.Duty{}, fmt.Errorf("unmarshal sector %q: %w", s, err)
		}
		d.Sectors = append(d.Sectors, sec)
	}

	if d.DutyHours, err = decimal.NewFromString(dutyHours); err != nil {
		return duty.Duty{}, fmt.Errorf("scan duty hours: %w", err)
	}
	if d.RestHours, err = decimal.NewFromString(restHours); err != nil {
		return duty.Duty{}, fmt.Errorf("scan rest hours: %w", err)
	}
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return d, nil
}

// =============================================================================
// MONTHLY CALCULATIONS
// =============================================================================

// ratesSnapshot is the JSON shape of the rate table pinned to a calculation.
type ratesSnapshot struct {
	Position           string `json:"position"`
	EffectiveFrom      string `json:"effective_from"`
	BasicSalary        string `json:"basic_salary"`
	HousingAllowance   string `json:"housing_allowance"`
	TransportAllowance string `json:"transport_allowance"`
	HourlyRate         string `json:"hourly_rate"`
	PerDiemRate        string `json:"per_diem_rate"`
	StandbyHours       string `json:"standby_hours"`
}

func (s *Store) UpsertMonthlyCalculation(ctx context.Context, calc payroll.MonthlyCalculation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := ratesSnapshot{
		Position:           string(calc.Rates.Position),
		EffectiveFrom:      calc.Rates.EffectiveFrom.String(),
		BasicSalary:        calc.Rates.BasicSalary.String(),
		HousingAllowance:   calc.Rates.HousingAllowance.String(),
		TransportAllowance: calc.Rates.TransportAllowance.String(),
		HourlyRate:         calc.Rates.HourlyRate.String(),
		PerDiemRate:        calc.Rates.PerDiemRate.String(),
		StandbyHours:       calc.Rates.StandbyHours.String(),
	}
	ratesJSON, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal rates snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO monthly_calculations (
			id, user_id, month, year, rates_json,
			fixed_pay, flight_pay, per_diem_pay, standby_pay, total_pay,
			total_duty_hours, flight_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, month, year) DO UPDATE SET
			rates_json = excluded.rates_json,
			fixed_pay = excluded.fixed_pay,
			flight_pay = excluded.flight_pay,
			per_diem_pay = excluded.per_diem_pay,
			standby_pay = excluded.standby_pay,
			total_pay = excluded.total_pay,
			total_duty_hours = excluded.total_duty_hours,
			flight_count = excluded.flight_count,
			updated_at = excluded.updated_at`,
		calc.ID, string(calc.UserID), int(calc.Month), calc.Year, string(ratesJSON),
		calc.FixedPay.String(), calc.FlightPay.String(), calc.PerDiemPay.String(),
		calc.StandbyPay.String(), calc.TotalPay.String(),
		calc.TotalDutyHours.String(), calc.FlightCount,
		calc.CreatedAt.UTC().Format(time.RFC3339), calc.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert calculation: %w", err)
	}
	return nil
}

const calculationColumns = `id, user_id, month, year, rates_json,
	fixed_pay, flight_pay, per_diem_pay, standby_pay, total_pay,
	total_duty_hours, flight_count, created_at, updated_at`

func (s *Store) GetMonthlyCalculation(ctx context.Context, userID crew.ID, month time.Month, year int) (payroll.MonthlyCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+calculationColumns+`
		FROM monthly_calculations
		WHERE user_id = ? AND month = ? AND year = ?`,
		string(userID), int(month), year)

	c, err := scanCalculation(row)
	if err == sql.ErrNoRows {
		return payroll.MonthlyCalculation{}, fmt.Errorf("%w: %s %d/%d", payroll.ErrCalculationNotFound, userID, month, year)
	}
	return c, err
}

func (s *Store) ListAllMonthlyCalculations(ctx context.Context, userID crew.ID) ([]payroll.MonthlyCalculation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+calculationColumns+`
		FROM monthly_calculations
		WHERE user_id = ?
		ORDER BY year, month`,
		string(userID))
	if err != nil {
		return nil, fmt.Errorf("list calculations: %w", err)
	}
	defer rows.Close()

	var calcs []payroll.MonthlyCalculation
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, c)
	}
	return calcs, rows.Err()
}

func scanCalculation(row rowScanner) (payroll.MonthlyCalculation, error) {
	var c payroll.MonthlyCalculation
	var uid, ratesJSON string
	var month int
	var fixed, flight, perDiem, standby, total, hours string
	var createdAt, updatedAt string

	if err := row.Scan(&c.ID, &uid, &month, &c.Year, &ratesJSON,
		&fixed, &flight, &perDiem, &standby, &total,
		&hours, &c.FlightCount, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return payroll.MonthlyCalculation{}, err
		}
		return payroll.MonthlyCalculation{}, fmt.Errorf("scan calculation: %w", err)
	}

	var err error
	c.UserID = crew.ID(uid)
	c.Month = time.Month(month)
	if c.Rates, err = unmarshalRates(ratesJSON); err != nil {
		return payroll.MonthlyCalculation{}, err
	}
	if c.FixedPay, err = decimal.NewFromString(fixed); err != nil {
		return payroll.MonthlyCalculation{}, fmt.Errorf("scan fixed pay: %w", err)
	}
	if c.FlightPay, err = decimal.NewFromString(flight); err != nil {
		return payroll.MonthlyCalculation{}, fmt.Errorf("scan flight pay: %w", err)
	}
	if c.PerDiemPay, err = decimal.NewFromString(perDiem); err != nil {
		return payroll.MonthlyCalculation{}, fmt.Errorf("scan per-diem pay: %w", err)
	}
	if c.StandbyPay, err = decimal.NewFromString(standby); err != nil {
		return payroll.MonthlyCalculation{}, fmt.Errorf("scan standby pay: %w", err)
	}
	if c.TotalPay, err = decimal.NewFromString(total); err != nil {
		return payroll.MonthlyCalculation{}, fmt.Errorf("scan total pay: %w", err)
	}
	if c.TotalDutyHours, err = decimal.NewFromString(hours); err != nil {
		return payroll.MonthlyCalculation{}, fmt.Errorf("scan duty hours: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return c, nil
}

func unmarshalRates(ratesJSON string) (rates.Table, error) {
	var snap ratesSnapshot
	if err := json.Unmarshal([]byte(ratesJSON), &snap); err != nil {
		return rates.Table{}, fmt.Errorf("unmarshal rates snapshot: %w", err)
	}

	effective, err := duty.ParseDate(snap.EffectiveFrom)
	if err != nil {
		return rates.Table{}, fmt.Errorf("rates snapshot effective date: %w", err)
	}

	table := rates.Table{Position: crew.Position(snap.Position), EffectiveFrom: effective}
	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&table.BasicSalary, snap.BasicSalary},
		{&table.HousingAllowance, snap.HousingAllowance},
		{&table.TransportAllowance, snap.TransportAllowance},
		{&table.HourlyRate, snap.HourlyRate},
		{&table.PerDiemRate, snap.PerDiemRate},
		{&table.StandbyHours, snap.StandbyHours},
	} {
		d, err := decimal.NewFromString(field.src)
		if err != nil {
			return rates.Table{}, fmt.Errorf("rates snapshot value %q: %w", field.src, err)
		}
		*field.dst = d
	}
	return table, nil
}

// =============================================================================
// PROFILES (crew.Directory)
// =============================================================================

// CreateProfile inserts a profile, replacing any existing row with the same ID.
func (s *Store) CreateProfile(ctx context.Context, p crew.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO profiles (id, email, airline, position, nationality, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), p.Email, p.Airline, string(p.Position), p.Nationality, now, now)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *Store) Profile(ctx context.Context, id crew.ID) (crew.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p crew.Profile
	var pid, position string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, airline, position, nationality FROM profiles WHERE id = ?`,
		string(id)).Scan(&pid, &p.Email, &p.Airline, &position, &p.Nationality)
	if err == sql.ErrNoRows {
		return crew.Profile{}, fmt.Errorf("%w: %s", crew.ErrProfileNotFound, id)
	}
	if err != nil {
		return crew.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.ID = crew.ID(pid)
	p.Position = crew.Position(position)
	return p, nil
}

func (s *Store) SetPosition(ctx context.Context, id crew.ID, position crew.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET position = ?, updated_at = ? WHERE id = ?`,
		string(position), time.Now().UTC().Format(time.RFC3339), string(id))
	if err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set position: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", crew.ErrProfileNotFound, id)
	}
	return nil
}
