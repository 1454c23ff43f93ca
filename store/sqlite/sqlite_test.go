package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/payroll"
	"github.com/warp/crewpay/rates"
	"github.com/warp/crewpay/store/sqlite"
)

const testUser = crew.ID("crew-88012")

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleDuties() []duty.Duty {
	now := time.Now().UTC().Truncate(time.Second)
	return []duty.Duty{
		{
			ID:            "d1",
			UserID:        testUser,
			Date:          duty.NewDate(2025, time.January, 10),
			Type:          duty.TypeLayover,
			FlightNumbers: []string{"FZ569"},
			Sectors:       []duty.Sector{{Origin: "DXB", Destination: "CMB"}},
			ReportTime:    duty.NewClockTime(8, 0),
			DebriefTime:   duty.NewClockTime(14, 0),
			DutyHours:     decimal.RequireFromString("6"),
			RestHours:     decimal.RequireFromString("40.25"),
			Source:        duty.SourceUpload,
			PairID:        "pair-1",
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		{
			ID:        "d2",
			UserID:    testUser,
			Date:      duty.NewDate(2025, time.January, 20),
			Type:      duty.TypeStandbyAirport,
			DutyHours: decimal.Zero,
			RestHours: decimal.Zero,
			Source:    duty.SourceManual,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// =============================================================================
// DUTIES
// =============================================================================

func TestReplaceDuties_RoundTrip(t *testing.T) {
	// GIVEN: A month's duty set
	// WHEN: Replacing then listing
	// THEN: Every field survives the trip, ordered by date

	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceDuties(ctx, testUser, time.January, 2025, sampleDuties()))

	got, err := store.ListDuties(ctx, testUser, time.January, 2025)
	require.NoError(t, err)
	require.Len(t, got, 2)

	d := got[0]
	assert.Equal(t, "d1", d.ID)
	assert.Equal(t, testUser, d.UserID)
	assert.Equal(t, duty.NewDate(2025, time.January, 10), d.Date)
	assert.Equal(t, duty.TypeLayover, d.Type)
	assert.Equal(t, []string{"FZ569"}, d.FlightNumbers)
	require.Len(t, d.Sectors, 1)
	assert.Equal(t, duty.Sector{Origin: "DXB", Destination: "CMB"}, d.Sectors[0])
	assert.Equal(t, duty.NewClockTime(8, 0), d.ReportTime)
	assert.Equal(t, duty.NewClockTime(14, 0), d.DebriefTime)
	assert.True(t, d.RestHours.Equal(decimal.RequireFromString("40.25")))
	assert.Equal(t, duty.SourceUpload, d.Source)
	assert.Equal(t, "pair-1", d.PairID)

	assert.Equal(t, "d2", got[1].ID)
	assert.Empty(t, got[1].FlightNumbers)
}

func TestReplaceDuties_IsWholesale(t *testing.T) {
	// Replacement swaps the whole month: nothing from the old set survives.
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceDuties(ctx, testUser, time.January, 2025, sampleDuties()))

	replacement := []duty.Duty{{
		ID:     "d3",
		UserID: testUser,
		Date:   duty.NewDate(2025, time.January, 5),
		Type:   duty.TypeDayOff,
		Source: duty.SourceUpload,
	}}
	require.NoError(t, store.ReplaceDuties(ctx, testUser, time.January, 2025, replacement))

	got, err := store.ListDuties(ctx, testUser, time.January, 2025)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d3", got[0].ID)
}

func TestReplaceDuties_ScopedToUserAndMonth(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	other := crew.ID("crew-0001")

	require.NoError(t, store.ReplaceDuties(ctx, testUser, time.January, 2025, sampleDuties()))
	require.NoError(t, store.ReplaceDuties(ctx, other, time.January, 2025, []duty.Duty{{
		ID: "other", UserID: other, Date: duty.NewDate(2025, time.January, 3), Type: duty.TypeDayOff, Source: duty.SourceUpload,
	}}))

	// Replacing February leaves January alone.
	require.NoError(t, store.ReplaceDuties(ctx, testUser, time.February, 2025, nil))

	jan, err := store.ListDuties(ctx, testUser, time.January, 2025)
	require.NoError(t, err)
	assert.Len(t, jan, 2)

	otherJan, err := store.ListDuties(ctx, other, time.January, 2025)
	require.NoError(t, err)
	assert.Len(t, otherJan, 1)
}

func TestListDuties_EmptyMonth(t *testing.T) {
	store := newStore(t)

	got, err := store.ListDuties(context.Background(), testUser, time.July, 2025)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// =============================================================================
// MONTHLY CALCULATIONS
// =============================================================================

func TestUpsertMonthlyCalculation_InsertThenUpdate(t *testing.T) {
	// GIVEN: A stored calculation for (user, month, year)
	// WHEN: Upserting again for the same key
	// THEN: One row remains, carrying the newer figures

	store := newStore(t)
	ctx := context.Background()

	table, err := rates.NewBuiltinResolver().ResolveMonth(crew.PositionCCM, time.January, 2025)
	require.NoError(t, err)

	first := payroll.Calculate(testUser, time.January, 2025, nil, table)
	require.NoError(t, store.UpsertMonthlyCalculation(ctx, first))

	duties := []duty.Duty{{
		ID: "sby", UserID: testUser, Date: duty.NewDate(2025, time.January, 4),
		Type: duty.TypeStandbyHome, Source: duty.SourceUpload,
	}}
	second := payroll.Calculate(testUser, time.January, 2025, duties, table)
	require.NoError(t, store.UpsertMonthlyCalculation(ctx, second))

	got, err := store.ListAllMonthlyCalculations(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].StandbyPay.IsPositive())
	assert.True(t, got[0].TotalPay.Equal(second.TotalPay))
}

func TestGetMonthlyCalculation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	table, err := rates.NewBuiltinResolver().ResolveMonth(crew.PositionCCM, time.January, 2025)
	require.NoError(t, err)
	calc := payroll.Calculate(testUser, time.January, 2025, nil, table)
	require.NoError(t, store.UpsertMonthlyCalculation(ctx, calc))

	got, err := store.GetMonthlyCalculation(ctx, testUser, time.January, 2025)
	require.NoError(t, err)
	assert.True(t, got.TotalPay.Equal(calc.TotalPay))

	_, err = store.GetMonthlyCalculation(ctx, testUser, time.February, 2025)
	assert.ErrorIs(t, err, payroll.ErrCalculationNotFound)
}

func TestListAllMonthlyCalculations_OrderedAndSnapshotted(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	resolver := rates.NewBuiltinResolver()

	for _, key := range []struct {
		month time.Month
		year  int
	}{
		{time.March, 2025}, {time.November, 2024}, {time.January, 2025},
	} {
		table, err := resolver.ResolveMonth(crew.PositionCCM, key.month, key.year)
		require.NoError(t, err)
		calc := payroll.Calculate(testUser, key.month, key.year, nil, table)
		require.NoError(t, store.UpsertMonthlyCalculation(ctx, calc))
	}

	got, err := store.ListAllMonthlyCalculations(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 2024, got[0].Year)
	assert.Equal(t, time.January, got[1].Month)
	assert.Equal(t, time.March, got[2].Month)

	// The rate snapshot survives the JSON round trip.
	assert.Equal(t, crew.PositionCCM, got[0].Rates.Position)
	assert.True(t, got[0].Rates.HourlyRate.Equal(decimal.RequireFromString("50.90")))
}

// =============================================================================
// PROFILES
// =============================================================================

func TestProfiles_CreateGetSetPosition(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	profile := crew.Profile{
		ID:          testUser,
		Email:       "crew@example.com",
		Airline:     "FZ",
		Position:    crew.PositionCCM,
		Nationality: "CZ",
	}
	require.NoError(t, store.CreateProfile(ctx, profile))

	got, err := store.Profile(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, profile, got)

	require.NoError(t, store.SetPosition(ctx, testUser, crew.PositionSCCM))

	got, err = store.Profile(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, crew.PositionSCCM, got.Position)
}

func TestProfiles_NotFound(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.Profile(ctx, crew.ID("nobody"))
	assert.ErrorIs(t, err, crew.ErrProfileNotFound)

	err = store.SetPosition(ctx, crew.ID("nobody"), crew.PositionSCCM)
	assert.ErrorIs(t, err, crew.ErrProfileNotFound)
}
