package rates_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crewpay/crew"
	"github.com/warp/crewpay/duty"
	"github.com/warp/crewpay/rates"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// RESOLUTION RULE
// =============================================================================

func TestResolveAt_MostRecentApplicable(t *testing.T) {
	// GIVEN: Two CCM tables, effective 2020-01-01 and 2025-06-01
	// WHEN: Resolving a date after the second revision
	// THEN: The later table wins

	r := rates.NewBuiltinResolver()

	table, err := r.ResolveAt(crew.PositionCCM, duty.NewDate(2025, time.July, 10))
	require.NoError(t, err)
	assert.Equal(t, duty.NewDate(2025, time.June, 1), table.EffectiveFrom)
	assert.True(t, table.HourlyRate.Equal(dec("55.00")))
}

func TestResolveAt_EarlierDateGetsEarlierTable(t *testing.T) {
	// GIVEN: The builtin tables
	// WHEN: Resolving a date before the mid-2025 revision
	// THEN: The 2020 table applies

	r := rates.NewBuiltinResolver()

	table, err := r.ResolveAt(crew.PositionCCM, duty.NewDate(2025, time.May, 31))
	require.NoError(t, err)
	assert.Equal(t, duty.NewDate(2020, time.January, 1), table.EffectiveFrom)
	assert.True(t, table.HourlyRate.Equal(dec("50.90")))
}

func TestResolveAt_EffectiveDateItselfApplies(t *testing.T) {
	// GIVEN: A table effective 2025-06-01
	// WHEN: Resolving exactly that date
	// THEN: The new table already applies

	r := rates.NewBuiltinResolver()

	table, err := r.ResolveAt(crew.PositionSCCM, duty.NewDate(2025, time.June, 1))
	require.NoError(t, err)
	assert.True(t, table.HourlyRate.Equal(dec("66.00")))
}

func TestResolveAt_NoCoverage_ReturnsError(t *testing.T) {
	// GIVEN: No table effective before 2020
	// WHEN: Resolving a 2019 date
	// THEN: NoRateTableError, never a silent default

	r := rates.NewBuiltinResolver()

	_, err := r.ResolveAt(crew.PositionCCM, duty.NewDate(2019, time.December, 31))
	require.Error(t, err)
	assert.True(t, errors.Is(err, rates.ErrNoRateTable))

	var nre *rates.NoRateTableError
	require.True(t, errors.As(err, &nre))
	assert.Equal(t, crew.PositionCCM, nre.Position)
}

func TestResolveAt_UnknownPosition_ReturnsError(t *testing.T) {
	r := rates.NewBuiltinResolver()

	_, err := r.ResolveAt(crew.Position("captain"), duty.NewDate(2025, time.January, 1))
	assert.True(t, errors.Is(err, rates.ErrNoRateTable))
}

// =============================================================================
// MONTH PINNING
// =============================================================================

func TestResolveMonth_PinsToFirstOfMonth(t *testing.T) {
	// GIVEN: A rate revision effective 2025-06-01
	// WHEN: Resolving May and June 2025
	// THEN: May stays on the 2020 table; June picks up the revision

	r := rates.NewBuiltinResolver()

	may, err := r.ResolveMonth(crew.PositionCCM, time.May, 2025)
	require.NoError(t, err)
	assert.True(t, may.HourlyRate.Equal(dec("50.90")))

	june, err := r.ResolveMonth(crew.PositionCCM, time.June, 2025)
	require.NoError(t, err)
	assert.True(t, june.HourlyRate.Equal(dec("55.00")))
}

func TestResolveMonth_PositionsDiffer(t *testing.T) {
	r := rates.NewBuiltinResolver()

	ccm, err := r.ResolveMonth(crew.PositionCCM, time.January, 2025)
	require.NoError(t, err)
	sccm, err := r.ResolveMonth(crew.PositionSCCM, time.January, 2025)
	require.NoError(t, err)

	assert.False(t, ccm.HourlyRate.Equal(sccm.HourlyRate))
	assert.False(t, ccm.BasicSalary.Equal(sccm.BasicSalary))
}
