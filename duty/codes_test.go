package duty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/crewpay/duty"
)

func TestTypeForCode_Vocabulary(t *testing.T) {
	cases := []struct {
		code string
		want duty.Type
	}{
		{"ASBY", duty.TypeStandbyAirport},
		{"SBY", duty.TypeStandbyHome},
		{"HSBY", duty.TypeStandbyHome},
		{"REC", duty.TypeRecurrentTraining},
		{"rec2", duty.TypeRecurrentTraining}, // numbered module, case-insensitive
		{"SEP1", duty.TypeRecurrentTraining},
		{"BP", duty.TypeBusinessPromotion},
		{"OFF", duty.TypeDayOff},
		{"x", duty.TypeDayOff},
		{"AL", duty.TypeAnnualLeave},
		{" LVE ", duty.TypeAnnualLeave},
	}

	for _, tc := range cases {
		got, ok := duty.TypeForCode(tc.code)
		assert.True(t, ok, "code %q", tc.code)
		assert.Equal(t, tc.want, got, "code %q", tc.code)
	}
}

func TestTypeForCode_UnknownCode(t *testing.T) {
	for _, code := range []string{"", "FLY", "ZZZ", "B"} {
		_, ok := duty.TypeForCode(code)
		assert.False(t, ok, "code %q", code)
	}
}

func TestCheckInvariants(t *testing.T) {
	// Flight-bearing duties need flights and a positive duration;
	// non-flight duties must not carry flights.
	bad := duty.Duty{Type: duty.TypeTurnaround}
	assert.ErrorIs(t, bad.CheckInvariants(), duty.ErrInvariantViolation)

	bad = duty.Duty{Type: duty.TypeDayOff, FlightNumbers: []string{"FZ123"}}
	assert.ErrorIs(t, bad.CheckInvariants(), duty.ErrInvariantViolation)

	good := duty.Duty{
		Type:          duty.TypeLayover,
		FlightNumbers: []string{"FZ569"},
		Sectors:       []duty.Sector{{Origin: "DXB", Destination: "PRG"}},
		ReportTime:    duty.NewClockTime(8, 0),
		DebriefTime:   duty.NewClockTime(16, 0),
	}
	assert.NoError(t, good.CheckInvariants())
}
