package emergency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIncidentValidatesTechnicianNumber(t *testing.T) {
	cases := []struct {
		name   string
		number string
		valid  bool
	}{
		{"e164 us", "+15551234567", true},
		{"e164 short country", "+4930123456", true},
		{"missing", "", false},
		{"no plus", "15551234567", false},
		{"letters", "+1555CALLNOW", false},
		{"leading zero country", "+05551234567", false},
		{"too short", "+12345", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inc, err := NewIncident(TriggerRequest{TechnicianNumber: tc.number})
			if !tc.valid {
				require.ErrorIs(t, err, ErrInvalidNumber)
				require.Nil(t, inc)
				return
			}
			require.NoError(t, err)
			require.Equal(t, PhaseNotifyingTechnician, inc.Phase)
			require.NotEmpty(t, inc.ID)
			require.False(t, inc.CreatedAt.IsZero())
		})
	}
}

func TestIncidentPhaseNeverMovesBackward(t *testing.T) {
	inc := &Incident{Phase: PhaseBridging}
	inc.advance(PhaseCustomerWaiting)
	require.Equal(t, PhaseBridging, inc.Phase)

	inc.advance(PhaseConcluded)
	require.Equal(t, PhaseConcluded, inc.Phase)
}
