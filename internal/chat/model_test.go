package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_UnmarshalVariants(t *testing.T) {
	cases := []struct {
		name  string
		input string
		check func(t *testing.T, c Context)
	}{
		{
			name:  "booking",
			input: `{"type":"booking","data":{"doctorId":"doc-1","date":"2025-01-10","time":"09:00"}}`,
			check: func(t *testing.T, c Context) {
				require.NotNil(t, c.Booking)
				assert.Equal(t, "doc-1", c.Booking.DoctorID)
				assert.Nil(t, c.DoctorSearch)
			},
		},
		{
			name:  "doctor search",
			input: `{"type":"doctor_search","data":{"specialization":"Cardiology"}}`,
			check: func(t *testing.T, c Context) {
				require.NotNil(t, c.DoctorSearch)
				assert.Equal(t, "Cardiology", c.DoctorSearch.Specialization)
			},
		},
		{
			name:  "appointment info without data",
			input: `{"type":"appointment_info"}`,
			check: func(t *testing.T, c Context) {
				assert.Equal(t, ContextAppointmentInfo, c.Type)
				assert.Nil(t, c.AppointmentInfo)
			},
		},
		{
			name:  "general",
			input: `{"type":"general","data":null}`,
			check: func(t *testing.T, c Context) {
				assert.Equal(t, ContextGeneral, c.Type)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var c Context
			require.NoError(t, json.Unmarshal([]byte(tc.input), &c))
			tc.check(t, c)
		})
	}
}

func TestContext_UnmarshalRejects(t *testing.T) {
	for _, input := range []string{
		`{"type":"billing"}`,
		`{}`,
		`{"type":"booking","data":{"doctor":"x"}}`,
		`{"type":"general","data":{"anything":1}}`,
	} {
		var c Context
		err := json.Unmarshal([]byte(input), &c)
		assert.ErrorIs(t, err, ErrInvalidContext, input)
	}
}

func TestContext_MarshalRoundTripsWireShape(t *testing.T) {
	c := Context{Type: ContextBooking, Booking: &BookingContext{DoctorID: "doc-1"}}
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"booking","data":{"doctorId":"doc-1"}}`, string(data))

	data, err = json.Marshal(Context{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"general"}`, string(data))

	_, err = json.Marshal(Context{Type: "billing"})
	assert.Error(t, err)
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ContextGeneral, TypeOf(nil))
	assert.Equal(t, ContextDoctorSearch, TypeOf(&Context{Type: ContextDoctorSearch}))
}
