package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

func TestParseSearchKey(t *testing.T) {
	filter, err := ParseSearchKey("1*7409*-1*-1")
	require.NoError(t, err)
	assert.Equal(t, 1, filter.CityID)
	assert.Equal(t, 7409, filter.ServiceID)
	assert.Empty(t, filter.ClinicIDs)
	assert.Empty(t, filter.DoctorIDs)
}

func TestParseSearchKey_IDLists(t *testing.T) {
	filter, err := ParseSearchKey("3*100*11,12*-1,44")
	require.NoError(t, err)
	assert.Equal(t, []int{11, 12}, filter.ClinicIDs)
	assert.Equal(t, []int{44}, filter.DoctorIDs, "-1 entries are dropped")
}

func TestParseSearchKey_TrimsWhitespace(t *testing.T) {
	_, err := ParseSearchKey("  1*2*-1*-1\n")
	require.NoError(t, err)
}

func TestParseSearchKey_Malformed(t *testing.T) {
	for _, key := range []string{"", "1*2*3", "1*2*3*4*5", "a*2*-1*-1", "1*2*x*-1"} {
		_, err := ParseSearchKey(key)
		require.Error(t, err, "key %q", key)
		assert.True(t, apperrors.IsConfig(err), "key %q", key)
	}
}

func TestLocator_EnabledDefaultsToTrue(t *testing.T) {
	assert.True(t, Locator{Name: "A"}.IsEnabled())

	off := false
	assert.False(t, Locator{Name: "A", Enabled: &off}.IsEnabled())
}

func TestLocator_TemplateContext(t *testing.T) {
	loc := Locator{Name: "ClinicA", Extra: map[string]string{"label": "cardiology"}}
	ctx := loc.TemplateContext()
	assert.Equal(t, "ClinicA", ctx["name"])
	assert.Equal(t, "cardiology", ctx["label"])
}

func TestAppointment_TemplateContext(t *testing.T) {
	appt := Appointment{
		Date:       time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		ClinicID:   "77",
		ClinicName: "Downtown Clinic",
		DoctorName: "Dr. Smith",
		ServiceID:  "2",
	}
	ctx := appt.TemplateContext()
	assert.Equal(t, "2025-03-01 10:00", ctx["date_time"])
	assert.Equal(t, "Dr. Smith", ctx["doctor_name"])
	assert.Equal(t, "Downtown Clinic", ctx["clinic_name"])
}
