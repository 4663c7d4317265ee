package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

func TestRender_Substitution(t *testing.T) {
	out, err := Render("Slot for {name}: {date_time} with {doctor_name}",
		map[string]string{"name": "ClinicA"},
		map[string]string{"date_time": "2025-03-01 10:00", "doctor_name": "Dr. Smith"},
	)
	require.NoError(t, err)
	assert.Equal(t, "Slot for ClinicA: 2025-03-01 10:00 with Dr. Smith", out)
}

func TestRender_AppointmentOverridesLocator(t *testing.T) {
	out, err := Render("{label}",
		map[string]string{"label": "from locator"},
		map[string]string{"label": "from appointment"},
	)
	require.NoError(t, err)
	assert.Equal(t, "from appointment", out)
}

func TestRender_MissingPlaceholderIsTemplateError(t *testing.T) {
	_, err := Render("{name} {nope}", map[string]string{"name": "ClinicA"})
	require.Error(t, err)
	assert.True(t, apperrors.IsTemplate(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestRender_NoPlaceholders(t *testing.T) {
	out, err := Render("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}
