package luxmed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jwalitptl/slot-sniper/internal/model"
	apperrors "github.com/jwalitptl/slot-sniper/pkg/errors"
)

// termsResponse mirrors the portal's NewPortal terms schema, trimmed to
// the fields the sniper reads.
type termsResponse struct {
	TermsForService struct {
		TermsForDays []struct {
			Terms []term `json:"terms"`
		} `json:"termsForDays"`
	} `json:"termsForService"`
}

type term struct {
	DateTimeFrom  string `json:"dateTimeFrom"`
	ClinicID      int    `json:"clinicId"`
	ClinicGroupID int    `json:"clinicGroupId"`
	Clinic        string `json:"clinic"`
	ServiceID     int    `json:"serviceId"`
	Doctor        struct {
		ID            int    `json:"id"`
		AcademicTitle string `json:"academicTitle"`
		FirstName     string `json:"firstName"`
		LastName      string `json:"lastName"`
	} `json:"doctor"`
}

// FindTerms queries available slots for the parsed locator filter and
// returns them normalized, already restricted to the lookup horizon.
func (c *Client) FindTerms(ctx context.Context, filter model.SearchFilter, horizonDays int) ([]model.Appointment, error) {
	today := time.Now()
	dateTo := today.AddDate(0, 0, horizonDays)

	query := map[string][]string{
		"searchPlace.id":   {strconv.Itoa(filter.CityID)},
		"searchPlace.type": {"0"},
		"serviceVariantId": {strconv.Itoa(filter.ServiceID)},
		"languageId":       {"10"},
		"searchDateFrom":   {today.Format("2006-01-02")},
		"searchDateTo":     {dateTo.Format("2006-01-02")},
		"searchDatePreset": {strconv.Itoa(horizonDays)},
		"delocalized":      {"false"},
	}
	for _, id := range filter.ClinicIDs {
		query["facilitiesIds"] = append(query["facilitiesIds"], strconv.Itoa(id))
	}
	for _, id := range filter.DoctorIDs {
		query["doctorsIds"] = append(query["doctorsIds"], strconv.Itoa(id))
	}

	var resp termsResponse
	if err := c.get(ctx, termsPath, query, &resp); err != nil {
		return nil, apperrors.NewAdapter("terms query failed", err)
	}

	appointments, err := normalizeTerms(resp, filter)
	if err != nil {
		return nil, err
	}

	// The portal occasionally returns slots past the requested window.
	// The horizon is a calendar date, so a slot any time on the final
	// day is still inside it.
	filtered := appointments[:0]
	for _, appt := range appointments {
		if dayOf(appt.Date) <= dayOf(dateTo) {
			filtered = append(filtered, appt)
		}
	}
	return filtered, nil
}

// dayOf flattens a timestamp to a comparable calendar date.
func dayOf(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

func normalizeTerms(resp termsResponse, filter model.SearchFilter) ([]model.Appointment, error) {
	var appointments []model.Appointment
	for _, day := range resp.TermsForService.TermsForDays {
		for _, t := range day.Terms {
			if len(filter.DoctorIDs) > 0 && !containsID(filter.DoctorIDs, t.Doctor.ID) {
				continue
			}
			if len(filter.ClinicIDs) > 0 && !containsID(filter.ClinicIDs, t.ClinicGroupID) {
				continue
			}

			at, err := parsePortalTime(t.DateTimeFrom)
			if err != nil {
				return nil, apperrors.NewAdapter(
					fmt.Sprintf("unparseable slot time %q", t.DateTimeFrom), err)
			}

			appointments = append(appointments, model.Appointment{
				Date:       at,
				ClinicID:   strconv.Itoa(t.ClinicID),
				ClinicName: t.Clinic,
				DoctorName: doctorDisplayName(t.Doctor.AcademicTitle, t.Doctor.FirstName, t.Doctor.LastName),
				ServiceID:  strconv.Itoa(t.ServiceID),
			})
		}
	}
	return appointments, nil
}

// parsePortalTime accepts both zoned and naive ISO timestamps; the
// portal emits naive local times.
func parsePortalTime(s string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339, s); err == nil {
		return at, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.Local)
}

func doctorDisplayName(title, first, last string) string {
	if title == "" {
		return fmt.Sprintf("%s %s", first, last)
	}
	return fmt.Sprintf("%s %s %s", title, first, last)
}

func containsID(ids []int, id int) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
