package model

import "time"

// Appointment is one bookable slot as returned by the portal adapter,
// normalized from the NewPortal terms schema. All fields are populated
// before the record is handed to the identity store.
type Appointment struct {
	Date       time.Time `json:"date_time"`
	ClinicID   string    `json:"clinic_id"`
	ClinicName string    `json:"clinic_name"`
	DoctorName string    `json:"doctor_name"`
	ServiceID  string    `json:"service_id"`
}

// TemplateContext exposes the appointment fields under the placeholder
// names message templates use.
func (a Appointment) TemplateContext() map[string]string {
	return map[string]string{
		"date_time":   a.Date.Format("2006-01-02 15:04"),
		"clinic_id":   a.ClinicID,
		"clinic_name": a.ClinicName,
		"doctor_name": a.DoctorName,
		"service_id":  a.ServiceID,
	}
}
