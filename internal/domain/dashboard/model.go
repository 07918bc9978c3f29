// Package dashboard resolves the per-role dashboard: recent patients,
// upcoming appointments and stat cards, with fixture fallbacks and live
// re-resolution on record changes.
package dashboard

import (
	"time"

	"github.com/Fransi777/quanta-medix-nexus/internal/domain/records"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/notify"
)

// PageSize bounds both dashboard lists.
const PageSize = 5

type PatientSummary struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Condition       string `json:"condition"`
	Status          string `json:"status"`
	AppointmentDate string `json:"appointmentDate"`
	DisplayDate     string `json:"displayDate"`
}

type AppointmentSummary struct {
	ID          string `json:"id"`
	PatientName string `json:"patientName"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	DisplayDate string `json:"displayDate"`
	DisplayTime string `json:"displayTime"`
}

type StatCard struct {
	Title       string `json:"title"`
	Value       string `json:"value"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Source names the tier that produced a Result.
type Source string

const (
	SourceLive     Source = "live"
	SourceFixture  Source = "fixture"
	SourceFallback Source = "fallback"
)

type Result struct {
	Role          auth.Role            `json:"role"`
	RecentItems   []PatientSummary     `json:"recentItems"`
	UpcomingItems []AppointmentSummary `json:"upcomingItems"`
	Stats         []StatCard           `json:"stats"`
	Source        Source               `json:"source"`
	Reason        string               `json:"reason,omitempty"`
	Notification  *notify.Notification `json:"notification,omitempty"`
	ResolvedAt    time.Time            `json:"resolvedAt"`
}

func summarizePatient(p *records.Patient) PatientSummary {
	return PatientSummary{
		ID:              p.ID,
		Name:            p.Name,
		Condition:       p.Condition,
		Status:          p.Status,
		AppointmentDate: p.AppointmentDate,
		DisplayDate:     FormatDate(p.AppointmentDate),
	}
}

func summarizeAppointment(a *records.Appointment) AppointmentSummary {
	return AppointmentSummary{
		ID:          a.ID,
		PatientName: a.PatientName,
		Date:        a.AppointmentDate,
		Time:        a.AppointmentTime,
		Type:        a.Type,
		Status:      a.Status,
		DisplayDate: FormatDate(a.AppointmentDate),
		DisplayTime: FormatTime(a.AppointmentTime),
	}
}

var statCards = map[auth.Role][]StatCard{
	auth.RoleAdmin: {
		{Title: "Total Users", Value: "254", Description: "Registered accounts", Icon: "users"},
		{Title: "Active Sessions", Value: "42", Description: "Signed in now", Icon: "activity"},
		{Title: "System Logs", Value: "1,245", Description: "Entries this week", Icon: "file-text"},
		{Title: "Analytics Score", Value: "98%", Description: "System health", Icon: "bar-chart"},
	},
	auth.RoleDoctor: {
		{Title: "Active Patients", Value: "28", Description: "Under your care", Icon: "users"},
		{Title: "Today's Appointments", Value: "8", Description: "Scheduled today", Icon: "calendar"},
		{Title: "Pending Reports", Value: "5", Description: "Awaiting review", Icon: "file-text"},
		{Title: "New Messages", Value: "12", Description: "Unread", Icon: "message-square"},
	},
	auth.RoleSpecialist: {
		{Title: "Referrals", Value: "15", Description: "Open referrals", Icon: "file-text"},
		{Title: "Consultations", Value: "7", Description: "This week", Icon: "stethoscope"},
		{Title: "Recommendations", Value: "22", Description: "Issued", Icon: "clipboard"},
		{Title: "New Messages", Value: "9", Description: "Unread", Icon: "message-square"},
	},
	auth.RoleRadiologist: {
		{Title: "Pending Scans", Value: "8", Description: "Awaiting analysis", Icon: "brain"},
		{Title: "Completed Analysis", Value: "42", Description: "This month", Icon: "activity"},
		{Title: "AI Diagnoses", Value: "36", Description: "Generated", Icon: "cpu"},
		{Title: "New Messages", Value: "5", Description: "Unread", Icon: "message-square"},
	},
	auth.RoleReceptionist: {
		{Title: "Appointments Today", Value: "24", Description: "Across all clinicians", Icon: "calendar"},
		{Title: "Registered Patients", Value: "156", Description: "Total", Icon: "users"},
		{Title: "New Registrations", Value: "3", Description: "Today", Icon: "user-plus"},
		{Title: "Messages", Value: "15", Description: "Unread", Icon: "message-square"},
	},
	auth.RolePatient: {
		{Title: "Upcoming Appointments", Value: "2", Description: "Scheduled", Icon: "calendar"},
		{Title: "Medical Reports", Value: "8", Description: "Available", Icon: "file-text"},
		{Title: "Prescriptions", Value: "3", Description: "Active", Icon: "pill"},
		{Title: "Messages", Value: "4", Description: "Unread", Icon: "message-square"},
	},
}

// StatCards returns the stat card set for a role.
func StatCards(role auth.Role) []StatCard {
	cards := statCards[role]
	out := make([]StatCard, len(cards))
	copy(out, cards)
	return out
}
