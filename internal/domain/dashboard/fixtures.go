package dashboard

import (
	"github.com/Fransi777/quanta-medix-nexus/internal/domain/records"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
)

var fixturePatients = []records.Patient{
	{
		ID:              "demo-patient-1",
		Name:            "John Michael Smith",
		Condition:       "Chronic severe headaches with neurological symptoms",
		Status:          records.PatientScheduled,
		AppointmentDate: "2024-06-03",
		NeedsScan:       true,
	},
	{
		ID:              "demo-patient-2",
		Name:            "Sarah Elizabeth Davis",
		Condition:       "Chronic lower back pain with radiculopathy",
		Status:          records.PatientInProgress,
		AppointmentDate: "2024-06-02",
		NeedsScan:       true,
	},
	{
		ID:              "demo-patient-3",
		Name:            "Michael Robert Johnson",
		Condition:       "Sports-related knee injury with suspected meniscal tear",
		Status:          records.PatientCompleted,
		AppointmentDate: "2024-05-28",
		NeedsScan:       true,
	},
}

var fixtureAppointments = []records.Appointment{
	{
		ID:              "demo-appointment-1",
		PatientID:       "demo-patient-1",
		PatientName:     "John Michael Smith",
		AppointmentDate: "2024-06-03",
		AppointmentTime: "09:00",
		Type:            "Neurology Consultation",
		Status:          records.AppointmentScheduled,
		Notes:           "Post-MRI consultation to discuss brain scan findings and treatment plan",
	},
	{
		ID:              "demo-appointment-2",
		PatientID:       "demo-patient-2",
		PatientName:     "Sarah Elizabeth Davis",
		AppointmentDate: "2024-06-02",
		AppointmentTime: "14:30",
		Type:            "Orthopedic Follow-up",
		Status:          records.AppointmentInProgress,
		Notes:           "Review lumbar MRI results and discuss treatment options",
	},
}

// Fixture returns the static dashboard for a role. Fixture lists are not
// date filtered; they are shown as-is.
func Fixture(role auth.Role) *Result {
	res := &Result{
		Role:          role,
		RecentItems:   make([]PatientSummary, 0, len(fixturePatients)),
		UpcomingItems: make([]AppointmentSummary, 0, len(fixtureAppointments)),
		Stats:         StatCards(role),
	}
	for i := range fixturePatients {
		if len(res.RecentItems) == PageSize {
			break
		}
		res.RecentItems = append(res.RecentItems, summarizePatient(&fixturePatients[i]))
	}
	for i := range fixtureAppointments {
		if len(res.UpcomingItems) == PageSize {
			break
		}
		res.UpcomingItems = append(res.UpcomingItems, summarizeAppointment(&fixtureAppointments[i]))
	}
	return res
}
