// Package records is the persistence boundary for the portal's clinical
// collections. Handlers and resolvers read and write through Store; the
// Postgres and in-memory implementations share the Query model.
package records

import (
	"time"
)

// Patient statuses.
const (
	PatientScheduled  = "Scheduled"
	PatientInProgress = "In Progress"
	PatientCompleted  = "Completed"
	PatientWaiting    = "Waiting"
)

// Appointment statuses.
const (
	AppointmentScheduled  = "Scheduled"
	AppointmentInProgress = "In Progress"
	AppointmentCompleted  = "Completed"
	AppointmentCancelled  = "Cancelled"
)

var validPatientStatuses = map[string]bool{
	PatientScheduled: true, PatientInProgress: true, PatientCompleted: true, PatientWaiting: true,
}

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Patient struct {
	ID               string    `json:"id"`
	ProfileID        *string   `json:"profile_id,omitempty"`
	Name             string    `json:"name" validate:"required"`
	DateOfBirth      string    `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender           string    `json:"gender" validate:"required"`
	ContactNumber    string    `json:"contact_number" validate:"required"`
	Email            string    `json:"email" validate:"required,email"`
	Address          string    `json:"address" validate:"required"`
	MedicalHistory   string    `json:"medical_history"`
	AssignedDoctorID *string   `json:"assigned_doctor_id,omitempty"`
	Status           string    `json:"status"`
	AppointmentDate  string    `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	Condition        string    `json:"condition" validate:"required"`
	NeedsScan        bool      `json:"needs_scan"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Appointment struct {
	ID              string    `json:"id"`
	PatientID       string    `json:"patient_id"`
	DoctorID        *string   `json:"doctor_id,omitempty"`
	PatientName     string    `json:"patient_name"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PatientSummary is the slice of a patient joined onto scan listings.
type PatientSummary struct {
	Name      string `json:"name"`
	Condition string `json:"condition"`
}

type MriScan struct {
	ID            string          `json:"id"`
	PatientID     string          `json:"patient_id"`
	RadiologistID *string         `json:"radiologist_id,omitempty"`
	ImageURL      string          `json:"image_url"`
	ScanDate      string          `json:"scan_date"`
	ScanType      string          `json:"scan_type"`
	Notes         string          `json:"notes"`
	AIProcessed   bool            `json:"ai_processed"`
	Patient       *PatientSummary `json:"patients,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AiResult is one persisted scan analysis.
type AiResult struct {
	ID              string    `json:"id"`
	MriScanID       string    `json:"mri_scan_id"`
	PatientID       string    `json:"patient_id"`
	Diagnosis       string    `json:"diagnosis"`
	ConfidenceScore float64   `json:"confidence_score"`
	AreasOfConcern  string    `json:"areas_of_concern"`
	Recommendations string    `json:"recommendations"`
	RawAnalysis     string    `json:"raw_analysis,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type PatientRegistration struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	RegisteredBy *string   `json:"registered_by,omitempty"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditLog mirrors the audit_logs table. Nothing writes audit entries yet.
type AuditLog struct {
	ID        string                 `json:"id"`
	UserID    *string                `json:"user_id,omitempty"`
	Action    string                 `json:"action"`
	TableName string                 `json:"table_name"`
	RecordID  string                 `json:"record_id"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
