package records

import (
	"context"
)

// Store is the portal's persistence boundary. Get methods return ErrNotFound
// when no row matches.
type Store interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)

	ListPatients(ctx context.Context, q Query) ([]*Patient, error)
	CountPatients(ctx context.Context, q Query) (int, error)
	GetPatient(ctx context.Context, id string) (*Patient, error)
	// RegisterPatient inserts the patient and its registration row together.
	RegisterPatient(ctx context.Context, p *Patient, reg *PatientRegistration) error

	ListAppointments(ctx context.Context, q Query) ([]*Appointment, error)

	ListScans(ctx context.Context, q Query) ([]*MriScan, error)
	GetScan(ctx context.Context, id string) (*MriScan, error)
	CreateScan(ctx context.Context, s *MriScan) error

	// LatestResult returns the newest analysis stored for a scan.
	LatestResult(ctx context.Context, scanID string) (*AiResult, error)
	// SaveAnalysis inserts the result and marks its scan processed as one unit.
	SaveAnalysis(ctx context.Context, r *AiResult) error
}
