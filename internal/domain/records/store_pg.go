package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/db"
)

// PGStore implements Store on Postgres. Change notifications for its writes
// come from the portal_changes triggers, not from the store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, s.pool)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const profileCols = `id::text, email, name, avatar_url, role, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.AvatarURL, &p.Role, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (s *PGStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	p, err := scanProfile(s.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

const patientCols = `id::text, profile_id::text, name, date_of_birth::text, gender, contact_number,
	email, address, medical_history, assigned_doctor_id::text, status,
	COALESCE(appointment_date::text, ''), condition, needs_scan, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.ProfileID, &p.Name, &p.DateOfBirth, &p.Gender, &p.ContactNumber,
		&p.Email, &p.Address, &p.MedicalHistory, &p.AssignedDoctorID, &p.Status,
		&p.AppointmentDate, &p.Condition, &p.NeedsScan, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (s *PGStore) ListPatients(ctx context.Context, q Query) ([]*Patient, error) {
	if err := q.Validate(Patients); err != nil {
		return nil, err
	}
	where, args := q.where("", 1)
	tail, tailArgs := q.orderLimit("", len(args)+1)
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients`+where+tail, append(args, tailArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (s *PGStore) CountPatients(ctx context.Context, q Query) (int, error) {
	if err := q.Validate(Patients); err != nil {
		return 0, err
	}
	where, args := q.where("", 1)
	var total int
	err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total)
	return total, err
}

func (s *PGStore) GetPatient(ctx context.Context, id string) (*Patient, error) {
	p, err := scanPatient(s.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *PGStore) RegisterPatient(ctx context.Context, p *Patient, reg *PatientRegistration) error {
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		p.ID = uuid.NewString()
		err := s.conn(ctx).QueryRow(ctx, `
			INSERT INTO patients (id, profile_id, name, date_of_birth, gender, contact_number, email,
				address, medical_history, assigned_doctor_id, status, appointment_date, condition, needs_scan)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12, '')::date,$13,$14)
			RETURNING created_at, updated_at`,
			p.ID, p.ProfileID, p.Name, p.DateOfBirth, p.Gender, p.ContactNumber, p.Email,
			p.Address, p.MedicalHistory, p.AssignedDoctorID, p.Status, p.AppointmentDate, p.Condition, p.NeedsScan,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert patient: %w", err)
		}

		reg.ID = uuid.NewString()
		reg.PatientID = p.ID
		err = s.conn(ctx).QueryRow(ctx, `
			INSERT INTO patient_registrations (id, patient_id, registered_by, notes)
			VALUES ($1,$2,$3,$4)
			RETURNING created_at`,
			reg.ID, reg.PatientID, reg.RegisteredBy, reg.Notes,
		).Scan(&reg.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
}

const apptCols = `id::text, patient_id::text, doctor_id::text, patient_name, appointment_date::text,
	appointment_time, type, status, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.PatientName, &a.AppointmentDate,
		&a.AppointmentTime, &a.Type, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (s *PGStore) ListAppointments(ctx context.Context, q Query) ([]*Appointment, error) {
	if err := q.Validate(Appointments); err != nil {
		return nil, err
	}
	where, args := q.where("", 1)
	tail, tailArgs := q.orderLimit("", len(args)+1)
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+apptCols+` FROM appointments`+where+tail, append(args, tailArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const scanCols = `s.id::text, s.patient_id::text, s.radiologist_id::text, s.image_url, s.scan_date::text,
	s.scan_type, s.notes, s.ai_processed, s.created_at, s.updated_at, p.name, p.condition`

func scanMriScan(row pgx.Row) (*MriScan, error) {
	var m MriScan
	var name, condition *string
	err := row.Scan(&m.ID, &m.PatientID, &m.RadiologistID, &m.ImageURL, &m.ScanDate,
		&m.ScanType, &m.Notes, &m.AIProcessed, &m.CreatedAt, &m.UpdatedAt, &name, &condition)
	if err != nil {
		return nil, err
	}
	if name != nil {
		m.Patient = &PatientSummary{Name: *name}
		if condition != nil {
			m.Patient.Condition = *condition
		}
	}
	return &m, nil
}

func (s *PGStore) ListScans(ctx context.Context, q Query) ([]*MriScan, error) {
	if err := q.Validate(MriScans); err != nil {
		return nil, err
	}
	where, args := q.where("s.", 1)
	tail, tailArgs := q.orderLimit("s.", len(args)+1)
	rows, err := s.conn(ctx).Query(ctx, `SELECT `+scanCols+`
		FROM mri_scans s LEFT JOIN patients p ON p.id = s.patient_id`+where+tail, append(args, tailArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*MriScan
	for rows.Next() {
		m, err := scanMriScan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *PGStore) GetScan(ctx context.Context, id string) (*MriScan, error) {
	m, err := scanMriScan(s.conn(ctx).QueryRow(ctx, `SELECT `+scanCols+`
		FROM mri_scans s LEFT JOIN patients p ON p.id = s.patient_id WHERE s.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (s *PGStore) CreateScan(ctx context.Context, m *MriScan) error {
	m.ID = uuid.NewString()
	return s.conn(ctx).QueryRow(ctx, `
		INSERT INTO mri_scans (id, patient_id, radiologist_id, image_url, scan_date, scan_type, notes, ai_processed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.RadiologistID, m.ImageURL, m.ScanDate, m.ScanType, m.Notes, m.AIProcessed,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

const resultCols = `id::text, mri_scan_id::text, patient_id::text, diagnosis, confidence_score,
	areas_of_concern, recommendations, raw_analysis, created_at, updated_at`

func scanResult(row pgx.Row) (*AiResult, error) {
	var r AiResult
	err := row.Scan(&r.ID, &r.MriScanID, &r.PatientID, &r.Diagnosis, &r.ConfidenceScore,
		&r.AreasOfConcern, &r.Recommendations, &r.RawAnalysis, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

func (s *PGStore) LatestResult(ctx context.Context, scanID string) (*AiResult, error) {
	r, err := scanResult(s.conn(ctx).QueryRow(ctx, `SELECT `+resultCols+`
		FROM ai_results WHERE mri_scan_id = $1 ORDER BY created_at DESC LIMIT 1`, scanID))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *PGStore) SaveAnalysis(ctx context.Context, r *AiResult) error {
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		r.ID = uuid.NewString()
		err := s.conn(ctx).QueryRow(ctx, `
			INSERT INTO ai_results (id, mri_scan_id, patient_id, diagnosis, confidence_score,
				areas_of_concern, recommendations, raw_analysis)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING created_at, updated_at`,
			r.ID, r.MriScanID, r.PatientID, r.Diagnosis, r.ConfidenceScore,
			r.AreasOfConcern, r.Recommendations, r.RawAnalysis,
		).Scan(&r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert ai result: %w", err)
		}

		tag, err := s.conn(ctx).Exec(ctx,
			`UPDATE mri_scans SET ai_processed = TRUE, updated_at = NOW() WHERE id = $1`, r.MriScanID)
		if err != nil {
			return fmt.Errorf("flag scan processed: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
