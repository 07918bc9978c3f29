package records

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/blobstore"
	"github.com/Fransi777/quanta-medix-nexus/pkg/pagination"
)

var ErrValidation = errors.New("validation failed")

// RegistrationInput is the receptionist's patient registration form.
type RegistrationInput struct {
	Patient
	RegistrationNotes string `json:"registration_notes"`
}

// UploadInput describes an uploaded scan image.
type UploadInput struct {
	PatientID     string `form:"patient_id" validate:"required"`
	ScanType      string `form:"scan_type" validate:"required"`
	ScanDate      string `form:"scan_date" validate:"required,datetime=2006-01-02"`
	Notes         string `form:"notes"`
	FileName      string `validate:"required"`
	ContentType   string `validate:"required"`
	RadiologistID string
}

// ScanListing is a page of scans with processing counts.
type ScanListing struct {
	Scans    []*MriScan `json:"scans"`
	Total    int        `json:"total"`
	Analyzed int        `json:"analyzed"`
	Pending  int        `json:"pending"`
}

type Service struct {
	store  Store
	blobs  blobstore.BlobStore
	logger zerolog.Logger
}

func NewService(store Store, blobs blobstore.BlobStore, logger zerolog.Logger) *Service {
	return &Service{store: store, blobs: blobs, logger: logger}
}

func (s *Service) Store() Store { return s.store }

// RegisterPatient stores a new patient and its registration row. registeredBy
// is the receptionist's user id; empty when unknown.
func (s *Service) RegisterPatient(ctx context.Context, in *RegistrationInput, registeredBy string) (*Patient, error) {
	p := in.Patient
	if p.Status == "" {
		p.Status = PatientScheduled
	}
	if !validPatientStatuses[p.Status] {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, p.Status)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	reg := &PatientRegistration{Notes: in.RegistrationNotes}
	if registeredBy != "" {
		reg.RegisteredBy = &registeredBy
	}
	if err := s.store.RegisterPatient(ctx, &p, reg); err != nil {
		return nil, fmt.Errorf("register patient: %w", err)
	}
	s.logger.Info().Str("patient_id", p.ID).Str("registered_by", registeredBy).Msg("patient registered")
	return &p, nil
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	q := NewQuery().Desc("created_at")
	total, err := s.store.CountPatients(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListPatients(ctx, q.Take(limit).Skip(offset))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UploadScan stores the image and creates an unprocessed scan pointing at it.
func (s *Service) UploadScan(ctx context.Context, in UploadInput, image io.Reader) (*MriScan, error) {
	if _, err := s.store.GetPatient(ctx, in.PatientID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown patient %s", ErrValidation, in.PatientID)
		}
		return nil, err
	}

	meta, err := s.blobs.Upload(ctx, blobstore.Metadata{
		FileName:    in.FileName,
		ContentType: in.ContentType,
		PatientID:   in.PatientID,
		CreatedBy:   in.RadiologistID,
	}, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	scan := &MriScan{
		PatientID: in.PatientID,
		ImageURL:  meta.URL(),
		ScanDate:  in.ScanDate,
		ScanType:  in.ScanType,
		Notes:     in.Notes,
	}
	if in.RadiologistID != "" {
		scan.RadiologistID = &in.RadiologistID
	}
	if err := s.store.CreateScan(ctx, scan); err != nil {
		if derr := s.blobs.Delete(ctx, meta.ID); derr != nil {
			s.logger.Warn().Err(derr).Str("blob_id", meta.ID).Msg("orphaned scan image")
		}
		return nil, fmt.Errorf("create scan: %w", err)
	}
	return scan, nil
}

// ListScans returns scans newest first. Analyzed and Pending count the whole
// collection, not just the page.
func (s *Service) ListScans(ctx context.Context, limit, offset int) (*ScanListing, error) {
	all, err := s.store.ListScans(ctx, NewQuery().Desc("created_at"))
	if err != nil {
		return nil, err
	}
	out := &ScanListing{Total: len(all)}
	for _, sc := range all {
		if sc.AIProcessed {
			out.Analyzed++
		} else {
			out.Pending++
		}
	}
	out.Scans = pagination.Page(all, pagination.Params{Limit: limit, Offset: offset})
	return out, nil
}
