package records

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/changefeed"
)

// MemoryStore is an in-process Store used when no database is configured in
// demo mode. Writes publish change events on the optional publisher.
type MemoryStore struct {
	mu           sync.RWMutex
	profiles     map[string]*Profile
	patients     map[string]*Patient
	appointments map[string]*Appointment
	scans        map[string]*MriScan
	results      []*AiResult
	regs         []*PatientRegistration
	pub          changefeed.Publisher
	now          func() time.Time

	// FailSave makes SaveAnalysis fail without writing.
	FailSave error
}

func NewMemoryStore(pub changefeed.Publisher) *MemoryStore {
	return &MemoryStore{
		profiles:     make(map[string]*Profile),
		patients:     make(map[string]*Patient),
		appointments: make(map[string]*Appointment),
		scans:        make(map[string]*MriScan),
		pub:          pub,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) publish(ctx context.Context, topic, op, id string) {
	if m.pub == nil {
		return
	}
	_ = m.pub.Publish(ctx, changefeed.Event{Type: op, Topic: topic, RecordID: id, Timestamp: m.now()})
}

func (m *MemoryStore) AddProfile(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = &p
}

func (m *MemoryStore) AddPatient(p Patient) {
	m.mu.Lock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	m.patients[p.ID] = &p
	m.mu.Unlock()
	m.publish(context.Background(), changefeed.TopicPatients, "insert", p.ID)
}

func (m *MemoryStore) AddAppointment(a Appointment) {
	m.mu.Lock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.now()
	}
	m.appointments[a.ID] = &a
	m.mu.Unlock()
	m.publish(context.Background(), changefeed.TopicAppointments, "insert", a.ID)
}

func (m *MemoryStore) GetProfile(_ context.Context, id string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *MemoryStore) ListPatients(_ context.Context, q Query) ([]*Patient, error) {
	if err := q.Validate(Patients); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*Patient
	for _, p := range m.patients {
		if matches(q, patientField(p)) {
			out := *p
			items = append(items, &out)
		}
	}
	sortBy(items, q, patientField)
	return window(items, q), nil
}

func (m *MemoryStore) CountPatients(_ context.Context, q Query) (int, error) {
	if err := q.Validate(Patients); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.patients {
		if matches(q, patientField(p)) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetPatient(_ context.Context, id string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *MemoryStore) RegisterPatient(ctx context.Context, p *Patient, reg *PatientRegistration) error {
	now := m.now()
	m.mu.Lock()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	m.patients[p.ID] = &stored

	reg.ID = uuid.NewString()
	reg.PatientID = p.ID
	reg.CreatedAt = now
	storedReg := *reg
	m.regs = append(m.regs, &storedReg)
	m.mu.Unlock()

	m.publish(ctx, changefeed.TopicPatients, "insert", p.ID)
	m.publish(ctx, changefeed.TopicRegistrations, "insert", reg.ID)
	return nil
}

// Registrations returns the stored registration rows in insertion order.
func (m *MemoryStore) Registrations() []PatientRegistration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PatientRegistration, len(m.regs))
	for i, r := range m.regs {
		out[i] = *r
	}
	return out
}

func (m *MemoryStore) ListAppointments(_ context.Context, q Query) ([]*Appointment, error) {
	if err := q.Validate(Appointments); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*Appointment
	for _, a := range m.appointments {
		if matches(q, appointmentField(a)) {
			out := *a
			items = append(items, &out)
		}
	}
	sortBy(items, q, appointmentField)
	return window(items, q), nil
}

func (m *MemoryStore) withPatient(s *MriScan) *MriScan {
	out := *s
	if p, ok := m.patients[s.PatientID]; ok {
		out.Patient = &PatientSummary{Name: p.Name, Condition: p.Condition}
	}
	return &out
}

func (m *MemoryStore) ListScans(_ context.Context, q Query) ([]*MriScan, error) {
	if err := q.Validate(MriScans); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []*MriScan
	for _, s := range m.scans {
		if matches(q, scanField(s)) {
			items = append(items, m.withPatient(s))
		}
	}
	sortBy(items, q, scanField)
	return window(items, q), nil
}

func (m *MemoryStore) GetScan(_ context.Context, id string) (*MriScan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.withPatient(s), nil
}

func (m *MemoryStore) CreateScan(ctx context.Context, s *MriScan) error {
	now := m.now()
	m.mu.Lock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt, s.UpdatedAt = now, now
	stored := *s
	stored.Patient = nil
	m.scans[s.ID] = &stored
	m.mu.Unlock()

	m.publish(ctx, changefeed.TopicScans, "insert", s.ID)
	return nil
}

func (m *MemoryStore) LatestResult(_ context.Context, scanID string) (*AiResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.results) - 1; i >= 0; i-- {
		if m.results[i].MriScanID == scanID {
			out := *m.results[i]
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// Results returns every stored analysis result.
func (m *MemoryStore) Results() []AiResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AiResult, len(m.results))
	for i, r := range m.results {
		out[i] = *r
	}
	return out
}

func (m *MemoryStore) SaveAnalysis(ctx context.Context, r *AiResult) error {
	if m.FailSave != nil {
		return m.FailSave
	}
	now := m.now()
	m.mu.Lock()
	scan, ok := m.scans[r.MriScanID]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	r.ID = uuid.NewString()
	r.CreatedAt, r.UpdatedAt = now, now
	stored := *r
	m.results = append(m.results, &stored)
	scan.AIProcessed = true
	scan.UpdatedAt = now
	m.mu.Unlock()

	m.publish(ctx, changefeed.TopicResults, "insert", r.ID)
	m.publish(ctx, changefeed.TopicScans, "update", r.MriScanID)
	return nil
}

type fieldFunc func(col string) interface{}

func patientField(p *Patient) fieldFunc {
	return func(col string) interface{} {
		switch col {
		case "id":
			return p.ID
		case "profile_id":
			return deref(p.ProfileID)
		case "assigned_doctor_id":
			return deref(p.AssignedDoctorID)
		case "status":
			return p.Status
		case "needs_scan":
			return p.NeedsScan
		case "appointment_date":
			return p.AppointmentDate
		case "created_at":
			return p.CreatedAt
		case "name":
			return p.Name
		}
		return nil
	}
}

func appointmentField(a *Appointment) fieldFunc {
	return func(col string) interface{} {
		switch col {
		case "id":
			return a.ID
		case "patient_id":
			return a.PatientID
		case "doctor_id":
			return deref(a.DoctorID)
		case "status":
			return a.Status
		case "appointment_date":
			return a.AppointmentDate
		case "appointment_time":
			return a.AppointmentTime
		case "created_at":
			return a.CreatedAt
		}
		return nil
	}
}

func scanField(s *MriScan) fieldFunc {
	return func(col string) interface{} {
		switch col {
		case "id":
			return s.ID
		case "patient_id":
			return s.PatientID
		case "radiologist_id":
			return deref(s.RadiologistID)
		case "ai_processed":
			return s.AIProcessed
		case "scan_date":
			return s.ScanDate
		case "created_at":
			return s.CreatedAt
		}
		return nil
	}
}

func deref(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func matches(q Query, field fieldFunc) bool {
	for _, f := range q.Filters {
		v := field(f.Column)
		if v == nil {
			return false
		}
		c, err := compare(v, f.Value)
		if err != nil {
			return false
		}
		switch f.Op {
		case OpEq:
			if c != 0 {
				return false
			}
		case OpGte:
			if c < 0 {
				return false
			}
		}
	}
	return true
}

var errIncomparable = errors.New("incomparable values")

func compare(a, b interface{}) (int, error) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, errIncomparable
		}
		switch {
		case av < bv:
			return -1, nil
		case av > bv:
			return 1, nil
		}
		return 0, nil
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, errIncomparable
		}
		switch {
		case av == bv:
			return 0, nil
		case !av:
			return -1, nil
		}
		return 1, nil
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, errIncomparable
		}
		return av.Compare(bv), nil
	}
	return 0, fmt.Errorf("%w: %T", errIncomparable, a)
}

func sortBy[T any](items []T, q Query, field func(T) fieldFunc) {
	if len(q.OrderBy) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		fi, fj := field(items[i]), field(items[j])
		for _, o := range q.OrderBy {
			vi, vj := fi(o.Column), fj(o.Column)
			if vi == nil || vj == nil {
				// nulls sort last in both directions
				if vi == nil && vj == nil {
					continue
				}
				return vj == nil
			}
			c, err := compare(vi, vj)
			if err != nil || c == 0 {
				continue
			}
			if o.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func window[T any](items []T, q Query) []T {
	if q.Offset > 0 {
		if q.Offset >= len(items) {
			return nil
		}
		items = items[q.Offset:]
	}
	if q.Limit > 0 && len(items) > q.Limit {
		items = items[:q.Limit]
	}
	return items
}
