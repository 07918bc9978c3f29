package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Fransi777/quanta-medix-nexus/internal/domain/records"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/notify"
)

var (
	// ErrSkipped means a tier declined to answer and the next one should try.
	ErrSkipped = errors.New("tier skipped")
	// ErrDataResolution wraps live query failures. It is logged, never
	// returned to callers of Resolve.
	ErrDataResolution = errors.New("dashboard data resolution failed")

	errUnconfigured = fmt.Errorf("%w: persistence not configured", ErrSkipped)
	errDemoSession  = fmt.Errorf("%w: demo session", ErrSkipped)
	errNoPatient    = fmt.Errorf("%w: no patient record linked to this account", ErrSkipped)

	// errPass means the tier does not apply to the previous outcome.
	errPass       = errors.New("tier not applicable")
	errNotFailed  = fmt.Errorf("%w: live tier did not fail", errPass)
	errNotSkipped = fmt.Errorf("%w: live tier was not skipped", errPass)
)

// Tier is one data source in the resolution chain. cause is the error of
// the previous tier, nil for the first.
type Tier interface {
	Name() Source
	Resolve(ctx context.Context, s *auth.Session, cause error) (*Result, error)
}

type Option func(*Resolver)

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithTiers replaces the default live, fixture, fallback chain.
func WithTiers(tiers ...Tier) Option {
	return func(r *Resolver) { r.tiers = tiers }
}

// Resolver runs the tier chain for a session.
type Resolver struct {
	tiers  []Tier
	now    func() time.Time
	logger zerolog.Logger
}

// NewResolver builds the default chain. A nil store means persistence is
// not configured.
func NewResolver(store records.Store, logger zerolog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(r)
	}
	if r.tiers == nil {
		r.tiers = []Tier{
			&LiveTier{store: store, now: r.now},
			FixtureTier{},
			FallbackTier{},
		}
	}
	return r
}

// Resolve returns the dashboard for s. It never fails: when every tier
// declines, the role fixture is returned.
func (r *Resolver) Resolve(ctx context.Context, s *auth.Session) *Result {
	var role auth.Role
	if s != nil {
		role = s.User.Role
	}
	log := r.logger.With().Str("role", string(role)).Logger()

	var cause error
	for _, t := range r.tiers {
		res, err := t.Resolve(ctx, s, cause)
		if err == nil {
			res.Source = t.Name()
			res.Role = role
			res.ResolvedAt = r.now().UTC()
			if cause != nil && res.Reason == "" {
				res.Reason = cause.Error()
			}
			return res
		}
		switch {
		case errors.Is(err, errPass):
		case errors.Is(err, ErrSkipped):
			log.Debug().Str("tier", string(t.Name())).Str("reason", err.Error()).Msg("dashboard tier skipped")
			cause = err
		default:
			log.Warn().Err(err).Str("tier", string(t.Name())).Str("reason", err.Error()).Msg("dashboard tier failed")
			cause = err
		}
	}

	res := Fixture(role)
	res.Source = SourceFallback
	res.ResolvedAt = r.now().UTC()
	return res
}

// LiveTier queries the store with per-role shaping.
type LiveTier struct {
	store records.Store
	now   func() time.Time
}

func NewLiveTier(store records.Store, now func() time.Time) *LiveTier {
	return &LiveTier{store: store, now: now}
}

func (LiveTier) Name() Source { return SourceLive }

func (t *LiveTier) Resolve(ctx context.Context, s *auth.Session, _ error) (*Result, error) {
	if t.store == nil {
		return nil, errUnconfigured
	}
	if s == nil || s.IsDemo() {
		return nil, errDemoSession
	}

	today := t.now().Format(time.DateOnly)
	recentQ := records.NewQuery().Desc("created_at").Take(PageSize)
	upcomingQ := records.NewQuery().Gte("appointment_date", today).
		Asc("appointment_date").Asc("appointment_time").Take(PageSize)

	switch s.User.Role {
	case auth.RoleDoctor, auth.RoleSpecialist:
		recentQ = recentQ.Eq("assigned_doctor_id", s.User.ID)
		upcomingQ = upcomingQ.Eq("doctor_id", s.User.ID)
	case auth.RoleRadiologist:
		recentQ = recentQ.Eq("needs_scan", true)
	case auth.RolePatient:
		own, err := t.store.ListPatients(ctx, records.NewQuery().Eq("profile_id", s.User.ID).Take(1))
		if err != nil || len(own) == 0 {
			return nil, errNoPatient
		}
		recentQ = recentQ.Eq("id", own[0].ID)
		upcomingQ = upcomingQ.Eq("patient_id", own[0].ID)
	}

	patients, err := t.store.ListPatients(ctx, recentQ)
	if err != nil {
		return nil, fmt.Errorf("%w: recent patients: %v", ErrDataResolution, err)
	}
	appts, err := t.store.ListAppointments(ctx, upcomingQ)
	if err != nil {
		return nil, fmt.Errorf("%w: upcoming appointments: %v", ErrDataResolution, err)
	}

	res := &Result{
		RecentItems:   make([]PatientSummary, 0, len(patients)),
		UpcomingItems: make([]AppointmentSummary, 0, len(appts)),
		Stats:         StatCards(s.User.Role),
	}
	for _, p := range patients {
		res.RecentItems = append(res.RecentItems, summarizePatient(p))
	}
	for _, a := range appts {
		res.UpcomingItems = append(res.UpcomingItems, summarizeAppointment(a))
	}
	return res, nil
}

// FixtureTier answers when the live tier was skipped: persistence is not
// configured or the session is a demo account.
type FixtureTier struct{}

func (FixtureTier) Name() Source { return SourceFixture }

func (FixtureTier) Resolve(_ context.Context, s *auth.Session, cause error) (*Result, error) {
	if cause == nil || !errors.Is(cause, ErrSkipped) {
		return nil, errNotSkipped
	}
	return Fixture(roleOf(s)), nil
}

// FallbackTier answers after a live failure with the fixture and a
// notification for the client.
type FallbackTier struct{}

func (FallbackTier) Name() Source { return SourceFallback }

func (FallbackTier) Resolve(_ context.Context, s *auth.Session, cause error) (*Result, error) {
	if cause == nil || errors.Is(cause, ErrSkipped) {
		return nil, errNotFailed
	}
	res := Fixture(roleOf(s))
	res.Notification = notify.Error("Dashboard data unavailable", "Showing sample data until the records service responds.")
	return res, nil
}

func roleOf(s *auth.Session) auth.Role {
	if s == nil {
		return ""
	}
	return s.User.Role
}
