package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fransi777/quanta-medix-nexus/internal/domain/records"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
)

var today = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)

func clock() time.Time { return today }

func session(role auth.Role) *auth.Session {
	return &auth.Session{ID: "s1", User: auth.User{ID: "user-" + string(role), Role: role}, Source: auth.SourceRemote}
}

func demoSession(role auth.Role) *auth.Session {
	s := session(role)
	s.Source = auth.SourceDemo
	return s
}

// failingStore raises on every read.
type failingStore struct {
	records.Store
	calls int
}

func (f *failingStore) ListPatients(context.Context, records.Query) ([]*records.Patient, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func (f *failingStore) ListAppointments(context.Context, records.Query) ([]*records.Appointment, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func strPtr(s string) *string { return &s }

func TestResolve_UnconfiguredGivesFixtureForEveryRole(t *testing.T) {
	r := NewResolver(nil, zerolog.Nop(), WithClock(clock))
	for _, role := range auth.AllRoles {
		res := r.Resolve(context.Background(), session(role))
		assert.Equal(t, SourceFixture, res.Source, role)
		assert.Equal(t, role, res.Role)
		assert.NotEmpty(t, res.RecentItems, role)
		assert.NotEmpty(t, res.UpcomingItems, role)
		assert.Len(t, res.Stats, 4, role)
		assert.Contains(t, res.Reason, "persistence not configured")
		assert.Nil(t, res.Notification)
	}
}

func TestResolve_ReceptionistFixtureEntries(t *testing.T) {
	res := NewResolver(nil, zerolog.Nop()).Resolve(context.Background(), session(auth.RoleReceptionist))

	require.Len(t, res.RecentItems, 3)
	assert.Equal(t, []string{"John Michael Smith", "Sarah Elizabeth Davis", "Michael Robert Johnson"},
		[]string{res.RecentItems[0].Name, res.RecentItems[1].Name, res.RecentItems[2].Name})
	assert.Equal(t, "In Progress", res.RecentItems[1].Status)

	require.Len(t, res.UpcomingItems, 2)
	assert.Equal(t, "demo-appointment-1", res.UpcomingItems[0].ID)
	assert.Equal(t, "9:00 AM", res.UpcomingItems[0].DisplayTime)
	assert.Equal(t, "2:30 PM", res.UpcomingItems[1].DisplayTime)
	assert.Equal(t, "Jun 2, 2024", res.UpcomingItems[1].DisplayDate)

	assert.Equal(t, "Appointments Today", res.Stats[0].Title)
	assert.Equal(t, "24", res.Stats[0].Value)
}

func TestResolve_DemoSessionSkipsLive(t *testing.T) {
	store := records.NewMemoryStore(nil)
	store.AddPatient(records.Patient{Name: "Live Patient"})
	r := NewResolver(store, zerolog.Nop(), WithClock(clock))

	res := r.Resolve(context.Background(), demoSession(auth.RoleDoctor))
	assert.Equal(t, SourceFixture, res.Source)
	assert.Equal(t, "John Michael Smith", res.RecentItems[0].Name)
}

func TestResolve_LocallyRegisteredSessionSeesLive(t *testing.T) {
	store := records.NewMemoryStore(nil)
	store.AddPatient(records.Patient{Name: "Live Patient"})
	r := NewResolver(store, zerolog.Nop(), WithClock(clock))

	s := session(auth.RoleReceptionist)
	s.Source = auth.SourceLocal
	res := r.Resolve(context.Background(), s)
	assert.Equal(t, SourceLive, res.Source)
	require.Len(t, res.RecentItems, 1)
	assert.Equal(t, "Live Patient", res.RecentItems[0].Name)
}

func TestResolve_FailingStoreFallsBackForEveryRole(t *testing.T) {
	for _, role := range auth.AllRoles {
		store := &failingStore{}
		r := NewResolver(store, zerolog.Nop(), WithClock(clock))
		res := r.Resolve(context.Background(), session(role))

		require.NotNil(t, res)
		assert.NotEmpty(t, res.RecentItems, role)
		assert.NotEmpty(t, res.UpcomingItems, role)
		assert.Positive(t, store.calls, role)
		if role == auth.RolePatient {
			// a failed record lookup is treated as an unlinked account
			assert.Equal(t, SourceFixture, res.Source)
			continue
		}
		assert.Equal(t, SourceFallback, res.Source, role)
		require.NotNil(t, res.Notification, role)
		assert.Equal(t, "destructive", string(res.Notification.Variant))
	}
}

func TestResolve_DoctorSeesOwnPatientsAndAppointments(t *testing.T) {
	store := records.NewMemoryStore(nil)
	doc := session(auth.RoleDoctor)
	base := today.Add(-48 * time.Hour)
	for i := 0; i < 7; i++ {
		store.AddPatient(records.Patient{
			ID:               fmt.Sprintf("mine-%d", i),
			Name:             fmt.Sprintf("Mine %d", i),
			AssignedDoctorID: strPtr(doc.User.ID),
			CreatedAt:        base.Add(time.Duration(i) * time.Hour),
		})
	}
	store.AddPatient(records.Patient{ID: "other", Name: "Other", AssignedDoctorID: strPtr("someone-else"), CreatedAt: today})
	store.AddAppointment(records.Appointment{ID: "a-mine", DoctorID: strPtr(doc.User.ID), AppointmentDate: "2024-06-11", AppointmentTime: "10:00"})
	store.AddAppointment(records.Appointment{ID: "a-other", DoctorID: strPtr("someone-else"), AppointmentDate: "2024-06-11"})

	res := NewResolver(store, zerolog.Nop(), WithClock(clock)).Resolve(context.Background(), doc)

	assert.Equal(t, SourceLive, res.Source)
	require.Len(t, res.RecentItems, PageSize)
	assert.Equal(t, "Mine 6", res.RecentItems[0].Name)
	for _, p := range res.RecentItems {
		assert.True(t, strings.HasPrefix(p.ID, "mine-"))
	}
	require.Len(t, res.UpcomingItems, 1)
	assert.Equal(t, "a-mine", res.UpcomingItems[0].ID)
	assert.Equal(t, "10:00 AM", res.UpcomingItems[0].DisplayTime)
}

func TestResolve_UpcomingWindow(t *testing.T) {
	store := records.NewMemoryStore(nil)
	// ten distinct dates from four days ago to five days ahead, inserted out of order
	for _, offset := range []int{3, -4, 5, 0, -1, 2, -3, 4, 1, -2} {
		d := today.AddDate(0, 0, offset).Format(time.DateOnly)
		store.AddAppointment(records.Appointment{ID: d, AppointmentDate: d, AppointmentTime: "09:00"})
	}

	res := NewResolver(store, zerolog.Nop(), WithClock(clock)).Resolve(context.Background(), session(auth.RoleAdmin))

	require.Equal(t, SourceLive, res.Source)
	require.LessOrEqual(t, len(res.UpcomingItems), PageSize)
	require.Len(t, res.UpcomingItems, 5)
	todayStr := today.Format(time.DateOnly)
	for i, a := range res.UpcomingItems {
		assert.GreaterOrEqual(t, a.Date, todayStr)
		if i > 0 {
			assert.Less(t, res.UpcomingItems[i-1].Date, a.Date)
		}
	}
	assert.Equal(t, todayStr, res.UpcomingItems[0].Date)
}

func TestResolve_SameDayOrderedByTime(t *testing.T) {
	store := records.NewMemoryStore(nil)
	store.AddAppointment(records.Appointment{ID: "late", AppointmentDate: "2024-06-10", AppointmentTime: "16:00"})
	store.AddAppointment(records.Appointment{ID: "early", AppointmentDate: "2024-06-10", AppointmentTime: "08:30"})

	res := NewResolver(store, zerolog.Nop(), WithClock(clock)).Resolve(context.Background(), session(auth.RoleReceptionist))
	require.Len(t, res.UpcomingItems, 2)
	assert.Equal(t, "early", res.UpcomingItems[0].ID)
}

func TestResolve_RadiologistSeesPatientsNeedingScans(t *testing.T) {
	store := records.NewMemoryStore(nil)
	store.AddPatient(records.Patient{ID: "scan", Name: "Needs Scan", NeedsScan: true})
	store.AddPatient(records.Patient{ID: "noscan", Name: "No Scan"})

	res := NewResolver(store, zerolog.Nop(), WithClock(clock)).Resolve(context.Background(), session(auth.RoleRadiologist))
	require.Len(t, res.RecentItems, 1)
	assert.Equal(t, "scan", res.RecentItems[0].ID)
}

func TestResolve_PatientLinkedRecord(t *testing.T) {
	store := records.NewMemoryStore(nil)
	pat := session(auth.RolePatient)
	store.AddPatient(records.Patient{ID: "me", Name: "Me", ProfileID: strPtr(pat.User.ID)})
	store.AddPatient(records.Patient{ID: "not-me", Name: "Not Me"})
	store.AddAppointment(records.Appointment{ID: "mine", PatientID: "me", AppointmentDate: "2024-06-12"})
	store.AddAppointment(records.Appointment{ID: "theirs", PatientID: "not-me", AppointmentDate: "2024-06-12"})

	res := NewResolver(store, zerolog.Nop(), WithClock(clock)).Resolve(context.Background(), pat)
	assert.Equal(t, SourceLive, res.Source)
	require.Len(t, res.RecentItems, 1)
	assert.Equal(t, "me", res.RecentItems[0].ID)
	require.Len(t, res.UpcomingItems, 1)
	assert.Equal(t, "mine", res.UpcomingItems[0].ID)
}

func TestResolve_PatientWithoutRecordGetsFixture(t *testing.T) {
	store := records.NewMemoryStore(nil)
	res := NewResolver(store, zerolog.Nop(), WithClock(clock)).Resolve(context.Background(), session(auth.RolePatient))

	assert.Equal(t, SourceFixture, res.Source)
	assert.Contains(t, res.Reason, "no patient record")
	assert.Equal(t, "Upcoming Appointments", res.Stats[0].Title)
}

type stubTier struct {
	name Source
	err  error
}

func (s stubTier) Name() Source { return s.name }

func (s stubTier) Resolve(_ context.Context, sess *auth.Session, _ error) (*Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Result{Stats: StatCards(sess.User.Role)}, nil
}

func TestResolve_ForcedTiers(t *testing.T) {
	r := NewResolver(nil, zerolog.Nop(), WithTiers(
		stubTier{name: SourceLive, err: errors.New("boom")},
		FixtureTier{},
		FallbackTier{},
	))
	res := r.Resolve(context.Background(), session(auth.RoleDoctor))
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, "boom", res.Reason)

	r = NewResolver(nil, zerolog.Nop(), WithTiers(stubTier{name: SourceLive}))
	assert.Equal(t, SourceLive, r.Resolve(context.Background(), session(auth.RoleDoctor)).Source)
}

func TestResolve_EmptyChainStillAnswers(t *testing.T) {
	r := NewResolver(nil, zerolog.Nop(), WithTiers(stubTier{name: SourceLive, err: errors.New("x")}))
	res := r.Resolve(context.Background(), session(auth.RoleAdmin))
	assert.Equal(t, SourceFallback, res.Source)
	assert.NotEmpty(t, res.RecentItems)
}

func TestFormatTime(t *testing.T) {
	tests := map[string]string{
		"14:30":    "2:30 PM",
		"09:00":    "9:00 AM",
		"00:05":    "12:05 AM",
		"12:00":    "12:00 PM",
		"23:59:00": "11:59 PM",
		"25:00":    "25:00",
		"noon":     "noon",
		"":         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatTime(in), in)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Jun 3, 2024", FormatDate("2024-06-03"))
	assert.Equal(t, "2024-13-01", FormatDate("2024-13-01"))
	assert.Equal(t, "soon", FormatDate("soon"))
}
