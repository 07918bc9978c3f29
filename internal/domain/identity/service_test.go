package identity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/authprovider"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/changefeed"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/sessionstore"
)

// fakeRemote records calls and answers from its fields.
type fakeRemote struct {
	grant      *authprovider.Grant
	signInErr  error
	signUpErr  error
	userErr    error
	signOutErr error
	profile    *authprovider.Profile
	profileErr error

	signIns  int
	signOuts int
}

func (f *fakeRemote) SignInWithPassword(_ context.Context, email, password string) (*authprovider.Grant, error) {
	f.signIns++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.grant, nil
}

func (f *fakeRemote) SignUp(_ context.Context, email, _, name, role string) (*authprovider.Grant, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	if f.grant != nil {
		return f.grant, nil
	}
	return &authprovider.Grant{User: authprovider.RemoteUser{ID: "pending", Email: email, Name: name, Role: role}}, nil
}

func (f *fakeRemote) GetUser(context.Context, string) (*authprovider.RemoteUser, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &f.grant.User, nil
}

func (f *fakeRemote) SignOut(context.Context, string) error {
	f.signOuts++
	return f.signOutErr
}

func (f *fakeRemote) FetchProfile(context.Context, string, string) (*authprovider.Profile, error) {
	return f.profile, f.profileErr
}

func remoteGrant(role string) *authprovider.Grant {
	return &authprovider.Grant{
		AccessToken:  "remote-access",
		RefreshToken: "remote-refresh",
		ExpiresIn:    time.Hour,
		User:         authprovider.RemoteUser{ID: "u-1", Email: "jane@clinic.test", Role: role, Name: "Jane Doe"},
	}
}

var testIssuer = auth.NewTokenIssuer("identity-test-key")

func demoDirectory(t *testing.T) *DemoDirectory {
	t.Helper()
	d, err := NewDemoDirectory(DefaultDemoAccounts)
	require.NoError(t, err)
	return d
}

func newService(t *testing.T, remote RemoteIdentity, demo bool) (*Service, *sessionstore.MemoryStore) {
	t.Helper()
	store := sessionstore.NewMemoryStore()
	var accounts *DemoDirectory
	if demo {
		accounts = demoDirectory(t)
	}
	return NewService(remote, store, testIssuer, accounts, Config{Demo: demo, Timeout: time.Second}, zerolog.Nop()), store
}

func TestDemoDirectory_Match(t *testing.T) {
	d := demoDirectory(t)
	assert.Equal(t, 6, d.Len())

	for _, a := range DefaultDemoAccounts {
		u, ok := d.Match(a.User.Email, a.Password)
		require.True(t, ok, a.User.Email)
		assert.Equal(t, a.User, u)
	}

	_, ok := d.Match("doctor@quantum.med", "admin123")
	assert.False(t, ok)
	_, ok = d.Match("DOCTOR@quantum.med", "doctor123")
	assert.False(t, ok, "email match is exact")
	assert.True(t, d.Has("patient@quantum.med"))
	assert.False(t, d.Has("nobody@quantum.med"))
}

func TestAuthenticate_RemoteSuccess(t *testing.T) {
	remote := &fakeRemote{grant: remoteGrant("doctor")}
	svc, store := newService(t, remote, true)

	login, err := svc.Authenticate(context.Background(), "jane@clinic.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, auth.SourceRemote, login.Session.Source)
	assert.Equal(t, auth.RoleDoctor, login.Session.User.Role)
	assert.Equal(t, "Jane Doe", login.Session.User.Name)
	assert.Equal(t, "remote-access", login.Session.AccessToken)
	assert.Equal(t, 1, store.Len())

	claims, err := testIssuer.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, login.Session.ID, claims.ID)
	assert.Equal(t, "u-1", claims.Subject)
}

func TestAuthenticate_ProfileOverridesMetadata(t *testing.T) {
	remote := &fakeRemote{
		grant:   remoteGrant("patient"),
		profile: &authprovider.Profile{ID: "u-1", Name: "Dr. Jane Doe", Role: "specialist"},
	}
	svc, _ := newService(t, remote, false)

	login, err := svc.Authenticate(context.Background(), "jane@clinic.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSpecialist, login.Session.User.Role)
	assert.Equal(t, "Dr. Jane Doe", login.Session.User.Name)
}

func TestAuthenticate_ProfileFailureUsesMetadata(t *testing.T) {
	remote := &fakeRemote{grant: remoteGrant("radiologist"), profileErr: authprovider.ErrUnavailable}
	svc, _ := newService(t, remote, false)

	login, err := svc.Authenticate(context.Background(), "jane@clinic.test", "pw")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleRadiologist, login.Session.User.Role)
}

func TestAuthenticate_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		remote   *fakeRemote
		demo     bool
		email    string
		password string
		wantErr  error
		wantSrc  auth.SessionSource
	}{
		{
			name:   "rejected without demo",
			remote: &fakeRemote{signInErr: fmt.Errorf("%w: status 400", authprovider.ErrRejected)},
			email:  "jane@clinic.test", password: "wrong",
			wantErr: ErrInvalidCredentials,
		},
		{
			name:   "unreachable without demo",
			remote: &fakeRemote{signInErr: fmt.Errorf("%w: dial tcp", authprovider.ErrUnavailable)},
			email:  "jane@clinic.test", password: "pw",
			wantErr: ErrServiceUnavailable,
		},
		{
			name:   "malformed without demo",
			remote: &fakeRemote{signInErr: authprovider.ErrMalformed},
			email:  "jane@clinic.test", password: "pw",
			wantErr: ErrServiceUnavailable,
		},
		{
			name:   "unknown remote role is malformed",
			remote: &fakeRemote{grant: remoteGrant("janitor")},
			email:  "jane@clinic.test", password: "pw",
			wantErr: ErrServiceUnavailable,
		},
		{
			name:   "unreachable falls back to demo",
			remote: &fakeRemote{signInErr: authprovider.ErrUnavailable},
			demo:   true,
			email:  "doctor@quantum.med", password: "doctor123",
			wantSrc: auth.SourceDemo,
		},
		{
			name:   "rejected falls back to demo",
			remote: &fakeRemote{signInErr: authprovider.ErrRejected},
			demo:   true,
			email:  "admin@quantum.med", password: "admin123",
			wantSrc: auth.SourceDemo,
		},
		{
			name:   "rejected with no demo match",
			remote: &fakeRemote{signInErr: authprovider.ErrRejected},
			demo:   true,
			email:  "admin@quantum.med", password: "nope",
			wantErr: ErrInvalidCredentials,
		},
		{
			name:   "unreachable with no demo match",
			remote: &fakeRemote{signInErr: authprovider.ErrUnavailable},
			demo:   true,
			email:  "admin@quantum.med", password: "nope",
			wantErr: ErrServiceUnavailable,
		},
		{
			name:   "demo account ignored outside demo mode",
			remote: &fakeRemote{signInErr: authprovider.ErrRejected},
			email:  "admin@quantum.med", password: "admin123",
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newService(t, tt.remote, tt.demo)
			login, err := svc.Authenticate(context.Background(), tt.email, tt.password)
			assert.Equal(t, 1, tt.remote.signIns, "single remote attempt")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, login)
				assert.Equal(t, 0, store.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSrc, login.Session.Source)
		})
	}
}

func TestAuthenticate_Unconfigured(t *testing.T) {
	svc, _ := newService(t, nil, true)
	login, err := svc.Authenticate(context.Background(), "patient@quantum.med", "patient123")
	require.NoError(t, err)
	assert.True(t, login.Session.IsDemo())
	assert.Equal(t, "6", login.Session.User.ID)

	_, err = svc.Authenticate(context.Background(), "patient@quantum.med", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	svc, _ = newService(t, nil, false)
	_, err = svc.Authenticate(context.Background(), "patient@quantum.med", "patient123")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestInvalidCredentialsDoesNotNameFactor(t *testing.T) {
	svc, _ := newService(t, nil, true)
	_, errEmail := svc.Authenticate(context.Background(), "nobody@quantum.med", "admin123")
	_, errPassword := svc.Authenticate(context.Background(), "admin@quantum.med", "wrong")
	require.Error(t, errEmail)
	assert.Equal(t, errEmail.Error(), errPassword.Error())
}

func TestRegister(t *testing.T) {
	t.Run("demo without remote", func(t *testing.T) {
		svc, store := newService(t, nil, true)
		reg, err := svc.Register(context.Background(), "new@clinic.test", "secret1", "New Person", auth.RolePatient)
		require.NoError(t, err)
		require.NotNil(t, reg.Login)
		assert.Equal(t, auth.SourceLocal, reg.Login.Session.Source)
		assert.False(t, reg.Login.Session.IsDemo())
		assert.Equal(t, "New Person", reg.Login.Session.User.Name)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("demo email taken", func(t *testing.T) {
		svc, _ := newService(t, nil, true)
		_, err := svc.Register(context.Background(), "doctor@quantum.med", "secret1", "Dup", auth.RoleDoctor)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("invalid role", func(t *testing.T) {
		svc, _ := newService(t, nil, true)
		_, err := svc.Register(context.Background(), "x@clinic.test", "secret1", "X", auth.Role("nurse"))
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("remote confirmation required", func(t *testing.T) {
		svc, store := newService(t, &fakeRemote{}, false)
		reg, err := svc.Register(context.Background(), "x@clinic.test", "secret1", "X", auth.RoleReceptionist)
		require.NoError(t, err)
		assert.True(t, reg.ConfirmationRequired)
		assert.Nil(t, reg.Login)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("remote immediate session", func(t *testing.T) {
		svc, _ := newService(t, &fakeRemote{grant: remoteGrant("receptionist")}, false)
		reg, err := svc.Register(context.Background(), "jane@clinic.test", "secret1", "Jane Doe", auth.RoleReceptionist)
		require.NoError(t, err)
		require.NotNil(t, reg.Login)
		assert.Equal(t, auth.SourceRemote, reg.Login.Session.Source)
		assert.Equal(t, auth.RoleReceptionist, reg.Login.Session.User.Role)
	})

	t.Run("remote already registered", func(t *testing.T) {
		remote := &fakeRemote{signUpErr: fmt.Errorf("%w: status 422: User already registered", authprovider.ErrRejected)}
		svc, _ := newService(t, remote, false)
		_, err := svc.Register(context.Background(), "jane@clinic.test", "secret1", "Jane", auth.RoleDoctor)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("remote unavailable", func(t *testing.T) {
		svc, _ := newService(t, &fakeRemote{signUpErr: authprovider.ErrUnavailable}, true)
		_, err := svc.Register(context.Background(), "jane@clinic.test", "secret1", "Jane", auth.RoleDoctor)
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})

	t.Run("no remote outside demo", func(t *testing.T) {
		svc, _ := newService(t, nil, false)
		_, err := svc.Register(context.Background(), "jane@clinic.test", "secret1", "Jane", auth.RoleDoctor)
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})
}

func TestResolveSession(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		svc, _ := newService(t, nil, true)
		s, err := svc.ResolveSession(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("demo session resumes", func(t *testing.T) {
		svc, _ := newService(t, nil, true)
		login, err := svc.Authenticate(ctx, "radiologist@quantum.med", "radiologist123")
		require.NoError(t, err)
		s, err := svc.ResolveSession(ctx, login.Session.ID)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, auth.RoleRadiologist, s.User.Role)
	})

	t.Run("expired", func(t *testing.T) {
		svc, _ := newService(t, nil, true)
		login, err := svc.Authenticate(ctx, "admin@quantum.med", "admin123")
		require.NoError(t, err)
		svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
		s, err := svc.ResolveSession(ctx, login.Session.ID)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("remote revoked ends session", func(t *testing.T) {
		remote := &fakeRemote{grant: remoteGrant("doctor")}
		svc, store := newService(t, remote, false)
		login, err := svc.Authenticate(ctx, "jane@clinic.test", "pw")
		require.NoError(t, err)

		remote.userErr = authprovider.ErrRejected
		s, err := svc.ResolveSession(ctx, login.Session.ID)
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Equal(t, 0, store.Len())
	})

	t.Run("remote unreachable keeps session", func(t *testing.T) {
		remote := &fakeRemote{grant: remoteGrant("doctor")}
		svc, _ := newService(t, remote, false)
		login, err := svc.Authenticate(ctx, "jane@clinic.test", "pw")
		require.NoError(t, err)

		remote.userErr = authprovider.ErrUnavailable
		s, err := svc.ResolveSession(ctx, login.Session.ID)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, login.Session.ID, s.ID)
	})
}

func TestEndSession(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{grant: remoteGrant("doctor"), signOutErr: authprovider.ErrUnavailable}
	svc, store := newService(t, remote, false)
	login, err := svc.Authenticate(ctx, "jane@clinic.test", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.EndSession(ctx, login.Session.ID))
	assert.Equal(t, 1, remote.signOuts)
	assert.Equal(t, 0, store.Len())

	s, err := svc.ResolveSession(ctx, login.Session.ID)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestEndSessionPublishesEvent(t *testing.T) {
	ctx := context.Background()
	hub := changefeed.NewHub()
	sub := hub.Subscribe(changefeed.TopicSessions)
	defer sub.Close()

	svc := NewService(nil, sessionstore.NewMemoryStore(), testIssuer, demoDirectory(t),
		Config{Demo: true, Timeout: time.Second, Events: hub}, zerolog.Nop())
	login, err := svc.Authenticate(ctx, "receptionist@quantum.med", "receptionist123")
	require.NoError(t, err)

	require.NoError(t, svc.EndSession(ctx, login.Session.ID))
	select {
	case ev := <-sub.C:
		assert.Equal(t, changefeed.EventSessionEnded, ev.Type)
		assert.Equal(t, login.Session.ID, ev.RecordID)
	case <-time.After(time.Second):
		t.Fatal("expected session ended event")
	}
}
