package identity

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
)

// DemoAccount is a built-in login available when demo mode is enabled.
type DemoAccount struct {
	User     auth.User
	Password string
}

// DefaultDemoAccounts has one account per role.
var DefaultDemoAccounts = []DemoAccount{
	{User: auth.User{ID: "1", Email: "admin@quantum.med", Name: "Admin User", Role: auth.RoleAdmin}, Password: "admin123"},
	{User: auth.User{ID: "2", Email: "doctor@quantum.med", Name: "Dr. Sarah Johnson", Role: auth.RoleDoctor}, Password: "doctor123"},
	{User: auth.User{ID: "3", Email: "specialist@quantum.med", Name: "Dr. Robert Chen", Role: auth.RoleSpecialist}, Password: "specialist123"},
	{User: auth.User{ID: "4", Email: "radiologist@quantum.med", Name: "Dr. Emily Wong", Role: auth.RoleRadiologist}, Password: "radiologist123"},
	{User: auth.User{ID: "5", Email: "receptionist@quantum.med", Name: "Jessica Miller", Role: auth.RoleReceptionist}, Password: "receptionist123"},
	{User: auth.User{ID: "6", Email: "patient@quantum.med", Name: "Michael Brown", Role: auth.RolePatient}, Password: "patient123"},
}

type demoEntry struct {
	user auth.User
	hash []byte
}

// DemoDirectory holds demo accounts with hashed passwords. Plain passwords
// are discarded after construction.
type DemoDirectory struct {
	entries []demoEntry
}

func NewDemoDirectory(accounts []DemoAccount) (*DemoDirectory, error) {
	d := &DemoDirectory{entries: make([]demoEntry, 0, len(accounts))}
	for _, a := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		d.entries = append(d.entries, demoEntry{user: a.User, hash: hash})
	}
	return d, nil
}

// Match scans the table in order for an exact email whose password matches.
func (d *DemoDirectory) Match(email, password string) (auth.User, bool) {
	if d == nil {
		return auth.User{}, false
	}
	for _, e := range d.entries {
		if e.user.Email != email {
			continue
		}
		if bcrypt.CompareHashAndPassword(e.hash, []byte(password)) == nil {
			return e.user, true
		}
	}
	return auth.User{}, false
}

func (d *DemoDirectory) Has(email string) bool {
	if d == nil {
		return false
	}
	for _, e := range d.entries {
		if e.user.Email == email {
			return true
		}
	}
	return false
}

func (d *DemoDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}
