package navigation

import (
	"strings"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
)

// Route is one client route. Public routes skip the gate. Namespace routes
// own every path under Prefix and list the sub-pages that exist there.
type Route struct {
	Path     string
	Public   bool
	Required auth.RoleSet
	// Namespace is true for /<role>/* prefixes.
	Namespace bool
	Pages     []string
}

var routes = []Route{
	{Path: "/", Public: true},
	{Path: "/login", Public: true},
	{Path: "/register", Public: true},
	{Path: "/dashboard"},
	{Path: "/admin", Namespace: true, Required: auth.Roles(auth.RoleAdmin), Pages: []string{"users", "audit"}},
	{Path: "/doctor", Namespace: true, Required: auth.Roles(auth.RoleDoctor), Pages: []string{"patients", "referrals"}},
	{Path: "/specialist", Namespace: true, Required: auth.Roles(auth.RoleSpecialist), Pages: []string{"referrals", "consultations"}},
	{Path: "/radiologist", Namespace: true, Required: auth.Roles(auth.RoleRadiologist), Pages: []string{"scans", "analysis"}},
	{Path: "/receptionist", Namespace: true, Required: auth.Roles(auth.RoleReceptionist), Pages: []string{"patients", "appointments"}},
	{Path: "/patient", Namespace: true, Required: auth.Roles(auth.RolePatient), Pages: []string{"records", "appointments"}},
	{Path: "/messages", Required: clinicalStaff},
}

// Outcome is the result of resolving a client path.
type Outcome struct {
	Decision auth.Decision `json:"-"`
	Status   string        `json:"decision"`
	Location string        `json:"location,omitempty"`
	NotFound bool          `json:"notFound,omitempty"`
}

func outcome(d auth.Decision) Outcome {
	return Outcome{Decision: d, Status: d.String(), Location: d.Location()}
}

// Resolve decides what the client should do when the state navigates to path.
// The gate runs before sub-path matching, so an unauthorized visitor never
// learns which pages exist in a namespace.
func Resolve(path string, state auth.SessionState) Outcome {
	path = normalize(path)

	for _, r := range routes {
		if r.Namespace {
			if path != r.Path && !strings.HasPrefix(path, r.Path+"/") {
				continue
			}
			d := auth.Authorize(state, r.Required)
			if d != auth.Allow {
				return outcome(d)
			}
			page := strings.TrimPrefix(strings.TrimPrefix(path, r.Path), "/")
			for _, p := range r.Pages {
				if page == p {
					return outcome(auth.Allow)
				}
			}
			// unknown page inside an allowed namespace
			return Outcome{Decision: auth.RedirectHome, Status: auth.RedirectHome.String(), Location: auth.HomePath}
		}

		if path != r.Path {
			continue
		}
		if r.Public {
			return outcome(auth.Allow)
		}
		return outcome(auth.Authorize(state, r.Required))
	}

	return Outcome{Decision: auth.Allow, Status: "not_found", NotFound: true}
}

// RequiredRoles returns the role set guarding path, or nil when the path is
// public or unknown.
func RequiredRoles(path string) auth.RoleSet {
	path = normalize(path)
	for _, r := range routes {
		if path == r.Path || (r.Namespace && strings.HasPrefix(path, r.Path+"/")) {
			return r.Required
		}
	}
	return nil
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
