// Package navigation holds the role-tagged navigation table and the client
// routing table. Both are static; the gate decides every route.
package navigation

import (
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
)

// NavEntry is one item of the top and side navigation.
type NavEntry struct {
	Title        string       `json:"title"`
	Path         string       `json:"path"`
	Icon         string       `json:"icon"`
	AllowedRoles auth.RoleSet `json:"allowedRoles"`
}

// clinicalStaff may use messaging.
var clinicalStaff = auth.Roles(auth.RoleAdmin, auth.RoleDoctor, auth.RoleSpecialist, auth.RoleRadiologist)

// entries is the master list in display order.
var entries = []NavEntry{
	{Title: "Dashboard", Path: "/dashboard", Icon: "home", AllowedRoles: auth.Roles(auth.AllRoles...)},

	{Title: "Users", Path: "/admin/users", Icon: "users", AllowedRoles: auth.Roles(auth.RoleAdmin)},
	{Title: "Audit Logs", Path: "/admin/audit", Icon: "shield", AllowedRoles: auth.Roles(auth.RoleAdmin)},

	{Title: "My Patients", Path: "/doctor/patients", Icon: "users", AllowedRoles: auth.Roles(auth.RoleDoctor)},
	{Title: "Referrals", Path: "/doctor/referrals", Icon: "file-text", AllowedRoles: auth.Roles(auth.RoleDoctor)},

	{Title: "Referrals", Path: "/specialist/referrals", Icon: "file-text", AllowedRoles: auth.Roles(auth.RoleSpecialist)},
	{Title: "Consultations", Path: "/specialist/consultations", Icon: "stethoscope", AllowedRoles: auth.Roles(auth.RoleSpecialist)},

	{Title: "MRI Scans", Path: "/radiologist/scans", Icon: "brain", AllowedRoles: auth.Roles(auth.RoleRadiologist)},
	{Title: "Analysis", Path: "/radiologist/analysis", Icon: "activity", AllowedRoles: auth.Roles(auth.RoleRadiologist)},

	{Title: "Patients", Path: "/receptionist/patients", Icon: "user-check", AllowedRoles: auth.Roles(auth.RoleReceptionist)},
	{Title: "Appointments", Path: "/receptionist/appointments", Icon: "calendar", AllowedRoles: auth.Roles(auth.RoleReceptionist)},

	{Title: "Medical Records", Path: "/patient/records", Icon: "activity", AllowedRoles: auth.Roles(auth.RolePatient)},
	{Title: "Appointments", Path: "/patient/appointments", Icon: "calendar", AllowedRoles: auth.Roles(auth.RolePatient)},

	{Title: "Messages", Path: "/messages", Icon: "message-square", AllowedRoles: clinicalStaff},
}

// Entries returns a copy of the master list.
func Entries() []NavEntry {
	out := make([]NavEntry, len(entries))
	copy(out, entries)
	return out
}

// BuildNav returns the entries the session's role may see, in master-list
// order. A nil session gets none.
func BuildNav(s *auth.Session) []NavEntry {
	if s == nil {
		return nil
	}
	var out []NavEntry
	for _, e := range entries {
		if e.AllowedRoles.Contains(s.User.Role) {
			out = append(out, e)
		}
	}
	return out
}
