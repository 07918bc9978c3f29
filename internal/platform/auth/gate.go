package auth

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Pending means session resolution is still in flight. Callers must not
	// render protected content or redirect yet.
	Pending Decision = iota
	Allow
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "unknown"
	}
}

// Paths the gate redirects to.
const (
	LoginPath = "/login"
	HomePath  = "/dashboard"
)

// Location returns where a redirecting decision sends the user.
func (d Decision) Location() string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectHome:
		return HomePath
	}
	return ""
}

// SessionState is what the gate sees: either resolution is still running, or
// it finished with a session or without one.
type SessionState struct {
	Resolving bool
	Session   *Session
}

func Resolved(s *Session) SessionState {
	return SessionState{Session: s}
}

// Authorize decides whether the state may access a resource guarded by
// required. An empty required set means any authenticated role. Denial is a
// decision, never an error, and nothing is cached between calls.
func Authorize(state SessionState, required RoleSet) Decision {
	if state.Resolving {
		return Pending
	}
	if state.Session == nil {
		return RedirectLogin
	}
	if len(required) == 0 || required.Contains(state.Session.User.Role) {
		return Allow
	}
	return RedirectHome
}
