package app

import (
	"fmt"

	"petmatch/internal/domain"
)

// Policy is an access rule for a protected view.
type Policy int

const (
	// PolicyAuthenticated admits any signed-in principal.
	PolicyAuthenticated Policy = iota
	// PolicyShelter admits shelters and administrators.
	PolicyShelter
	// PolicyAdmin admits administrators only.
	PolicyAdmin
)

func (p Policy) String() string {
	switch p {
	case PolicyAuthenticated:
		return "authenticated"
	case PolicyShelter:
		return "shelter"
	case PolicyAdmin:
		return "admin"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Outcome is what a guard decided for one request.
type Outcome int

const (
	// OutcomeAllow renders the protected view.
	OutcomeAllow Outcome = iota
	// OutcomePending renders the "checking session" interstitial; rehydration has not finished.
	OutcomePending
	// OutcomeRedirectLogin discards the view and navigates to the login view.
	OutcomeRedirectLogin
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomePending:
		return "pending"
	case OutcomeRedirectLogin:
		return "redirect-login"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Evaluate decides access for st. It never mutates anything. A principal
// with the wrong role is sent to login, same as an anonymous visitor.
func (p Policy) Evaluate(st domain.State) Outcome {
	if st.Loading {
		return OutcomePending
	}
	if !st.IsAuthenticated() {
		return OutcomeRedirectLogin
	}
	if p.admits(st.Role) {
		return OutcomeAllow
	}
	return OutcomeRedirectLogin
}

func (p Policy) admits(role domain.Role) bool {
	switch p {
	case PolicyAuthenticated:
		return true
	case PolicyShelter:
		switch role {
		case domain.RoleShelter, domain.RoleAdmin:
			return true
		case domain.RoleNone, domain.RoleUser:
			return false
		}
	case PolicyAdmin:
		switch role {
		case domain.RoleAdmin:
			return true
		case domain.RoleNone, domain.RoleUser, domain.RoleShelter:
			return false
		}
	}
	return false
}

// Check evaluates p against the current state of r.
func (p Policy) Check(r SessionReader) Outcome {
	return p.Evaluate(r.Snapshot())
}
