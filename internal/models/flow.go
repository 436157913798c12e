package models

// Step identifies one screen of the onboarding flow.
type Step int

const (
	StepLanding Step = iota
	StepAuth
	StepOTP
	StepEmailVerification
	StepPinSetup
	StepPermissions
	StepJoin
	StepDashboard
)

func (s Step) String() string {
	switch s {
	case StepLanding:
		return "landing"
	case StepAuth:
		return "auth"
	case StepOTP:
		return "otp"
	case StepEmailVerification:
		return "email_verification"
	case StepPinSetup:
		return "pin_setup"
	case StepPermissions:
		return "permissions"
	case StepJoin:
		return "join"
	case StepDashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

// AuthMode selects which credential form the Auth step shows.
type AuthMode string

const (
	AuthModeLogin  AuthMode = "login"
	AuthModeSignup AuthMode = "signup"
)

// Opposite returns the other auth mode.
func (m AuthMode) Opposite() AuthMode {
	if m == AuthModeSignup {
		return AuthModeLogin
	}
	return AuthModeSignup
}

// Params is the parameter bag carried from Auth through OTP and email
// verification.
type Params struct {
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// Destination is what the flow hands to the navigation layer on every
// transition.
type Destination struct {
	Step   Step
	Mode   AuthMode // only meaningful for StepAuth
	Params Params
}
