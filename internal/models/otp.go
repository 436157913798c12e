package models

// OTPCodeLength is the number of digit slots on the OTP step.
const OTPCodeLength = 6

// OTPState is a snapshot of the OTP step.
// ResendAllowed is true exactly when SecondsRemaining is 0.
type OTPState struct {
	Digits           [OTPCodeLength]string
	Focus            int
	SecondsRemaining int
	ResendAllowed    bool
	Verifying        bool
}

// Code joins the digit slots.
func (s OTPState) Code() string {
	code := ""
	for _, d := range s.Digits {
		code += d
	}
	return code
}

// Complete reports whether every slot holds a digit.
func (s OTPState) Complete() bool {
	for _, d := range s.Digits {
		if d == "" {
			return false
		}
	}
	return true
}
