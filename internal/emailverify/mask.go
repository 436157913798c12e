package emailverify

import "strings"

const maskChar = "*"

// MaskEmail hides the interior of the local part. Local parts of two
// characters or fewer are shown as-is; the domain is never masked.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}

	local := []rune(email[:at])
	if len(local) <= 2 {
		return email
	}

	var b strings.Builder
	b.WriteRune(local[0])
	b.WriteString(strings.Repeat(maskChar, len(local)-2))
	b.WriteRune(local[len(local)-1])
	b.WriteString(email[at:])
	return b.String()
}
