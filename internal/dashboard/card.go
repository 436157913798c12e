// Package dashboard renders what the Dashboard step shows a member.
package dashboard

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/BradenHooton/alumni-onboard/internal/emailverify"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	qrcode "github.com/skip2/go-qrcode"
)

const cardURIScheme = "alumni://member/"

// MemberCard is the scannable membership card.
type MemberCard struct {
	Email    string
	Approved bool
	Payload  string
	qr       *qrcode.QRCode
}

// NewMemberCard builds a card for the session. The QR payload is the
// session token when one is stored, else the member's phone number.
func NewMemberCard(facts models.SessionFacts, params models.Params) (*MemberCard, error) {
	subject := facts.Token
	if subject == "" {
		subject = params.PhoneNumber
	}
	if subject == "" {
		return nil, fmt.Errorf("member card needs a session token or phone number")
	}

	payload := cardURIScheme + subject
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	return &MemberCard{
		Email:    emailverify.MaskEmail(params.Email),
		Approved: facts.Approved,
		Payload:  payload,
		qr:       qr,
	}, nil
}

// Terminal renders the card for a text console.
func (c *MemberCard) Terminal() string {
	var b strings.Builder
	status := "pending approval"
	if c.Approved {
		status = "approved member"
	}
	b.WriteString(c.qr.ToSmallString(false))
	if c.Email != "" {
		fmt.Fprintf(&b, "%s\n", c.Email)
	}
	fmt.Fprintf(&b, "%s\n", status)
	return b.String()
}

// PNGDataURL encodes the QR code as a data URL of the given pixel size.
func (c *MemberCard) PNGDataURL(size int) (string, error) {
	png, err := c.qr.PNG(size)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
