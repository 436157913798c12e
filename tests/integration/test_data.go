package integration

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/models"
)

var accountSeq atomic.Int64

// TestAccount generates a unique signup form. Phone numbers are local
// Nigerian numbers in the 0803 range.
func TestAccount(suffix string) models.AuthForm {
	n := accountSeq.Add(1)
	return models.AuthForm{
		FirstName:       "Test",
		LastName:        "Member",
		Email:           fmt.Sprintf("test-%d-%d-%s@example.com", time.Now().Unix(), n, suffix),
		PhoneNumber:     fmt.Sprintf("0803%07d", n),
		Password:        "TestPassword123!",
		ConfirmPassword: "TestPassword123!",
	}
}
