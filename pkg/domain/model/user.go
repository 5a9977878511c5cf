package model

import (
	"strings"
	"time"

	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/domain/types"
)

// User represents a registered WhatsApp user. Users are created
// implicitly on first contact.
type User struct {
	ID          types.UserID
	PhoneNumber string
	WhatsAppID  string
	// Timezone is an IANA zone name used for resolving natural-language
	// time expressions. Defaults to UTC.
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location returns the user's time.Location, falling back to UTC when
// the configured zone name does not resolve.
func (u *User) Location() *time.Location {
	if u == nil || u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CleanPhoneNumber normalizes a transport phone number: strips the
// whatsapp: prefix, spaces, dashes and parentheses, and ensures a
// leading +.
func CleanPhoneNumber(phone string) string {
	r := strings.NewReplacer("whatsapp:", "", " ", "", "-", "", "(", "", ")", "")
	cleaned := r.Replace(phone)
	if cleaned != "" && !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}
	return cleaned
}
