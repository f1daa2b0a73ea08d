package domain

import "time"

// Account represents a durable local identity
type Account struct {
	ID            string    `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	GoogleSubject *string   `json:"-" db:"google_subject"`
	AppleSubject  *string   `json:"-" db:"apple_subject"`
	DisplayName   *string   `json:"name" db:"display_name"`
	AvatarURL     *string   `json:"avatar_url" db:"avatar_url"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Session represents one outstanding refresh-token grant
type Session struct {
	ID           string    `json:"id" db:"id"`
	AccountID    string    `json:"account_id" db:"account_id"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	DeviceLabel  string    `json:"device_label" db:"device_label"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the session is no longer usable at now.
// A session expiring exactly at now is already expired.
func (s Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
