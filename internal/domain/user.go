package domain

import (
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const (
	NameMinLen = 3
	NameMaxLen = 50
)

// Stamp is the stored half of an opaque token: its fingerprint and expiry.
// A nil *Stamp means no token is outstanding, so fingerprint and expiry
// can never be set independently. Stamps are never mutated in place.
type Stamp struct {
	Fingerprint string
	ExpiresAt   time.Time
}

// Expired reports whether the stamp is past its expiry at now.
func (s Stamp) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// User is an immutable snapshot of a credential record. Transition methods
// use value receivers and return a new snapshot plus the commands the caller
// must execute; the receiver is left untouched.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         string
	PasswordHash string

	Refresh      *Stamp
	Verification *Stamp
	Verified     bool

	// Version is owned by the store and bumped on every write.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Command is a side effect produced by a transition.
type Command interface {
	command()
}

// InsertUser asks the executor to create the record.
type InsertUser struct {
	User User
}

// WriteSession replaces only the session stamp (nil clears it). When Expect
// is set the write applies only while the stored refresh fingerprint is
// still Expect.
type WriteSession struct {
	UserID string
	Expect string
	Next   *Stamp
	At     time.Time
}

// ConsumeVerification marks the user verified and clears the verification
// stamp, provided the stored verification fingerprint is still Fingerprint.
type ConsumeVerification struct {
	UserID      string
	Fingerprint string
	At          time.Time
}

// NotifyVerification hands a raw verification token to the notifier.
type NotifyVerification struct {
	Email string
	Token string
}

func (InsertUser) command()          {}
func (WriteSession) command()        {}
func (ConsumeVerification) command() {}
func (NotifyVerification) command()  {}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NewUserInput carries everything signup has already computed.
type NewUserInput struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	Refresh           Stamp
	Verification      Stamp
	VerificationToken string
	Now               time.Time
}

// NewUser builds a fresh unverified user with an active session and an
// outstanding verification request. The notification is ordered before the
// insert so a notifier failure leaves nothing behind.
func NewUser(in NewUserInput) (User, []Command, error) {
	if strings.TrimSpace(in.ID) == "" {
		return User{}, nil, ErrMissingField("id")
	}
	if in.PasswordHash == "" {
		return User{}, nil, ErrMissingField("password_hash")
	}
	email := NormalizeEmail(in.Email)
	if !ValidEmail(email) {
		return User{}, nil, ErrInvalidField("email", "invalid format")
	}
	if in.Refresh.Fingerprint == "" || in.Verification.Fingerprint == "" || in.VerificationToken == "" {
		return User{}, nil, ErrMissingField("token")
	}

	refresh := in.Refresh
	verification := in.Verification
	u := User{
		ID:           in.ID,
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		Role:         string(RoleUser),
		PasswordHash: in.PasswordHash,
		Refresh:      &refresh,
		Verification: &verification,
		Verified:     false,
		CreatedAt:    in.Now,
		UpdatedAt:    in.Now,
	}

	return u, []Command{
		NotifyVerification{Email: u.Email, Token: in.VerificationToken},
		InsertUser{User: u},
	}, nil
}

// HasSession reports whether a refresh token is outstanding.
func (u User) HasSession() bool {
	return u.Refresh != nil
}

// StartSession replaces any previous session with s. Login uses this, so a
// new login resets the session window and logs out other devices. The
// write does not depend on the previous session, so it is unguarded.
func (u User) StartSession(s Stamp, now time.Time) (User, []Command) {
	next := u
	stamp := s
	next.Refresh = &stamp
	next.UpdatedAt = now
	return next, []Command{WriteSession{UserID: u.ID, Next: next.Refresh, At: now}}
}

// RotateSession swaps the refresh fingerprint while carrying the current
// expiry forward unchanged.
func (u User) RotateSession(fingerprint string, now time.Time) (User, []Command, error) {
	if u.Refresh == nil {
		return User{}, nil, ErrRefreshTokenInvalid()
	}
	if fingerprint == "" {
		return User{}, nil, ErrMissingField("fingerprint")
	}
	if u.Refresh.Expired(now) {
		return User{}, nil, ErrRefreshTokenExpired()
	}

	next := u
	next.Refresh = &Stamp{Fingerprint: fingerprint, ExpiresAt: u.Refresh.ExpiresAt}
	next.UpdatedAt = now
	return next, []Command{WriteSession{
		UserID: u.ID,
		Expect: u.Refresh.Fingerprint,
		Next:   next.Refresh,
		At:     now,
	}}, nil
}

// EndSession clears the refresh fingerprint and expiry together.
func (u User) EndSession(now time.Time) (User, []Command, error) {
	if u.Refresh == nil {
		return User{}, nil, ErrSessionNotFound()
	}
	next := u
	next.Refresh = nil
	next.UpdatedAt = now
	return next, []Command{WriteSession{UserID: u.ID, Expect: u.Refresh.Fingerprint, At: now}}, nil
}

// ConfirmEmail marks the user verified and consumes the verification token.
func (u User) ConfirmEmail(now time.Time) (User, []Command, error) {
	// verification requires expiry > now, stricter than the refresh check
	if u.Verification == nil || !u.Verification.ExpiresAt.After(now) {
		return User{}, nil, ErrVerificationTokenInvalid()
	}
	next := u
	next.Verified = true
	next.Verification = nil
	next.UpdatedAt = now
	return next, []Command{ConsumeVerification{
		UserID:      u.ID,
		Fingerprint: u.Verification.Fingerprint,
		At:          now,
	}}, nil
}
