package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model, email is the login identifier
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName      string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	EmailConfirm   bool       `bun:"email_confirm,notnull" json:"email_confirm"`
	IsActive       bool       `bun:"is_active,notnull" json:"is_active"`
	IsStaff        bool       `bun:"is_staff,notnull" json:"is_staff"`
	IsSuperuser    bool       `bun:"is_superuser,notnull" json:"is_superuser"`
	LoginAttempts  int        `bun:"login_attempts,notnull" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"login_attempt_at,omitempty"`
	LastLogin      *time.Time `bun:"last_login,nullzero" json:"last_login,omitempty"`
	DateJoined     time.Time  `bun:"date_joined,notnull" json:"date_joined"`
	CreatedAt      time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull" json:"updated_at"`
	Profile        *Profile   `bun:"rel:has-one,join:id=user_id" json:"profile,omitempty"`
}

// NewUser returns an active, unconfirmed user with a fresh id
func NewUser(email, firstName, lastName string) *User {
	return &User{
		ID:        uuid.New(),
		Email:     NormalizeEmail(email),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		IsActive:  true,
	}
}

// SetPassword hashes and stores the cleartext password
func (u *User) SetPassword(password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// CheckPassword compares the cleartext password with the stored hash
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return ComparePasswordAndHash(password, u.PasswordHash) == nil
}

// FullName returns first and last name separated by a space
func (u *User) FullName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
}

func (u *User) String() string {
	return fmt.Sprintf("%s <%s>", u.FullName(), u.Email)
}

// HasPerm active superusers hold every permission
func (u *User) HasPerm(perm string) bool {
	return u.IsActive && u.IsSuperuser
}

// CanAccessAdmin staff and superusers may use the admin pages
func (u *User) CanAccessAdmin() bool {
	return u.IsActive && (u.IsStaff || u.IsSuperuser)
}

// Profile holds optional contact details, one per user
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id,omitempty"`
	UserID        uuid.UUID `bun:"user_id,notnull,unique" json:"user_id"`
	Phone         string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Street        string    `bun:"street,nullzero" json:"street,omitempty"`
	PostalCode    string    `bun:"postal_code,nullzero" json:"postal_code,omitempty"`
	City          string    `bun:"city,nullzero" json:"city,omitempty"`
	Region        string    `bun:"region,nullzero" json:"region,omitempty"`
	Province      string    `bun:"province,nullzero" json:"province,omitempty"`
}

// NewProfile returns an empty profile bound to the user
func NewProfile(userID uuid.UUID) *Profile {
	return &Profile{UserID: userID}
}

// NormalizeEmail trims the address and lowercases the domain part
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
