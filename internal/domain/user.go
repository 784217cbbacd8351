package domain

import "context"

// RoleUser is assigned to every account on registration.
const RoleUser = "User"

// Role is a named group of users.
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"-"`
	Name string `gorm:"size:64;uniqueIndex;not null" json:"name"`
}

// User represents a registered account. The email doubles as the user name.
type User struct {
	BaseModel
	Email          string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash   string `gorm:"size:255" json:"-"`
	EmailConfirmed bool   `gorm:"not null;default:false" json:"emailConfirmed"`
	Roles          []Role `gorm:"many2many:user_roles" json:"roles"`
}

// RoleNames returns the names of the user's roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	UserID string
	Name   string
	Email  string
	Roles  []string
}

// UserRepository defines the data access interface for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EnsureRole(ctx context.Context, name string) (*Role, error)
	// Transaction runs fn against a repository bound to a single transaction.
	Transaction(ctx context.Context, fn func(repo UserRepository) error) error
}

// UserService resolves accounts for authenticated callers.
type UserService interface {
	// Profile loads the account behind p. A missing principal, a malformed
	// subject and a deleted account all yield ErrUnauthorized.
	Profile(ctx context.Context, p *Principal) (*User, error)
}
