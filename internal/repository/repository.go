package repository

import (
	"github.com/prperemyshlev/social-auth/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Accounts AccountRepository
	Sessions SessionRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Accounts: NewAccountRepository(db),
		Sessions: NewSessionRepository(db),
	}
}
