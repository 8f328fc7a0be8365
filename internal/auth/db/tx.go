package db

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/auth"
)

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateUser creates a user in the database.
// It returns errorz.ErrConstraintViolated if the email is already taken.
func (t *Tx) CreateUser(u *auth.User) error {
	return insertUser(t.tx.Exec, u)
}

// UpdateUser updates a user in the database.
// It returns errorz.ErrNotFound if no user is found.
func (t *Tx) UpdateUser(u *auth.User) error {
	return updateUser(t.tx.Exec, u)
}

// DeleteUser deletes a user from the database. The foreign key on
// session_keys cascades, their session keys are deleted as well.
// It returns errorz.ErrNotFound if no user is found.
func (t *Tx) DeleteUser(id uuid.UUID) error {
	return deleteUser(t.tx.Exec, id)
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (t *Tx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(t.tx.Query, filter)
}

// CreateSessionKey creates a session key in the database.
func (t *Tx) CreateSessionKey(k *auth.SessionKey) error {
	return insertSessionKey(t.tx.Exec, k)
}

// DeleteSessionKeys deletes all session keys matching the filter. An
// empty filter is refused, revocation is always scoped to users or keys.
func (t *Tx) DeleteSessionKeys(filter *auth.SessionKeyFilter) error {
	return deleteSessionKeys(t.tx.Exec, filter)
}

// FindSessionKeys queries for session keys based on the provided filter.
func (t *Tx) FindSessionKeys(filter *auth.SessionKeyFilter) ([]auth.SessionKey, error) {
	return selectSessionKeys(t.tx.Query, filter)
}
