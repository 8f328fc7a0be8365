package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/auth"
	"github.com/jornfrank/gatehouse/internal/email"
	"github.com/jornfrank/gatehouse/internal/errorz"
)

type execFunc func(query string, params ...any) (sql.Result, error)
type queryFunc func(query string, params ...any) (*sql.Rows, error)

func insertUser(ef execFunc, u *auth.User) error {
	if u.ID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	const q = `INSERT INTO users (id, email, password_hash, is_active, activation_token, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := ef(q, u.ID, string(u.Email), u.PasswordHash.String(), u.IsActive, u.ActivationToken, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func updateUser(ef execFunc, u *auth.User) error {
	const q = `UPDATE users
SET email = ?, password_hash = ?, is_active = ?, activation_token = ?, created_at = ?, updated_at = ?
WHERE id = ?`

	result, err := ef(q, string(u.Email), u.PasswordHash.String(), u.IsActive, u.ActivationToken, u.CreatedAt, u.UpdatedAt, u.ID)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("user not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func deleteUser(ef execFunc, id uuid.UUID) error {
	result, err := ef(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	if rows == 0 {
		return fmt.Errorf("user not found: %w", errorz.ErrNotFound)
	}

	return nil
}

func selectUsers(qf queryFunc, f *auth.UserFilter) ([]auth.User, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, email, password_hash, is_active, activation_token, created_at, updated_at FROM users WHERE 1=1 `)

	params := make([]any, 0)

	if len(f.IDs) > 0 {
		b.WriteString(`AND id IN (` + placeholders(len(f.IDs)) + `) `)
		params = append(params, anySlice(f.IDs)...)
	}

	if len(f.Emails) > 0 {
		b.WriteString(`AND email IN (` + placeholders(len(f.Emails)) + `) `)
		params = append(params, anySlice(f.Emails)...)
	}

	if f.IsActive != nil {
		b.WriteString(`AND is_active = ? `)
		params = append(params, *f.IsActive)
	}

	if len(f.ActivationTokens) > 0 {
		b.WriteString(`AND activation_token IN (` + placeholders(len(f.ActivationTokens)) + `) `)
		params = append(params, anySlice(f.ActivationTokens)...)
	}

	b.WriteString(`ORDER BY created_at ASC`)

	rows, err := qf(b.String(), params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.User, 0)
	for rows.Next() {
		var (
			u       auth.User
			rawMail string
			rawHash string
		)
		err := rows.Scan(&u.ID, &rawMail, &rawHash, &u.IsActive, &u.ActivationToken, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		u.Email, err = email.ParseAddress(rawMail)
		if err != nil {
			return nil, err
		}

		u.PasswordHash, err = auth.ParseBcryptHash(rawHash)
		if err != nil {
			return nil, err
		}

		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertSessionKey(ef execFunc, k *auth.SessionKey) error {
	if k.ID == uuid.Nil || k.UserID == uuid.Nil {
		return fmt.Errorf("zero uuid provided: %w", errorz.ErrConstraintViolated)
	}

	const q = `INSERT INTO session_keys (id, user_id, user_agent, issued_at) VALUES (?, ?, ?, ?)`

	_, err := ef(q, k.ID, k.UserID, k.UserAgent, k.IssuedAt)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func deleteSessionKeys(ef execFunc, f *auth.SessionKeyFilter) error {
	if len(f.IDs) == 0 && len(f.UserIDs) == 0 {
		return fmt.Errorf("refusing to delete session keys without filter: %w", errorz.ErrConstraintViolated)
	}

	var b strings.Builder
	b.WriteString(`DELETE FROM session_keys WHERE 1=1 `)

	params := make([]any, 0)

	if len(f.IDs) > 0 {
		b.WriteString(`AND id IN (` + placeholders(len(f.IDs)) + `) `)
		params = append(params, anySlice(f.IDs)...)
	}

	if len(f.UserIDs) > 0 {
		b.WriteString(`AND user_id IN (` + placeholders(len(f.UserIDs)) + `) `)
		params = append(params, anySlice(f.UserIDs)...)
	}

	// Deleting zero rows is fine, revoking sessions for a user that
	// has none is not an error.
	_, err := ef(b.String(), params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func selectSessionKeys(qf queryFunc, f *auth.SessionKeyFilter) ([]auth.SessionKey, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, user_id, user_agent, issued_at FROM session_keys WHERE 1=1 `)

	params := make([]any, 0)

	if len(f.IDs) > 0 {
		b.WriteString(`AND id IN (` + placeholders(len(f.IDs)) + `) `)
		params = append(params, anySlice(f.IDs)...)
	}

	if len(f.UserIDs) > 0 {
		b.WriteString(`AND user_id IN (` + placeholders(len(f.UserIDs)) + `) `)
		params = append(params, anySlice(f.UserIDs)...)
	}

	b.WriteString(`ORDER BY issued_at ASC`)

	rows, err := qf(b.String(), params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]auth.SessionKey, 0)
	for rows.Next() {
		var k auth.SessionKey
		err := rows.Scan(&k.ID, &k.UserID, &k.UserAgent, &k.IssuedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		out = append(out, k)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func anySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
