package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jornfrank/gatehouse/internal/krypto"
	"github.com/jornfrank/gatehouse/internal/token"
)

func newService(t *testing.T) *token.Service {
	t.Helper()

	svc, err := token.NewService(token.Config{
		AccessSecret:  krypto.NewSecret("access-secret"),
		RefreshSecret: krypto.NewSecret("refresh-secret"),
	})
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}

	return svc
}

func testUser() token.UserInfo {
	return token.UserInfo{
		ID:    uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479"),
		Email: "alice@example.com",
	}
}

func Test_NewService(t *testing.T) {
	t.Run("fail, missing access secret", func(t *testing.T) {
		_, err := token.NewService(token.Config{
			RefreshSecret: krypto.NewSecret("refresh-secret"),
		})
		if !errors.Is(err, token.ErrMissingSecret) {
			t.Fatalf("expected %v, got %v (via errors.Is)", token.ErrMissingSecret, err)
		}
	})

	t.Run("fail, missing refresh secret", func(t *testing.T) {
		_, err := token.NewService(token.Config{
			AccessSecret: krypto.NewSecret("access-secret"),
		})
		if !errors.Is(err, token.ErrMissingSecret) {
			t.Fatalf("expected %v, got %v (via errors.Is)", token.ErrMissingSecret, err)
		}
	})
}

func Test_Service_AccessRoundTrip(t *testing.T) {
	t.Run("ok, issue and verify", func(t *testing.T) {
		svc := newService(t)
		user := testUser()

		raw, err := svc.IssueAccess(user)
		if err != nil {
			t.Fatalf("failed to issue access token: %v", err)
		}

		got, err := svc.VerifyAccess(raw)
		if err != nil {
			t.Fatalf("failed to verify access token: %v", err)
		}

		if got != user {
			t.Errorf("got %+v, want %+v", got, user)
		}
	})

	t.Run("fail, expired", func(t *testing.T) {
		svc := newService(t)

		raw, err := svc.IssueAccess(testUser())
		if err != nil {
			t.Fatalf("failed to issue access token: %v", err)
		}

		// Access tokens live for 10 minutes.
		svc.NowFunc = func() time.Time {
			return time.Now().Add(10*time.Minute + time.Second)
		}

		_, err = svc.VerifyAccess(raw)
		if !errors.Is(err, token.ErrTokenExpired) {
			t.Fatalf("expected %v, got %v (via errors.Is)", token.ErrTokenExpired, err)
		}
	})

	t.Run("fail, signed with other secret", func(t *testing.T) {
		svc := newService(t)

		other, err := token.NewService(token.Config{
			AccessSecret:  krypto.NewSecret("other-access-secret"),
			RefreshSecret: krypto.NewSecret("other-refresh-secret"),
		})
		if err != nil {
			t.Fatalf("failed to create token service: %v", err)
		}

		raw, err := other.IssueAccess(testUser())
		if err != nil {
			t.Fatalf("failed to issue access token: %v", err)
		}

		_, err = svc.VerifyAccess(raw)
		if !errors.Is(err, token.ErrSignatureMismatch) {
			t.Fatalf("expected %v, got %v (via errors.Is)", token.ErrSignatureMismatch, err)
		}
	})

	t.Run("fail, garbage input", func(t *testing.T) {
		svc := newService(t)

		_, err := svc.VerifyAccess("not-a-token")
		if !errors.Is(err, token.ErrTokenMalformed) {
			t.Fatalf("expected %v, got %v (via errors.Is)", token.ErrTokenMalformed, err)
		}
	})
}

func Test_Service_RefreshRoundTrip(t *testing.T) {
	t.Run("ok, issue and verify", func(t *testing.T) {
		svc := newService(t)

		raw, err := svc.IssueRefresh("alice@example.com")
		if err != nil {
			t.Fatalf("failed to issue refresh token: %v", err)
		}

		got, err := svc.VerifyRefresh(raw)
		if err != nil {
			t.Fatalf("failed to verify refresh token: %v", err)
		}

		if got != "alice@example.com" {
			t.Errorf("got %q, want %q", got, "alice@example.com")
		}
	})

	t.Run("fail, expired", func(t *testing.T) {
		svc := newService(t)

		raw, err := svc.IssueRefresh("alice@example.com")
		if err != nil {
			t.Fatalf("failed to issue refresh token: %v", err)
		}

		// Refresh tokens live for a day.
		svc.NowFunc = func() time.Time {
			return time.Now().Add(24*time.Hour + time.Second)
		}

		_, err = svc.VerifyRefresh(raw)
		if !errors.Is(err, token.ErrTokenExpired) {
			t.Fatalf("expected %v, got %v (via errors.Is)", token.ErrTokenExpired, err)
		}
	})

	t.Run("fail, access token used as refresh token", func(t *testing.T) {
		svc := newService(t)

		raw, err := svc.IssueAccess(testUser())
		if err != nil {
			t.Fatalf("failed to issue access token: %v", err)
		}

		// The kinds use different secrets, so an access token can
		// never pass for a refresh token.
		_, err = svc.VerifyRefresh(raw)
		if !errors.Is(err, token.ErrSignatureMismatch) {
			t.Fatalf("expected %v, got %v (via errors.Is)", token.ErrSignatureMismatch, err)
		}
	})
}

func Test_Service_ResetRoundTrip(t *testing.T) {
	const pwdHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	t.Run("ok, issue and verify against same hash", func(t *testing.T) {
		svc := newService(t)
		user := testUser()

		raw, err := svc.IssueReset(user, pwdHash)
		if err != nil {
			t.Fatalf("failed to issue reset token: %v", err)
		}

		got, err := svc.VerifyReset(raw, pwdHash)
		if err != nil {
			t.Fatalf("failed to verify reset token: %v", err)
		}

		if got != user {
			t.Errorf("got %+v, want %+v", got, user)
		}
	})

	t.Run("fail, password changed after issue", func(t *testing.T) {
		svc := newService(t)

		raw, err := svc.IssueReset(testUser(), pwdHash)
		if err != nil {
			t.Fatalf("failed to issue reset token: %v", err)
		}

		// The old token must fail against the new hash even though
		// its own expiry has not elapsed.
		const newHash = "$2a$10$mDSkEOTDeaT4aPi1A3isTejMf2VXXEOgEb5lf6F0asFCIAHPmWJ6W"
		_, err = svc.VerifyReset(raw, newHash)
		if !errors.Is(err, token.ErrSignatureMismatch) {
			t.Fatalf("expected %v, got %v (via errors.Is)", token.ErrSignatureMismatch, err)
		}
	})

	t.Run("fail, expired", func(t *testing.T) {
		svc := newService(t)

		raw, err := svc.IssueReset(testUser(), pwdHash)
		if err != nil {
			t.Fatalf("failed to issue reset token: %v", err)
		}

		// Reset tokens live for 10 minutes.
		svc.NowFunc = func() time.Time {
			return time.Now().Add(10*time.Minute + time.Second)
		}

		_, err = svc.VerifyReset(raw, pwdHash)
		if !errors.Is(err, token.ErrTokenExpired) {
			t.Fatalf("expected %v, got %v (via errors.Is)", token.ErrTokenExpired, err)
		}
	})
}
