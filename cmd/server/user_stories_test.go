package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strings"
	"testing"
	"time"
)

// Test_UserStories runs the full account journey against a live server.
// These are end-to-end tests and won't check the nitty-gritty details
// or edge cases.
func Test_UserStories(t *testing.T) {
	t.Run("as a new user, I want to", testEnv(func(t *testing.T) {
		// runAppForTest waits for the app to be up and stops it after the test finishes.
		logs := runAppForTest(t)

		c := newClient(t)

		var accessToken string

		t.Run("register an account", func(t *testing.T) {
			c.mustPostJSON(t, "/auth/register",
				`{"email":"agent@example.com","password":"reallyStrongPassword1"}`,
				http.StatusCreated)
		})

		t.Run("activate it via the emailed link", func(t *testing.T) {
			activationURL := waitAndCaptureURL(t, logs,
				"Please confirm your email address",
				regexp.MustCompile(`\bhttps?://localhost:8888/user/activate\S+`))

			c.mustGet(t, activationURL, http.StatusOK)
		})

		t.Run("login", func(t *testing.T) {
			body := c.mustPostJSON(t, "/auth/login",
				`{"email":"agent@example.com","password":"reallyStrongPassword1"}`,
				http.StatusOK)

			accessToken = body["accessToken"].(string)
			if accessToken == "" {
				t.Fatal("expected a non-empty access token")
			}
		})

		t.Run("see who I am logged in as", func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, baseURL+"/auth/current", nil)
			if err != nil {
				t.Fatalf("failed to create request: %v", err)
			}
			req.Header.Set("Authorization", "Bearer "+accessToken)

			body := c.mustDo(t, req, http.StatusOK)

			user := body["user"].(map[string]any)
			if user["email"] != "agent@example.com" {
				t.Errorf("got email %v, want agent@example.com", user["email"])
			}
		})

		t.Run("refresh my access token using the cookie", func(t *testing.T) {
			body := c.mustGet(t, baseURL+"/auth/refresh", http.StatusOK)

			if body["accessToken"] == "" {
				t.Fatal("expected a non-empty access token")
			}
		})

		t.Run("reset my password via the emailed link", func(t *testing.T) {
			c.mustPostJSON(t, "/user/request-password-change",
				`{"email":"agent@example.com"}`,
				http.StatusOK)

			resetURL := waitAndCaptureURL(t, logs,
				"Reset your password",
				regexp.MustCompile(`\bhttps?://localhost:8888/user/change-password\S+`))

			req, err := http.NewRequest(http.MethodPost, resetURL, strings.NewReader(`{"password":"brandNewPassword1"}`))
			if err != nil {
				t.Fatalf("failed to create request: %v", err)
			}
			req.Header.Set("Content-Type", "application/json")

			c.mustDo(t, req, http.StatusOK)
		})

		t.Run("login with the new password", func(t *testing.T) {
			body := c.mustPostJSON(t, "/auth/login",
				`{"email":"agent@example.com","password":"brandNewPassword1"}`,
				http.StatusOK)

			accessToken = body["accessToken"].(string)
		})

		t.Run("delete my account", func(t *testing.T) {
			req, err := http.NewRequest(http.MethodDelete, baseURL+"/user/delete", nil)
			if err != nil {
				t.Fatalf("failed to create request: %v", err)
			}
			req.Header.Set("Authorization", "Bearer "+accessToken)

			c.mustDo(t, req, http.StatusOK)

			c.mustPostJSON(t, "/auth/login",
				`{"email":"agent@example.com","password":"brandNewPassword1"}`,
				http.StatusUnauthorized)
		})
	}))
}

// runAppForTest runs the app while the test is running.
// This function returns after the app is confirmed to be up and stops
// the app when the test is cleaned up.
func runAppForTest(t *testing.T) *safeBuffer {
	t.Helper()

	buf := newBuffer()

	// we will stop the server after a timeout or when the test is cleaned up.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(func() {
		cancel()

		if t.Failed() {
			t.Logf("app output:\n%s", buf.String())
		}
	})

	go func() {
		code := run(ctx, buf)
		if code != 0 {
			t.Errorf("run exited with code %d", code)
		}

		cancel()
	}()

	err := waitForStatusOK(ctx, healthURL)
	if err != nil {
		t.Fatalf("error waiting for status ok: %v", err)
	}

	return buf
}

type client struct {
	http *http.Client
}

func newClient(t *testing.T) *client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	return &client{
		http: &http.Client{
			Timeout: httpClientTimeout,
			Jar:     jar,
		},
	}
}

func (c *client) mustGet(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	return c.mustDo(t, req, wantStatus)
}

func (c *client) mustPostJSON(t *testing.T, path, body string, wantStatus int) map[string]any {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, baseURL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.mustDo(t, req, wantStatus)
}

func (c *client) mustDo(t *testing.T, req *http.Request, wantStatus int) map[string]any {
	t.Helper()

	res, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("unexpected error during request: %v", err)
	}

	defer func() {
		if err := res.Body.Close(); err != nil {
			t.Fatalf("unexpected error closing response body: %v", err)
		}
	}()

	if res.StatusCode != wantStatus {
		t.Fatalf("unexpected status code: %d (want %d)", res.StatusCode, wantStatus)
	}

	out := make(map[string]any)
	if res.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			t.Fatalf("unexpected error decoding response body: %v", err)
		}
	}

	return out
}

// waitAndCaptureURL waits for an email with the given subject to show
// up in the logs and extracts the first URL matching re from it.
func waitAndCaptureURL(t *testing.T, logs *safeBuffer, subject string, re *regexp.Regexp) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	captureFunc := func() (string, bool) {
		lookFor := []string{
			`msg="send email"`,
			fmt.Sprintf("subject=%q", subject),
		}

	OUTER:
		for _, line := range strings.Split(logs.String(), "\n") {
			for _, l := range lookFor {
				if !strings.Contains(line, l) {
					continue OUTER
				}
			}

			// the log line escapes the newlines in the email body.
			line = strings.ReplaceAll(line, `\n`, " ")
			if url := re.FindString(line); url != "" {
				return url, true
			}
		}

		return "", false
	}

	for {
		select {
		case <-ticker.C:
			if url, ok := captureFunc(); ok {
				return url
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for email with subject %q", subject)
		}
	}
}
