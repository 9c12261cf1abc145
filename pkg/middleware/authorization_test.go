package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/app-sre/connect-ai/internal/test"
	connectai "github.com/app-sre/connect-ai/pkg"
	"github.com/app-sre/connect-ai/pkg/env/user"
)

type authorizationCase struct {
	description string
	given       *user.Env
	headers     func(*http.Request)
	code        int
	body        string
	user        string
}

func runAuthorization(t *testing.T, tc authorizationCase) {
	t.Helper()

	var (
		body bytes.Buffer
		user string
	)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", &bytes.Buffer{})

	logger := test.DummyLogger(io.Discard)

	tc.headers(r)

	expected := &connectai.Config{Logger: logger, UserEnv: tc.given}
	Authorization(expected)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := r.Context().Value(ContextKeyUser).(string)
		if !ok {
			t.Fatal("invalid context")
		}
		user = s
	})).ServeHTTP(w, r)

	actual := w.Result()
	defer func() { _ = actual.Body.Close() }()

	_, _ = io.Copy(&body, actual.Body)

	assert.Equal(t, tc.code, actual.StatusCode)
	assert.Contains(t, body.String(), tc.body)
	assert.Equal(t, tc.user, user)
}

func TestAuthorization(t *testing.T) {
	t.Parallel()

	cases := []authorizationCase{
		{
			"no users set with valid header",
			&user.Env{},
			func(r *http.Request) {
				r.Header.Set("X-Forwarded-User", "test")
			},
			200,
			``,
			`test`,
		},
		{
			"no user environment with valid header",
			nil,
			func(r *http.Request) {
				r.Header.Set("X-Forwarded-User", "test")
			},
			200,
			``,
			`test`,
		},
		{
			"empty users lists with invalid header",
			&user.Env{Users: []string{}},
			func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "test")
			},
			400,
			`Request without required header: X-Forwarded-User`,
			``,
		},
		{
			"users set without required header",
			&user.Env{Users: []string{"test"}},
			func(r *http.Request) {
				// No-op.
			},
			400,
			`Request without required header: X-Forwarded-User`,
			``,
		},
		{
			"users set with required header value set to invalid user",
			&user.Env{Users: []string{"test"}},
			func(r *http.Request) {
				r.Header.Set("X-Forwarded-User", "test2")
			},
			403,
			`User does not have required permissions`,
			``,
		},
		{
			"users set with required header value set to valid user",
			&user.Env{Users: []string{"test", "test2"}},
			func(r *http.Request) {
				r.Header.Set("X-Forwarded-User", "test2")
			},
			200,
			``,
			`test2`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()

			runAuthorization(t, tc)
		})
	}
}

func TestAuthorizationProduction(t *testing.T) {
	cases := []authorizationCase{
		{
			"no users set with valid header",
			&user.Env{},
			func(r *http.Request) {
				r.Header.Set("X-Forwarded-User", "test")
			},
			401,
			`Request cannot be authorized`,
			``,
		},
		{
			"users set with required header value set to valid user",
			&user.Env{Users: []string{"test"}},
			func(r *http.Request) {
				r.Header.Set("X-Forwarded-User", "test")
			},
			200,
			``,
			`test`,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.description, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "production")

			runAuthorization(t, tc)
		})
	}
}
