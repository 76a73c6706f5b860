package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendry/attendry-api/internal/api/handler/v1/response"
	"github.com/attendry/attendry-api/internal/config"
	"github.com/attendry/attendry-api/internal/domain"
	"github.com/attendry/attendry-api/internal/pkg/jwthelper"
	"github.com/attendry/attendry-api/internal/ratelimit"
	"github.com/attendry/attendry-api/internal/service"
)

const testSigningKey = "test-signing-key"

type failingCounterStore struct{}

func (failingCounterStore) IncrWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func (failingCounterStore) DebitBucket(context.Context, string, int, int) (bool, int64, time.Duration, error) {
	return false, 0, 0, errors.New("store down")
}

func newAuthRouter(svc AuthService, limiter *ratelimit.Limiter) *gin.Engine {
	conf := &config.APIConfig{JWTSigningKey: testSigningKey}
	handler := NewAuthHandler(conf, svc, limiter, ratelimit.WindowPolicy("login", 2, time.Minute))

	router := newTestRouter(0)
	router.POST("/auth/signup", handler.HandleSignup)
	router.POST("/auth/login", handler.HandleLogin)

	return router
}

func unlimited() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.NewMemoryStore(), true, false)
}

func TestHandleSignupCreatesUser(t *testing.T) {
	var got domain.User
	svc := &fakeAuthService{
		signup: func(_ context.Context, user domain.User) (domain.User, error) {
			got = user
			user.ID = 1
			return user, nil
		},
	}
	router := newAuthRouter(svc, unlimited())

	w := doJSON(t, router, http.MethodPost, "/auth/signup", gin.H{
		"email":            "Dana@Example.com",
		"password":         "passw0rd123",
		"confirm_password": "passw0rd123",
		"name":             "Dana",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "dana@example.com", got.Email)
	assert.Empty(t, got.Role)

	var created domain.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, uint(1), created.ID)
}

func TestHandleSignupDuplicateEmail(t *testing.T) {
	svc := &fakeAuthService{
		signup: func(context.Context, domain.User) (domain.User, error) {
			return domain.User{}, service.ErrUserEmailExists
		},
	}
	router := newAuthRouter(svc, unlimited())

	w := doJSON(t, router, http.MethodPost, "/auth/signup", gin.H{
		"email":            "dana@example.com",
		"password":         "passw0rd123",
		"confirm_password": "passw0rd123",
		"name":             "Dana",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSignupRejectsWeakPassword(t *testing.T) {
	svc := &fakeAuthService{
		signup: func(context.Context, domain.User) (domain.User, error) {
			t.Fatal("signup should not be reached")
			return domain.User{}, nil
		},
	}
	router := newAuthRouter(svc, unlimited())

	w := doJSON(t, router, http.MethodPost, "/auth/signup", gin.H{
		"email":            "dana@example.com",
		"password":         "letters-only",
		"confirm_password": "letters-only",
		"name":             "Dana",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleLoginReturnsToken(t *testing.T) {
	svc := &fakeAuthService{
		login: func(_ context.Context, email, password string) (domain.User, error) {
			require.Equal(t, "dana@example.com", email)
			return testStudent, nil
		},
	}
	router := newAuthRouter(svc, unlimited())

	w := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"email":    "Dana@Example.com",
		"password": "passw0rd123",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp response.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, testStudent.ID, resp.User.ID)

	claims, err := jwthelper.ParseToken([]byte(testSigningKey), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, testStudent.ID, claims.UserID)
}

func TestHandleLoginWrongCredentials(t *testing.T) {
	svc := &fakeAuthService{
		login: func(context.Context, string, string) (domain.User, error) {
			return domain.User{}, service.ErrWrongPassword
		},
	}
	router := newAuthRouter(svc, unlimited())

	w := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"email":    "dana@example.com",
		"password": "wrong-pass1",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp response.Err
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "WRONG_CREDENTIALS", resp.ErrorCode)
}

func TestHandleLoginRateLimited(t *testing.T) {
	svc := &fakeAuthService{
		login: func(context.Context, string, string) (domain.User, error) {
			return domain.User{}, service.ErrWrongPassword
		},
	}
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), false, false)
	router := newAuthRouter(svc, limiter)

	// Mixed casing counts against the same account.
	emails := []string{"dana@example.com", "Dana@Example.com", "DANA@EXAMPLE.COM"}
	var last int
	var lastHeader string
	for _, email := range emails {
		w := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
			"email":    email,
			"password": "wrong-pass1",
		})
		last = w.Code
		lastHeader = w.Header().Get("Retry-After")
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.NotEmpty(t, lastHeader)

	// A different account is untouched.
	w := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"email":    "other@example.com",
		"password": "wrong-pass1",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleLoginFailsClosedWhenStoreDown(t *testing.T) {
	svc := &fakeAuthService{
		login: func(context.Context, string, string) (domain.User, error) {
			t.Fatal("login should not be reached when the limiter store is down")
			return domain.User{}, nil
		},
	}
	limiter := ratelimit.New(failingCounterStore{}, false, false)
	router := newAuthRouter(svc, limiter)

	w := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"email":    "dana@example.com",
		"password": "passw0rd123",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleLoginFailsOpenWhenConfigured(t *testing.T) {
	svc := &fakeAuthService{
		login: func(context.Context, string, string) (domain.User, error) {
			return testStudent, nil
		},
	}
	limiter := ratelimit.New(failingCounterStore{}, false, true)
	router := newAuthRouter(svc, limiter)

	w := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"email":    "dana@example.com",
		"password": "passw0rd123",
	})

	assert.Equal(t, http.StatusOK, w.Code)
}
