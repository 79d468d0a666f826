package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/otp"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/gin-gonic/gin"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake repository implementations of the handler store interfaces

type fakeUsersRepo struct {
	createFn      func(ctx context.Context, u user.User) error
	getByEmailFn  func(ctx context.Context, email string) (user.User, error)
	getByMobileFn func(ctx context.Context, countryCode, mobile string) (user.User, error)
	getByIDFn     func(ctx context.Context, userID string) (user.User, error)
	setPasswordFn func(ctx context.Context, userID, passwordHash string) error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u user.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}

	return nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}

	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) GetByMobile(ctx context.Context, countryCode, mobile string) (user.User, error) {
	if f.getByMobileFn != nil {
		return f.getByMobileFn(ctx, countryCode, mobile)
	}

	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, userID string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, userID)
	}

	return user.User{}, user.ErrNotFound
}

func (f *fakeUsersRepo) SetPassword(ctx context.Context, userID, passwordHash string) error {
	if f.setPasswordFn != nil {
		return f.setPasswordFn(ctx, userID, passwordHash)
	}

	return nil
}

type fakeSessions struct {
	issueFn func(userID, email, role string) (string, time.Time, error)
}

func (f *fakeSessions) Issue(userID, email, role string) (string, time.Time, error) {
	if f.issueFn != nil {
		return f.issueFn(userID, email, role)
	}

	return "session-token", time.Now().Add(5 * time.Minute), nil
}

type fakeVerifier struct {
	verifyFn func(ctx context.Context, identifier, code string) error
}

func (f *fakeVerifier) Verify(ctx context.Context, identifier, code string) error {
	if f.verifyFn != nil {
		return f.verifyFn(ctx, identifier, code)
	}

	return nil
}

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}

	return nil
}

func TestAuthenticateRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeUsersRepo)
		verifierSetUp  func(*fakeVerifier)
		wantStatusCode int
		wantCookie     bool
	}{
		{
			name: "register_email_password_success",
			body: `{"event":"register","mode":"email:password","email":"a@b.com","password":"hunter22"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, u user.User) error {
					if u.ID == "" {
						return errors.New("missing generated id")
					}
					if !u.EmailVerified {
						return errors.New("expected the signup channel to be marked verified")
					}
					if !u.PasswordSet || u.PasswordHash == "" || u.PasswordHash == "hunter22" {
						return errors.New("password must be stored hashed")
					}
					if u.Role != "user" {
						return errors.New("new accounts must get the user role")
					}
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCookie:     true,
		},
		{
			name: "register_existing_user_conflict",
			body: `{"event":"register","mode":"email:password","email":"a@b.com","password":"hunter22"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{ID: "u-1", Email: email}, nil
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name: "register_duplicate_race_conflict",
			body: `{"event":"register","mode":"email:password","email":"a@b.com","password":"hunter22"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, u user.User) error {
					return user.ErrDuplicate
				}
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:           "register_otp_without_passcode",
			body:           `{"event":"register","mode":"email:otp","email":"a@b.com"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "register_otp_bad_passcode",
			body: `{"event":"register","mode":"email:otp","email":"a@b.com","passcode":"000000"}`,
			verifierSetUp: func(f *fakeVerifier) {
				f.verifyFn = func(ctx context.Context, identifier, code string) error {
					return otp.ErrNoMatch
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "register_mobile_otp_success",
			body: `{"event":"register","mode":"mobile","mobile":"5550001111","country-code":"+1","passcode":"123456"}`,
			verifierSetUp: func(f *fakeVerifier) {
				f.verifyFn = func(ctx context.Context, identifier, code string) error {
					if identifier != "+15550001111" {
						return errors.New("mobile identifier must include the country code")
					}
					if code != "123456" {
						return errors.New("unexpected passcode")
					}
					return nil
				}
			},
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, u user.User) error {
					if !u.MobileVerified {
						return errors.New("expected the signup channel to be marked verified")
					}
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCookie:     true,
		},
		{
			name: "register_mobile_otp_ignores_stray_email",
			body: `{"event":"register","mode":"mobile","mobile":"5550002222","country-code":"+1","email":"stray@example.com","passcode":"123456"}`,
			verifierSetUp: func(f *fakeVerifier) {
				f.verifyFn = func(ctx context.Context, identifier, code string) error {
					if identifier != "+15550002222" {
						return fmt.Errorf("identifier %q not keyed by mobile number", identifier)
					}
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCookie:     true,
		},
		{
			name:           "register_missing_email_for_email_mode",
			body:           `{"event":"register","mode":"email:password","password":"hunter22"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "register_missing_country_code_for_mobile_mode",
			body:           `{"event":"register","mode":"mobile","mobile":"5550001111","passcode":"123456"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid_mode",
			body:           `{"event":"register","mode":"carrier-pigeon","email":"a@b.com"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid_event",
			body:           `{"event":"signup","mode":"email","email":"a@b.com"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid_email_format",
			body:           `{"event":"register","mode":"email:password","email":"not-an-email","password":"x"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}
			verifier := &fakeVerifier{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			if tt.verifierSetUp != nil {
				tt.verifierSetUp(verifier)
			}

			h := handlers.NewAuthHandler(repo, &fakeSessions{}, verifier, config.Config{Env: "test"})
			r := setupRouter(http.MethodPost, "/auth", h.Authenticate)

			w := doJSON(t, r, http.MethodPost, "/auth", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			cookie := sessionCookie(w)

			if tt.wantCookie && cookie == nil {
				t.Fatalf("expected a session cookie, got none")
			}

			if !tt.wantCookie && cookie != nil {
				t.Fatalf("did not expect a session cookie, got %q", cookie.Value)
			}
		})
	}
}

func TestAuthenticateLogin(t *testing.T) {
	hash, err := security.HashPassword("hunter22")

	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	existing := user.User{
		ID:           "u-1",
		Email:        "a@b.com",
		Role:         "user",
		PasswordHash: hash,
		PasswordSet:  true,
	}

	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeUsersRepo)
		verifierSetUp  func(*fakeVerifier)
		wantStatusCode int
		wantCookie     bool
	}{
		{
			name: "login_password_success",
			body: `{"event":"login","mode":"email:password","email":"a@b.com","password":"hunter22"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return existing, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCookie:     true,
		},
		{
			name: "login_wrong_password",
			body: `{"event":"login","mode":"email:password","email":"a@b.com","password":"wrong"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return existing, nil
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "login_unknown_user",
			body:           `{"event":"login","mode":"email:password","email":"nobody@b.com","password":"hunter22"}`,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "login_otp_success",
			body: `{"event":"login","mode":"email:otp","email":"a@b.com","passcode":"123456"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return existing, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCookie:     true,
		},
		{
			name: "login_otp_missing_passcode",
			body: `{"event":"login","mode":"email:otp","email":"a@b.com"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return existing, nil
				}
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name: "login_otp_invalid_passcode",
			body: `{"event":"login","mode":"email:otp","email":"a@b.com","passcode":"000000"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return existing, nil
				}
			},
			verifierSetUp: func(f *fakeVerifier) {
				f.verifyFn = func(ctx context.Context, identifier, code string) error {
					return otp.ErrNoMatch
				}
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name: "login_repo_error",
			body: `{"event":"login","mode":"email:password","email":"a@b.com","password":"hunter22"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}
			verifier := &fakeVerifier{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			if tt.verifierSetUp != nil {
				tt.verifierSetUp(verifier)
			}

			h := handlers.NewAuthHandler(repo, &fakeSessions{}, verifier, config.Config{Env: "test"})
			r := setupRouter(http.MethodPost, "/auth", h.Authenticate)

			w := doJSON(t, r, http.MethodPost, "/auth", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			cookie := sessionCookie(w)

			if tt.wantCookie && cookie == nil {
				t.Fatalf("expected a session cookie, got none")
			}
		})
	}
}

func TestAuthenticateResponseShape(t *testing.T) {
	repo := &fakeUsersRepo{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			hash, _ := security.HashPassword("hunter22")

			return user.User{ID: "u-1", Email: email, Role: "user", PasswordHash: hash, PasswordSet: true}, nil
		},
	}

	h := handlers.NewAuthHandler(repo, &fakeSessions{}, &fakeVerifier{}, config.Config{Env: "test"})
	r := setupRouter(http.MethodPost, "/auth", h.Authenticate)

	w := doJSON(t, r, http.MethodPost, "/auth", `{"event":"login","mode":"email:password","email":"a@b.com","password":"hunter22"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Code   int    `json:"code"`
		Data   struct {
			UserID string `json:"user_id"`
			Token  string `json:"token"`
		} `json:"data"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Status != "success" || resp.Code != http.StatusOK {
		t.Fatalf("unexpected envelope: %+v", resp)
	}

	if resp.Data.UserID != "u-1" {
		t.Fatalf("got user_id %q, want %q", resp.Data.UserID, "u-1")
	}

	// the session token travels only in the cookie
	if resp.Data.Token != "" {
		t.Fatalf("token must not appear in the response body")
	}

	cookie := sessionCookie(w)

	if cookie == nil {
		t.Fatalf("expected a session cookie")
	}

	if !cookie.HttpOnly {
		t.Fatalf("session cookie must be http-only")
	}
}
