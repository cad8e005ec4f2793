package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthsphere/go-health-backend/internal/auth"
)

func newAuthSvc(t *testing.T) *AuthService {
	t.Helper()
	db := newSvcDB(t)
	return NewAuthService(db, auth.NewTokenIssuer("test-secret", time.Hour))
}

func TestSignup_IssuesVerifiableToken(t *testing.T) {
	svc := newAuthSvc(t)

	user, token, err := svc.Signup(context.Background(), "a@example.com", "hunter22")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "a@example.com" {
		t.Fatalf("email = %q", user.Email)
	}

	subject, err := svc.Tokens.Verify(token)
	if err != nil || subject != user.ID {
		t.Fatalf("verify = %q, %v; want the user id", subject, err)
	}
}

func TestSignup_Validation(t *testing.T) {
	svc := newAuthSvc(t)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "not-an-email", "hunter22"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("bad email = %v, want ErrInvalidEmail", err)
	}
	if _, _, err := svc.Signup(ctx, "a@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("short password = %v, want ErrWeakPassword", err)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc := newAuthSvc(t)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "a@example.com", "hunter22"); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, _, err := svc.Signup(ctx, "A@Example.com", "hunter22"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate = %v, want ErrEmailTaken (case-insensitive)", err)
	}
}

func TestLogin_RoundTrip(t *testing.T) {
	svc := newAuthSvc(t)
	ctx := context.Background()

	created, _, err := svc.Signup(ctx, "a@example.com", "hunter22")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	user, token, err := svc.Login(ctx, "a@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != created.ID || token == "" {
		t.Fatalf("login returned user %q token %q", user.ID, token)
	}
}

func TestLogin_BadCredentialsIndistinguishable(t *testing.T) {
	svc := newAuthSvc(t)
	ctx := context.Background()

	if _, _, err := svc.Signup(ctx, "a@example.com", "hunter22"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, _, unknownErr := svc.Login(ctx, "nobody@example.com", "hunter22")
	_, _, wrongErr := svc.Login(ctx, "a@example.com", "wrongpass")

	if !errors.Is(unknownErr, ErrBadCredentials) || !errors.Is(wrongErr, ErrBadCredentials) {
		t.Fatalf("errors = %v / %v, want the same ErrBadCredentials for both", unknownErr, wrongErr)
	}
}

func TestCurrentUser(t *testing.T) {
	svc := newAuthSvc(t)
	ctx := context.Background()

	created, _, err := svc.Signup(ctx, "a@example.com", "hunter22")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	got, err := svc.CurrentUser(ctx, created.ID)
	if err != nil || got.Email != "a@example.com" {
		t.Fatalf("current user = %+v, %v", got, err)
	}
}
