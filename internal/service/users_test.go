package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/auth"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/model"
	"github.com/Shivanand-hulikatti/campus-event-management/internal/repository"
)

func newUserService(t *testing.T) (*UserService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	return NewUserService(store, tokens, zap.NewNop()), store
}

func TestSignupAndLogin(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, model.SignupRequest{
		Name:     "Priya",
		Email:    "  PRIYA@Campus.EDU ",
		Password: "secret1",
		Preferences: model.Preferences{
			model.TypeAcademic: true,
		},
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.User.Email != "priya@campus.edu" {
		t.Fatalf("email not normalized: %q", res.User.Email)
	}
	if res.Token == "" {
		t.Fatal("signup did not issue a token")
	}
	if !res.User.Preferences[model.TypeAcademic] || res.User.Preferences[model.TypeSports] {
		t.Fatalf("preferences = %v", res.User.Preferences)
	}

	login, err := svc.Login(ctx, model.LoginRequest{Email: "priya@campus.edu", Password: "secret1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Fatal("login returned a different user")
	}

	if _, err := svc.Login(ctx, model.LoginRequest{Email: "priya@campus.edu", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, model.LoginRequest{Email: "ghost@campus.edu", Password: "secret1"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  model.SignupRequest
	}{
		{"no name", model.SignupRequest{Email: "a@campus.edu", Password: "secret1"}},
		{"bad email", model.SignupRequest{Name: "A", Email: "not-an-email", Password: "secret1"}},
		{"short password", model.SignupRequest{Name: "A", Email: "a@campus.edu", Password: "abc"}},
		{"bad preference tag", model.SignupRequest{
			Name: "A", Email: "a@campus.edu", Password: "secret1",
			Preferences: model.Preferences{"gaming": true},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Signup(ctx, tc.req); !errors.Is(err, ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	req := model.SignupRequest{Name: "A", Email: "dup@campus.edu", Password: "secret1"}
	if _, err := svc.Signup(ctx, req); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	if _, err := svc.Signup(ctx, req); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestUpdatePreferences(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, model.SignupRequest{Name: "A", Email: "p@campus.edu", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	got, err := svc.UpdatePreferences(ctx, res.User.ID, model.Preferences{model.TypeSports: true})
	if err != nil {
		t.Fatalf("update preferences: %v", err)
	}
	if !got[model.TypeSports] || got[model.TypeCultural] {
		t.Fatalf("preferences = %v", got)
	}
	// Every known type is present explicitly.
	if len(got) != len(model.EventTypes) {
		t.Fatalf("preferences incomplete: %v", got)
	}

	if _, err := svc.UpdatePreferences(ctx, res.User.ID, model.Preferences{"quidditch": true}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown tag err = %v, want ErrValidation", err)
	}

	fetched, err := svc.GetPreferences(ctx, res.User.ID)
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if !fetched[model.TypeSports] {
		t.Fatalf("preferences not persisted: %v", fetched)
	}
}
