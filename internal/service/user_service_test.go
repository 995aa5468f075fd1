package service

import (
	"context"
	"errors"
	"testing"

	"procureflow/internal/repository"

	"gorm.io/gorm"
)

func newUserServiceForTest(t *testing.T) (UserService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewUserService(repository.NewUserRepository(db), db), db
}

func TestGenerateDefaultPassword(t *testing.T) {
	tests := []struct {
		firstName string
		lastName  string
		want      string
	}{
		{"Gale", "Jackson", "JacksonG"},
		{"Morgan", "Elliot", "ElliotM"},
		{"Mike", "Chen", "ChenM"},
		{"Mary Ann", "Van Der Berg", "VanDerBergM"},
		{"", "Jackson", "password"},
		{"Gale", "", "password"},
		{"   ", "Jackson", "password"},
	}
	for _, tt := range tests {
		if got := GenerateDefaultPassword(tt.firstName, tt.lastName); got != tt.want {
			t.Errorf("GenerateDefaultPassword(%q, %q) = %q, want %q", tt.firstName, tt.lastName, got, tt.want)
		}
	}
}

func TestCreateUserIssuesDefaultPassword(t *testing.T) {
	svc, _ := newUserServiceForTest(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		FirstName: "Gale",
		LastName:  "Jackson",
		JobTitle:  "QA ENG",
		Role:      "Employee",
		Username:  "gjackson",
	}, nil)
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if created.DefaultPassword != "JacksonG" {
		t.Errorf("default password = %q, want %q", created.DefaultPassword, "JacksonG")
	}
	if !created.User.IsDefaultPassword {
		t.Error("new account should be flagged as carrying a default password")
	}

	if _, err := svc.Authenticate(ctx, "gjackson", "JacksonG"); err != nil {
		t.Fatalf("Authenticate with the default password failed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "gjackson", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate with a wrong password: error = %v, want ErrInvalidCredentials", err)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	svc, _ := newUserServiceForTest(t)
	ctx := context.Background()

	req := CreateUserRequest{FirstName: "Gale", LastName: "Jackson", Role: "Employee", Username: "gjackson"}
	if _, err := svc.CreateUser(ctx, req, nil); err != nil {
		t.Fatalf("first CreateUser returned error: %v", err)
	}
	if _, err := svc.CreateUser(ctx, req, nil); !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("second CreateUser: error = %v, want ErrDuplicateUsername", err)
	}
}

func TestAuthenticateFoldsUsernameCase(t *testing.T) {
	svc, _ := newUserServiceForTest(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, CreateUserRequest{
		FirstName: "Morgan", LastName: "Elliot", Role: "Employee", Username: "morgan",
	}, nil); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	for _, username := range []string{"morgan", "Morgan", "MORGAN"} {
		if _, err := svc.Authenticate(ctx, username, "ElliotM"); err != nil {
			t.Errorf("Authenticate(%q) failed: %v", username, err)
		}
	}
}

func TestSetPasswordClearsDefaultFlag(t *testing.T) {
	svc, _ := newUserServiceForTest(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		FirstName: "Gale", LastName: "Jackson", Role: "Employee", Username: "gjackson",
	}, nil)
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	if err := svc.SetPassword(ctx, created.User.ID.String(), "hunter2hunter2"); err != nil {
		t.Fatalf("SetPassword returned error: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "gjackson", "JacksonG"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old default password still authenticates after a change")
	}
	if _, err := svc.Authenticate(ctx, "gjackson", "hunter2hunter2"); err != nil {
		t.Fatalf("Authenticate with the new password failed: %v", err)
	}

	user, err := svc.GetUserByID(ctx, created.User.ID.String())
	if err != nil {
		t.Fatalf("GetUserByID returned error: %v", err)
	}
	if user.IsDefaultPassword {
		t.Error("default-password flag not cleared by SetPassword")
	}
}

func TestResetPasswordRestoresDefault(t *testing.T) {
	svc, _ := newUserServiceForTest(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		FirstName: "Gale", LastName: "Jackson", Role: "Employee", Username: "gjackson",
	}, nil)
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if err := svc.SetPassword(ctx, created.User.ID.String(), "hunter2hunter2"); err != nil {
		t.Fatalf("SetPassword returned error: %v", err)
	}

	plain, err := svc.ResetPassword(ctx, created.User.ID.String(), nil)
	if err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	if plain != "JacksonG" {
		t.Errorf("reset password = %q, want %q", plain, "JacksonG")
	}

	user, err := svc.Authenticate(ctx, "gjackson", plain)
	if err != nil {
		t.Fatalf("Authenticate after reset failed: %v", err)
	}
	if !user.IsDefaultPassword {
		t.Error("default-password flag not restored by ResetPassword")
	}
}

func TestResetPasswordUnknownUser(t *testing.T) {
	svc, _ := newUserServiceForTest(t)
	if _, err := svc.ResetPassword(context.Background(), "c1a2b3d4-0000-0000-0000-000000000000", nil); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("error = %v, want ErrUserNotFound", err)
	}
}

func TestLoginAndRefreshRotation(t *testing.T) {
	svc, _ := newUserServiceForTest(t)
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, CreateUserRequest{
		FirstName: "Morgan", LastName: "Elliot", Role: "ESS", Username: "morgan",
	}, nil); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	tokens, err := svc.Login(ctx, LoginUserRequest{Username: "morgan", Password: "ElliotM"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if tokens.Token == "" || tokens.RefreshToken == "" {
		t.Fatal("Login returned empty tokens")
	}

	rotated, err := svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken returned error: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// the used token must be invalidated by rotation
	if _, err := svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken}); err == nil {
		t.Fatal("rotated-out refresh token still accepted")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newUserServiceForTest(t)
	if _, err := svc.Login(context.Background(), LoginUserRequest{Username: "ghost", Password: "nope"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}
