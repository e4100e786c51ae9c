package account_test

import (
	"errors"
	"testing"
	"time"

	"astres/internal/domain/account"
)

// TestAccount_Validate tests validation of Account.
func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account account.Account
		wantErr error
	}{
		{
			name:    "valid admin account",
			account: account.Account{ID: "1", Email: "admin@sonetastres.fr", Role: account.RoleAdmin},
		},
		{
			name:    "empty email",
			account: account.Account{ID: "2", Role: account.RoleAdmin},
			wantErr: account.ErrEmptyEmail,
		},
		{
			name:    "email without at",
			account: account.Account{ID: "3", Email: "admin.sonetastres.fr", Role: account.RoleAdmin},
			wantErr: account.ErrInvalidEmail,
		},
		{
			name:    "unknown role",
			account: account.Account{ID: "4", Email: "guest@sonetastres.fr", Role: "guest"},
			wantErr: account.ErrInvalidRole,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestAccount_Password checks hashing and verification.
func TestAccount_Password(t *testing.T) {
	a := account.Account{Email: "admin@sonetastres.fr", Role: account.RoleAdmin}

	if err := a.SetPassword("short"); !errors.Is(err, account.ErrPasswordTooShort) {
		t.Errorf("SetPassword(short) = %v, want ErrPasswordTooShort", err)
	}
	if err := a.SetPassword(""); !errors.Is(err, account.ErrEmptyPassword) {
		t.Errorf("SetPassword(empty) = %v, want ErrEmptyPassword", err)
	}
	if err := a.SetPassword("une longue phrase secrète"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if a.PasswordHash == "" || a.PasswordHash == "une longue phrase secrète" {
		t.Fatal("password was not hashed")
	}
	if err := a.CheckPassword("une longue phrase secrète"); err != nil {
		t.Errorf("CheckPassword(correct) = %v", err)
	}
	if err := a.CheckPassword("mauvaise phrase secrète"); !errors.Is(err, account.ErrWrongPassword) {
		t.Errorf("CheckPassword(wrong) = %v, want ErrWrongPassword", err)
	}
}

// TestAccount_Lockout locks after MaxFailedLogins and unlocks after the window.
func TestAccount_Lockout(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	a := account.Account{}

	for i := 0; i < account.MaxFailedLogins-1; i++ {
		a.RecordFailedLogin(now)
	}
	if a.IsLocked(now) {
		t.Fatal("locked before reaching the limit")
	}
	a.RecordFailedLogin(now)
	if !a.IsLocked(now) {
		t.Fatal("not locked after reaching the limit")
	}
	if a.IsLocked(now.Add(account.LockoutDuration + time.Second)) {
		t.Error("still locked after the lockout window")
	}

	a.ResetFailedLogins()
	if a.FailedLogins != 0 || a.IsLocked(now) {
		t.Error("ResetFailedLogins did not clear state")
	}
}
