package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"astres/internal/domain/account"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
	Count(ctx context.Context) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Email    string
	Password string
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	GenerateID   func() string
	Now          func() time.Time
}

// ErrEmailAlreadyExists is returned when an account already uses the email.
var ErrEmailAlreadyExists = errors.New("an account with this email already exists")

// ExecuteCreateAccount creates an admin account.
// PRE: Valid email, password >= 12 chars
// POST: Account created with hashed password
// INVARIANT: Email must be unique
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (string, error) {
	acct := account.Account{
		ID:        deps.GenerateID(),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Role:      account.RoleAdmin,
		CreatedAt: deps.Now(),
	}
	if err := acct.Validate(); err != nil {
		return "", err
	}

	_, err := deps.AccountStore.GetByEmail(ctx, acct.Email)
	if err == nil {
		return "", ErrEmailAlreadyExists
	}
	if !errors.Is(err, account.ErrNotFound) {
		return "", fmt.Errorf("check existing account: %w", err)
	}

	if err := acct.SetPassword(input.Password); err != nil {
		return "", err
	}
	if err := deps.AccountStore.Save(ctx, acct); err != nil {
		return "", err
	}

	slog.Info("auth_event", "event", "account_created", "email", acct.Email)
	return acct.ID, nil
}

// ExecuteSeedAdmin creates the first admin account if no accounts exist.
// PRE: Database is migrated
// POST: Admin account created if count == 0; no-op otherwise
func ExecuteSeedAdmin(ctx context.Context, deps CreateAccountDeps, email, password string) error {
	count, err := deps.AccountStore.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if _, err := ExecuteCreateAccount(ctx, CreateAccountInput{Email: email, Password: password}, deps); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "admin_seeded", "email", email)
	return nil
}
