package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hhaamed74/promanager-api/internal/auth"
	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/repository"
)

type output struct {
	AccountID string     `json:"account_id"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	Created   bool       `json:"created"`
}

// Promotes an account to admin, creating it first when -password is given
// and no account exists for -email. Registration never grants admin, so this
// is the only way to get one.
func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "", "Account email (required)")
		name        = flag.String("name", "Administrator", "Display name used when creating the account")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"), "Password used when creating the account")
		roleInput   = flag.String("role", string(model.RoleAdmin), "Role to assign (admin or user)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fail("DATABASE_URL is required")
	}
	if strings.TrimSpace(*email) == "" {
		fail("-email is required")
	}
	role := model.Role(strings.ToLower(*roleInput))
	if !role.IsValid() {
		fail(fmt.Sprintf("invalid role: %s", *roleInput))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fail(fmt.Sprintf("connect database: %v", err))
	}
	defer repo.Close()

	created, err := ensureAccount(ctx, repo, *email, *name, *password)
	if err != nil {
		fail(err.Error())
	}

	account, err := repo.SetAccountRole(ctx, *email, role)
	if err != nil {
		fail(fmt.Sprintf("set role: %v", err))
	}

	out := output{AccountID: account.ID, Email: account.Email, Role: account.Role, Created: created}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Printf("%s %s %s\n", out.AccountID, out.Email, out.Role)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fail("invalid format; use plain or json")
	}
}

func ensureAccount(ctx context.Context, repo *repository.Repository, email, name, password string) (bool, error) {
	_, err := repo.GetAccountByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return false, fmt.Errorf("lookup account: %w", err)
	}
	if password == "" {
		return false, fmt.Errorf("no account for %s; pass -password to create one", email)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &model.Account{
		ID:           ulid.Make().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		Avatar:       model.DefaultAvatarURL,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateAccount(ctx, account); err != nil {
		return false, fmt.Errorf("create account: %w", err)
	}
	return true, nil
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
