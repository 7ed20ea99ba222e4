// Package auth manages the set of authenticated principals and their roles,
// layered on the same shared connection and dynamic-statement machinery as
// the rest of the data-access layer.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/chemstore/chemstore/internal/config"
	"github.com/chemstore/chemstore/internal/db"
	"github.com/chemstore/chemstore/internal/observability"
	"github.com/chemstore/chemstore/internal/query"
	"github.com/chemstore/chemstore/internal/schema"
)

const RoleAdmin = "admin"

// UsersTable is the credential table bootstrapped on first use.
const UsersTable = "Users"

// ErrNoMatch is the uniform login-failure signal. It never distinguishes an
// unknown username from a wrong password.
var ErrNoMatch = errors.New("no matching credentials")

// ErrUserExists is returned when creating a user whose name is taken.
var ErrUserExists = errors.New("username already exists")

type User struct {
	Name string
	Role string
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CredentialStore bootstraps the credential table and exposes user
// management. Construction is idempotent: repeated process starts against the
// same store never create a second default admin and never fail on the
// second run.
type CredentialStore struct {
	handle     *db.Handle
	catalog    *schema.Catalog
	engine     *query.Engine
	logger     *slog.Logger
	bcryptCost int
}

func NewCredentialStore(ctx context.Context, handle *db.Handle, catalog *schema.Catalog, engine *query.Engine, logger *slog.Logger, cfg config.AuthConfig) (*CredentialStore, error) {
	cost := cfg.BcryptCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	store := &CredentialStore{
		handle:     handle,
		catalog:    catalog,
		engine:     engine,
		logger:     logger,
		bcryptCost: cost,
	}
	if err := store.bootstrap(ctx, cfg.DefaultAdminUser, cfg.DefaultAdminPassword); err != nil {
		return nil, fmt.Errorf("auth bootstrap: %w", err)
	}
	return store, nil
}

// bootstrap runs a sequence of idempotent checks: probe the credential table,
// create it if absent, probe the default admin row, insert it if absent.
// The sequence is not atomic; each step tolerates the previous run having
// completed it already.
func (s *CredentialStore) bootstrap(ctx context.Context, adminUser, adminPassword string) error {
	hasTable, err := s.catalog.TableExists(ctx, UsersTable)
	if err != nil {
		return err
	}
	if !hasTable {
		conn, err := s.handle.Conn(ctx)
		if err != nil {
			return err
		}
		statements := s.handle.Dialect().UsersTableDDL(UsersTable)

		s.handle.Lock()
		for _, statement := range statements {
			if _, err := conn.ExecContext(ctx, statement); err != nil {
				s.handle.Unlock()
				return fmt.Errorf("create %s table: %w", UsersTable, err)
			}
		}
		s.handle.Unlock()

		if s.logger != nil {
			s.logger.InfoContext(ctx, "created credential table", slog.String("table", UsersTable))
		}
	}

	exists, err := s.UserExists(ctx, adminUser)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.CreateUser(ctx, adminUser, adminPassword, RoleAdmin); err != nil {
			return err
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "created default admin user", slog.String("username", adminUser))
		}
	}
	return nil
}

// VerifyLogin checks the supplied credentials against the stored hash and
// returns the matching user. Any mismatch returns ErrNoMatch with no
// observable distinction between causes.
func (s *CredentialStore) VerifyLogin(ctx context.Context, username, password string) (User, error) {
	conn, err := s.handle.Conn(ctx)
	if err != nil {
		return User{}, err
	}
	statement := s.handle.Dialect().Rebind("SELECT password_hash, role FROM " + s.table() + " WHERE username=?")

	s.handle.Lock()
	row := conn.QueryRowContext(ctx, statement, username)
	var hash, role string
	err = row.Scan(&hash, &role)
	s.handle.Unlock()

	if errors.Is(err, sql.ErrNoRows) {
		observability.ObserveAuthAttempt("failure")
		return User{}, ErrNoMatch
	}
	if err != nil {
		return User{}, &query.StorageError{Verb: "verify login", Table: UsersTable, Cause: err}
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		observability.ObserveAuthAttempt("failure")
		return User{}, ErrNoMatch
	}
	observability.ObserveAuthAttempt("success")
	return User{Name: username, Role: role}, nil
}

// CreateUser hashes the password with a fresh salt and inserts the user.
// A taken username surfaces as ErrUserExists.
func (s *CredentialStore) CreateUser(ctx context.Context, username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.engine.InsertRow(ctx, UsersTable, map[string]query.Value{
		"username":      query.NewValue(username),
		"password_hash": query.NewValue(string(hash)),
		"role":          query.NewValue(role),
	})
	if err != nil {
		if s.handle.Dialect().IsUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrUserExists, username)
		}
		return err
	}
	return nil
}

func (s *CredentialStore) UpdateUserRole(ctx context.Context, username, newRole string) error {
	return s.exec(ctx, "update role", "UPDATE "+s.table()+" SET role=? WHERE username=?", newRole, username)
}

// ChangePassword re-hashes with a fresh salt on every call; salts are never
// reused across password changes.
func (s *CredentialStore) ChangePassword(ctx context.Context, username, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.exec(ctx, "change password", "UPDATE "+s.table()+" SET password_hash=? WHERE username=?", string(hash), username)
}

func (s *CredentialStore) DeleteUser(ctx context.Context, username string) error {
	return s.exec(ctx, "delete user", "DELETE FROM "+s.table()+" WHERE username=?", username)
}

func (s *CredentialStore) UserExists(ctx context.Context, username string) (bool, error) {
	conn, err := s.handle.Conn(ctx)
	if err != nil {
		return false, err
	}
	statement := s.handle.Dialect().Rebind("SELECT 1 FROM " + s.table() + " WHERE username=?")

	s.handle.Lock()
	defer s.handle.Unlock()

	row := conn.QueryRowContext(ctx, statement, username)
	var one int
	switch err := row.Scan(&one); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, &query.StorageError{Verb: "user exists", Table: UsersTable, Cause: err}
	default:
		return true, nil
	}
}

// ListUsers returns every user's name and role. Hashes are never exposed.
func (s *CredentialStore) ListUsers(ctx context.Context) ([]User, error) {
	conn, err := s.handle.Conn(ctx)
	if err != nil {
		return nil, err
	}

	s.handle.Lock()
	defer s.handle.Unlock()

	rows, err := conn.QueryContext(ctx, "SELECT username, role FROM "+s.table())
	if err != nil {
		return nil, &query.StorageError{Verb: "list users", Table: UsersTable, Cause: err}
	}
	defer func() { _ = rows.Close() }()

	users := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.Name, &user.Role); err != nil {
			return nil, &query.StorageError{Verb: "list users", Table: UsersTable, Cause: err}
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, &query.StorageError{Verb: "list users", Table: UsersTable, Cause: err}
	}
	return users, nil
}

// table returns the dialect-quoted credential table name for statement text.
func (s *CredentialStore) table() string {
	return s.handle.Dialect().QuoteIdentifier(UsersTable)
}

func (s *CredentialStore) exec(ctx context.Context, verb, statement string, args ...any) error {
	conn, err := s.handle.Conn(ctx)
	if err != nil {
		return err
	}
	rebound := s.handle.Dialect().Rebind(statement)

	s.handle.Lock()
	defer s.handle.Unlock()

	if _, err := conn.ExecContext(ctx, rebound, args...); err != nil {
		return &query.StorageError{Verb: verb, Table: UsersTable, Cause: err}
	}
	return nil
}
