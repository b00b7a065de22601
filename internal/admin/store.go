package admin

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

var ErrUserNotFound = errors.New("user not found")

func (s *Store) GetByUsername(ctx context.Context, username string) (*User, error) {
	const q = `SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = ?`
	row := s.db.QueryRowContext(ctx, q, username)
	u := &User{}
	var isAdmin int
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &isAdmin, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.IsAdmin = isAdmin != 0
	return u, nil
}

func (s *Store) Create(ctx context.Context, username, password string, isAdmin bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	const q = `INSERT INTO users (username, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?)`
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, q, username, string(hash), boolInt(isAdmin), now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{
		ID:        id,
		Username:  username,
		IsAdmin:   isAdmin,
		CreatedAt: now,
	}, nil
}

func (s *Store) Delete(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_permissions WHERE user_id = ?`, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func (s *Store) List(ctx context.Context) ([]User, error) {
	const q = `SELECT id, username, is_admin, created_at FROM users ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var u User
		var isAdmin int
		if err := rows.Scan(&u.ID, &u.Username, &isAdmin, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.IsAdmin = isAdmin != 0
		perms, err := s.GetPermissions(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		u.Permissions = perms
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) GetPermissions(ctx context.Context, userID int64) (map[string]Permission, error) {
	const q = `SELECT branch, can_view, can_trigger, can_disable FROM user_permissions WHERE user_id = ?`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	perms := map[string]Permission{}
	for rows.Next() {
		var branch string
		var view, trigger, disable int
		if err := rows.Scan(&branch, &view, &trigger, &disable); err != nil {
			return nil, err
		}
		perms[branch] = Permission{
			CanView:    view != 0,
			CanTrigger: trigger != 0,
			CanDisable: disable != 0,
		}
	}
	return perms, rows.Err()
}

func (s *Store) SetPermission(ctx context.Context, userID int64, branch string, p Permission) error {
	const q = `
		INSERT INTO user_permissions (user_id, branch, can_view, can_trigger, can_disable)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, branch) DO UPDATE SET
			can_view = excluded.can_view,
			can_trigger = excluded.can_trigger,
			can_disable = excluded.can_disable
	`
	_, err := s.db.ExecContext(ctx, q, userID, branch,
		boolInt(p.CanView), boolInt(p.CanTrigger), boolInt(p.CanDisable))
	return err
}

// EnsureBranch registers a branch row if it is new, enabled by default.
func (s *Store) EnsureBranch(ctx context.Context, branch string) error {
	const q = `INSERT OR IGNORE INTO branch_status (branch, is_enabled, last_check) VALUES (?, 1, ?)`
	_, err := s.db.ExecContext(ctx, q, branch, time.Now().UTC())
	return err
}

// IsBranchEnabled defaults to enabled for unknown branches.
func (s *Store) IsBranchEnabled(ctx context.Context, branch string) (bool, error) {
	const q = `SELECT is_enabled FROM branch_status WHERE branch = ?`
	var enabled int
	if err := s.db.QueryRowContext(ctx, q, branch).Scan(&enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return true, nil
		}
		return false, err
	}
	return enabled != 0, nil
}

func (s *Store) SetBranchEnabled(ctx context.Context, branch string, enabled bool, by string) error {
	if enabled {
		const q = `UPDATE branch_status SET is_enabled = 1, disabled_at = NULL, disabled_by = NULL WHERE branch = ?`
		_, err := s.db.ExecContext(ctx, q, branch)
		return err
	}
	const q = `UPDATE branch_status SET is_enabled = 0, disabled_at = ?, disabled_by = ? WHERE branch = ?`
	_, err := s.db.ExecContext(ctx, q, time.Now().UTC(), by, branch)
	return err
}

func (s *Store) GetBranchStatus(ctx context.Context, branch string) (*BranchStatus, error) {
	const q = `SELECT branch, is_enabled, disabled_at, disabled_by, last_check FROM branch_status WHERE branch = ?`
	row := s.db.QueryRowContext(ctx, q, branch)
	var bs BranchStatus
	var enabled int
	var disabledAt sql.NullTime
	var disabledBy sql.NullString
	if err := row.Scan(&bs.Branch, &enabled, &disabledAt, &disabledBy, &bs.LastCheck); err != nil {
		return nil, err
	}
	bs.Enabled = enabled != 0
	if disabledAt.Valid {
		bs.DisabledAt = &disabledAt.Time
	}
	bs.DisabledBy = disabledBy.String
	return &bs, nil
}

type usersFile struct {
	Users []struct {
		Username string                `yaml:"username"`
		Password string                `yaml:"password"`
		IsAdmin  bool                  `yaml:"is_admin"`
		Branches map[string]Permission `yaml:"branches"`
	} `yaml:"users"`
}

// SeedFromFile creates any users listed in the YAML seed file that do not
// exist yet. Existing users are left untouched.
func (s *Store) SeedFromFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var uf usersFile
	if err := yaml.Unmarshal(data, &uf); err != nil {
		return err
	}
	for _, u := range uf.Users {
		if u.Username == "" || u.Password == "" {
			continue
		}
		if _, err := s.GetByUsername(ctx, u.Username); err == nil {
			continue
		} else if !errors.Is(err, ErrUserNotFound) {
			return err
		}
		created, err := s.Create(ctx, u.Username, u.Password, u.IsAdmin)
		if err != nil {
			return err
		}
		for branch, perm := range u.Branches {
			if err := s.SetPermission(ctx, created.ID, branch, perm); err != nil {
				return err
			}
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
