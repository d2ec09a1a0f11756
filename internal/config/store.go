package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sajuwooju/sajuwooju/internal/connector"
	"github.com/sajuwooju/sajuwooju/internal/connector/sqlite"
	"github.com/sajuwooju/sajuwooju/internal/model"
)

// Store is the admin directory. It persists administrator accounts, notices
// and site settings in whichever database the connector points at.
//
// Queries are written with '?' placeholders and rebound for the driver.
type Store struct {
	db   *sqlx.DB
	conn connector.Connector
}

// NewStore creates a SQLite-backed store under dataDir. Pass empty string
// for in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "sajuwooju.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn := sqlite.New()
	if err := conn.Connect(connector.ConnectionConfig{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1}); err != nil {
		return nil, fmt.Errorf("open directory database: %w", err)
	}
	s, err := NewStoreFromConnector(conn)
	if err != nil {
		conn.Disconnect()
		return nil, err
	}
	return s, nil
}

// NewStoreFromConnector wraps an already connected connector and applies
// the directory migrations.
func NewStoreFromConnector(conn connector.Connector) (*Store, error) {
	s := &Store{db: conn.DB(), conn: conn}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate directory database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Disconnect()
}

// Ping verifies the directory database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Driver returns the directory driver name.
func (s *Store) Driver() string {
	return s.conn.DriverName()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func rowsAffected(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Admin accounts
// ---------------------------------------------------------------------------

const adminColumns = `id, email, password_hash, name, role, is_active, last_login_at, created_at, updated_at`

// CreateAdmin inserts a new admin account. The email is normalized and the
// ID, CreatedAt, and UpdatedAt fields are populated before insert. A taken
// email returns ErrAlreadyExists; the unique index decides, so concurrent
// creates cannot both succeed.
func (s *Store) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	if !admin.Role.Valid() {
		return fmt.Errorf("insert admin: unknown role %q", admin.Role)
	}
	admin.Email = model.NormalizeEmail(admin.Email)

	ts := now()
	admin.ID = newID()
	admin.CreatedAt = ts
	admin.UpdatedAt = ts

	const q = `INSERT INTO admins
		(id, email, password_hash, name, role, is_active, created_at, updated_at)
		VALUES
		(:id, :email, :password_hash, :name, :role, :is_active, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, admin); err != nil {
		if s.conn.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

// GetAdmin returns an admin by ID.
func (s *Store) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	var admin model.Admin
	q := s.db.Rebind("SELECT " + adminColumns + " FROM admins WHERE id = ?")
	if err := s.db.GetContext(ctx, &admin, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &admin, nil
}

// GetAdminByEmail returns an admin by email address. The lookup uses the
// normalized form.
func (s *Store) GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	q := s.db.Rebind("SELECT " + adminColumns + " FROM admins WHERE email = ?")
	if err := s.db.GetContext(ctx, &admin, q, model.NormalizeEmail(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin by email: %w", err)
	}
	return &admin, nil
}

// ListAdmins returns all admin accounts.
func (s *Store) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	var admins []model.Admin
	if err := s.db.SelectContext(ctx, &admins, "SELECT "+adminColumns+" FROM admins ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// HasAnyAdmin reports whether at least one admin account exists. This is used
// for first-run detection.
func (s *Store) HasAnyAdmin(ctx context.Context) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM admins"); err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// UpdateAdminLastLogin sets the last_login_at timestamp for an admin.
func (s *Store) UpdateAdminLastLogin(ctx context.Context, id string) error {
	ts := now()
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admins SET last_login_at = ?, updated_at = ? WHERE id = ?"), ts, ts, id)
	if err != nil {
		return fmt.Errorf("update admin last login: %w", err)
	}
	return rowsAffected(result, "update admin last login")
}

// SetAdminActive activates or deactivates an admin. Deactivation takes
// effect on the admin's next request; issued tokens are not touched.
func (s *Store) SetAdminActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admins SET is_active = ?, updated_at = ? WHERE id = ?"), active, now(), id)
	if err != nil {
		return fmt.Errorf("update admin status: %w", err)
	}
	return rowsAffected(result, "update admin status")
}

// SetAdminRole changes an admin's role.
func (s *Store) SetAdminRole(ctx context.Context, id string, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("update admin role: unknown role %q", role)
	}
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admins SET role = ?, updated_at = ? WHERE id = ?"), string(role), now(), id)
	if err != nil {
		return fmt.Errorf("update admin role: %w", err)
	}
	return rowsAffected(result, "update admin role")
}

// SetAdminPassword replaces an admin's bcrypt password hash.
func (s *Store) SetAdminPassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE admins SET password_hash = ?, updated_at = ? WHERE id = ?"), passwordHash, now(), id)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	return rowsAffected(result, "update admin password")
}

// ---------------------------------------------------------------------------
// Notices
// ---------------------------------------------------------------------------

const noticeColumns = `id, title, body, published, pinned, created_by, updated_by, created_at, updated_at`

// ListNotices returns notices, pinned first and newest first. When
// publishedOnly is set drafts are excluded.
func (s *Store) ListNotices(ctx context.Context, publishedOnly bool) ([]model.Notice, error) {
	q := "SELECT " + noticeColumns + " FROM notices"
	var args []interface{}
	if publishedOnly {
		q += " WHERE published = ?"
		args = append(args, true)
	}
	q += " ORDER BY pinned DESC, created_at DESC"

	notices := []model.Notice{}
	if err := s.db.SelectContext(ctx, &notices, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}

// GetNotice returns a notice by ID.
func (s *Store) GetNotice(ctx context.Context, id string) (*model.Notice, error) {
	var n model.Notice
	q := s.db.Rebind("SELECT " + noticeColumns + " FROM notices WHERE id = ?")
	if err := s.db.GetContext(ctx, &n, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notice: %w", err)
	}
	return &n, nil
}

// CreateNotice inserts a notice. ID and timestamps are populated before
// insert; UpdatedBy starts equal to CreatedBy.
func (s *Store) CreateNotice(ctx context.Context, n *model.Notice) error {
	ts := now()
	n.ID = newID()
	n.CreatedAt = ts
	n.UpdatedAt = ts
	n.UpdatedBy = n.CreatedBy

	const q = `INSERT INTO notices
		(id, title, body, published, pinned, created_by, updated_by, created_at, updated_at)
		VALUES
		(:id, :title, :body, :published, :pinned, :created_by, :updated_by, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, n); err != nil {
		return fmt.Errorf("insert notice: %w", err)
	}
	return nil
}

// UpdateNotice replaces the editable fields of a notice. UpdatedAt is
// refreshed automatically.
func (s *Store) UpdateNotice(ctx context.Context, n *model.Notice) error {
	n.UpdatedAt = now()

	const q = `UPDATE notices SET
		title = :title, body = :body, published = :published, pinned = :pinned,
		updated_by = :updated_by, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, n)
	if err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	return rowsAffected(result, "update notice")
}

// DeleteNotice removes a notice by ID.
func (s *Store) DeleteNotice(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM notices WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return rowsAffected(result, "delete notice")
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// ListSettings returns all site settings ordered by key.
func (s *Store) ListSettings(ctx context.Context) ([]model.Setting, error) {
	settings := []model.Setting{}
	const q = "SELECT setting_key, value, updated_by, updated_at FROM settings ORDER BY setting_key"
	if err := s.db.SelectContext(ctx, &settings, q); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// GetSetting returns a setting by key.
func (s *Store) GetSetting(ctx context.Context, key string) (*model.Setting, error) {
	var st model.Setting
	q := s.db.Rebind("SELECT setting_key, value, updated_by, updated_at FROM settings WHERE setting_key = ?")
	if err := s.db.GetContext(ctx, &st, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &st, nil
}

// SetSetting inserts or replaces a setting. Upsert syntax differs across
// the supported databases, so this runs an UPDATE and falls back to INSERT.
// When a concurrent writer inserts the key first, the UPDATE is retried.
func (s *Store) SetSetting(ctx context.Context, st *model.Setting) error {
	st.UpdatedAt = now()

	updated, err := s.updateSetting(ctx, st)
	if err != nil || updated {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO settings (setting_key, value, updated_by, updated_at) VALUES (?, ?, ?, ?)"),
		st.Key, st.Value, st.UpdatedBy, st.UpdatedAt)
	if err == nil {
		return nil
	}
	if !s.conn.IsUniqueViolation(err) {
		return fmt.Errorf("insert setting: %w", err)
	}
	if updated, err = s.updateSetting(ctx, st); err == nil && !updated {
		return fmt.Errorf("update setting %q: row vanished after duplicate insert", st.Key)
	}
	return err
}

func (s *Store) updateSetting(ctx context.Context, st *model.Setting) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		s.db.Rebind("UPDATE settings SET value = ?, updated_by = ?, updated_at = ? WHERE setting_key = ?"),
		st.Value, st.UpdatedBy, st.UpdatedAt, st.Key)
	if err != nil {
		return false, fmt.Errorf("update setting: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update setting rows affected: %w", err)
	}
	return n > 0, nil
}
