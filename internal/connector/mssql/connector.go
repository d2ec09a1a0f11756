package mssql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	mssqldriver "github.com/microsoft/go-mssqldb"

	"github.com/sajuwooju/sajuwooju/internal/connector"
)

// SQL Server error numbers for objects that already exist.
const (
	errObjectExists = 2714
	errIndexExists  = 1913
	errDupKeyRow    = 2601
	errPKViolation  = 2627
)

// MSSQLConnector implements connector.Connector for SQL Server databases.
type MSSQLConnector struct {
	db *sqlx.DB
}

// New creates a new MSSQLConnector.
func New() connector.Connector {
	return &MSSQLConnector{}
}

// Connect establishes a connection to the SQL Server database using the
// provided configuration and applies the pool settings.
func (c *MSSQLConnector) Connect(cfg connector.ConnectionConfig) error {
	db, err := sqlx.Connect("sqlserver", cfg.DSN)
	if err != nil {
		return fmt.Errorf("mssql connect: %w", err)
	}
	connector.ApplyPool(db, cfg)
	c.db = db
	return nil
}

// Disconnect closes the database connection pool.
func (c *MSSQLConnector) Disconnect() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping verifies the database connection is alive.
func (c *MSSQLConnector) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// DB returns the underlying sqlx.DB connection pool.
func (c *MSSQLConnector) DB() *sqlx.DB {
	return c.db
}

// Migrations returns the directory schema for SQL Server. T-SQL has no
// CREATE TABLE IF NOT EXISTS; each statement is guarded by OBJECT_ID.
func (c *MSSQLConnector) Migrations() []string {
	return []string{
		`IF OBJECT_ID(N'admins', N'U') IS NULL
		CREATE TABLE admins (
			id NVARCHAR(36) NOT NULL PRIMARY KEY,
			email NVARCHAR(255) NOT NULL UNIQUE,
			password_hash NVARCHAR(255) NOT NULL,
			name NVARCHAR(255) NOT NULL DEFAULT '',
			role NVARCHAR(32) NOT NULL DEFAULT 'viewer',
			is_active BIT NOT NULL DEFAULT 1,
			last_login_at DATETIME2 NULL,
			created_at DATETIME2 NOT NULL,
			updated_at DATETIME2 NOT NULL
		)`,
		`IF OBJECT_ID(N'notices', N'U') IS NULL
		CREATE TABLE notices (
			id NVARCHAR(36) NOT NULL PRIMARY KEY,
			title NVARCHAR(255) NOT NULL,
			body NVARCHAR(MAX) NOT NULL DEFAULT '',
			published BIT NOT NULL DEFAULT 0,
			pinned BIT NOT NULL DEFAULT 0,
			created_by NVARCHAR(36) NOT NULL,
			updated_by NVARCHAR(36) NOT NULL,
			created_at DATETIME2 NOT NULL,
			updated_at DATETIME2 NOT NULL,
			INDEX idx_notices_created_at (created_at)
		)`,
		`IF OBJECT_ID(N'settings', N'U') IS NULL
		CREATE TABLE settings (
			setting_key NVARCHAR(128) NOT NULL PRIMARY KEY,
			value NVARCHAR(MAX) NOT NULL DEFAULT '',
			updated_by NVARCHAR(36) NOT NULL DEFAULT '',
			updated_at DATETIME2 NOT NULL
		)`,
	}
}

// IsAlreadyExists reports whether err is a SQL Server "already exists" error.
func (c *MSSQLConnector) IsAlreadyExists(err error) bool {
	var msErr mssqldriver.Error
	if !errors.As(err, &msErr) {
		return false
	}
	switch msErr.Number {
	case errObjectExists, errIndexExists:
		return true
	}
	return false
}

// IsUniqueViolation reports whether err is a duplicate key on a unique index
// or primary key.
func (c *MSSQLConnector) IsUniqueViolation(err error) bool {
	var msErr mssqldriver.Error
	if !errors.As(err, &msErr) {
		return false
	}
	return msErr.Number == errDupKeyRow || msErr.Number == errPKViolation
}

// DriverName returns the driver identifier for SQL Server.
func (c *MSSQLConnector) DriverName() string { return "mssql" }
