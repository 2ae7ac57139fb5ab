package database

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Users form one table for every kind (single-table inheritance); the
// kind-specific payload sits in the profile column. users.group_id carries
// no foreign key because school_groups references users first.
const schema = `
CREATE TABLE IF NOT EXISTS roles (
    id {{id}},
    name VARCHAR(50) NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS permissions (
    id {{id}},
    code VARCHAR(80) NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS role_permissions (
    role_id {{ref}} NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
    permission_id {{ref}} NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
    PRIMARY KEY (role_id, permission_id)
);

CREATE TABLE IF NOT EXISTS grades (
    id {{id}},
    name VARCHAR(80) NOT NULL UNIQUE,
    level INTEGER NOT NULL DEFAULT 0,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS users (
    id {{id}},
    kind VARCHAR(20) NOT NULL,
    document_type VARCHAR(10) NOT NULL DEFAULT '',
    document_number VARCHAR(30) NOT NULL DEFAULT '',
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    birth_date {{ts}},
    phone VARCHAR(30) NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL DEFAULT '',
    role_id {{ref}} REFERENCES roles(id) ON DELETE SET NULL,
    group_id {{ref}},
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at {{ts}} NOT NULL,
    last_login {{ts}},
    profile {{json}} NOT NULL,
    CONSTRAINT valid_kind CHECK (kind IN ('student', 'teacher', 'guardian', 'director', 'admin', 'applicant'))
);

CREATE INDEX IF NOT EXISTS idx_users_kind ON users(kind);
CREATE INDEX IF NOT EXISTS idx_users_group_id ON users(group_id);

CREATE TABLE IF NOT EXISTS school_groups (
    id {{id}},
    name VARCHAR(100) NOT NULL UNIQUE,
    min_capacity INTEGER NOT NULL DEFAULT 0,
    max_capacity INTEGER NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    director_id {{ref}} REFERENCES users(id) ON DELETE SET NULL,
    created_by_id {{ref}} REFERENCES users(id) ON DELETE SET NULL,
    grade_id {{ref}} REFERENCES grades(id) ON DELETE SET NULL,
    created_at {{ts}} NOT NULL,
    CONSTRAINT valid_capacity CHECK (min_capacity >= 0 AND max_capacity >= min_capacity AND max_capacity > 0)
);

CREATE TABLE IF NOT EXISTS group_teachers (
    group_id {{ref}} NOT NULL REFERENCES school_groups(id) ON DELETE CASCADE,
    teacher_id {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (group_id, teacher_id)
);

CREATE TABLE IF NOT EXISTS student_guardians (
    student_id {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    guardian_id {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (student_id, guardian_id)
);

CREATE TABLE IF NOT EXISTS categories (
    id {{id}},
    name VARCHAR(100) NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS achievements (
    id {{id}},
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at {{ts}} NOT NULL,
    created_by_id {{ref}} REFERENCES users(id) ON DELETE SET NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    category_id {{ref}} REFERENCES categories(id) ON DELETE SET NULL,
    CONSTRAINT valid_status CHECK (status IN ('draft', 'active', 'archived'))
);

CREATE TABLE IF NOT EXISTS academic_periods (
    id {{id}},
    name VARCHAR(100) NOT NULL UNIQUE,
    start_date {{ts}} NOT NULL,
    end_date {{ts}} NOT NULL,
    is_current BOOLEAN NOT NULL DEFAULT FALSE,
    CONSTRAINT valid_range CHECK (end_date >= start_date)
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_academic_periods_current ON academic_periods(is_current) WHERE is_current;

CREATE TABLE IF NOT EXISTS report_cards (
    id {{id}},
    student_id {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    period_id {{ref}} NOT NULL REFERENCES academic_periods(id) ON DELETE CASCADE,
    teacher_id {{ref}} NOT NULL REFERENCES users(id),
    generated_at {{ts}} NOT NULL,
    observations TEXT NOT NULL DEFAULT '',
    UNIQUE (student_id, period_id)
);

CREATE TABLE IF NOT EXISTS evaluations (
    id {{id}},
    achievement_id {{ref}} NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
    student_id {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    teacher_id {{ref}} NOT NULL REFERENCES users(id),
    period_id {{ref}} NOT NULL REFERENCES academic_periods(id) ON DELETE CASCADE,
    score VARCHAR(20) NOT NULL,
    comments TEXT NOT NULL DEFAULT '',
    evaluated_at {{ts}} NOT NULL,
    report_card_id {{ref}} REFERENCES report_cards(id) ON DELETE SET NULL,
    UNIQUE (achievement_id, student_id, period_id),
    CONSTRAINT valid_score CHECK (score IN ('Superior', 'Alto', 'Básico', 'Bajo'))
);

CREATE INDEX IF NOT EXISTS idx_evaluations_student_period ON evaluations(student_id, period_id);

CREATE TABLE IF NOT EXISTS interviews (
    id {{id}},
    interviewer_id {{ref}} NOT NULL REFERENCES users(id),
    guardian_id {{ref}} REFERENCES users(id) ON DELETE SET NULL,
    applicant_id {{ref}} REFERENCES users(id) ON DELETE SET NULL,
    scheduled_at {{ts}} NOT NULL,
    location VARCHAR(200) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
    notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS citations (
    id {{id}},
    sender_id {{ref}} NOT NULL REFERENCES users(id),
    subject VARCHAR(200) NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    scheduled_at {{ts}} NOT NULL,
    interview_id {{ref}} REFERENCES interviews(id) ON DELETE SET NULL,
    created_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS citation_recipients (
    citation_id {{ref}} NOT NULL REFERENCES citations(id) ON DELETE CASCADE,
    email VARCHAR(255) NOT NULL,
    PRIMARY KEY (citation_id, email)
);

CREATE INDEX IF NOT EXISTS idx_citation_recipients_email ON citation_recipients(email);

CREATE TABLE IF NOT EXISTS notifications (
    id {{id}},
    sender_id {{ref}} REFERENCES users(id) ON DELETE SET NULL,
    recipient_id {{ref}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title VARCHAR(200) NOT NULL,
    body TEXT NOT NULL DEFAULT '',
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at {{ts}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, is_read);
`

var dialects = map[string]*strings.Replacer{
	DriverPostgres: strings.NewReplacer(
		"{{id}}", "BIGSERIAL PRIMARY KEY",
		"{{ref}}", "BIGINT",
		"{{ts}}", "TIMESTAMPTZ",
		"{{json}}", "JSONB",
	),
	DriverSQLite: strings.NewReplacer(
		"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ref}}", "INTEGER",
		"{{ts}}", "TIMESTAMP",
		"{{json}}", "TEXT",
	),
}

// Migrate creates the schema for the driver db was opened with. It is
// idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	replacer, ok := dialects[db.DriverName()]
	if !ok {
		return errors.New("migrate: unsupported driver " + db.DriverName())
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(replacer.Replace(schema), ";\n") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// IsUniqueViolation reports whether err comes from a UNIQUE constraint on
// either supported driver.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
