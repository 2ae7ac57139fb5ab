package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"schoolRecords/shared"
)

type UserRepository struct {
	*Repository[User]
}

func NewUserRepository(tx *sqlx.Tx) *UserRepository {
	return &UserRepository{Repository: NewRepository[User](tx, usersTable)}
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create checks that the profile payload agrees with the kind before
// inserting. An empty profile is replaced by the kind's default payload.
func (r *UserRepository) Create(ctx context.Context, u *User) (*User, error) {
	if _, err := ParseKind(string(u.Kind)); err != nil {
		return nil, shared.Invalid("user", "Create", "%v", err)
	}

	switch got := u.Profile.Kind(); {
	case u.Profile == (Profile{}):
		u.Profile = DefaultProfile(u.Kind)
	case got != u.Kind:
		return nil, shared.Invalid("user", "Create", "profile does not match user kind %q", u.Kind)
	}

	if u.GroupID != nil && u.Kind != KindStudent {
		return nil, shared.Invalid("user", "Create", "only students belong to a group")
	}

	u.Email = NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	return r.Repository.Create(ctx, u)
}

// Update applies the kind rules of Create to a patch: a new profile must
// match the stored kind, and group membership only changes through
// SetGroup.
func (r *UserRepository) Update(ctx context.Context, id int64, patch Patch) (*User, error) {
	const op = "Update"

	if _, ok := patch["group_id"]; ok {
		return nil, shared.Invalid("user", op, "group_id of a user cannot be patched, assign the group instead")
	}

	raw, ok := patch["profile"]
	if !ok {
		return r.Repository.Update(ctx, id, patch)
	}

	var profile Profile
	switch v := raw.(type) {
	case Profile:
		profile = v
	case *Profile:
		if v == nil {
			return nil, shared.Invalid("user", op, "profile is required")
		}
		profile = *v
	default:
		return nil, shared.Invalid("user", op, "profile has unexpected type %T", raw)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	if profile.Kind() != current.Kind {
		return nil, shared.Invalid("user", op, "profile does not match user kind %q", current.Kind)
	}

	return r.Repository.Update(ctx, id, patch)
}

// GetByEmail returns nil, nil for unknown addresses.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.First(ctx, Criteria{"email": NormalizeEmail(email)})
}

func (r *UserRepository) ByEmails(ctx context.Context, emails []string) ([]User, error) {
	if len(emails) == 0 {
		return []User{}, nil
	}
	normalized := make([]string, len(emails))
	for i, e := range emails {
		normalized[i] = NormalizeEmail(e)
	}

	query, args, err := sqlx.In(fmt.Sprintf(`SELECT %s FROM users WHERE email IN (?) ORDER BY id`,
		usersTable.selectList()), normalized)
	if err != nil {
		return nil, shared.Storage("users.ByEmails", err)
	}
	return r.selectRows(ctx, "users.ByEmails", query, args...)
}

func (r *UserRepository) ByKind(ctx context.Context, kind Kind) ([]User, error) {
	return r.Filter(ctx, Criteria{"kind": kind})
}

func (r *UserRepository) StudentsInGroup(ctx context.Context, groupID int64) ([]User, error) {
	return r.Filter(ctx, Criteria{"kind": KindStudent, "group_id": groupID})
}

func (r *UserRepository) CountInGroup(ctx context.Context, groupID int64) (int, error) {
	return r.Count(ctx, Criteria{"kind": KindStudent, "group_id": groupID})
}

// SetGroup moves a student into groupID, or out of any group when nil.
func (r *UserRepository) SetGroup(ctx context.Context, studentID int64, groupID *int64) error {
	_, err := r.exec(ctx, "users.SetGroup",
		`UPDATE users SET group_id = ? WHERE id = ? AND kind = ?`, groupID, studentID, KindStudent)
	return err
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.exec(ctx, "users.TouchLastLogin", `UPDATE users SET last_login = ? WHERE id = ?`, at, userID)
	return err
}

func (r *UserRepository) LinkGuardian(ctx context.Context, studentID, guardianID int64) error {
	_, err := r.exec(ctx, "users.LinkGuardian",
		`INSERT INTO student_guardians (student_id, guardian_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		studentID, guardianID)
	return err
}

func (r *UserRepository) GuardiansOf(ctx context.Context, studentID int64) ([]User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users u
		JOIN student_guardians sg ON sg.guardian_id = u.id
		WHERE sg.student_id = ?
		ORDER BY u.id`, prefixed("u", usersTable))
	return r.selectRows(ctx, "users.GuardiansOf", query, studentID)
}

func (r *UserRepository) StudentsOf(ctx context.Context, guardianID int64) ([]User, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM users u
		JOIN student_guardians sg ON sg.student_id = u.id
		WHERE sg.guardian_id = ?
		ORDER BY u.id`, prefixed("u", usersTable))
	return r.selectRows(ctx, "users.StudentsOf", query, guardianID)
}

type RoleRepository struct {
	*Repository[Role]
}

func NewRoleRepository(tx *sqlx.Tx) *RoleRepository {
	return &RoleRepository{Repository: NewRepository[Role](tx, rolesTable)}
}

// GetByName matches case-insensitively.
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*Role, error) {
	rows, err := r.selectRows(ctx, "roles.GetByName",
		fmt.Sprintf(`SELECT %s FROM roles WHERE LOWER(name) = LOWER(?) ORDER BY id`, rolesTable.selectList()),
		strings.TrimSpace(name))
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *RoleRepository) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.exec(ctx, "roles.GrantPermission",
		`INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		roleID, permissionID)
	return err
}

func (r *RoleRepository) Permissions(ctx context.Context, roleID int64) ([]Permission, error) {
	var perms []Permission
	query := fmt.Sprintf(`
		SELECT %s FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = ?
		ORDER BY p.code`, prefixed("p", permissionsTable))
	if err := r.tx.SelectContext(ctx, &perms, r.tx.Rebind(query), roleID); err != nil {
		return nil, shared.Storage("roles.Permissions", err)
	}
	return perms, nil
}

type PermissionRepository struct {
	*Repository[Permission]
}

func NewPermissionRepository(tx *sqlx.Tx) *PermissionRepository {
	return &PermissionRepository{Repository: NewRepository[Permission](tx, permissionsTable)}
}

func (r *PermissionRepository) GetByCode(ctx context.Context, code string) (*Permission, error) {
	return r.First(ctx, Criteria{"code": code})
}

func prefixed(alias string, t Table) string {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, alias+".id")
	for _, c := range t.Columns {
		cols = append(cols, alias+"."+c)
	}
	return strings.Join(cols, ", ")
}
