package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"schoolRecords/shared"
)

// Table describes how an entity type maps onto its table. Columns lists the
// writable columns (every db-tagged field except id); Immutable names the
// ones Update refuses to touch.
type Table struct {
	Name      string
	Columns   []string
	Immutable []string
}

func (t Table) has(column string) bool {
	if column == "id" {
		return true
	}
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

func (t Table) immutable(column string) bool {
	if column == "id" {
		return true
	}
	for _, c := range t.Immutable {
		if c == column {
			return true
		}
	}
	return false
}

func (t Table) selectList() string {
	return "id, " + strings.Join(t.Columns, ", ")
}

// Criteria is a conjunctive equality filter keyed by column name. A nil
// value matches NULL.
type Criteria map[string]any

// Patch holds new column values for Update.
type Patch map[string]any

// Repository is the CRUD surface shared by every entity. It is bound to the
// transaction of one UnitOfWork.
type Repository[T any] struct {
	tx    *sqlx.Tx
	table Table
}

func NewRepository[T any](tx *sqlx.Tx, table Table) *Repository[T] {
	return &Repository[T]{tx: tx, table: table}
}

func (r *Repository[T]) Table() Table { return r.table }

// Create inserts entity and returns the stored row with its generated id.
func (r *Repository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	op := r.table.Name + ".Create"

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:%s) RETURNING id`,
		r.table.Name, strings.Join(r.table.Columns, ", "), strings.Join(r.table.Columns, ", :"))

	bound, args, err := sqlx.Named(query, entity)
	if err != nil {
		return nil, shared.Storage(op, err)
	}

	var id int64
	if err := r.tx.GetContext(ctx, &id, r.tx.Rebind(bound), args...); err != nil {
		return nil, shared.Storage(op, err)
	}

	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, shared.Storage(op, fmt.Errorf("row %d vanished after insert", id))
	}
	return created, nil
}

// GetByID returns nil, nil when no row has the id.
func (r *Repository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	entity := new(T)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, r.table.selectList(), r.table.Name)
	err := r.tx.GetContext(ctx, entity, r.tx.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, shared.Storage(r.table.Name+".GetByID", err)
	}
	return entity, nil
}

// GetAll returns every row in insertion order.
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.Filter(ctx, nil)
}

// Update overwrites the patched columns of row id and returns the reloaded
// row. A missing row yields nil, nil. Unknown or immutable columns fail
// validation and nothing is written.
func (r *Repository[T]) Update(ctx context.Context, id int64, patch Patch) (*T, error) {
	op := r.table.Name + ".Update"

	for column := range patch {
		if !r.table.has(column) {
			return nil, shared.Invalid("store", op, "unknown field %q for %s", column, r.table.Name)
		}
		if r.table.immutable(column) {
			return nil, shared.Invalid("store", op, "field %q of %s cannot be changed", column, r.table.Name)
		}
	}

	current, err := r.GetByID(ctx, id)
	if err != nil || current == nil {
		return nil, err
	}
	if len(patch) == 0 {
		return current, nil
	}

	columns := sortedKeys(patch)
	sets := make([]string, len(columns))
	args := make([]any, 0, len(columns)+1)
	for i, column := range columns {
		sets[i] = column + " = ?"
		args = append(args, patch[column])
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, r.table.Name, strings.Join(sets, ", "))
	if _, err := r.tx.ExecContext(ctx, r.tx.Rebind(query), args...); err != nil {
		return nil, shared.Storage(op, err)
	}

	return r.GetByID(ctx, id)
}

// Delete reports whether a row was removed.
func (r *Repository[T]) Delete(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, r.table.Name)
	res, err := r.tx.ExecContext(ctx, r.tx.Rebind(query), id)
	if err != nil {
		return false, shared.Storage(r.table.Name+".Delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, shared.Storage(r.table.Name+".Delete", err)
	}
	return n > 0, nil
}

// Filter returns the rows matching every criterion, ordered by id.
func (r *Repository[T]) Filter(ctx context.Context, criteria Criteria) ([]T, error) {
	where, args, err := r.where(criteria, r.table.Name+".Filter")
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY id`, r.table.selectList(), r.table.Name, where)
	return r.selectRows(ctx, r.table.Name+".Filter", query, args...)
}

// First returns the lowest-id row matching criteria, or nil.
func (r *Repository[T]) First(ctx context.Context, criteria Criteria) (*T, error) {
	rows, err := r.Filter(ctx, criteria)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (r *Repository[T]) Count(ctx context.Context, criteria Criteria) (int, error) {
	where, args, err := r.where(criteria, r.table.Name+".Count")
	if err != nil {
		return 0, err
	}

	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, r.table.Name, where)
	if err := r.tx.GetContext(ctx, &n, r.tx.Rebind(query), args...); err != nil {
		return 0, shared.Storage(r.table.Name+".Count", err)
	}
	return n, nil
}

func (r *Repository[T]) where(criteria Criteria, op string) (string, []any, error) {
	if len(criteria) == 0 {
		return "", nil, nil
	}

	columns := sortedKeys(criteria)
	conds := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, column := range columns {
		if !r.table.has(column) {
			return "", nil, shared.Invalid("store", op, "unknown filter field %q for %s", column, r.table.Name)
		}
		value := criteria[column]
		if value == nil {
			conds = append(conds, column+" IS NULL")
			continue
		}
		conds = append(conds, column+" = ?")
		args = append(args, value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// selectRows runs a query written with ? placeholders and scans the rows.
func (r *Repository[T]) selectRows(ctx context.Context, op, query string, args ...any) ([]T, error) {
	rows := []T{}
	if err := r.tx.SelectContext(ctx, &rows, r.tx.Rebind(query), args...); err != nil {
		return nil, shared.Storage(op, err)
	}
	return rows, nil
}

// exec runs a statement written with ? placeholders.
func (r *Repository[T]) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	res, err := r.tx.ExecContext(ctx, r.tx.Rebind(query), args...)
	if err != nil {
		return 0, shared.Storage(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, shared.Storage(op, err)
	}
	return n, nil
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
