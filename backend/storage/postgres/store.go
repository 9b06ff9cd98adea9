// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

type Store struct {
	*queries
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{
		queries: &queries{db: db},
		db:      db,
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(q storage.Querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// notFound maps sql.ErrNoRows onto storage.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// affected reports whether the statement touched at least one row.
func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// isForeignKeyViolation reports a 23503 from postgres.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// seek appends the keyset condition of cursor to a query that already has a WHERE
// clause and next placeholders in use. desc selects time DESC, id ASC ordering.
func seek(query string, args []any, cursor models.Cursor, timeCol, idCol string, desc bool) (string, []any) {
	if cursor.IsZero() {
		return query, args
	}
	op := ">"
	if desc {
		op = "<"
	}
	n := len(args)
	query += fmt.Sprintf(" AND (%s %s $%d OR (%s = $%d AND %s > $%d))",
		timeCol, op, n+1, timeCol, n+1, idCol, n+2)
	return query, append(args, cursor.Time, cursor.ID)
}

// order appends ORDER BY and LIMIT.
func order(query string, args []any, timeCol, idCol string, desc bool, limit int) (string, []any) {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	var b strings.Builder
	b.WriteString(query)
	fmt.Fprintf(&b, " ORDER BY %s %s, %s ASC LIMIT $%d", timeCol, dir, idCol, len(args)+1)
	return b.String(), append(args, limit)
}
