package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"

	"cafes/internal/model"
)

const cafeColumns = `id, name, map_url, img_url, location, seats, has_toilet, has_wifi, has_sockets, can_take_calls, coffee_price`

// Store reads and writes cafe records. Every write runs in its own
// transaction that is either committed or rolled back before returning.
type Store struct {
	db *sql.DB

	// randN returns a value in [0, n). Replaced in tests.
	randN func(n int64) int64
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, randN: rand.Int63n}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCafe(row rowScanner) (model.Cafe, error) {
	var c model.Cafe
	var coffeePrice sql.NullString
	err := row.Scan(
		&c.ID, &c.Name, &c.MapURL, &c.ImgURL, &c.Location, &c.Seats,
		&c.HasToilet, &c.HasWifi, &c.HasSockets, &c.CanTakeCalls, &coffeePrice,
	)
	if err != nil {
		return model.Cafe{}, err
	}
	if coffeePrice.Valid {
		c.CoffeePrice = &coffeePrice.String
	}
	return c, nil
}

// withTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back on every other path.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of stored cafes.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cafe`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cafes: %w", err)
	}
	return n, nil
}

// Random returns a uniformly chosen existing cafe. The count and the offset
// lookup share one transaction so deletions in between cannot leave
// the offset past the end.
func (s *Store) Random(ctx context.Context) (model.Cafe, error) {
	var c model.Cafe
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var n int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cafe`).Scan(&n); err != nil {
			return fmt.Errorf("failed to count cafes: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}

		query := `SELECT ` + cafeColumns + ` FROM cafe ORDER BY id LIMIT 1 OFFSET ?`
		var err error
		c, err = scanCafe(tx.QueryRowContext(ctx, query, s.randN(n)))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get random cafe: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Cafe{}, err
	}
	return c, nil
}

// List returns every cafe ordered by id.
func (s *Store) List(ctx context.Context) ([]model.Cafe, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cafeColumns+` FROM cafe ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cafes: %w", err)
	}
	defer rows.Close()

	results := []model.Cafe{}
	for rows.Next() {
		c, err := scanCafe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cafe row: %w", err)
		}
		results = append(results, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cafe rows: %w", err)
	}

	return results, nil
}

// Get retrieves a single cafe by ID.
func (s *Store) Get(ctx context.Context, id int64) (model.Cafe, error) {
	query := `SELECT ` + cafeColumns + ` FROM cafe WHERE id = ?`
	c, err := scanCafe(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Cafe{}, ErrNotFound
	}
	if err != nil {
		return model.Cafe{}, fmt.Errorf("failed to get cafe: %w", err)
	}
	return c, nil
}

// FindByLocation returns the lowest-id cafe whose location equals loc exactly.
func (s *Store) FindByLocation(ctx context.Context, loc string) (model.Cafe, error) {
	// = on TEXT uses BINARY collation, so the match is case-sensitive.
	query := `SELECT ` + cafeColumns + ` FROM cafe WHERE location = ? ORDER BY id LIMIT 1`
	c, err := scanCafe(s.db.QueryRowContext(ctx, query, loc))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Cafe{}, ErrNotFound
	}
	if err != nil {
		return model.Cafe{}, fmt.Errorf("failed to search cafes: %w", err)
	}
	return c, nil
}

func insertCafe(ctx context.Context, tx *sql.Tx, c model.NewCafe) (int64, error) {
	query := `
		INSERT INTO cafe (name, map_url, img_url, location, seats, has_toilet, has_wifi, has_sockets, can_take_calls, coffee_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := tx.ExecContext(ctx, query,
		nullable(c.Name), nullable(c.MapURL), nullable(c.ImgURL), nullable(c.Location), nullable(c.Seats),
		c.HasToilet, c.HasWifi, c.HasSockets, c.CanTakeCalls, nullable(c.CoffeePrice),
	)
	if err != nil {
		return 0, wrapExec("insert cafe", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// Insert creates a new cafe and returns its id.
func (s *Store) Insert(ctx context.Context, c model.NewCafe) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = insertCafe(ctx, tx, c)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdatePrice sets coffee_price on an existing cafe. A nil price clears it.
func (s *Store) UpdatePrice(ctx context.Context, id int64, price *string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE cafe SET coffee_price = ? WHERE id = ?`, nullable(price), id)
		if err != nil {
			return wrapExec("update coffee price", err)
		}
		return requireAffected(result)
	})
}

// Delete removes a cafe by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM cafe WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete cafe: %w", err)
		}
		return requireAffected(result)
	})
}

// Seed inserts cafes in a single transaction when the table is empty.
// It reports how many rows were written; a non-empty table is left alone.
func (s *Store) Seed(ctx context.Context, cafes []model.NewCafe) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var n int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cafe`).Scan(&n); err != nil {
			return fmt.Errorf("failed to count cafes: %w", err)
		}
		if n > 0 {
			return nil
		}
		for i, c := range cafes {
			if _, err := insertCafe(ctx, tx, c); err != nil {
				return fmt.Errorf("seed entry %d: %w", i, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
