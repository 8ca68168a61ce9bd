package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cafe (
    id             INTEGER PRIMARY KEY,
    name           VARCHAR(250) NOT NULL UNIQUE,
    map_url        VARCHAR(500) NOT NULL,
    img_url        VARCHAR(500) NOT NULL,
    location       VARCHAR(250) NOT NULL,
    seats          VARCHAR(250) NOT NULL,
    has_toilet     BOOLEAN NOT NULL,
    has_wifi       BOOLEAN NOT NULL,
    has_sockets    BOOLEAN NOT NULL,
    can_take_calls BOOLEAN NOT NULL,
    coffee_price   VARCHAR(250)
);

CREATE INDEX IF NOT EXISTS idx_cafe_location ON cafe(location);
`

// Open opens or creates the SQLite database and initializes the schema.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}
