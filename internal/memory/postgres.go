package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LoadProfileFromPostgres reads profile records from the profile_records
// table. Each row holds one record as JSON, ordered within its category. An
// empty table yields an empty store, matching the missing-file behavior of
// the JSON loader.
func LoadProfileFromPostgres(ctx context.Context, databaseURL string) (*ProfileStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := initProfileSchema(ctx, pool); err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx,
		`SELECT category, payload FROM profile_records ORDER BY category, position`)
	if err != nil {
		return nil, fmt.Errorf("query profile records: %w", err)
	}
	defer rows.Close()

	data := map[string][]Record{}
	for rows.Next() {
		var category string
		var payload []byte
		if err := rows.Scan(&category, &payload); err != nil {
			return nil, fmt.Errorf("scan profile record: %w", err)
		}
		var record Record
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("parse profile record in %q: %w", category, err)
		}
		data[category] = append(data[category], record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read profile records: %w", err)
	}

	return NewProfileStore(data), nil
}

func initProfileSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS profile_records (
			category TEXT NOT NULL,
			position INT NOT NULL,
			payload JSONB NOT NULL,
			PRIMARY KEY (category, position)
		);`)
	if err != nil {
		return fmt.Errorf("init profile schema: %w", err)
	}
	return nil
}
