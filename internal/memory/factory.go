package memory

import (
	"context"
	"strings"
)

// NewStore loads the long-term profile store from Postgres when configured,
// otherwise from the JSON file at path.
func NewStore(ctx context.Context, databaseURL, path string) (*ProfileStore, error) {
	if strings.TrimSpace(databaseURL) != "" {
		return LoadProfileFromPostgres(ctx, databaseURL)
	}
	return LoadProfile(path)
}
