package store

import (
	"context"
)

// StoreInfo summarizes store state for the info endpoint.
type StoreInfo struct {
	SchemaVersion int            `json:"schema_version"`
	AssetCounts   map[string]int `json:"asset_counts"`
	TotalAssets   int            `json:"total_assets"`
	TotalScores   int            `json:"total_scores"`
}

// Info reports schema version and per-kind record counts.
func (s *Store) Info(ctx context.Context) (StoreInfo, error) {
	info := StoreInfo{AssetCounts: map[string]int{}}

	version, err := currentVersion(s.db)
	if err != nil {
		return info, err
	}
	info.SchemaVersion = version

	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM assets GROUP BY kind")
	if err != nil {
		return info, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return info, err
		}
		info.AssetCounts[kind] = count
		info.TotalAssets += count
	}
	if err := rows.Err(); err != nil {
		return info, err
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scores").Scan(&info.TotalScores); err != nil {
		return info, err
	}
	return info, nil
}

// ListIndexes returns the names of all user-defined indexes, sorted.
func (s *Store) ListIndexes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
