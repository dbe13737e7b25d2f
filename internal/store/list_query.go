package store

import (
	"strings"
)

type assetListQueryBuilder struct {
	filter AssetFilter
	count  bool
	query  string
	args   []any
	where  []string
}

func buildAssetListQuery(filter AssetFilter, count bool) (string, []any) {
	builder := &assetListQueryBuilder{filter: filter, count: count}
	builder.buildSelect()
	builder.buildWhere()
	if !count {
		builder.buildOrder()
		builder.buildPagination()
	}
	return builder.query, builder.args
}

func (b *assetListQueryBuilder) buildSelect() {
	if b.count {
		b.query = "SELECT COUNT(*) FROM assets"
		return
	}
	// Listings never carry content; the inline base64 column stays in the
	// database until a single asset is fetched.
	b.query = "SELECT " + assetListColumns + " FROM assets"
}

func (b *assetListQueryBuilder) buildWhere() {
	if b.filter.Kind != "" {
		b.where = append(b.where, "kind = ?")
		b.args = append(b.args, b.filter.Kind)
	}
	if b.filter.Tag != "" {
		b.where = append(b.where, "id IN (SELECT asset_id FROM asset_tags WHERE tag = ?)")
		b.args = append(b.args, b.filter.Tag)
	}
	if len(b.where) == 0 {
		return
	}
	b.query += " WHERE " + strings.Join(b.where, " AND ")
}

func (b *assetListQueryBuilder) buildOrder() {
	b.query += " ORDER BY upload_date DESC, id"
}

func (b *assetListQueryBuilder) buildPagination() {
	hasLimit := false
	if b.filter.Limit > 0 {
		b.query += " LIMIT ?"
		b.args = append(b.args, b.filter.Limit)
		hasLimit = true
	}
	if b.filter.Skip > 0 {
		if !hasLimit {
			b.query += " LIMIT -1"
		}
		b.query += " OFFSET ?"
		b.args = append(b.args, b.filter.Skip)
	}
}

type scoreListQueryBuilder struct {
	filter ScoreFilter
	count  bool
	query  string
	args   []any
	where  []string
}

func buildScoreListQuery(filter ScoreFilter, count bool) (string, []any) {
	builder := &scoreListQueryBuilder{filter: filter, count: count}
	builder.buildSelect()
	builder.buildWhere()
	if !count {
		builder.buildOrder()
		builder.buildPagination()
	}
	return builder.query, builder.args
}

func (b *scoreListQueryBuilder) buildSelect() {
	if b.count {
		b.query = "SELECT COUNT(*) FROM scores"
		return
	}
	b.query = "SELECT " + scoreColumns + " FROM scores"
}

func (b *scoreListQueryBuilder) buildWhere() {
	if b.filter.PlayerName != "" {
		b.where = append(b.where, "player_name = ?")
		b.args = append(b.args, b.filter.PlayerName)
	}
	if b.filter.GameLevel != "" {
		b.where = append(b.where, "game_level = ?")
		b.args = append(b.args, b.filter.GameLevel)
	}
	if len(b.where) == 0 {
		return
	}
	b.query += " WHERE " + strings.Join(b.where, " AND ")
}

func (b *scoreListQueryBuilder) buildOrder() {
	column := "score"
	if b.filter.SortBy == ScoreSortTimestamp {
		column = "timestamp"
	}
	direction := "DESC"
	if b.filter.Ascending {
		direction = "ASC"
	}
	// Secondary sort on id keeps pagination stable across equal keys.
	b.query += " ORDER BY " + column + " " + direction + ", id"
}

func (b *scoreListQueryBuilder) buildPagination() {
	hasLimit := false
	if b.filter.Limit > 0 {
		b.query += " LIMIT ?"
		b.args = append(b.args, b.filter.Limit)
		hasLimit = true
	}
	if b.filter.Skip > 0 {
		if !hasLimit {
			b.query += " LIMIT -1"
		}
		b.query += " OFFSET ?"
		b.args = append(b.args, b.filter.Skip)
	}
}
