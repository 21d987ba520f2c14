package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"social-report/internal/database/models"
	"social-report/pkg/types"
)

// ErrNoSnapshot is returned when a client has no stored dataset.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SaveDataset stores ds as a new snapshot of client in one transaction.
func (db *DB) SaveDataset(ctx context.Context, client string, ds *types.Dataset) (*models.Snapshot, error) {
	snap := &models.Snapshot{
		ID:        uuid.NewString(),
		Client:    client,
		Generated: ds.Generated,
		StoredAt:  db.now().UTC(),
		Posts:     ds.RecordCount(),
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.rebind(
		`INSERT INTO snapshots (id, client, generated, stored_at) VALUES (?, ?, ?, ?)`),
		snap.ID, snap.Client, snap.Generated, snap.StoredAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	platformStmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO snapshot_platforms (snapshot_id, position, platform_key, worksheet, sheet_id, raw_count)
		VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare platform insert: %w", err)
	}
	defer platformStmt.Close()

	postStmt, err := tx.PrepareContext(ctx, db.rebind(`
		INSERT INTO snapshot_posts (
			snapshot_id, platform_position, position, created_at, media_type, is_video,
			impressions, likes, comments, shares, platform, agent_name, account_name,
			post_id, post_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare post insert: %w", err)
	}
	defer postStmt.Close()

	for pi, pd := range ds.Platforms {
		if _, err := platformStmt.ExecContext(ctx, snap.ID, pi, pd.Key, pd.Worksheet, pd.SheetID, pd.Count); err != nil {
			return nil, fmt.Errorf("failed to insert platform %s: %w", pd.Key, err)
		}
		for ri, r := range pd.Records {
			p := models.PostFromRecord(r)
			if _, err := postStmt.ExecContext(ctx,
				snap.ID, pi, ri, p.CreatedAt, p.MediaType, p.IsVideo,
				p.Impressions, p.Likes, p.Comments, p.Shares, p.Platform, p.AgentName, p.AccountName,
				p.PostID, p.PostURL,
			); err != nil {
				return nil, fmt.Errorf("failed to insert post %d of %s: %w", ri, pd.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	db.logger.Infof("Stored snapshot %s for %s: %d platforms, %d posts", snap.ID, client, len(ds.Platforms), snap.Posts)
	return snap, nil
}

// LoadLatestDataset rebuilds the newest snapshot of client.
func (db *DB) LoadLatestDataset(ctx context.Context, client string) (*types.Dataset, error) {
	var id, generated string
	err := db.conn.QueryRowContext(ctx, db.rebind(`
		SELECT id, generated FROM snapshots
		WHERE client = ?
		ORDER BY stored_at DESC
		LIMIT 1`), client).Scan(&id, &generated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %s: %w", client, ErrNoSnapshot)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}
	return db.loadSnapshot(ctx, id, generated)
}

func (db *DB) loadSnapshot(ctx context.Context, id, generated string) (*types.Dataset, error) {
	ds := &types.Dataset{Generated: generated, Platforms: []types.PlatformData{}}

	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT position, platform_key, worksheet, sheet_id, raw_count
		FROM snapshot_platforms
		WHERE snapshot_id = ?
		ORDER BY position`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query platforms: %w", err)
	}
	positions := make(map[int]int)
	for rows.Next() {
		var p models.Platform
		if err := rows.Scan(&p.Position, &p.Key, &p.Worksheet, &p.SheetID, &p.RawCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan platform: %w", err)
		}
		positions[p.Position] = len(ds.Platforms)
		ds.Platforms = append(ds.Platforms, types.PlatformData{
			Key:       p.Key,
			Worksheet: p.Worksheet,
			SheetID:   p.SheetID,
			Count:     p.RawCount,
			Records:   []types.RawPostRecord{},
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read platforms: %w", err)
	}

	rows, err = db.conn.QueryContext(ctx, db.rebind(`
		SELECT platform_position, created_at, media_type, is_video, impressions, likes,
		       comments, shares, platform, agent_name, account_name, post_id, post_url
		FROM snapshot_posts
		WHERE snapshot_id = ?
		ORDER BY platform_position, position`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Post
		if err := rows.Scan(
			&p.PlatformPosition, &p.CreatedAt, &p.MediaType, &p.IsVideo, &p.Impressions, &p.Likes,
			&p.Comments, &p.Shares, &p.Platform, &p.AgentName, &p.AccountName, &p.PostID, &p.PostURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		idx, ok := positions[p.PlatformPosition]
		if !ok {
			continue
		}
		ds.Platforms[idx].Records = append(ds.Platforms[idx].Records, p.Record())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return ds, nil
}

// ListSnapshots returns the newest snapshots of client, newest first.
func (db *DB) ListSnapshots(ctx context.Context, client string, limit int) ([]*models.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, db.rebind(`
		SELECT s.id, s.client, s.generated, s.stored_at,
		       (SELECT COUNT(*) FROM snapshot_posts p WHERE p.snapshot_id = s.id)
		FROM snapshots s
		WHERE s.client = ?
		ORDER BY s.stored_at DESC
		LIMIT ?`), client, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		s := &models.Snapshot{}
		if err := rows.Scan(&s.ID, &s.Client, &s.Generated, &s.StoredAt, &s.Posts); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// PruneSnapshots keeps the newest keep snapshots of client and deletes the rest.
func (db *DB) PruneSnapshots(ctx context.Context, client string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stale := `SELECT id FROM snapshots WHERE client = ? AND id NOT IN (
		SELECT id FROM snapshots WHERE client = ? ORDER BY stored_at DESC LIMIT ?)`
	for _, table := range []string{"snapshot_posts", "snapshot_platforms"} {
		query := fmt.Sprintf("DELETE FROM %s WHERE snapshot_id IN (%s)", table, stale)
		if _, err := tx.ExecContext(ctx, db.rebind(query), client, client, keep); err != nil {
			return 0, fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM snapshots WHERE id IN (`+stale+`)`), client, client, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		db.logger.Infof("Pruned %d old snapshots of %s", n, client)
	}
	return n, nil
}

// GetSnapshotStats returns storage statistics for the monitor report.
func (db *DB) GetSnapshotStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalSnapshots int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&totalSnapshots); err != nil {
		return nil, fmt.Errorf("failed to get total snapshots: %w", err)
	}
	stats["total_snapshots"] = totalSnapshots

	var totalPosts int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshot_posts").Scan(&totalPosts); err != nil {
		return nil, fmt.Errorf("failed to get total posts: %w", err)
	}
	stats["total_posts"] = totalPosts

	var clients int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(DISTINCT client) FROM snapshots").Scan(&clients); err != nil {
		return nil, fmt.Errorf("failed to get client count: %w", err)
	}
	stats["clients"] = clients

	stats["last_stored_at"] = "Never"
	if totalSnapshots > 0 {
		var last time.Time
		if err := db.conn.QueryRowContext(ctx,
			"SELECT stored_at FROM snapshots ORDER BY stored_at DESC LIMIT 1").Scan(&last); err != nil {
			return nil, fmt.Errorf("failed to get last stored time: %w", err)
		}
		stats["last_stored_at"] = last.Format(time.RFC3339)
	}

	return stats, nil
}
