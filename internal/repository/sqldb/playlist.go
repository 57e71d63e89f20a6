package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

var _ repository.PlaylistRepository = (*Playlists)(nil)

type Playlists struct {
	db *DB
}

// appendVideoSQL puts the video after the current last member. The WHERE
// clause is required by SQLite when INSERT ... SELECT is followed by an
// upsert clause.
const appendVideoSQL = `INSERT INTO playlist_videos (playlist_id, video_id, position)
	SELECT ?, ?, COALESCE(MAX(position), 0) + 1 FROM playlist_videos WHERE playlist_id = ?
	ON CONFLICT DO NOTHING`

// Create inserts the playlist and its initial members in one transaction so
// a bad video id leaves nothing behind.
func (s *Playlists) Create(ctx context.Context, playlist *model.Playlist, videoIDs []string) error {
	now := time.Now().UTC()
	playlist.ID = xid.New().String()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb: beginning playlist transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	_, err = tx.ExecContext(ctx, s.db.rebind(
		`INSERT INTO playlists (id, name, description, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		playlist.ID, playlist.Name, playlist.Description, playlist.OwnerID,
		playlist.CreatedAt, playlist.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqldb: inserting playlist %q: %w", playlist.Name, err)
	}

	for _, videoID := range videoIDs {
		if _, err := tx.ExecContext(ctx, s.db.rebind(appendVideoSQL), playlist.ID, videoID, playlist.ID); err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("video", videoID)
			}
			return fmt.Errorf("sqldb: adding video %s to new playlist: %w", videoID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqldb: committing playlist %q: %w", playlist.Name, err)
	}
	return nil
}

// GetByID loads the playlist with the videos viewerID may see, in playlist
// order.
func (s *Playlists) GetByID(ctx context.Context, id, viewerID string) (*model.Playlist, error) {
	var p model.Playlist
	err := s.db.queryRow(ctx,
		`SELECT id, name, description, owner_id, created_at, updated_at
		 FROM playlists WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("playlist", id)
		}
		return nil, fmt.Errorf("sqldb: getting playlist %s: %w", id, err)
	}

	members, err := s.members(ctx, viewerID, `pv.playlist_id = ?`, id)
	if err != nil {
		return nil, err
	}
	p.Videos = members[p.ID]
	if p.Videos == nil {
		p.Videos = []model.Video{}
	}
	return &p, nil
}

// ListByOwner returns the user's playlists, oldest first, each with the
// videos viewerID may see. Members of every playlist are fetched in a single
// query.
func (s *Playlists) ListByOwner(ctx context.Context, ownerID, viewerID string) ([]model.Playlist, error) {
	rows, err := s.db.query(ctx,
		`SELECT id, name, description, owner_id, created_at, updated_at
		 FROM playlists WHERE owner_id = ? ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing playlists of %s: %w", ownerID, err)
	}
	defer rows.Close()

	playlists := []model.Playlist{}
	for rows.Next() {
		var p model.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqldb: scanning playlist row: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := s.members(ctx, viewerID, `pv.playlist_id IN (SELECT id FROM playlists WHERE owner_id = ?)`, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range playlists {
		playlists[i].Videos = members[playlists[i].ID]
		if playlists[i].Videos == nil {
			playlists[i].Videos = []model.Video{}
		}
	}
	return playlists, nil
}

// members returns playlist id -> videos in position order. Drafts are
// skipped unless viewerID owns them.
func (s *Playlists) members(ctx context.Context, viewerID, where string, args ...any) (map[string][]model.Video, error) {
	args = append(args, true, viewerID)
	rows, err := s.db.query(ctx,
		`SELECT pv.playlist_id, `+videoWithOwnerColumns+`
		 FROM playlist_videos pv
		 JOIN videos v ON v.id = pv.video_id
		 JOIN users u ON u.id = v.owner_id
		 WHERE `+where+` AND (v.is_published = ? OR v.owner_id = ?)
		 ORDER BY pv.playlist_id, pv.position ASC, pv.video_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing playlist videos: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.Video)
	for rows.Next() {
		var (
			playlistID string
			v          model.Video
		)
		if err := scanVideoWithOwner(prefixScanner{row: rows, first: &playlistID}, &v); err != nil {
			return nil, fmt.Errorf("sqldb: scanning playlist video: %w", err)
		}
		out[playlistID] = append(out[playlistID], v)
	}
	return out, rows.Err()
}

// prefixScanner lets scanVideoWithOwner read rows that carry one extra
// column in front of the video columns.
type prefixScanner struct {
	row   interface{ Scan(...any) error }
	first any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.row.Scan(append([]any{p.first}, dest...)...)
}

func (s *Playlists) Update(ctx context.Context, playlist *model.Playlist) error {
	playlist.UpdatedAt = time.Now().UTC()
	err := s.db.execAffected(ctx, "playlist", playlist.ID,
		`UPDATE playlists SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		playlist.Name, playlist.Description, playlist.UpdatedAt, playlist.ID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: updating playlist %s: %w", playlist.ID, err)
	}
	return err
}

func (s *Playlists) Delete(ctx context.Context, id string) error {
	err := s.db.execAffected(ctx, "playlist", id, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: deleting playlist %s: %w", id, err)
	}
	return err
}

func (s *Playlists) AddVideo(ctx context.Context, playlistID, videoID string) error {
	_, err := s.db.exec(ctx, appendVideoSQL, playlistID, videoID, playlistID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFoundMessage("playlist or video no longer exists")
		}
		return fmt.Errorf("sqldb: adding video %s to playlist %s: %w", videoID, playlistID, err)
	}
	return s.touch(ctx, playlistID)
}

// RemoveVideo is a no-op when the video is not a member.
func (s *Playlists) RemoveVideo(ctx context.Context, playlistID, videoID string) error {
	_, err := s.db.exec(ctx,
		`DELETE FROM playlist_videos WHERE playlist_id = ? AND video_id = ?`, playlistID, videoID)
	if err != nil {
		return fmt.Errorf("sqldb: removing video %s from playlist %s: %w", videoID, playlistID, err)
	}
	return s.touch(ctx, playlistID)
}

func (s *Playlists) touch(ctx context.Context, playlistID string) error {
	if _, err := s.db.exec(ctx,
		`UPDATE playlists SET updated_at = ? WHERE id = ?`, time.Now().UTC(), playlistID); err != nil {
		return fmt.Errorf("sqldb: touching playlist %s: %w", playlistID, err)
	}
	return nil
}
