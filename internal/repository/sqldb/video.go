package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

var _ repository.VideoRepository = (*Videos)(nil)

type Videos struct {
	db *DB
}

// videoWithOwnerColumns expects the video aliased as v and its owner as u.
const videoWithOwnerColumns = `v.id, v.owner_id, v.title, v.description, v.video_file,
	v.video_public_id, v.thumbnail, v.thumbnail_public_id, v.duration, v.views,
	v.is_published, v.created_at, v.updated_at,
	u.id, u.username, u.full_name, u.avatar`

// scanVideoWithOwner reads videoWithOwnerColumns followed by any extra
// columns the caller selected.
func scanVideoWithOwner(row interface{ Scan(...any) error }, v *model.Video, extra ...any) error {
	var owner model.UserSummary
	dest := []any{
		&v.ID, &v.OwnerID, &v.Title, &v.Description, &v.VideoFile,
		&v.VideoPublicID, &v.Thumbnail, &v.ThumbnailPublicID, &v.Duration, &v.Views,
		&v.IsPublished, &v.CreatedAt, &v.UpdatedAt,
		&owner.ID, &owner.Username, &owner.FullName, &owner.Avatar,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	v.Owner = &owner
	return nil
}

// sortColumns whitelists the ORDER BY targets; user input never reaches the
// SQL text directly.
var sortColumns = map[string]string{
	model.SortCreatedAt: "v.created_at",
	model.SortViews:     "v.views",
	model.SortDuration:  "v.duration",
	model.SortTitle:     "v.title",
}

// ValidSort reports whether sortBy names a sortable column.
func ValidSort(sortBy string) bool {
	_, ok := sortColumns[sortBy]
	return ok
}

func (s *Videos) Create(ctx context.Context, video *model.Video) error {
	now := time.Now().UTC()
	video.ID = xid.New().String()
	video.CreatedAt = now
	video.UpdatedAt = now

	_, err := s.db.exec(ctx,
		`INSERT INTO videos (id, owner_id, title, description, video_file, video_public_id,
		   thumbnail, thumbnail_public_id, duration, views, is_published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		video.ID, video.OwnerID, video.Title, video.Description, video.VideoFile, video.VideoPublicID,
		video.Thumbnail, video.ThumbnailPublicID, video.Duration, video.Views, video.IsPublished,
		video.CreatedAt, video.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", video.OwnerID)
		}
		return fmt.Errorf("sqldb: inserting video %q: %w", video.Title, err)
	}
	return nil
}

func (s *Videos) GetByID(ctx context.Context, id string) (*model.Video, error) {
	var v model.Video
	err := scanVideoWithOwner(s.db.queryRow(ctx,
		`SELECT `+videoWithOwnerColumns+`
		 FROM videos v JOIN users u ON u.id = v.owner_id
		 WHERE v.id = ?`, id), &v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("video", id)
		}
		return nil, fmt.Errorf("sqldb: getting video %s: %w", id, err)
	}
	return &v, nil
}

// Details loads the video with its like and comment counts, and whether
// viewerID has liked it.
func (s *Videos) Details(ctx context.Context, id, viewerID string) (*model.VideoDetails, error) {
	var (
		d     model.VideoDetails
		liked int64
	)
	err := scanVideoWithOwner(s.db.queryRow(ctx,
		`SELECT `+videoWithOwnerColumns+`,
		   (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id),
		   (SELECT COUNT(*) FROM comments c WHERE c.video_id = v.id),
		   (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id AND l.liked_by = ?)
		 FROM videos v JOIN users u ON u.id = v.owner_id
		 WHERE v.id = ?`, viewerID, id),
		&d.Video, &d.LikesCount, &d.CommentsCount, &liked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("video", id)
		}
		return nil, fmt.Errorf("sqldb: loading video details %s: %w", id, err)
	}
	d.IsLiked = liked > 0
	return &d, nil
}

// List applies filters, ordering and the page window. Without SortBy the
// order is insertion order (xid ids sort by creation time).
func (s *Videos) List(ctx context.Context, q repository.VideoQuery) ([]model.Video, error) {
	var (
		where []string
		args  []any
	)
	if !q.IncludeUnpublished {
		where = append(where, "v.is_published = ?")
		args = append(args, true)
	}
	if q.OwnerID != "" {
		where = append(where, "v.owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if term := strings.TrimSpace(q.Query); term != "" {
		where = append(where, "(LOWER(v.title) LIKE ? OR LOWER(v.description) LIKE ?)")
		like := "%" + strings.ToLower(term) + "%"
		args = append(args, like, like)
	}

	sqlText := `SELECT ` + videoWithOwnerColumns + ` FROM videos v JOIN users u ON u.id = v.owner_id`
	if len(where) > 0 {
		sqlText += " WHERE " + strings.Join(where, " AND ")
	}

	order := "v.id ASC"
	if col, ok := sortColumns[q.SortBy]; ok {
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		order = col + " " + dir + ", v.id " + dir
	}
	sqlText += " ORDER BY " + order

	page, args := pageClause(q.ListOptions, args)
	rows, err := s.db.query(ctx, sqlText+page, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing videos: %w", err)
	}
	defer rows.Close()

	videos := []model.Video{}
	for rows.Next() {
		var v model.Video
		if err := scanVideoWithOwner(rows, &v); err != nil {
			return nil, fmt.Errorf("sqldb: scanning video row: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// Update writes the editable columns: title, description, thumbnail and the
// publish flag.
func (s *Videos) Update(ctx context.Context, video *model.Video) error {
	video.UpdatedAt = time.Now().UTC()
	err := s.db.execAffected(ctx, "video", video.ID,
		`UPDATE videos SET title = ?, description = ?, thumbnail = ?, thumbnail_public_id = ?,
		   is_published = ?, updated_at = ?
		 WHERE id = ?`,
		video.Title, video.Description, video.Thumbnail, video.ThumbnailPublicID,
		video.IsPublished, video.UpdatedAt, video.ID,
	)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: updating video %s: %w", video.ID, err)
	}
	return err
}

// Delete removes the video; likes, comments, playlist memberships and
// history rows go with it through ON DELETE CASCADE.
func (s *Videos) Delete(ctx context.Context, id string) error {
	err := s.db.execAffected(ctx, "video", id, `DELETE FROM videos WHERE id = ?`, id)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: deleting video %s: %w", id, err)
	}
	return err
}

// IncrementViews is a single atomic UPDATE, so concurrent plays never lose
// a count.
func (s *Videos) IncrementViews(ctx context.Context, id string) error {
	err := s.db.execAffected(ctx, "video", id,
		`UPDATE videos SET views = views + 1 WHERE id = ?`, id)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: incrementing views of %s: %w", id, err)
	}
	return err
}
