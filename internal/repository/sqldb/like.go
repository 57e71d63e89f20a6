package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

var _ repository.LikeRepository = (*Likes)(nil)

type Likes struct {
	db *DB
}

func likeTargetColumn(t model.TargetType) (string, error) {
	switch t {
	case model.TargetVideo:
		return "video_id", nil
	case model.TargetComment:
		return "comment_id", nil
	case model.TargetTweet:
		return "tweet_id", nil
	}
	return "", apperror.ValidationFailed("targetType", fmt.Sprintf("unknown like target %q", t))
}

// Toggle flips the like without a read-then-write race.
//
// TOGGLE WITHOUT A TRANSACTION:
//  1. DELETE by (liked_by, target). One row gone means the like was present
//     and is now removed.
//  2. Otherwise INSERT ... ON CONFLICT DO NOTHING. If a concurrent toggle
//     inserted first, the UNIQUE (liked_by, target) constraint turns our
//     insert into a no-op, and the relation is still present exactly once.
func (s *Likes) Toggle(ctx context.Context, userID string, target model.Target) (bool, error) {
	col, err := likeTargetColumn(target.Type)
	if err != nil {
		return false, err
	}

	res, err := s.db.exec(ctx,
		`DELETE FROM likes WHERE liked_by = ? AND `+col+` = ?`, userID, target.ID)
	if err != nil {
		return false, fmt.Errorf("sqldb: removing like on %s %s: %w", target.Type, target.ID, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqldb: removing like on %s %s: %w", target.Type, target.ID, err)
	}
	if removed > 0 {
		return false, nil
	}

	_, err = s.db.exec(ctx,
		`INSERT INTO likes (id, target_type, `+col+`, liked_by, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		xid.New().String(), string(target.Type), target.ID, userID, time.Now().UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, apperror.NotFound(string(target.Type), target.ID)
		}
		return false, fmt.Errorf("sqldb: adding like on %s %s: %w", target.Type, target.ID, err)
	}
	return true, nil
}

func (s *Likes) Count(ctx context.Context, target model.Target) (int64, error) {
	col, err := likeTargetColumn(target.Type)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.queryRow(ctx,
		`SELECT COUNT(*) FROM likes WHERE `+col+` = ?`, target.ID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqldb: counting likes on %s %s: %w", target.Type, target.ID, err)
	}
	return n, nil
}

// LikedVideos lists videos the user liked, most recently liked first. Other
// people's drafts are hidden.
func (s *Likes) LikedVideos(ctx context.Context, userID string, opts repository.ListOptions) ([]model.Video, error) {
	page, args := pageClause(opts, []any{userID, true, userID})
	rows, err := s.db.query(ctx,
		`SELECT `+videoWithOwnerColumns+`
		 FROM likes l
		 JOIN videos v ON v.id = l.video_id
		 JOIN users u ON u.id = v.owner_id
		 WHERE l.liked_by = ? AND (v.is_published = ? OR v.owner_id = ?)
		 ORDER BY l.id DESC`+page, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing liked videos of %s: %w", userID, err)
	}
	defer rows.Close()

	videos := []model.Video{}
	for rows.Next() {
		var v model.Video
		if err := scanVideoWithOwner(rows, &v); err != nil {
			return nil, fmt.Errorf("sqldb: scanning liked video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}
