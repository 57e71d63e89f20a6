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

var _ repository.CommentRepository = (*Comments)(nil)

type Comments struct {
	db *DB
}

const commentColumns = `c.id, c.content, c.target_type, c.video_id, c.tweet_id, c.parent_id,
	c.owner_id, c.created_at, c.updated_at,
	u.id, u.username, u.full_name, u.avatar,
	(SELECT COUNT(*) FROM likes l WHERE l.comment_id = c.id)`

func scanComment(row interface{ Scan(...any) error }) (*model.Comment, error) {
	var (
		c                          model.Comment
		owner                      model.UserSummary
		videoID, tweetID, parentID sql.NullString
		targetType                 string
	)
	err := row.Scan(
		&c.ID, &c.Content, &targetType, &videoID, &tweetID, &parentID,
		&c.OwnerID, &c.CreatedAt, &c.UpdatedAt,
		&owner.ID, &owner.Username, &owner.FullName, &owner.Avatar,
		&c.LikesCount,
	)
	if err != nil {
		return nil, err
	}
	c.TargetType = model.TargetType(targetType)
	c.VideoID = stringPtr(videoID)
	c.TweetID = stringPtr(tweetID)
	c.ParentID = stringPtr(parentID)
	c.Owner = &owner
	return &c, nil
}

// Create inserts a comment. The CHECK constraints reject a comment whose
// target columns do not match its target type.
func (s *Comments) Create(ctx context.Context, comment *model.Comment) error {
	now := time.Now().UTC()
	comment.ID = xid.New().String()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := s.db.exec(ctx,
		`INSERT INTO comments (id, content, target_type, video_id, tweet_id, parent_id, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.Content, string(comment.TargetType),
		nullString(comment.VideoID), nullString(comment.TweetID), nullString(comment.ParentID),
		comment.OwnerID, comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFoundMessage("comment target no longer exists")
		}
		return fmt.Errorf("sqldb: inserting comment: %w", err)
	}
	return nil
}

func (s *Comments) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	c, err := scanComment(s.db.queryRow(ctx,
		`SELECT `+commentColumns+`
		 FROM comments c JOIN users u ON u.id = c.owner_id
		 WHERE c.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqldb: getting comment %s: %w", id, err)
	}
	return c, nil
}

func (s *Comments) ListByTarget(ctx context.Context, target model.Target, opts repository.ListOptions) ([]model.Comment, error) {
	col, err := commentTargetColumn(target.Type)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, `c.`+col+` = ? AND c.parent_id IS NULL`, opts, target.ID)
}

func (s *Comments) ListReplies(ctx context.Context, parentID string, opts repository.ListOptions) ([]model.Comment, error) {
	return s.list(ctx, `c.parent_id = ?`, opts, parentID)
}

func (s *Comments) list(ctx context.Context, where string, opts repository.ListOptions, args ...any) ([]model.Comment, error) {
	page, args := pageClause(opts, args)
	rows, err := s.db.query(ctx,
		`SELECT `+commentColumns+`
		 FROM comments c JOIN users u ON u.id = c.owner_id
		 WHERE `+where+`
		 ORDER BY c.id ASC`+page, args...)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqldb: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// UpdateContent edits the text only; target and parent are immutable.
func (s *Comments) UpdateContent(ctx context.Context, id, content string) error {
	err := s.db.execAffected(ctx, "comment", id,
		`UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`,
		content, time.Now().UTC(), id)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: updating comment %s: %w", id, err)
	}
	return err
}

// Delete removes the comment together with its replies and likes.
func (s *Comments) Delete(ctx context.Context, id string) error {
	err := s.db.execAffected(ctx, "comment", id, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("sqldb: deleting comment %s: %w", id, err)
	}
	return err
}

func commentTargetColumn(t model.TargetType) (string, error) {
	switch t {
	case model.TargetVideo:
		return "video_id", nil
	case model.TargetTweet:
		return "tweet_id", nil
	}
	return "", apperror.ValidationFailed("targetType", fmt.Sprintf("comments cannot target %q", t))
}
