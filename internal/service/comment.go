package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/vidtube/internal/apperror"
	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

// CommentService manages comments on videos and tweets, and replies to
// comments. A reply copies its parent's target, so listing a video's
// comments never has to walk the reply tree.
type CommentService struct {
	comments repository.CommentRepository
	videos   repository.VideoRepository
	tweets   repository.TweetRepository
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	videos repository.VideoRepository,
	tweets repository.TweetRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		videos:   videos,
		tweets:   tweets,
		logger:   logger,
	}
}

// List returns the top-level comments of a video or tweet.
func (s *CommentService) List(ctx context.Context, target model.Target, viewerID string, opts repository.ListOptions) ([]model.Comment, error) {
	if err := s.checkTarget(ctx, target, viewerID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTarget(ctx, target, opts)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing comments of %s %s: %w", target.Type, target.ID, err)
	}
	return comments, nil
}

// Create adds a top-level comment.
func (s *CommentService) Create(ctx context.Context, ownerID string, target model.Target, content string) (*model.Comment, error) {
	content, err := checkContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, target, ownerID); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		Content:    content,
		TargetType: target.Type,
		OwnerID:    ownerID,
	}
	id := target.ID
	switch target.Type {
	case model.TargetVideo:
		comment.VideoID = &id
	case model.TargetTweet:
		comment.TweetID = &id
	}
	return s.insert(ctx, comment)
}

// Replies lists the direct replies of a comment.
func (s *CommentService) Replies(ctx context.Context, viewerID, parentID string, opts repository.ListOptions) ([]model.Comment, error) {
	if _, err := s.visibleParent(ctx, parentID, viewerID); err != nil {
		return nil, err
	}
	replies, err := s.comments.ListReplies(ctx, parentID, opts)
	if err != nil {
		return nil, fmt.Errorf("service/comment: listing replies of %s: %w", parentID, err)
	}
	return replies, nil
}

// Reply answers an existing comment on the same video or tweet.
func (s *CommentService) Reply(ctx context.Context, ownerID, parentID, content string) (*model.Comment, error) {
	content, err := checkContent(content)
	if err != nil {
		return nil, err
	}
	parent, err := s.visibleParent(ctx, parentID, ownerID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		Content:    content,
		TargetType: parent.TargetType,
		VideoID:    parent.VideoID,
		TweetID:    parent.TweetID,
		ParentID:   &parent.ID,
		OwnerID:    ownerID,
	}
	return s.insert(ctx, comment)
}

// Update replaces the text of a comment. Owner only.
func (s *CommentService) Update(ctx context.Context, callerID, id, content string) (*model.Comment, error) {
	content, err := checkContent(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, callerID, id); err != nil {
		return nil, err
	}
	if err := s.comments.UpdateContent(ctx, id, content); err != nil {
		return nil, fmt.Errorf("service/comment: updating comment %s: %w", id, err)
	}
	return s.comments.GetByID(ctx, id)
}

// Delete removes a comment with its replies and likes. Owner only.
func (s *CommentService) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.owned(ctx, callerID, id); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/comment: deleting comment %s: %w", id, err)
	}
	s.logger.Info("comment deleted", slog.String("id", id))
	return nil
}

func (s *CommentService) insert(ctx context.Context, comment *model.Comment) (*model.Comment, error) {
	if err := s.comments.Create(ctx, comment); err != nil {
		logFailure(s.logger, "failed to create comment", err, slog.String("ownerID", comment.OwnerID))
		return nil, fmt.Errorf("service/comment: creating comment: %w", err)
	}
	// Reload for the owner summary.
	return s.comments.GetByID(ctx, comment.ID)
}

func (s *CommentService) owned(ctx context.Context, callerID, id string) (*model.Comment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(callerID, comment.OwnerID, "You are not the owner of this comment"); err != nil {
		return nil, err
	}
	return comment, nil
}

// visibleParent loads a comment whose video or tweet the viewer may see.
// Comments under another user's draft are reported as missing targets.
func (s *CommentService) visibleParent(ctx context.Context, id, viewerID string) (*model.Comment, error) {
	parent, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, parent.Target(), viewerID); err != nil {
		return nil, err
	}
	return parent, nil
}

func (s *CommentService) checkTarget(ctx context.Context, target model.Target, viewerID string) error {
	switch target.Type {
	case model.TargetVideo:
		_, err := visibleVideo(ctx, s.videos, target.ID, viewerID)
		return err
	case model.TargetTweet:
		_, err := s.tweets.GetByID(ctx, target.ID)
		return err
	}
	return apperror.ValidationFailed("targetType", fmt.Sprintf("comments cannot target %q", target.Type))
}

func checkContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "content is required")
	}
	if len(content) > MaxContentLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxContentLength))
	}
	return content, nil
}
