package sqldb

import (
	"context"
	"fmt"

	"github.com/sakif/vidtube/internal/model"
	"github.com/sakif/vidtube/internal/repository"
)

var _ repository.DashboardRepository = (*Dashboard)(nil)

// Dashboard computes channel aggregates. Nothing here is stored; every
// number is counted on read.
type Dashboard struct {
	db *DB
}

func (s *Dashboard) Stats(ctx context.Context, channelID string) (*model.ChannelStats, error) {
	var st model.ChannelStats
	err := s.db.queryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM videos WHERE owner_id = ?),
		   (SELECT CAST(COALESCE(SUM(views), 0) AS BIGINT) FROM videos WHERE owner_id = ?),
		   (SELECT COUNT(*) FROM subscriptions WHERE channel_id = ?),
		   (SELECT COUNT(*) FROM likes l JOIN videos v ON v.id = l.video_id WHERE v.owner_id = ?),
		   (SELECT COUNT(*) FROM tweets WHERE owner_id = ?)`,
		channelID, channelID, channelID, channelID, channelID,
	).Scan(&st.TotalVideos, &st.TotalViews, &st.TotalSubscribers, &st.TotalLikes, &st.TotalTweets)
	if err != nil {
		return nil, fmt.Errorf("sqldb: computing stats for %s: %w", channelID, err)
	}
	return &st, nil
}

// Videos lists every video of the channel, drafts included, newest first.
func (s *Dashboard) Videos(ctx context.Context, channelID string) ([]model.ChannelVideo, error) {
	rows, err := s.db.query(ctx,
		`SELECT `+videoWithOwnerColumns+`,
		   (SELECT COUNT(*) FROM likes l WHERE l.video_id = v.id)
		 FROM videos v JOIN users u ON u.id = v.owner_id
		 WHERE v.owner_id = ?
		 ORDER BY v.id DESC`, channelID)
	if err != nil {
		return nil, fmt.Errorf("sqldb: listing channel videos of %s: %w", channelID, err)
	}
	defer rows.Close()

	videos := []model.ChannelVideo{}
	for rows.Next() {
		var cv model.ChannelVideo
		if err := scanVideoWithOwner(rows, &cv.Video, &cv.LikesCount); err != nil {
			return nil, fmt.Errorf("sqldb: scanning channel video: %w", err)
		}
		videos = append(videos, cv)
	}
	return videos, rows.Err()
}
