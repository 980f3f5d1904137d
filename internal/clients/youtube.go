// OnSide - Competitive Intelligence Reporting
// Copyright 2026 OnSide Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/onside-hq/onside

package clients

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"

	"github.com/onside-hq/onside/internal/config"
)

// ChannelStats summarizes a competitor's YouTube channel.
type ChannelStats struct {
	ChannelID   string `json:"channel_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Subscribers uint64 `json:"subscribers"`
	Videos      uint64 `json:"videos"`
	Views       uint64 `json:"views"`
}

// Video is one published video.
type Video struct {
	VideoID     string    `json:"video_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// YouTubeClient adapts the YouTube Data API v3.
type YouTubeClient struct {
	svc *youtube.Service
	env *googleEnvelope
}

// NewYouTube creates a YouTube Data API adapter.
func NewYouTube(ctx context.Context, cfg config.ProviderConfig, reserver QuotaReserver) (*YouTubeClient, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &YouTubeClient{
		svc: svc,
		env: newGoogleEnvelope("youtube", cfg, reserver),
	}, nil
}

// ChannelStats returns subscriber, video and view counts for a channel.
func (c *YouTubeClient) ChannelStats(ctx context.Context, channelID string) (*ChannelStats, error) {
	if channelID == "" {
		return nil, fmt.Errorf("youtube: channel ID must not be empty")
	}

	resp, err := googleCall(ctx, c.env, func() (*youtube.ChannelListResponse, error) {
		return c.svc.Channels.List([]string{"snippet", "statistics"}).
			Id(channelID).
			Context(ctx).
			Do()
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("youtube: channel %s not found", channelID)
	}

	ch := resp.Items[0]
	stats := &ChannelStats{ChannelID: channelID}
	if ch.Snippet != nil {
		stats.Title = ch.Snippet.Title
		stats.Description = ch.Snippet.Description
	}
	if ch.Statistics != nil {
		stats.Subscribers = ch.Statistics.SubscriberCount
		stats.Videos = ch.Statistics.VideoCount
		stats.Views = ch.Statistics.ViewCount
	}
	return stats, nil
}

// RecentVideos returns up to max videos a channel published since the
// given time, newest first.
func (c *YouTubeClient) RecentVideos(ctx context.Context, channelID string, since time.Time, max int64) ([]Video, error) {
	if channelID == "" {
		return nil, fmt.Errorf("youtube: channel ID must not be empty")
	}
	if max <= 0 || max > 50 {
		max = 10
	}

	resp, err := googleCall(ctx, c.env, func() (*youtube.SearchListResponse, error) {
		call := c.svc.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			Type("video").
			Order("date").
			MaxResults(max).
			Context(ctx)
		if !since.IsZero() {
			call = call.PublishedAfter(since.UTC().Format(time.RFC3339))
		}
		return call.Do()
	})
	if err != nil {
		return nil, err
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		videos = append(videos, Video{
			VideoID:     item.Id.VideoId,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			URL:         "https://www.youtube.com/watch?v=" + item.Id.VideoId,
			PublishedAt: publishedAt,
		})
	}
	return videos, nil
}
