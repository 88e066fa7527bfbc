package hockeydecoded

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const placeholderContent = "<p>Your full blog post content would go here...</p>"

// SeedPosts are the historical deep-dives installed into an empty database.
var SeedPosts = []BlogPost{
	{
		Title:         "How have player demographics changed over the history of the league?",
		Slug:          "historical-player-demographics-2025",
		Summary:       "A deep exploration of player height, weight, and nationality from 1917-2025.",
		Content:       placeholderContent,
		Published:     true,
		Category:      CategoryDeepDive,
		FeaturedImage: "/static/images/historical_player_analysis_072025/nhl_player_nationalities_trend.png",
		CreatedAt:     time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC),
	},
	{
		Title:         "How have career tenure and trajectories changed over the history of the league?",
		Slug:          "player-career-tenure-2025",
		Summary:       "A deep exploration of player career tenure from 1917-2025.",
		Content:       placeholderContent,
		Published:     true,
		Category:      CategoryDeepDive,
		FeaturedImage: "/static/images/player_movement_072025/nhl_career_length_by_first_year.png",
		CreatedAt:     time.Date(2025, 7, 25, 0, 0, 0, 0, time.UTC),
	},
}

// Seed installs SeedPosts when the posts table is empty and returns how many
// posts were inserted. A non-empty table is left untouched.
func Seed(ctx context.Context, s *Store, log logrus.FieldLogger) (int, error) {
	n, err := s.CountPosts(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.WithField("posts", n).Info("database already contains posts, skipping seed")
		return 0, nil
	}
	for _, p := range SeedPosts {
		if err := s.SavePost(ctx, p); err != nil {
			return 0, fmt.Errorf("seed %s: %w", p.Slug, err)
		}
		log.WithField("slug", p.Slug).Info("seeded post")
	}
	return len(SeedPosts), nil
}
