package recommend

import (
	"context"
	"sort"
	"strings"

	"mixtape/internal/app/tags"
	apperr "mixtape/internal/errors"
	"mixtape/internal/models"
)

// Ranking is one recommended item with the vote counts of the matching tag.
type Ranking struct {
	ItemID    string `json:"itemId"`
	TagID     string `json:"tagId"`
	Upvotes   int    `json:"upvoteCount"`
	Downvotes int    `json:"downvoteCount"`
	Score     int    `json:"score"`
}

// Store exposes the aggregation the query runs on.
type Store interface {
	PositiveTallies(ctx context.Context, name string) ([]models.Tally, error)
}

// Service ranks items by the consensus on a tag.
type Service interface {
	RankByTag(ctx context.Context, name string) ([]Ranking, error)
}

type service struct {
	store Store
}

// New constructs a recommendation Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

// RankByTag returns the items carrying the tag named name whose upvotes strictly exceed
// downvotes, highest score first and then by item id.
func (s *service) RankByTag(ctx context.Context, name string) ([]Ranking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperr.InvalidArgument("tag query parameter is required")
	}
	normalized, err := tags.NormalizeName(name)
	if err != nil {
		return nil, err
	}

	tallies, err := s.store.PositiveTallies(ctx, normalized)
	if err != nil {
		return nil, apperr.Internal(err, "failed to rank items")
	}

	rankings := make([]Ranking, 0, len(tallies))
	for _, tally := range tallies {
		if tally.Upvotes <= tally.Downvotes {
			continue
		}
		rankings = append(rankings, Ranking{
			ItemID:    tally.ItemID,
			TagID:     tally.TagID,
			Upvotes:   tally.Upvotes,
			Downvotes: tally.Downvotes,
			Score:     tally.Score(),
		})
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Score != rankings[j].Score {
			return rankings[i].Score > rankings[j].Score
		}
		return rankings[i].ItemID < rankings[j].ItemID
	})
	return rankings, nil
}
