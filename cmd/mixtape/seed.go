package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"mixtape/internal/app/playlists"
	"mixtape/internal/app/tags"
	"mixtape/internal/app/tracks"
	"mixtape/internal/http/middleware"
	"mixtape/internal/logging"
	"mixtape/internal/models"
	"mixtape/internal/store"
)

const (
	demoUser     = "demo"
	demoListener = "listener"
	demoCritic   = "critic"
	demoTokenTTL = 24 * time.Hour
)

type seedTrack struct {
	Title  string
	Artist string
	Tags   []string
}

type seedPlaylist struct {
	Title    string
	IsPublic bool
	Tracks   []seedTrack
	Tags     []string
}

var demoPlaylists = []seedPlaylist{
	{
		Title:    "Late Night Drive",
		IsPublic: true,
		Tags:     []string{"chill", "night"},
		Tracks: []seedTrack{
			{Title: "Nightcall", Artist: "Kavinsky", Tags: []string{"night", "synthwave"}},
			{Title: "Midnight City", Artist: "M83", Tags: []string{"synthwave"}},
			{Title: "Teardrop", Artist: "Massive Attack", Tags: []string{"chill"}},
		},
	},
	{
		Title:    "Sunday Morning",
		IsPublic: false,
		Tags:     []string{"chill"},
		Tracks: []seedTrack{
			{Title: "Pink Moon", Artist: "Nick Drake", Tags: []string{"acoustic", "chill"}},
			{Title: "Harvest Moon", Artist: "Neil Young", Tags: []string{"acoustic"}},
		},
	},
}

// Seed loads the demo catalogue and prints a token for the demo user.
func (r *runner) Seed(ctx context.Context, cmd *cli.Command) error {
	docs, err := r.openStore(ctx, false)
	if err != nil {
		return err
	}
	defer docs.Close()

	if err := seedDemoData(ctx, docs); err != nil {
		return err
	}

	token, err := middleware.IssueToken([]byte(r.cfg.Security.JWTSecret), demoUser, demoTokenTTL)
	if err != nil {
		return fmt.Errorf("issue demo token: %w", err)
	}
	r.logger.Zerolog().Info().Str("user", demoUser).Str("token", token).Msg("demo token issued")
	return nil
}

// seedDemoData creates the demo playlists unless the demo user already owns some. Tags are
// attached by the demo user and voted on by two other users so recommendations have data.
func seedDemoData(ctx context.Context, docs store.DocumentStore) error {
	playlistSvc := playlists.New(docs)
	trackSvc := tracks.New(docs)
	tagSvc := tags.New(docs)

	ctx = logging.ContextWithUserID(ctx, demoUser)

	existing, err := playlistSvc.ListMine(ctx, demoUser)
	if err != nil {
		return fmt.Errorf("check demo playlists: %w", err)
	}
	if len(existing) > 0 {
		log.Info().Int("playlists", len(existing)).Msg("demo data already present")
		return nil
	}

	for _, seed := range demoPlaylists {
		playlist, err := playlistSvc.Create(ctx, demoUser, seed.Title, seed.IsPublic)
		if err != nil {
			return fmt.Errorf("create playlist %q: %w", seed.Title, err)
		}

		for _, st := range seed.Tracks {
			track, err := trackSvc.Create(ctx, demoUser, st.Title, st.Artist)
			if err != nil {
				return fmt.Errorf("create track %q: %w", st.Title, err)
			}
			if _, err := playlistSvc.AddTrack(ctx, demoUser, playlist.ID, track.TrackID); err != nil {
				return fmt.Errorf("add track %q: %w", st.Title, err)
			}
			if err := seedTags(ctx, tagSvc, tags.ItemRef{Kind: tags.KindTrack, ID: track.TrackID}, st.Tags); err != nil {
				return err
			}
		}

		if err := seedTags(ctx, tagSvc, tags.ItemRef{Kind: tags.KindPlaylist, ID: playlist.ID}, seed.Tags); err != nil {
			return err
		}
	}

	log.Info().Int("playlists", len(demoPlaylists)).Msg("demo data seeded")
	return nil
}

// seedTags attaches names to item as the demo user. The listener agrees with every tag
// and the critic disputes "night".
func seedTags(ctx context.Context, tagSvc tags.Service, item tags.ItemRef, names []string) error {
	for _, name := range names {
		result, err := tagSvc.Attach(ctx, demoUser, item, name)
		if err != nil {
			return fmt.Errorf("attach tag %q: %w", name, err)
		}
		// Votes toggle and are per tag, so only vote where the user has not already.
		if result.Tag.VoteOf(demoListener) != models.VoteUp {
			if _, err := tagSvc.Upvote(ctx, demoListener, result.Tag.ID); err != nil {
				return fmt.Errorf("upvote tag %q: %w", name, err)
			}
		}
		if name == "night" && result.Tag.VoteOf(demoCritic) != models.VoteDown {
			if _, err := tagSvc.Downvote(ctx, demoCritic, result.Tag.ID); err != nil {
				return fmt.Errorf("downvote tag %q: %w", name, err)
			}
		}
	}
	return nil
}
