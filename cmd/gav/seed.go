package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gav/internal/blobstore"
	"gav/internal/config"
	"gav/internal/models"
	"gav/internal/server"
	"gav/internal/store"
)

// seedScore is one score entry in a seed file.
type seedScore struct {
	PlayerName string `yaml:"player_name" json:"player_name"`
	Score      int64  `yaml:"score" json:"score"`
	GameLevel  string `yaml:"game_level" json:"game_level"`
}

func newSeedCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <dir>",
		Short: "Load assets and scores from a seed directory",
		Long: `Seed loads content from a directory laid out as:

  <dir>/sprites/    image files, one asset each
  <dir>/audio/      audio files, one asset each
  <dir>/scores.yaml score entries (scores.json also accepted)

Files above the upload ceiling are skipped with a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			policy, err := cfg.ContentPolicy()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			var bs blobstore.BlobStore
			if cfg.Blob.Enabled {
				cas, err := blobstore.NewLocalCAS(cfg.BlobRoot())
				if err != nil {
					return err
				}
				bs = cas
			}

			assets := server.NewAssetService(st, bs, policy, nil)
			scores := server.NewScoreService(st)

			total := 0
			for _, kind := range []models.AssetKind{models.AssetKindSprite, models.AssetKindAudio} {
				n, err := seedAssets(cmd, assets, filepath.Join(dir, string(kind)+"s"), kind)
				if err != nil {
					return err
				}
				total += n
			}

			entries, err := loadSeedScores(dir)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				_, err := scores.Create(cmd.Context(), server.CreateScoreInput{
					PlayerName: entry.PlayerName,
					Score:      entry.Score,
					GameLevel:  entry.GameLevel,
				})
				if err != nil {
					return fmt.Errorf("seed score for %q: %w", entry.PlayerName, err)
				}
			}

			fmt.Printf("Seeded %d assets and %d scores\n", total, len(entries))
			return nil
		},
	}

	return cmd
}

func seedAssets(cmd *cobra.Command, assets *server.AssetService, dir string, kind models.AssetKind) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return count, err
		}

		asset, err := assets.Upload(cmd.Context(), server.UploadAssetInput{
			Kind:        kind,
			Filename:    entry.Name(),
			ContentType: mime.TypeByExtension(filepath.Ext(entry.Name())),
			Content:     content,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", path, err)
			continue
		}

		fmt.Printf("  %s %s (%s, %d bytes)\n", asset.Kind, asset.ID, asset.Filename, asset.SizeBytes)
		count++
	}
	return count, nil
}

func loadSeedScores(dir string) ([]seedScore, error) {
	if data, err := os.ReadFile(filepath.Join(dir, "scores.yaml")); err == nil {
		var entries []seedScore
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse scores.yaml: %w", err)
		}
		return entries, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, "scores.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []seedScore
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse scores.json: %w", err)
	}
	return entries, nil
}
