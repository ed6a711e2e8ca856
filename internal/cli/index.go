package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/factsift/internal/embed"
	"github.com/ppiankov/factsift/internal/index"
)

var (
	indexQuery string
	indexTop   int
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect chunk indexes saved with --save-index",
}

var indexShowCmd = &cobra.Command{
	Use:   "show <index.db> <claim-id>",
	Short: "Show the chunks saved for one claim",
	Long: `Show prints the chunks indexed for a claim in the order they were saved.

With --query the text is embedded with the configured embedding model and the
--top nearest saved chunks are listed instead, which shows what a different
phrasing of the claim would have retrieved.

Example:
  factsift index show ./runs/index.db 2635.json
  factsift index show ./runs/index.db 2635.json --query "coal exit 2038" --top 5`,
	Args: cobra.ExactArgs(2),
	RunE: runIndexShow,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexShowCmd)

	indexShowCmd.Flags().StringVar(&indexQuery, "query", "", "rank the saved chunks against this text")
	indexShowCmd.Flags().IntVar(&indexTop, "top", 10, "chunks to list with --query")
}

func runIndexShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := index.OpenStore(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	snap, err := store.Load(ctx, args[1])
	if err != nil {
		return err
	}

	var embedder embed.Embedder
	if indexQuery != "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		embedder, err = embed.NewEmbedder(embed.ConfigFromModel(cfg.Embedding, cfg.HTTP))
		if err != nil {
			return fmt.Errorf("embedder: %w", err)
		}
		if snap.Model != "" && embedder.Name() != snap.Model {
			fmt.Fprintf(os.Stderr, "Warning: index was built with %s, querying with %s\n", snap.Model, embedder.Name())
		}
	}

	return writeSnapshot(ctx, os.Stdout, snap, embedder, indexQuery, indexTop)
}

// writeSnapshot lists a saved snapshot, ranked against query when one is given
func writeSnapshot(ctx context.Context, w io.Writer, snap *index.Snapshot, embedder embed.Embedder, query string, top int) error {
	chunks := snap.Chunks
	if query != "" {
		vec, err := embed.EmbedOne(ctx, embedder, query)
		if err != nil {
			return fmt.Errorf("embed query: %w", err)
		}
		if len(vec) != snap.Index.Dim() {
			return fmt.Errorf("query dimension %d does not match index dimension %d", len(vec), snap.Index.Dim())
		}
		chunks = index.Retrieve(snap.Index, snap.Chunks, vec, top)
	}

	fmt.Fprintf(w, "Claim:   %s\n", snap.ClaimID)
	fmt.Fprintf(w, "Query:   %s\n", snap.Query)
	if snap.Model != "" {
		fmt.Fprintf(w, "Model:   %s\n", snap.Model)
	}
	fmt.Fprintf(w, "Chunks:  %d (dim %d)\n", snap.Index.Len(), snap.Index.Dim())
	if query != "" {
		fmt.Fprintf(w, "Ranked:  %q, top %d\n", query, len(chunks))
	}

	for i, c := range chunks {
		fmt.Fprintf(w, "\n[%d] %s (%s)\n%s\n", i+1, c.SourceTitle, c.SourceURL, c.Text)
	}
	return nil
}
