package cli

import (
	"fmt"

	"github.com/harun/switchboard/pkg/shop"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed [catalog.json]",
	Short: "Load a product catalog into the shop database",
	Long: `Load products, users, and purchase history from a JSON catalog file
into the shop database, embedding product descriptions when an embedding
model is configured. Without an argument the configured catalog path is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigUnvalidated()
	if err != nil {
		return err
	}

	catalogPath := cfg.Shop.CatalogPath
	if len(args) == 1 {
		catalogPath = args[0]
	}
	if catalogPath == "" {
		return fmt.Errorf("no catalog path given and none configured")
	}

	var embedder shop.EmbeddingProvider
	if cfg.Provider.APIKey != "" && cfg.Provider.EmbeddingModel != "" {
		embedder = shop.NewOpenAIEmbedder(cfg.Provider.APIKey, cfg.Provider.EmbeddingModel)
	} else {
		fmt.Println("No embedding model configured; seeding without vector search.")
	}

	store, err := shop.OpenStore(shop.StoreConfig{
		DBPath:   cfg.Shop.DBPath,
		Embedder: embedder,
		Logger:   nopLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to open shop store: %w", err)
	}
	defer store.Close()

	if err := store.Seed(cmd.Context(), catalogPath); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	fmt.Printf("Catalog %s loaded into %s\n", catalogPath, cfg.Shop.DBPath)
	return nil
}
