package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "factsift v0.3.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "factsift",
	Short: "factsift - retrieval-augmented claim checking over the GDELT GKG",
	Long: `factsift checks short political claims against recent news coverage.

For each claim it extracts entities and topics, filters the GDELT Global
Knowledge Graph down to a few hundred candidate articles, keeps the ones whose
titles sit closest to the claim, chunks and indexes their text, and asks a
language model for a LIAR-scale label grounded in the retrieved snippets.

It does not decide what is true. It narrows a large corpus to a small,
auditable set of passages for a downstream judgment.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.factsift/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.String("project", "", "Google Cloud project billed for corpus queries")
	flags.String("llm-provider", "ollama", "LLM provider (openai, anthropic, ollama)")
	flags.String("llm-model", "llama3.1:8b", "LLM model name")
	flags.String("embedding-provider", "ollama", "embedding provider (openai, ollama)")
	flags.String("embedding-model", "all-minilm", "embedding model name")
	flags.String("theme-strategy", "issues", "theme strategy (issues, direct)")
	flags.String("policy", "nearest", "chunk selection policy (nearest, mmr)")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"verbose":                   "verbose",
		"logging.level":             "log-level",
		"logging.format":            "log-format",
		"metrics.addr":              "metrics-addr",
		"corpus.project_id":         "project",
		"llm.provider":              "llm-provider",
		"llm.model":                 "llm-model",
		"embedding.provider":        "embedding-provider",
		"embedding.model":           "embedding-model",
		"extraction.theme_strategy": "theme-strategy",
		"retrieval.policy":          "policy",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads .env, then the config file and FACTSIFT_* variables
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.factsift")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// FACTSIFT_LLM_MODEL overrides llm.model, and so on
	viper.SetEnvPrefix("FACTSIFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
