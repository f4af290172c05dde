// Package commands implements the takematch CLI: fingerprint generation,
// song matching, and duplicate detection over practice-recording folders.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/takematch/takematch/pkg/takematch"
	"github.com/takematch/takematch/pkg/takematch/fingerprint"
	"github.com/takematch/takematch/pkg/takematch/generate"
	"github.com/takematch/takematch/pkg/takematch/match"
)

var (
	flagConfig    string
	flagWorkers   int
	flagAlgorithm string
	flagThreshold float64
	flagNoHistory bool
)

// fileConfig is the optional YAML tunables file (~/.takematch.yaml or
// --config). Flags override it.
type fileConfig struct {
	Workers     int          `yaml:"workers"`
	Algorithm   string       `yaml:"algorithm"`
	Threshold   float64      `yaml:"threshold"`
	Match       match.Config `yaml:"match"`
	HistoryPath string       `yaml:"history_path"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Algorithm: string(fingerprint.Spectral),
		Threshold: 0.7,
		Match:     match.DefaultConfig(),
	}
}

func loadFileConfig() (fileConfig, error) {
	cfg := defaultFileConfig()

	path := flagConfig
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".takematch.yaml")
		if _, err := os.Stat(path); err != nil {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func resolveAlgorithm(cfg fileConfig) (fingerprint.Algorithm, error) {
	name := cfg.Algorithm
	if flagAlgorithm != "" {
		name = flagAlgorithm
	}
	return fingerprint.ParseAlgorithm(name)
}

func resolveThreshold(cfg fileConfig, cmd *cobra.Command) float64 {
	if cmd.Flags().Changed("threshold") {
		return flagThreshold
	}
	return cfg.Threshold
}

// newService builds the service from the merged config, with an optional
// progress callback for the generate command.
func newService(cfg fileConfig, progress func(generate.Progress)) (takematch.Service, error) {
	opts := []takematch.Option{
		takematch.WithMatchConfig(cfg.Match),
	}
	workers := cfg.Workers
	if flagWorkers > 0 {
		workers = flagWorkers
	}
	if workers > 0 {
		opts = append(opts, takematch.WithWorkers(workers))
	}
	if flagNoHistory {
		opts = append(opts, takematch.WithoutHistory())
	} else if cfg.HistoryPath != "" {
		opts = append(opts, takematch.WithHistoryPath(cfg.HistoryPath))
	}
	if progress != nil {
		opts = append(opts, takematch.WithProgress(progress))
	}
	return takematch.NewService(opts...)
}

var rootCmd = &cobra.Command{
	Use:   "takematch",
	Short: "Fingerprint and match practice recordings across folders",
	Long: `takematch fingerprints audio files into compact signatures and finds
identical or near-identical recordings (same song, different take or folder)
across a tree of practice-session folders.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML tunables file (default ~/.takematch.yaml)")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "extraction worker count (default: CPU cores - 1)")
	rootCmd.PersistentFlags().StringVarP(&flagAlgorithm, "algo", "a", "", "fingerprint algorithm: spectral, lightweight, chroma, landmark")
	rootCmd.PersistentFlags().Float64VarP(&flagThreshold, "threshold", "t", 0.7, "match threshold in [0.5, 0.95]")
	rootCmd.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "do not record batch runs")
}
