package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match FILE FOLDER...",
	Short: "Find recordings matching the query file across the folders",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	algo, err := resolveAlgorithm(cfg)
	if err != nil {
		return err
	}
	threshold := resolveThreshold(cfg, cmd)

	svc, err := newService(cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.FindMatches(context.Background(), args[0], args[1:], algo, threshold)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Printf("no matches for %s at threshold %.2f\n", args[0], threshold)
		return nil
	}
	fmt.Printf("%d match(es) for %s (%s, threshold %.2f):\n", len(results), args[0], algo, threshold)
	for i, r := range results {
		marker := ""
		if r.FolderWeight > 1.0 {
			marker = " [reference]"
		}
		fmt.Printf("%3d. %-60s score %.3f%s\n", i+1, r.CandidateFile, r.Score, marker)
	}
	return nil
}
