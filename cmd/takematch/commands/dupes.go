package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var dupesCmd = &cobra.Command{
	Use:   "dupes FOLDER...",
	Short: "Cluster duplicate recordings across the folders",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDupes,
}

func init() {
	rootCmd.AddCommand(dupesCmd)
}

func runDupes(cmd *cobra.Command, args []string) error {
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

	clusters, err := svc.FindDuplicates(context.Background(), args, algo, threshold)
	if err != nil {
		return err
	}

	if len(clusters) == 0 {
		fmt.Printf("no duplicate clusters at threshold %.2f\n", threshold)
		return nil
	}
	fmt.Printf("%d duplicate cluster(s) (%s, threshold %.2f):\n", len(clusters), algo, threshold)
	for i, c := range clusters {
		fmt.Printf("cluster %d (%d files):\n", i+1, len(c.Files))
		for _, f := range c.Files {
			fmt.Printf("    %s\n", f)
		}
	}
	return nil
}
