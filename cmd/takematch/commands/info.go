package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/takematch/takematch/pkg/takematch/fingerprint"
)

var infoCmd = &cobra.Command{
	Use:   "info FOLDER",
	Short: "Show fingerprint coverage and flags for a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	svc, err := newService(cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	info, err := svc.FolderInfo(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("folder:    %s\n", info.Folder)
	fmt.Printf("files:     %d audio files, %d excluded\n", info.TotalFiles, info.ExcludedCount)
	fmt.Printf("reference: %v\n", info.Reference)
	fmt.Printf("ignored:   %v\n", info.Ignore)
	if !info.LastAnalyzed.IsZero() {
		fmt.Printf("analyzed:  %s\n", humanize.Time(info.LastAnalyzed))
	}
	fmt.Println("coverage:")
	for _, algo := range fingerprint.Algorithms() {
		fmt.Printf("    %-12s %d / %d\n", algo, info.Coverage[algo], info.TotalFiles)
	}
	return nil
}
