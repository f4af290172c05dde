package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var flagUnexclude bool

var excludeCmd = &cobra.Command{
	Use:   "exclude FILE...",
	Short: "Exclude files from fingerprint generation and matching",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExclude,
}

func init() {
	excludeCmd.Flags().BoolVarP(&flagUnexclude, "undo", "u", false, "re-include previously excluded files")
	rootCmd.AddCommand(excludeCmd)
}

func runExclude(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	svc, err := newService(cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	for _, path := range args {
		folder := filepath.Dir(path)
		name := filepath.Base(path)
		if flagUnexclude {
			err = svc.UnexcludeFile(folder, name)
		} else {
			err = svc.ExcludeFile(folder, name)
		}
		if err != nil {
			return err
		}
		if flagUnexclude {
			fmt.Printf("re-included %s\n", path)
		} else {
			fmt.Printf("excluded %s\n", path)
		}
	}
	return nil
}
