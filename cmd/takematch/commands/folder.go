package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage per-folder matching flags",
}

var referenceCmd = &cobra.Command{
	Use:   "reference FOLDER [true|false]",
	Short: "Mark a folder as a reference source (weighted higher in matching)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setFolderFlag(args, func(svc folderFlagSetter, folder string, v bool) error {
			return svc.SetReferenceFolder(folder, v)
		}, "reference")
	},
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore FOLDER [true|false]",
	Short: "Exclude a folder's fingerprints from generation and matching",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setFolderFlag(args, func(svc folderFlagSetter, folder string, v bool) error {
			return svc.SetIgnoreFolder(folder, v)
		}, "ignore")
	},
}

type folderFlagSetter interface {
	SetReferenceFolder(folder string, reference bool) error
	SetIgnoreFolder(folder string, ignore bool) error
	Close() error
}

func setFolderFlag(args []string, set func(folderFlagSetter, string, bool) error, name string) error {
	value := true
	if len(args) == 2 {
		v, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", args[1])
		}
		value = v
	}

	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	svc, err := newService(cfg, nil)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := set(svc, args[0], value); err != nil {
		return err
	}
	fmt.Printf("%s: %s = %v\n", args[0], name, value)
	return nil
}

func init() {
	folderCmd.AddCommand(referenceCmd)
	folderCmd.AddCommand(ignoreCmd)
	rootCmd.AddCommand(folderCmd)
}
