package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/takematch/takematch/pkg/takematch/generate"
)

var flagRecursive bool

var generateCmd = &cobra.Command{
	Use:   "generate FOLDER...",
	Short: "Extract fingerprints for every audio file in the folders",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().BoolVarP(&flagRecursive, "recursive", "r", false, "descend into subfolders")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	algo, err := resolveAlgorithm(cfg)
	if err != nil {
		return err
	}

	progress := mpb.New(mpb.WithWidth(64))
	var (
		barOnce sync.Once
		bar     *mpb.Bar
	)
	onProgress := func(p generate.Progress) {
		barOnce.Do(func() {
			bar = progress.AddBar(int64(p.Total),
				mpb.PrependDecorators(
					decor.Name("Fingerprinting: "),
					decor.CountersNoUnit("%d / %d"),
				),
				mpb.AppendDecorators(decor.Percentage()),
			)
		})
		bar.Increment()
	}

	svc, err := newService(cfg, onProgress)
	if err != nil {
		return err
	}
	defer svc.Close()

	batch, err := svc.Generate(context.Background(), args, algo, flagRecursive)
	if err != nil {
		return err
	}

	// Ctrl-C cancels cooperatively; partial progress is kept.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "cancelling, in-flight files will finish...")
		batch.Cancel()
	}()
	defer signal.Stop(sigCh)

	report, err := batch.Wait()
	if bar != nil {
		bar.Abort(false)
	}
	progress.Wait()
	if err != nil {
		return err
	}

	status := "done"
	if report.Cancelled {
		status = "cancelled"
	}
	fmt.Printf("%s: %d fingerprinted, %d failed, %d skipped (cache hits) in %s (batch %s)\n",
		status, report.Succeeded, report.Failed, report.Skipped,
		report.Duration.Round(time.Millisecond), report.BatchID)
	for _, f := range report.Failures {
		fmt.Printf("  failed: %s (%s)\n", f.File, f.Reason)
	}
	return nil
}
