// Command utocemuctl is a development harness for the emulator: it ingests
// one or more mod directories, prints the asset-collector report, builds a
// TOC against them, and writes the resulting artifacts to disk for
// inspection. It is not the production host boundary (that is a foreign
// function interface the real mod-loader calls); it exists so the build
// pipeline can be exercised and poked at from a terminal.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reloaded-project/utoc-emulator/pkg/emulator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "utocemuctl [mod-path...]",
		Short: "Ingest mod directories and build a virtual IO Store TOC",
		Long: `utocemuctl ingests one or more mod directories into a single virtual asset
tree, prints the ingest profiler's report, and builds the resulting TOC,
container header, and partition-block list.

Mod paths are taken from positional arguments, or from the RELOADED_MODS
environment variable (a platform-specific path-separated list) when no
arguments are given.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			modPaths := args
			if len(modPaths) == 0 {
				modPaths = modsFromEnv()
			}
			if len(modPaths) == 0 {
				return fmt.Errorf("no mod paths given and RELOADED_MODS is unset")
			}
			return run(modPaths, outDir)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write build artifacts into")
	return cmd
}

func modsFromEnv() []string {
	v := os.Getenv("RELOADED_MODS")
	if v == "" {
		return nil
	}
	var paths []string
	for _, p := range strings.Split(v, string(os.PathListSeparator)) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func run(modPaths []string, outDir string) error {
	opts := emulator.DefaultOptions()
	session := emulator.NewSession(opts)

	for i, path := range modPaths {
		modID := fmt.Sprintf("mod%d", i)
		if err := session.Ingest(modID, path); err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
	}

	session.PrintAssetCollectorResults()

	data, err := session.Build(filepath.Join(outDir, opts.TOCFileName))
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	tocPath := filepath.Join(outDir, opts.TOCFileName)
	if err := os.WriteFile(tocPath, data.TOC, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tocPath, err)
	}
	headerPath := filepath.Join(outDir, strings.TrimSuffix(opts.TOCFileName, filepath.Ext(opts.TOCFileName))+".header.bin")
	if err := os.WriteFile(headerPath, data.ContainerHeader, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", headerPath, err)
	}

	fmt.Printf("wrote %s (%d bytes) and %s (%d bytes)\n", tocPath, len(data.TOC), headerPath, len(data.ContainerHeader))
	fmt.Printf("%d partition blocks map the virtual CAS to on-disk files\n", len(data.Partitions))
	for _, p := range data.Partitions {
		fmt.Printf("  [%#x, %#x) -> %s\n", p.Start, p.Start+p.Length, p.OSPath)
	}
	return nil
}
