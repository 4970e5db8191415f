// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cppkit/portman/internal/pkgid"
)

var scanFormat string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report currently-installed packages",
	Long: `Read the installed-package status database and report every package
it currently considers installed, along with the feature set and
version recorded at its last install.

Results can be output in table or JSON format.`,
	Example: `  # List installed packages as a table
  portman scan

  # List installed packages as JSON
  portman scan --format json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "output format: table, json")

	if err := scanCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to register shell completion: %v\n", err)
	}
}

// scanEntry is one row of the installed-package report.
type scanEntry struct {
	Package  pkgid.PackageSpec   `json:"package"`
	Version  string              `json:"version"`
	Features []pkgid.FeatureName `json:"features"`
}

func runScan(cmd *cobra.Command, args []string) error {
	status, err := loadStatusDB()
	if err != nil {
		return fmt.Errorf("load status database: %w", err)
	}

	var entries []scanEntry
	for _, pkg := range status.AllInstalledPackages() {
		view := status.GetInstalledPackageView(pkg)
		entries = append(entries, scanEntry{
			Package:  pkg,
			Version:  view.Version.String(),
			Features: view.Features,
		})
	}

	switch scanFormat {
	case "json":
		return outputJSON(entries)
	case "table":
		return outputScanTable(entries)
	default:
		return fmt.Errorf("unsupported format: %s", scanFormat)
	}
}

func outputScanTable(entries []scanEntry) error {
	if len(entries) == 0 {
		fmt.Println("No packages installed.")
		return nil
	}

	fmt.Printf("%-30s %-20s %-15s %s\n", "Package", "Triplet", "Version", "Features")
	fmt.Println(strings.Repeat("-", 90))

	for _, e := range entries {
		features := "core"
		if len(e.Features) > 0 {
			names := make([]string, len(e.Features))
			for i, f := range e.Features {
				names[i] = string(f)
			}
			features = "core, " + strings.Join(names, ", ")
		}
		fmt.Printf("%-30s %-20s %-15s %s\n", e.Package.Name, e.Package.Triplet, e.Version, features)
	}

	fmt.Printf("\nTotal: %d packages\n", len(entries))
	return nil
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
