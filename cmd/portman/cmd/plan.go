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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cppkit/portman/internal/manifest"
	"github.com/cppkit/portman/internal/pkgid"
	"github.com/cppkit/portman/internal/planner"
	"github.com/cppkit/portman/internal/rewrite"
	"github.com/cppkit/portman/internal/secureio"
)

var (
	planTriplet   string
	planVersioned bool
	planWrap      uint
	planShowDiff  bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Resolve vcpkg.json and print the install/remove plan",
	Long: `Resolve the project manifest's dependencies and features against
the configured registry set and the installed-package database, and
print the resulting topologically-sorted install/remove plan.

With --versioned, baseline pins are advanced to satisfy any
"version>=" constraint discovered while traversing the graph,
iterating to a fixpoint (§4.9).`,
	Example: `  # Plan against the default triplet
  portman plan

  # Plan for a specific triplet
  portman plan --triplet x64-windows

  # Resolve versions instead of using whatever is currently installed
  portman plan --versioned`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planTriplet, "triplet", "", "target triplet (default: portman.yaml's default-triplet, or the host triplet)")
	planCmd.Flags().BoolVar(&planVersioned, "versioned", false, "resolve versions against the registry set instead of planning the classic way")
	planCmd.Flags().UintVar(&planWrap, "wrap", 0, "wrap plan lines to this width (0 disables wrapping)")
	planCmd.Flags().BoolVar(&planShowDiff, "show-diff", false, "show a unified diff between vcpkg.json and its canonical form")
}

func runPlan(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx := context.Background()

	cfg, err := loadPolicyConfig(logger)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	root, err := loadProjectManifest()
	if err != nil {
		return fmt.Errorf("load vcpkg.json: %w", err)
	}

	if planShowDiff {
		if err := showManifestDiff(root); err != nil {
			return err
		}
	}

	userCfg, err := loadUserConfig(logger)
	if err != nil {
		return fmt.Errorf("load user configuration: %w", err)
	}

	registries := buildRegistrySet(cfg, logger)
	ports := buildPortProvider(cfg, registries)
	vars := buildVarProvider(cfg, userCfg)
	status, err := loadStatusDB()
	if err != nil {
		return fmt.Errorf("load status database: %w", err)
	}

	target := resolveTriplet(planTriplet, cfg)
	opts := planner.Options{
		HostTriplet:           hostTriplet(),
		UnsupportedPortAction: cfg.EffectiveUnsupportedPortAction(),
		Logger:                logger,
	}

	var plan *planner.ActionPlan
	if planVersioned {
		plan, err = planner.CreateVersionedFeatureInstallPlan(ctx, target, root, ports, registries, vars, status, opts)
	} else {
		request := requestFromManifest(root, target)
		plan, err = planner.CreateFeatureInstallPlan(ctx, ports, vars, status, request, opts)
	}
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	printPlan(planner.FormatPlan(plan, planWrap))
	return nil
}

// requestFromManifest turns the project manifest's own dependency list
// into the planner's request form: one FullPackageSpec per dependency, on
// the host triplet for a host dependency and on target otherwise, with
// explicit features when the manifest names any, only "core" when it names
// none and sets default-features to false, and default features otherwise.
// A dependency's platform expression is not evaluated here: every listed
// dependency is requested.
func requestFromManifest(root *manifest.SourceControlFile, target pkgid.Triplet) []pkgid.FullPackageSpec {
	request := make([]pkgid.FullPackageSpec, 0, len(root.Core.Dependencies))
	for _, d := range root.Core.Dependencies {
		spec := pkgid.PackageSpec{Name: d.Name, Triplet: target}
		if d.Host {
			spec.Triplet = hostTriplet()
		}
		if len(d.Features) == 0 {
			if !d.DefaultFeatures {
				request = append(request, pkgid.NewFullPackageSpec(spec, pkgid.FeatureCore))
				continue
			}
			request = append(request, pkgid.FullPackageSpec{Package: spec})
			continue
		}
		request = append(request, pkgid.NewFullPackageSpec(spec, d.Features...))
	}
	return request
}

func showManifestDiff(root *manifest.SourceControlFile) error {
	path, err := filepath.Abs("vcpkg.json")
	if err != nil {
		return err
	}
	raw, err := secureio.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read vcpkg.json: %w", err)
	}
	canonical, err := manifest.MarshalCanonical(root)
	if err != nil {
		return fmt.Errorf("canonicalize vcpkg.json: %w", err)
	}
	diff, err := rewrite.GenerateUnifiedDiff("vcpkg.json", string(raw), string(canonical))
	if err != nil {
		return fmt.Errorf("generate diff: %w", err)
	}
	if diff != "" {
		fmt.Fprintln(os.Stdout, diff)
	}
	return nil
}

func printPlan(d *planner.DisplayPlan) {
	printSection("The following packages are excluded", d.Excluded)
	printSection("The following packages are already installed", d.AlreadyInstalled)
	printSection("The following packages will be removed", d.Remove)
	printSection("The following packages will be rebuilt", d.Rebuild)
	printSection("The following packages will be installed", d.NewInstall)
}

func printSection(title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Printf("%s:\n", title)
	for _, l := range lines {
		fmt.Println(l)
	}
	fmt.Println()
}
