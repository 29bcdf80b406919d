// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saferwall/innoextract/extract"
	"github.com/saferwall/innoextract/filenames"
	"github.com/saferwall/innoextract/loader"
	"github.com/saferwall/innoextract/log"
	"github.com/saferwall/innoextract/probe"
	"github.com/saferwall/innoextract/setup"
	"github.com/saferwall/innoextract/stream"
)

type openInstaller struct {
	file   *os.File
	probed *probe.File
	info   *setup.Info
	slices *stream.SliceReader
}

// open probes installerPath, locates its bootstrap block, and parses the
// full header block, leaving the installer ready for plan-building.
func open(installerPath string, opts extract.Options, logger *log.Helper) (*openInstaller, error) {
	f, err := os.Open(installerPath)
	if err != nil {
		return nil, err
	}

	probed, err := probe.Open(installerPath, logger)
	if err != nil {
		f.Close()
		return nil, err
	}

	offsets := loader.Load(probed, logger)
	if !offsets.FoundMagic {
		probed.Close()
		f.Close()
		return nil, fmt.Errorf("%s does not look like an Inno Setup installer", installerPath)
	}

	if _, err := f.Seek(int64(offsets.HeaderOffset), io.SeekStart); err != nil {
		probed.Close()
		f.Close()
		return nil, err
	}

	info := &setup.Info{}
	if err := info.Load(f, setup.Options{NoUnknownVersion: opts.NoUnknownVersion}); err != nil {
		probed.Close()
		f.Close()
		return nil, err
	}
	for _, w := range info.Warnings {
		logger.Warnf("%s: %s", installerPath, w)
	}

	slices, err := openSlices(installerPath, f, offsets, info, logger)
	if err != nil {
		probed.Close()
		f.Close()
		return nil, err
	}

	return &openInstaller{file: f, probed: probed, info: info, slices: slices}, nil
}

// openSlices builds the slice reader for an installer's payload: the
// single embedded stream when offsets.DataOffset is set, otherwise the
// directory of external ".bin" volumes beside the installer, trying both
// the installer's own basename and the compiled-in base filename as the
// historical Inno Setup versions disagree on which one takes priority.
func openSlices(installerPath string, f *os.File, offsets loader.Offsets, info *setup.Info, logger *log.Helper) (*stream.SliceReader, error) {
	if offsets.DataOffset != 0 {
		return stream.NewEmbeddedSliceReader(f, offsets.DataOffset)
	}

	dir := filepath.Dir(installerPath)
	basename := strings.TrimSuffix(filepath.Base(installerPath), filepath.Ext(installerPath))
	basename2, err := setup.DecodeString(info.Header.BaseFilename, info.Codepage)
	if err != nil {
		basename2 = ""
	}
	basename2 = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, basename2)

	// Versions before 4.1.7 preferred the compiled-in base filename.
	if info.Version.Value < loader.Pack(4, 1, 7, 0) && basename2 != "" {
		basename, basename2 = basename2, basename
	}

	slicesPerDisk := int(info.Header.SlicesPerDisk)
	if slicesPerDisk <= 0 {
		slicesPerDisk = 1
	}
	return stream.NewExternalSliceReader(nil, dir, basename, basename2, slicesPerDisk), nil
}

func (o *openInstaller) Close() {
	o.probed.Close()
	o.file.Close()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "innoextract",
		Short: "Recover the files packed into an Inno Setup installer",
		Long:  "innoextract parses an Inno Setup installer executable and recovers the files packed inside it without running the installer.",
	}

	root.AddCommand(newListCmd())
	root.AddCommand(newExtractCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("innoextract 1.0.0")
		},
	}
}

func newListCmd() *cobra.Command {
	var component, task string
	var noUnknownVersion bool

	cmd := &cobra.Command{
		Use:   "list <installer>",
		Short: "List the files an installer would extract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.Default()
			opts := extract.Options{Component: component, Task: task, NoUnknownVersion: noUnknownVersion}
			inst, err := open(args[0], opts, logger)
			if err != nil {
				return err
			}
			defer inst.Close()

			fm := filenames.NewMap(nil, false)
			plan, err := extract.BuildPlan(inst.info, fm, opts)
			if err != nil {
				return err
			}
			for _, pf := range plan {
				fmt.Println(pf.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&component, "component", "", "only list files selected by this component")
	cmd.Flags().StringVar(&task, "task", "", "only list files selected by this task")
	cmd.Flags().BoolVar(&noUnknownVersion, "no-unknown-version", false, "fail instead of guessing at an unrecognized setup data version")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var (
		destDir              string
		password             string
		component            string
		task                 string
		lowercase            bool
		overwritePolicy      string
		failOnChecksumError  bool
		noUnknownVersion     bool
		requirePasswordCheck bool
		quiet                bool
	)

	cmd := &cobra.Command{
		Use:   "extract <installer>",
		Short: "Extract the files packed into an installer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.Default()
			opts := extract.Options{
				Component:            component,
				Task:                 task,
				NoUnknownVersion:     noUnknownVersion,
				RequirePasswordCheck: requirePasswordCheck,
			}
			inst, err := open(args[0], opts, logger)
			if err != nil {
				return err
			}
			defer inst.Close()

			fm := filenames.NewMap(nil, lowercase)
			plan, err := extract.BuildPlan(inst.info, fm, opts)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return err
			}

			bar := newBarProgress(os.Stdout)
			var progress extract.ProgressSink = bar
			if quiet {
				progress = nil
			}

			driver := &extract.Driver{
				Info:                   inst.info,
				Slices:                 inst.slices,
				Sinks:                  fsSinkFactory{Dir: destDir},
				Progress:               progress,
				Passwords:              staticPassword{password: password, have: password != ""},
				Probe:                  fsExistingFileProbe{Dir: destDir},
				Logger:                 logger,
				Policy:                 collisionPolicyFromFlag(overwritePolicy),
				FailOnChecksumMismatch: failOnChecksumError,
				RequirePasswordCheck:   requirePasswordCheck,
			}
			if err := driver.Run(plan); err != nil {
				return err
			}
			if !quiet {
				bar.finish()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&destDir, "output-dir", "d", ".", "directory to extract into")
	cmd.Flags().StringVar(&password, "password", "", "password for encrypted installers")
	cmd.Flags().StringVar(&component, "component", "", "only extract files selected by this component")
	cmd.Flags().StringVar(&task, "task", "", "only extract files selected by this task")
	cmd.Flags().BoolVarP(&lowercase, "lowercase", "L", false, "convert extracted filenames to lower-case")
	cmd.Flags().StringVar(&overwritePolicy, "collision", "rename", "how to resolve existing files: overwrite, rename, error")
	cmd.Flags().BoolVar(&failOnChecksumError, "fail-on-checksum-error", false, "treat a checksum mismatch as fatal instead of a warning")
	cmd.Flags().BoolVar(&noUnknownVersion, "no-unknown-version", false, "fail instead of guessing at an unrecognized setup data version")
	cmd.Flags().BoolVar(&requirePasswordCheck, "check-password", false, "verify the password against the installer's stored hash before extracting")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress bar")
	return cmd
}

func collisionPolicyFromFlag(s string) extract.CollisionPolicy {
	switch s {
	case "overwrite":
		return extract.PolicyOverwrite
	case "error":
		return extract.PolicyError
	default:
		return extract.PolicyRename
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "innoextract:", err)
		os.Exit(1)
	}
}
