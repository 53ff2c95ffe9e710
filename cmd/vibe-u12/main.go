// Package main provides the vibe-u12 command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries the streams and logger shared by all commands.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	logger  *zap.Logger
	cfgFile string
	verbose bool
}

// usageError marks errors caused by invalid command-line usage.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	a.logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var uerr *usageError
	if errors.As(err, &uerr) {
		fmt.Fprintf(stderr, "Run 'vibe-u12 --help' for usage.\n")
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(a *app) *cobra.Command {
	viper.Reset()

	root := &cobra.Command{
		Use:   "vibe-u12",
		Short: "U2/U12 intron classifier",
		Long: `vibe-u12 classifies introns as major (U2) or minor (U12) spliceosomal
introns by scoring their donor and branch-point windows against position
weight matrices.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(a.cfgFile); err != nil {
				return err
			}
			a.logger = newLogger(a.stderr, a.verbose)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default ~/.vibe-u12.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug messages")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.AddCommand(newClassifyCmd(a))
	root.AddCommand(newSummaryCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newVersionCmd(a))

	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "vibe-u12 version %s (%s) built %s\n", version, commit, date)
			return nil
		},
	}
}

// initConfig reads ~/.vibe-u12.yaml (or the --config file) and VIBE_U12_*
// environment variables. A missing default config file is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".vibe-u12")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VIBE_U12")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// defaultConfigPath returns ~/.vibe-u12.yaml.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".vibe-u12.yaml"), nil
}
