// Command turnline is the turn controller's CLI: an interactive REPL plus
// config/skills introspection subcommands, built on cobra the way
// haasonsaas-nexus's cmd/nexus lays out its command tree, replacing the
// teacher's flag-package cmd/repl.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turnline/turnline/internal/config"
	"github.com/turnline/turnline/internal/obslog"
)

func main() {
	config.LoadDotEnv()

	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		repoFlag  string
		logFormat string
	)

	root := &cobra.Command{
		Use:   "turnline",
		Short: "An interactive terminal coding assistant",
		Long: `turnline drives one LLM-backed turn controller over a fixed tool set
(filesystem, search, execution, git, LSP) in Plan or Execute mode, with
conversation compression, optional code verification, and skill overlays.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(logFormat)
			return runRepl(cmd.Context(), repoFlag)
		},
	}

	root.PersistentFlags().StringVar(&repoFlag, "repo", "", "working directory (default: current directory)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log output format: console or json")

	root.AddCommand(buildReplCmd(&repoFlag, &logFormat))
	root.AddCommand(buildConfigCmd())
	root.AddCommand(buildSkillsCmd(&repoFlag))

	return root
}

func buildReplCmd(repoFlag, logFormat *string) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive turn loop (default command)",
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(*logFormat)
			return runRepl(cmd.Context(), *repoFlag)
		},
	}
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return err
			}
			fmt.Println(mgr.GetConfigPath())
			return nil
		},
	}
	return cmd
}

func buildSkillsCmd(repoFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List discovered skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repoRoot, err := resolveRepoRoot(*repoFlag)
			if err != nil {
				return err
			}
			env, err := buildEnvironment(mgr, cfg, repoRoot)
			if err != nil {
				return err
			}
			defer env.Close()
			printSkills(env)
			return nil
		},
	}
}

func runRepl(ctx context.Context, repoFlag string) error {
	mgr, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repoRoot, err := resolveRepoRoot(repoFlag)
	if err != nil {
		return err
	}
	env, err := buildEnvironment(mgr, cfg, repoRoot)
	if err != nil {
		return err
	}
	defer env.Close()

	return runREPL(ctx, env)
}

func loadConfig() (*config.Manager, *config.Config, error) {
	mgr, err := config.NewManager()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve config manager: %w", err)
	}
	cfg, err := mgr.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return mgr, cfg, nil
}

func resolveRepoRoot(repoFlag string) (string, error) {
	if repoFlag != "" {
		return repoFlag, nil
	}
	return os.Getwd()
}

func configureLogging(format string) {
	if format == "json" {
		obslog.Configure(obslog.JSON, os.Stderr)
		return
	}
	obslog.Configure(obslog.Console, os.Stderr)
}
