package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/git-pkgs/gatekeeper/internal/config"
	"github.com/git-pkgs/gatekeeper/internal/gate"
	"github.com/git-pkgs/gatekeeper/internal/purl"
	"github.com/git-pkgs/gatekeeper/internal/specifier"
)

type cli struct {
	cfgFile     string
	token       string
	ecosystem   string
	nothrow     bool
	failClosed  bool
	resolveTags bool

	exitCode int
}

func newCLI() *cli {
	return &cli{}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gatekeeper",
		Short: "Advisory policy gate for package manager invocations",
		Long: `gatekeeper intercepts npm, npx, pnpm, and yarn invocations, checks every
package they would install against the advisory service, and only runs the
real tool when the configured policy allows it.

Wrapper flags go before the tool name; everything after it is forwarded to
the tool untouched:

  gatekeeper --fail-closed npm install lodash`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	c.bindFlags(root.PersistentFlags())

	root.AddCommand(
		c.toolCmd(specifier.Npm, "Gate an npm invocation"),
		c.toolCmd(specifier.Npx, "Gate an npx invocation"),
		c.toolCmd(specifier.Pnpm, "Gate a pnpm invocation"),
		c.toolCmd(specifier.Yarn, "Gate a yarn invocation"),
	)
	return root
}

func (c *cli) bindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.cfgFile, "config", "", "config file (default: ./gatekeeper.yaml, ~/.config/gatekeeper/gatekeeper.yaml)")
	flags.StringVar(&c.token, "token", "", "advisory service API token (overrides GATEKEEPER_TOKEN and config)")
	flags.StringVar(&c.ecosystem, "ecosystem", string(purl.Npm), "package ecosystem for advisory lookups")
	flags.BoolVar(&c.nothrow, "nothrow", false, "treat total advisory-service outage as unknown instead of fatal")
	flags.BoolVar(&c.failClosed, "fail-closed", false, "block packages whose advisory status could not be fetched")
	flags.BoolVar(&c.resolveTags, "resolve-tags", false, "resolve dist-tags to concrete versions before lookup")
}

// toolCmd builds one wrapped-tool subcommand. Flag parsing is disabled so
// the tool's own flags pass through exactly as typed; wrapper flags belong
// before the tool name.
func (c *cli) toolCmd(tool specifier.Tool, short string) *cobra.Command {
	return &cobra.Command{
		Use:                string(tool) + " [args...]",
		Short:              short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := c.runGate(cmd, tool, args)
			c.exitCode = code
			return err
		},
	}
}

func (c *cli) runGate(cmd *cobra.Command, tool specifier.Tool, argv []string) (int, error) {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return gate.ExitFatal, err
	}

	rules, err := cfg.RuleSet()
	if err != nil {
		return gate.ExitFatal, err
	}

	opts := gate.Options{
		Ecosystem:   purl.Ecosystem(c.ecosystem),
		Rules:       rules,
		Token:       cfg.Token,
		AdvisoryURL: cfg.AdvisoryURL,
		RegistryURL: cfg.RegistryURL,
		BatchSize:   cfg.BatchSize,
		Concurrency: cfg.Concurrency,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		Nothrow:     cfg.Nothrow || c.nothrow,
		ResolveTags: cfg.ResolveTags || c.resolveTags,
		Reporter: func(r *gate.Report) {
			renderReport(os.Stderr, r)
		},
	}

	// Explicit flag beats environment and config.
	if c.token != "" {
		opts.Token = c.token
	}
	if c.failClosed {
		opts.Rules.FailClosed = true
	}

	return gate.Run(cmd.Context(), tool, argv, opts)
}
