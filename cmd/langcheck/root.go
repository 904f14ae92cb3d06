package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/langcheck/internal/client"
	"github.com/nerrad567/langcheck/internal/infrastructure/config"
	"github.com/nerrad567/langcheck/internal/infrastructure/logging"
	"github.com/nerrad567/langcheck/internal/setup"
)

// errProblemsFound makes check exit with status 2 under --fail.
var errProblemsFound = errors.New("problems found")

func exitCode(err error) int {
	if errors.Is(err, errProblemsFound) {
		return 2
	}
	return 1
}

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath    string
	remote        string
	publicAPI     bool
	language      string
	motherTongue  string
	disabledRules []string
	enabledRules  []string
	noSpellcheck  bool
	picky         bool
	jsonOutput    bool
	verbose       bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "langcheck",
		Short: "langcheck checks grammar, style and spelling",
		Long: `langcheck sends text to a LanguageTool server and reports what it finds.

Without --remote or --public-api a local server is launched for the duration
of the command and stopped afterwards. Settings are read from --config (or
LANGCHECK_CONFIG) and the LANGCHECK_* environment variables; flags win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", os.Getenv("LANGCHECK_CONFIG"), "YAML configuration file")
	pf.StringVar(&flags.remote, "remote", "", "remote server URL, e.g. http://localhost:8081")
	pf.BoolVar(&flags.publicAPI, "public-api", false, "use the public hosted server")
	pf.StringVarP(&flags.language, "language", "l", "", "language tag, e.g. en-US (default: system locale)")
	pf.StringVar(&flags.motherTongue, "mother-tongue", "", "mother tongue for false-friend checks")
	pf.StringSliceVar(&flags.disabledRules, "disable", nil, "rule IDs to disable")
	pf.StringSliceVar(&flags.enabledRules, "enable", nil, "rule IDs to enable")
	pf.BoolVar(&flags.noSpellcheck, "no-spellcheck", false, "skip spelling rules")
	pf.BoolVar(&flags.picky, "picky", false, "enable additional picky rules")
	pf.BoolVar(&flags.jsonOutput, "json", false, "print results as JSON")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log engine activity to stderr")

	cmd.AddCommand(
		newCheckCmd(flags),
		newCorrectCmd(flags),
		newClassifyCmd(flags),
		newLanguagesCmd(flags),
		newVersionCmd(flags),
	)
	return cmd
}

// loadConfig reads the config file (if any) and applies flag overrides.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOptional(f.configPath)
	if err != nil {
		return nil, err
	}

	if f.remote != "" {
		cfg.Remote.URL = f.remote
	}
	if f.publicAPI {
		cfg.Remote.PublicAPI = true
	}
	if f.language != "" {
		cfg.Check.Language = f.language
	}
	if f.motherTongue != "" {
		cfg.Check.MotherTongue = f.motherTongue
	}
	if len(f.disabledRules) > 0 {
		cfg.Check.DisabledRules = append(cfg.Check.DisabledRules, f.disabledRules...)
	}
	if len(f.enabledRules) > 0 {
		cfg.Check.EnabledRules = append(cfg.Check.EnabledRules, f.enabledRules...)
	}
	if f.noSpellcheck {
		cfg.Check.Spellcheck = false
	}
	if f.picky {
		cfg.Check.Picky = true
	}
	return cfg, nil
}

// newClient builds a client from config and flags. The caller closes it.
func (f *rootFlags) newClient(ctx context.Context, stderr io.Writer) (*client.Client, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	level := "warn"
	if f.verbose {
		level = "debug"
	}
	log := logging.NewWithWriter(config.LoggingConfig{Level: level, Format: "text"}, version, stderr)

	opts := setup.ClientOptions(cfg)
	opts.Logger = log
	return setup.NewClient(ctx, cfg, opts)
}

// readInput concatenates the named files, or reads stdin when there are none
// or the only name is "-".
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	var b strings.Builder
	for _, name := range args {
		data, err := os.ReadFile(name)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		b.Write(data)
	}
	return b.String(), nil
}
