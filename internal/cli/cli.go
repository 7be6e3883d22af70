// Package cli implements the graphwriter command-line interface.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/graphwriter/pkg/buildinfo"
	"github.com/matzehuels/graphwriter/pkg/cache"
	"github.com/matzehuels/graphwriter/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "graphwriter"

	// documentsDir is the cache subdirectory holding rendered documents.
	documentsDir = "documents"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	verbose    bool
	configPath string
}

// New creates a new CLI instance with a logger writing to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "graphwriter streams object graphs as JSON, BSON or Extended JSON",
		Long: `graphwriter serializes graph documents through named property views.

Nested entities are expanded up to a depth limit, cycles are cut, and large
results are bounded by a time budget. Documents can be written once with
'serialize' or served over HTTP with 'serve'.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "configuration file (TOML)")

	// Register all subcommands
	root.AddCommand(c.serializeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.viewsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// graphFileArg accepts exactly one argument naming the graph document.
var graphFileArg = cobra.MatchAll(cobra.ExactArgs(1), func(cmd *cobra.Command, args []string) error {
	return errors.ValidatePath(args[0])
})

// =============================================================================
// Cache Factory
// =============================================================================

// newCache opens the document cache below the user cache directory.
func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(filepath.Join(dir, documentsDir))
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/graphwriter/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
