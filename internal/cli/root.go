package cli

import (
	stdcontext "context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/launchpad/internal/config"
	"github.com/Paintersrp/launchpad/internal/logging"
	"github.com/Paintersrp/launchpad/internal/runtime/procdir"
)

// logFileName is where logs go while the terminal window owns the screen.
const logFileName = "launchpad.log"

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	defaults := logging.DefaultConfig()
	ctx := &context{
		logLevel:     defaults.Level,
		logFormat:    string(defaults.Format),
		newDirectory: procdir.New,
	}

	root := &cobra.Command{
		Use:   "launchpad",
		Short: "Start local services, wait for them to answer, and clean them up on exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLauncher(cmd, ctx, runOptions{})
		},
	}

	root.PersistentFlags().
		StringVarP(&ctx.configPath, "config", "f", "", "Path to the service list (default: search $LAUNCHPAD_CONFIG, the executable directory, then the working directory)")
	root.PersistentFlags().StringVar(&ctx.logLevel, "log-level", ctx.logLevel, "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&ctx.logFormat, "log-format", ctx.logFormat, "Log format (text or json)")

	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newValidateCmd(ctx))
	root.AddCommand(newPsCmd(ctx))
	root.AddCommand(newKillCmd(ctx))
	root.AddCommand(newStatusCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	configPath string
	logLevel   string
	logFormat  string

	newDirectory func() procdir.Directory
	// exit overrides the coordinator's forced exit in tests.
	exit func(code int)

	mu      sync.Mutex
	logger  *logrus.Logger
	logFile *os.File
}

func (c *context) loadManifest() (*config.Manifest, error) {
	return config.Find(c.configPath)
}

func (c *context) directory() procdir.Directory {
	if c.newDirectory == nil {
		return procdir.New()
	}
	return c.newDirectory()
}

// log returns the shared logger, creating it on first use. When toFile is
// set the logger writes to a file in the temp directory.
func (c *context) log(stderr io.Writer, toFile bool) *logrus.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logger != nil {
		return c.logger
	}

	cfg := logging.Config{
		Level:  c.logLevel,
		Format: logging.Format(c.logFormat),
		Output: stderr,
	}
	if toFile {
		path := filepath.Join(os.TempDir(), logFileName)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "warning: open log file %s: %v\n", path, err)
			cfg.Output = io.Discard
		} else {
			c.logFile = f
			cfg.Output = f
		}
	}
	c.logger = logging.New(cfg)
	return c.logger
}
