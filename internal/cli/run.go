package cli

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	apihttp "github.com/Paintersrp/launchpad/internal/api/http"
	"github.com/Paintersrp/launchpad/internal/cliutil"
	"github.com/Paintersrp/launchpad/internal/config"
	"github.com/Paintersrp/launchpad/internal/engine"
	"github.com/Paintersrp/launchpad/internal/probe"
	"github.com/Paintersrp/launchpad/internal/runtime"
	"github.com/Paintersrp/launchpad/internal/runtime/process"
	"github.com/Paintersrp/launchpad/internal/tui"
)

var newAPIServer = apihttp.NewServer

type runOptions struct {
	headless    bool
	apiAddr     string
	killSettle  time.Duration
	eventBuffer int
}

func newRunCmd(ctx *context) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start every configured service and keep them until closed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLauncher(cmd, ctx, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Print lifecycle events as JSON lines instead of opening the terminal window")
	cmd.Flags().StringVar(&opts.apiAddr, "api", "", "Serve status and metrics on this address (e.g. :9870)")
	cmd.Flags().DurationVar(&opts.killSettle, "kill-settle", process.DefaultSettleDelay, "Wait after terminating stale instances before spawning")
	cmd.Flags().IntVar(&opts.eventBuffer, "events", tui.DefaultMaxEvents, "Number of lifecycle events kept in the terminal window")
	return cmd
}

func supportsInteractiveOutput(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func runLauncher(cmd *cobra.Command, ctx *context, opts runOptions) error {
	if opts.apiAddr != "" && focusRunningInstance(cmd.Context(), opts.apiAddr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "launchpad is already running on %s\n", opts.apiAddr)
		return nil
	}

	interactive := !opts.headless && supportsInteractiveOutput(cmd)
	log := ctx.log(cmd.ErrOrStderr(), interactive)

	dir := ctx.directory()
	reg := runtime.NewRegistry()
	tracker := newStatusTracker()

	var coord *engine.Coordinator
	var window engine.Window
	var ui *tui.UI
	sinks := engine.MultiSink{tracker}
	if interactive {
		ui = tui.New(
			tui.WithMaxEvents(opts.eventBuffer),
			tui.WithCloseHandler(func() bool { return coord.RequestClose() }),
		)
		window = ui
		sinks = append(sinks, ui)
	} else {
		enc := json.NewEncoder(cmd.OutOrStdout())
		stderr := cmd.ErrOrStderr()
		sinks = append(sinks, engine.SinkFunc(func(ev engine.Event) {
			cliutil.EncodeEvent(enc, stderr, ev)
		}))
	}

	coordOpts := []engine.Option{engine.WithLogger(log)}
	if ctx.exit != nil {
		coordOpts = append(coordOpts, engine.WithExit(ctx.exit))
	}
	coord = engine.NewCoordinator(reg, dir, window, coordOpts...)
	if ctx.logFile != nil {
		logFile := ctx.logFile
		coord.AddReleaser(func(stdcontext.Context) error { return logFile.Sync() })
	}

	launcher := process.New(dir, reg, process.WithLogger(log), process.WithSettleDelay(opts.killSettle))
	checker := probe.NewChecker(probe.WithLogger(log), probe.WithClient(newHealthClient()))
	orch := engine.NewOrchestrator(launcher, checker, sinks, engine.WithLogger(log))

	var manifest atomic.Pointer[config.Manifest]
	loader := func() (*config.Manifest, error) {
		m, err := ctx.loadManifest()
		if err == nil {
			manifest.Store(m)
			log.WithField("source", m.Source).WithField("services", m.ServiceNames()).Info("service configuration loaded")
		}
		return m, err
	}

	if opts.apiAddr != "" {
		control := NewControlAPI(tracker, coord, manifest.Load)
		if ui != nil {
			control.SetFocusHandler(ui.Focus)
		}
		stopAPI, err := startAPIServer(cmd, opts.apiAddr, control)
		if err != nil {
			return err
		}
		coord.AddReleaser(func(stdcontext.Context) error { return stopAPI() })
	}

	// A close request never cancels startup; the two may overlap.
	startCtx := stdcontext.WithoutCancel(cmd.Context())
	startErr := make(chan error, 1)
	go func() {
		startErr <- orch.Run(startCtx, loader)
	}()

	go func() {
		<-cmd.Context().Done()
		coord.RequestClose()
	}()

	if ui != nil {
		if err := ui.Run(stdcontext.Background()); err != nil {
			log.WithError(err).Error("terminal window failed")
		}
		coord.RequestClose()
		<-coord.Done()
		return nil
	}

	select {
	case err := <-startErr:
		if err != nil {
			return fmt.Errorf("startup aborted: %w", err)
		}
	case <-coord.Done():
		return nil
	}
	<-coord.Done()
	return nil
}

// newHealthClient returns the client used for readiness checks. Services are
// local, so proxy settings from the environment are ignored and idle
// connections are not kept between attempts.
func newHealthClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DisableKeepAlives = true
	return &http.Client{Transport: transport}
}

func startAPIServer(cmd *cobra.Command, addr string, control *ControlAPI) (func() error, error) {
	server, err := newAPIServer(apihttp.Config{Addr: addr, Controller: control})
	if err != nil {
		return nil, err
	}
	serverCtx, cancel := stdcontext.WithCancel(stdcontext.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(serverCtx)
	}()

	readyTimer := time.NewTimer(200 * time.Millisecond)
	defer readyTimer.Stop()
	select {
	case err := <-errCh:
		cancel()
		return nil, err
	case <-readyTimer.C:
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Status API listening on %s\n", server.Addr())
	return func() error {
		cancel()
		err := <-errCh
		if err != nil && !errors.Is(err, stdcontext.Canceled) && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, nil
}
