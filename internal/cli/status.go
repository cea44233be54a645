package cli

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/launchpad/internal/api"
)

const defaultStatusAddr = "127.0.0.1:9870"

func newStatusCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show service status reported by a running launcher's status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := fetchStatus(cmd, addr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Source != "" {
				fmt.Fprintf(out, "Service list %s, shutdown state %s\n", report.Source, report.Shutdown)
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tSTATUS\tURL\tAGE\tMESSAGE")
			for _, svc := range report.Services {
				age := "-"
				if !svc.FirstSeen.IsZero() {
					d := time.Since(svc.FirstSeen)
					if d < 0 {
						d = 0
					}
					age = d.Truncate(time.Second).String()
				}
				url := svc.URL
				if url == "" {
					url = "-"
				}
				message := svc.Message
				if message == "" {
					message = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", svc.Name, formatStatus(string(svc.Status)), url, age, message)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&addr, "api", defaultStatusAddr, "Address of the running launcher's status API")
	return cmd
}

func apiURL(addr, path string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid --api address %q: %w", addr, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + path, nil
}

func fetchStatus(cmd *cobra.Command, addr string) (*api.StatusReport, error) {
	url, err := apiURL(addr, "/api/v1/status")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query status API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query status API: unexpected status %d", resp.StatusCode)
	}
	var report api.StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &report, nil
}

// focusRunningInstance asks a launcher already serving on addr to bring its
// window forward. It reports whether such a launcher answered.
func focusRunningInstance(ctx stdcontext.Context, addr string) bool {
	url, err := apiURL(addr, "/api/v1/focus")
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return false
	}
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusConflict
}

func formatStatus(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
