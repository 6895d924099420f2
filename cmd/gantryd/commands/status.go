package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gantrykit/gantry/internal/cli/health"
	"github.com/gantrykit/gantry/internal/cli/output"
	"github.com/gantrykit/gantry/internal/cli/timeutil"
	"github.com/gantrykit/gantry/pkg/config"
)

var (
	statusAddr   string
	statusOutput string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of a running Gantry server.

This command calls the health and readiness endpoints and displays the
lifecycle state, uptime, and the result of every readiness check.

Examples:
  # Check the server from the configured listen port
  gantryd status

  # Check a server on a different address
  gantryd status --addr 10.0.0.5:9000

  # Output as JSON
  gantryd status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "Server address (host:port, defaults to localhost and the configured port)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table, json, yaml)")
}

// ServerStatus is the aggregate view of the health and readiness probes.
type ServerStatus struct {
	Running bool           `json:"running" yaml:"running"`
	Ready   bool           `json:"ready" yaml:"ready"`
	Message string         `json:"message" yaml:"message"`
	Service string         `json:"service,omitempty" yaml:"service,omitempty"`
	State   string         `json:"state,omitempty" yaml:"state,omitempty"`
	Uptime  string         `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Checks  []health.Check `json:"checks,omitempty" yaml:"checks,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	addr := statusAddr
	if addr == "" {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return err
		}
		addr = fmt.Sprintf("localhost:%d", cfg.Server.Port)
	}

	status := probeServer(addr)

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}

	return nil
}

// probeServer queries /health and /health/ready. An unreachable server is a
// result, not an error: status must work against a stopped server.
func probeServer(addr string) ServerStatus {
	status := ServerStatus{Message: fmt.Sprintf("Server is not reachable at %s", addr)}
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://%s/health", addr))
	if err != nil {
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	var healthResp health.Response
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		status.Running = true
		status.Message = "Server is running but the health response was invalid"
		return status
	}

	status.Running = true
	status.Service = healthResp.Service
	status.State = healthResp.State
	status.Uptime = healthResp.Uptime
	status.Message = "Server is running"

	ready, err := client.Get(fmt.Sprintf("http://%s/health/ready", addr))
	if err != nil {
		status.Message = "Server is running but the readiness probe failed"
		return status
	}
	defer func() { _ = ready.Body.Close() }()

	var readyResp health.Response
	if err := json.NewDecoder(ready.Body).Decode(&readyResp); err == nil {
		status.Checks = readyResp.Checks
	}

	status.Ready = ready.StatusCode == http.StatusOK
	switch {
	case status.Ready:
		status.Message = "Server is running and ready"
	case readyResp.Error != "":
		status.Message = fmt.Sprintf("Server is running but not ready: %s", readyResp.Error)
	default:
		status.Message = "Server is running but not ready"
	}

	return status
}

func printStatusTable(status ServerStatus) {
	fmt.Println()
	fmt.Println("Gantry Server Status")
	fmt.Println("====================")
	fmt.Println()

	if status.Running {
		if status.Ready {
			fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
		} else {
			fmt.Printf("  Status:     \033[33m● Running (not ready)\033[0m\n")
		}
		if status.Service != "" {
			fmt.Printf("  Service:    %s\n", status.Service)
		}
		if status.State != "" {
			fmt.Printf("  State:      %s\n", status.State)
		}
		if status.Uptime != "" {
			fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
		}
		if len(status.Checks) > 0 {
			fmt.Println()
			fmt.Println("  Checks:")
			for _, check := range status.Checks {
				dot := "\033[32m●\033[0m"
				if check.Status != "healthy" {
					dot = "\033[31m●\033[0m"
				}
				line := fmt.Sprintf("    %s %-16s %s", dot, check.Name, check.Latency)
				if check.Error != "" {
					line += "  " + check.Error
				}
				fmt.Println(line)
			}
		}
	} else {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
	}

	fmt.Println()
	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
}
