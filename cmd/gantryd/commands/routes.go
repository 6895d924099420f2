package commands

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/gantrykit/gantry/internal/cli/output"
	"github.com/gantrykit/gantry/pkg/config"
	"github.com/gantrykit/gantry/pkg/middleware"
	"github.com/gantrykit/gantry/pkg/server"
)

var routesOutput string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the HTTP routes the server registers",
	Long: `List every route the server would register with the current
configuration, including the operational health endpoints, along with the
middleware pipeline requests pass through on their way to the router.

Examples:
  # Print the route table
  gantryd routes

  # Machine-readable listing
  gantryd routes --output json`,
	RunE: runRoutes,
}

func init() {
	routesCmd.Flags().StringVarP(&routesOutput, "output", "o", "table", "Output format (table, json, yaml)")
}

type routeInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

type routesReport struct {
	Middleware []string    `json:"middleware"`
	Routes     []routeInfo `json:"routes"`
}

func runRoutes(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(routesOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	router := buildRouter(serverDeps{})
	// Constructing the server registers the health endpoints and fallback
	// handlers on the router, so the listing matches what serve exposes.
	_ = server.New(cfg.Server, router)

	report := routesReport{
		Middleware: middleware.Pipeline(cfg.Middleware, nil, nil).Names(),
	}
	walkErr := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		report.Routes = append(report.Routes, routeInfo{Method: method, Path: route})
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to walk routes: %w", walkErr)
	}

	sort.Slice(report.Routes, func(i, j int) bool {
		if report.Routes[i].Path != report.Routes[j].Path {
			return report.Routes[i].Path < report.Routes[j].Path
		}
		return report.Routes[i].Method < report.Routes[j].Method
	})

	w := cmd.OutOrStdout()
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, report)
	case output.FormatYAML:
		return output.PrintYAML(w, report)
	default:
		fmt.Fprintf(w, "Middleware: %s\n\n", strings.Join(report.Middleware, ", "))
		table := output.NewTableData("Method", "Path")
		for _, r := range report.Routes {
			table.AddRow(r.Method, r.Path)
		}
		return output.PrintTable(w, table)
	}
}
