package main

import (
	"fmt"
	"strconv"

	"github.com/maxviazov/booking-gateway/internal/app"
	"github.com/maxviazov/booking-gateway/internal/config"
	"github.com/maxviazov/booking-gateway/internal/dispatch"
	"github.com/maxviazov/booking-gateway/internal/handler"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route table in evaluation order",
	Args:  cobra.NoArgs,
	RunE:  printRoutes,
}

func printRoutes(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config loading failed: %w", err)
	}
	a, err := app.Build(cfg, zerolog.Nop())
	if err != nil {
		return err
	}

	targets := map[string]string{}
	for _, u := range a.Upstreams {
		targets[u.Name()] = u.Target()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "match mode: %s\n", a.Dispatcher.Mode())

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Name", "Prefix", "Upstream", "Shadowed by"})
	table.SetAutoWrapText(false)
	table.Append([]string{"0", "health", dispatch.HealthPath, "built-in", ""})
	for _, r := range handler.DescribeRoutes(a.Dispatcher) {
		table.Append([]string{strconv.Itoa(r.Order), r.Name, r.Prefix, upstreamFor(targets, r.Name), r.ShadowedBy})
	}
	table.Render()
	return nil
}

// login and logout bindings both go to the auth area.
func upstreamFor(targets map[string]string, binding string) string {
	area := binding
	if binding == "login" || binding == "logout" {
		area = "auth"
	}
	if t := targets[area]; t != "" {
		return t
	}
	return "(not configured)"
}
