package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vantagehq/vantage/pkg/client"
)

// auditEventsCmd represents the audit events command
var auditEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Retrieve and display audit events",
	Example: `  # the last 50 failed logins
  vantage audit events --kind login.failure -n 50

  # everything a request did, by correlation ID
  vantage audit events --correlation-id d0i1qv0uvd2l6k8parog`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		kind, _ := cmd.Flags().GetString("kind")
		actor, _ := cmd.Flags().GetString("actor")
		email, _ := cmd.Flags().GetString("email")
		correlationID, _ := cmd.Flags().GetString("correlation-id")

		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching audit events...")
		events, correlation, err := cli.ListAuditEvents(cmd.Context(), client.ListAuditEventsOpts{
			Limit:         limit,
			Kind:          kind,
			Actor:         actor,
			Email:         email,
			CorrelationID: correlationID,
		})
		if err != nil {
			return logError(err, correlation, "failed to fetch audit events")
		}

		log.Info().Msgf("Retrieved %d audit event(s)", len(events))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Kind", "Actor", "Email", "Client", "Error",
		})

		for _, e := range events {
			who := e.Actor
			if who == "" {
				who = "(anonymous)"
			}

			t.AppendRow(table.Row{
				e.Time.Format(time.RFC3339),
				e.Kind,
				truncate(who, 36),
				e.Email,
				e.ClientKey,
				truncate(e.Error, 40),
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditEventsCmd)

	auditEventsCmd.Flags().IntP("limit", "n", 25, "Number of audit events to retrieve")
	auditEventsCmd.Flags().String("kind", "", "Filter by event kind (e.g. login.failure)")
	auditEventsCmd.Flags().String("actor", "", "Filter by acting user id")
	auditEventsCmd.Flags().String("email", "", "Filter by email")
	auditEventsCmd.Flags().String("correlation-id", "", "Filter by request correlation ID")
}
