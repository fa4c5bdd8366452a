package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"example.com/activities/internal/client"
	"example.com/activities/internal/config"
)

var (
	apiURL  string
	timeout time.Duration
	api     *client.Client
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "rosterctl",
		Short:        "Manage extracurricular activity sign-ups",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				apiURL = cfg.APIBaseURL
			}
			api = client.New(apiURL)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&apiURL, "api", "", "activities API base URL (default $API_BASE_URL)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(listCmd(), signupCmd(), unregisterCmd())
	return root
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}
