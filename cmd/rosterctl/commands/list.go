package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List activities and their participants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			activities, err := api.List(ctx)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(activities))
			for name := range activities {
				names = append(names, name)
			}
			sort.Strings(names)

			out := cmd.OutOrStdout()
			for _, name := range names {
				a := activities[name]
				fmt.Fprintf(out, "%s (%s)\n", name, a.Schedule)
				if a.SpotsLeft != nil {
					fmt.Fprintf(out, "  %d/%d enrolled, %d spots left\n", len(a.Participants), a.MaxParticipants, *a.SpotsLeft)
				} else {
					fmt.Fprintf(out, "  %d/%d enrolled\n", len(a.Participants), a.MaxParticipants)
				}
				if len(a.Participants) > 0 {
					fmt.Fprintf(out, "  %s\n", strings.Join(a.Participants, ", "))
				}
			}
			return nil
		},
	}
}
