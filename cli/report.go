package cli

import (
	"github.com/camden-git/peoplegraph/services"
	"github.com/spf13/cobra"
)

func duplicatesCommand() *cobra.Command {
	var ownerID string
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "List likely duplicate people for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			svc := services.NewDuplicateService(a.store, nil, a.log, a.cfg.DuplicateScanLimit)
			suggestions, err := svc.Scan(cmd.Context(), ownerID)
			if err != nil {
				return err
			}
			return printJSON(cmd, suggestions)
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owner whose people are scanned")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func networkCommand() *cobra.Command {
	var ownerID string
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Print network statistics for an owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := services.NewGraphService(a.store, a.log).Network(cmd.Context(), ownerID)
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owner whose graph is analyzed")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

type pathReport struct {
	Found   bool     `json:"found"`
	Degrees int      `json:"degrees"`
	Path    []string `json:"path"`
}

func pathCommand() *cobra.Command {
	var ownerID, fromID, toID string
	var maxDegrees int
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Find the shortest chain of acquaintances between two people",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := services.NewGraphService(a.store, a.log).Path(cmd.Context(), ownerID, fromID, toID, maxDegrees)
			if err != nil {
				return err
			}
			report := pathReport{Path: []string{}}
			if len(path) > 0 {
				report = pathReport{Found: true, Degrees: len(path) - 1, Path: path}
			}
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "Owner of both people")
	cmd.Flags().StringVar(&fromID, "from", "", "Starting person id")
	cmd.Flags().StringVar(&toID, "to", "", "Destination person id")
	cmd.Flags().IntVar(&maxDegrees, "max-degrees", services.DefaultMaxDegrees, "Longest chain considered")
	for _, name := range []string{"owner", "from", "to"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
