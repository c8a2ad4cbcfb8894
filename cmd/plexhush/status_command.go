package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"plexhush/internal/library"
	"plexhush/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show how much of the library is currently hidden",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := ctx.newPlexClient()
			if err != nil {
				return err
			}
			snapshot, err := client.ListItems(cmd.Context())
			if err != nil {
				return err
			}

			markers := cfg.Markers()
			var unwatched int
			hiddenByField := map[library.Field]int{}
			for _, item := range snapshot.Items() {
				if !item.Watched {
					unwatched++
				}
				for _, field := range library.Fields {
					if item.FieldHidden(field, markers) {
						hiddenByField[field]++
					}
				}
			}

			cached := "-"
			if originals, err := store.Open(cfg.Run.CachePath); err == nil {
				if count, cerr := originals.Count(cmd.Context()); cerr == nil {
					cached = strconv.Itoa(count)
				}
				originals.Close()
			}

			rows := [][]string{
				{"Items", strconv.Itoa(len(snapshot))},
				{"Unwatched", strconv.Itoa(unwatched)},
				{"Hidden summaries", strconv.Itoa(hiddenByField[library.FieldSummary])},
				{"Hidden titles", strconv.Itoa(hiddenByField[library.FieldTitle])},
				{"Hidden thumbnails", strconv.Itoa(hiddenByField[library.FieldThumbnail])},
				{"Cached originals", cached},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}
