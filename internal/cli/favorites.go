package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "warrant-sniper/internal/errors"
	"warrant-sniper/internal/view"
)

func newFavoritesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage the local favorites list",
		Long: `Favorites are warrant snapshots saved locally. The list is shown
unfiltered, most recently added last, and survives restarts.`,
	}

	cmd.AddCommand(newFavoritesListCmd(app))
	cmd.AddCommand(newFavoritesToggleCmd(app))

	return cmd
}

func newFavoritesListCmd(app *App) *cobra.Command {
	var (
		sortFlag string
		ascFlag  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved favorites",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return apperrors.ErrDatabaseError
			}

			favorites, err := app.Store.ListFavorites(cmd.Context())
			if err != nil {
				output.Error("Failed to load favorites: %v", err)
				return err
			}

			req := view.Request{
				Mode: view.ModeFavorites,
				Sort: view.SortSpec{Key: view.ParseSortKey(sortFlag)},
			}
			if ascFlag {
				req.Sort.Direction = view.Ascending
			}
			list := view.Build(nil, favorites, app.filterPolicy(), req)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"count":    len(list),
					"warrants": list,
				})
			}

			output.Println()
			output.Bold("自選權證 (%d 檔)", len(list))
			output.Println()
			renderWarrantTable(output, list)
			return nil
		},
	}

	cmd.Flags().StringVar(&sortFlag, "sort", "volume", "sort key (volume|effectiveLeverage|thetaPercent|daysToMaturity)")
	cmd.Flags().BoolVar(&ascFlag, "asc", false, "sort ascending instead of descending")

	return cmd
}

func newFavoritesToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <warrant-id>",
		Short: "Add or remove a warrant from favorites",
		Long: `Toggle adds the warrant when absent and removes it when present.
The warrant must appear in the last completed search so its snapshot
can be saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			id := args[0]

			if app.Store == nil {
				return apperrors.ErrDatabaseError
			}

			// Removal works from the stored snapshot alone.
			if fav, err := app.Store.IsFavorite(ctx, id); err == nil && fav {
				favorites, err := app.Store.ListFavorites(ctx)
				if err != nil {
					return err
				}
				for _, w := range favorites {
					if w.ID == id {
						if _, err := app.Store.ToggleFavorite(ctx, w); err != nil {
							return err
						}
						if output.IsJSON() {
							return output.JSON(map[string]interface{}{"id": id, "added": false})
						}
						output.Success("已移除 %s (%s)", w.Name, w.Symbol)
						return nil
					}
				}
			}

			// Addition needs a snapshot from the last search result.
			result, err := app.Store.GetLastResult(ctx)
			if err != nil || result == nil {
				return fmt.Errorf("no search result available; run a search first")
			}
			for _, w := range result.Warrants {
				if w.ID == id || w.Symbol == id {
					added, err := app.Store.ToggleFavorite(ctx, w)
					if err != nil {
						return err
					}
					if output.IsJSON() {
						return output.JSON(map[string]interface{}{"id": w.ID, "added": added})
					}
					if added {
						output.Success("已加入自選 %s (%s)", w.Name, w.Symbol)
					} else {
						output.Success("已移除 %s (%s)", w.Name, w.Symbol)
					}
					return nil
				}
			}

			return apperrors.ErrNotFound
		},
	}
}
