package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "warrant-sniper/internal/errors"
	"warrant-sniper/internal/models"
	"warrant-sniper/internal/view"
	"warrant-sniper/pkg/utils"
)

func newSearchCmd(app *App) *cobra.Command {
	var (
		tabFlag    string
		sortFlag   string
		ascFlag    bool
		descFlag   bool
		allFlag    bool
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "search <stock-code>",
		Short: "Search warrants for an underlying stock",
		Long: `Search dispatches a scan command for the given underlying stock code
and waits for the backend engine to publish the warrant list.

Results are screened with the strict high-win-rate filter unless --all
is given. The call/put tab and sort key match the interactive list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if err := app.requireAccess(ctx, cmd); err != nil {
				return renderAuthError(output, err)
			}

			if err := app.ensureTransport(ctx, cmd); err != nil {
				return err
			}

			commandID, err := app.Session.Submit(ctx, args[0])
			if err != nil {
				if apperrors.Is(err, apperrors.ErrEmptyQuery) {
					output.Error("Stock code must not be empty")
					return err
				}
				output.Error("Search dispatch failed: %v", err)
				return err
			}

			if !output.IsJSON() {
				output.Info("Command %s dispatched, waiting for scan engine...", commandID)
			}

			waitCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
			defer cancel()

			result, err := app.Session.Wait(waitCtx)
			if err != nil {
				if err == context.DeadlineExceeded {
					output.Warning("Scan engine did not complete within %ds", timeoutSec)
				}
				return err
			}

			// Keep the result around for favorites toggle and analyze.
			if app.Store != nil {
				if err := app.Store.SaveLastResult(ctx, *result); err != nil {
					app.Logger.Warn().Err(err).Msg("Failed to persist search result")
				}
			}

			req := view.Request{
				Mode:       view.ModeMarket,
				Tab:        parseTab(tabFlag),
				Sort:       view.SortSpec{Key: view.ParseSortKey(sortFlag)},
				Unfiltered: allFlag,
			}
			if ascFlag && !descFlag {
				req.Sort.Direction = view.Ascending
			}

			list := view.Build(result.Warrants, nil, app.filterPolicy(), req)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"stock_code": result.StockCode,
					"updated_at": result.UpdatedAt,
					"total":      len(result.Warrants),
					"shown":      len(list),
					"warrants":   list,
				})
			}

			renderResultHeader(output, app, result, len(list), allFlag)
			renderWarrantTable(output, list)
			return nil
		},
	}

	cmd.Flags().StringVar(&tabFlag, "tab", "call", "warrant side to show (call|put)")
	cmd.Flags().StringVar(&sortFlag, "sort", "volume", "sort key (volume|effectiveLeverage|thetaPercent|daysToMaturity)")
	cmd.Flags().BoolVar(&ascFlag, "asc", false, "sort ascending")
	cmd.Flags().BoolVar(&descFlag, "desc", false, "sort descending (default)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "bypass the strict filter (tab still applies)")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 60, "seconds to wait for the scan engine")

	return cmd
}

// parseTab maps the --tab flag onto a warrant side; anything that is
// not a put means call.
func parseTab(s string) models.WarrantType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "put", "p", "認售":
		return models.WarrantPut
	default:
		return models.WarrantCall
	}
}

func renderResultHeader(output *Output, app *App, result *models.SearchResult, shown int, unfiltered bool) {
	output.Println()
	output.Bold("%s 權證掃描結果", result.StockCode)
	output.Dim("更新時間 %s", utils.FormatClock(result.UpdatedAt, app.Config.UI.TimeFormat))
	if unfiltered {
		output.Printf("%d 檔 (未過濾，共 %d 檔)\n", shown, len(result.Warrants))
	} else {
		output.Printf("%d 檔通過嚴格篩選 (共 %d 檔)\n", shown, len(result.Warrants))
	}
	output.Println()
}

// renderWarrantTable prints the list in the interactive layout.
func renderWarrantTable(output *Output, list []models.Warrant) {
	if len(list) == 0 {
		output.Dim("沒有符合條件的權證")
		return
	}

	output.Printf("%-8s %-14s %-6s %8s %8s %10s %8s %8s %8s\n",
		"代號", "名稱", "類型", "價格", "槓桿", "成交量", "Theta", "天數", "價差")
	output.Dim(strings.Repeat("-", 88))

	for _, w := range list {
		side := "認售"
		if w.IsCall() {
			side = "認購"
		}
		row := fmt.Sprintf("%-8s %-14s %-6s %8s %8s %10s %8s %8s %8.2f",
			w.Symbol,
			truncate(w.Name, 14),
			side,
			utils.FormatPrice(w.Price),
			utils.FormatLeverage(w.EffectiveLeverage),
			utils.FormatVolume(w.Volume),
			utils.FormatPercent(w.ThetaPercent),
			utils.FormatDays(w.DaysToMaturity),
			w.Spread())
		if w.IsCall() {
			output.Call("%s", row)
		} else {
			output.Put("%s", row)
		}
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// renderAuthError turns gate failures into user-facing messages.
func renderAuthError(output *Output, err error) error {
	var lockout *apperrors.LockoutError
	if apperrors.As(err, &lockout) {
		output.Error("嘗試次數過多，請於 %.0f 秒後再試", lockout.Remaining.Seconds())
		return err
	}
	if apperrors.Is(err, apperrors.ErrInvalidPasscode) {
		output.Error("通行碼錯誤")
		return err
	}
	return err
}
