package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "warrant-sniper/internal/errors"
	"warrant-sniper/internal/models"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <warrant-id>",
		Short: "AI health check for one warrant",
		Long: `Analyze asks the AI service for a liquidity and holding-cost health
check on a warrant from the last search result or the favorites list.
Requires an OpenAI API key in credentials.toml or OPENAI_API_KEY.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if app.Analysis == nil {
				output.Error("AI 服務未設定，請在 credentials.toml 填入 API Key")
				return apperrors.NewAnalysisError("init", apperrors.ErrConfigInvalid)
			}

			w, err := app.findWarrant(cmd, args[0])
			if err != nil {
				return err
			}

			if !output.IsJSON() {
				output.Info("分析中 %s (%s)...", w.Name, w.Symbol)
			}
			text := app.Analysis.AnalyzeWarrant(ctx, w)

			if output.IsJSON() {
				return output.JSON(map[string]string{
					"id":       w.ID,
					"symbol":   w.Symbol,
					"analysis": text,
				})
			}
			output.Println()
			output.Println(text)
			return nil
		},
	}
}

func newCommentaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "commentary",
		Short: "AI market commentary for today's session",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Analysis == nil {
				output.Error("AI 服務未設定，請在 credentials.toml 填入 API Key")
				return apperrors.NewAnalysisError("init", apperrors.ErrConfigInvalid)
			}

			result := app.Analysis.MarketCommentary(cmd.Context())

			if output.IsJSON() {
				return output.JSON(result)
			}
			output.Println()
			output.Println(result.Content)
			if len(result.Sources) > 0 {
				output.Println()
				output.Bold("資料來源")
				for _, src := range result.Sources {
					output.Dim("  %s", src.URI)
				}
			}
			return nil
		},
	}
}

// findWarrant resolves an ID or symbol against the last search result
// first, then the favorites store.
func (app *App) findWarrant(cmd *cobra.Command, id string) (models.Warrant, error) {
	if app.Store != nil {
		if result, err := app.Store.GetLastResult(cmd.Context()); err == nil && result != nil {
			for _, w := range result.Warrants {
				if w.ID == id || w.Symbol == id {
					return w, nil
				}
			}
		}

		favorites, err := app.Store.ListFavorites(cmd.Context())
		if err == nil {
			for _, w := range favorites {
				if w.ID == id || w.Symbol == id {
					return w, nil
				}
			}
		}
	}

	return models.Warrant{}, fmt.Errorf("warrant %q: %w", id, apperrors.ErrNotFound)
}
