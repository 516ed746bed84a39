package cli

import (
	"github.com/spf13/cobra"

	apperrors "warrant-sniper/internal/errors"
)

func newLoginCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify the access passcode",
		Long: `Login checks the passcode against the configured credential.
Three consecutive failures lock the gate for the configured window;
attempts during a lockout are rejected without counting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if app.Gate == nil || app.Config.Credentials.Passcode == "" {
				if output.IsJSON() {
					return output.JSON(map[string]bool{"gate_enabled": false})
				}
				output.Info("No passcode configured, the gate is open")
				return nil
			}

			secret, _ := cmd.Flags().GetString("passcode")
			err := app.Gate.Attempt(ctx, secret)
			if err == nil {
				if output.IsJSON() {
					return output.JSON(map[string]bool{"authenticated": true})
				}
				output.Success("通行碼正確")
				return nil
			}

			status := app.Gate.Status(ctx)
			if output.IsJSON() {
				output.JSON(map[string]interface{}{
					"authenticated":   false,
					"locked":          status.Locked,
					"failed_attempts": status.FailedAttempts,
					"attempts_left":   status.AttemptsLeft,
				})
				return err
			}

			renderAuthError(output, err)
			if !status.Locked && !apperrors.Is(err, apperrors.ErrLockedOut) {
				output.Warning("剩餘 %d 次嘗試機會", status.AttemptsLeft)
			}
			return err
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show gate lockout status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Gate == nil || app.Config.Credentials.Passcode == "" {
				if output.IsJSON() {
					return output.JSON(map[string]bool{"gate_enabled": false})
				}
				output.Info("No passcode configured, the gate is open")
				return nil
			}

			status := app.Gate.Status(cmd.Context())
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"locked":            status.Locked,
					"remaining_seconds": int(status.Remaining.Seconds()),
					"failed_attempts":   status.FailedAttempts,
					"attempts_left":     status.AttemptsLeft,
				})
			}

			if status.Locked {
				output.Error("鎖定中，剩餘 %.0f 秒", status.Remaining.Seconds())
			} else {
				output.Success("未鎖定")
				output.Printf("失敗次數: %d，剩餘嘗試: %d\n", status.FailedAttempts, status.AttemptsLeft)
			}
			return nil
		},
	})

	return cmd
}
