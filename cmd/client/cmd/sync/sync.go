package sync

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"replikeep/cmd/client/cmd/types"
	"replikeep/cmd/client/cmd/ui"
	"replikeep/internal/app/client"
	domain "replikeep/internal/domain/sync"
)

var (
	forceSync  bool
	syncStatus bool
	quickPush  bool
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с сервером",
	Long: `Отправляет локальные изменения и получает чужие.

  --force   сбросить водяные знаки и синхронизировать всё заново
  --quick   только отправить изменения основных записей
  --status  показать состояние без обращения к серверу`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch {
		case syncStatus:
			return showSyncStatus(cmd.Context(), out, app, types.JSONOutput(cmd))
		case quickPush:
			return runQuickPush(cmd.Context(), out, app)
		default:
			return runSync(cmd.Context(), out, app, forceSync)
		}
	},
}

func runSync(ctx context.Context, out io.Writer, app *client.App, force bool) error {
	start := time.Now()

	var (
		result *domain.Result
		err    error
	)
	if force {
		result, err = app.ForceResync(ctx)
	} else {
		result, err = app.Sync(ctx)
	}
	if err != nil {
		if domain.IsUnreachable(err) {
			ui.Warn(out, "Сервер недоступен, изменения останутся в очереди")
			return nil
		}
		return fmt.Errorf("ошибка синхронизации: %w", err)
	}

	if result.State == domain.StateSkipped {
		ui.Warn(out, "Синхронизация уже выполняется")
		return nil
	}

	for _, k := range result.Kinds {
		line := fmt.Sprintf("%-8s отправлено %d, получено %d", k.Kind, k.Pushed, k.Pulled)
		if k.Succeeded() {
			ui.Success(out, "%s", line)
			continue
		}
		ui.Error(out, "%s", line)
		for _, e := range errorsOf(k) {
			fmt.Fprintf(out, "    • %v\n", e)
		}
	}
	switch {
	case result.Settings.Err != nil:
		ui.Error(out, "настройки: %v", result.Settings.Err)
	case result.Settings.Merged:
		ui.Success(out, "настройки слиты")
	}
	if len(result.Settings.Unreadable) > 0 {
		ui.Warn(out, "не удалось открыть секреты: %v (проверьте SETTINGS_PASSPHRASE)", result.Settings.Unreadable)
	}

	fmt.Fprintf(out, "Состояние: %s, время: %v\n", result.State, time.Since(start).Round(time.Millisecond))
	return nil
}

func errorsOf(k domain.KindResult) []error {
	var errs []error
	if k.PushErr != nil {
		errs = append(errs, k.PushErr)
	}
	if k.PullErr != nil {
		errs = append(errs, k.PullErr)
	}
	for i, f := range k.Failed {
		// Показываем только первые 3 ошибки
		if i == 3 {
			errs = append(errs, fmt.Errorf("... и еще %d", len(k.Failed)-3))
			break
		}
		errs = append(errs, f)
	}
	return errs
}

func runQuickPush(ctx context.Context, out io.Writer, app *client.App) error {
	ok, err := app.QuickPush(ctx)
	if err != nil {
		if domain.IsUnreachable(err) {
			ui.Warn(out, "Сервер недоступен")
			return nil
		}
		return err
	}
	if !ok {
		ui.Warn(out, "Отправлено не всё: синхронизация уже идёт или записи отклонены")
		return nil
	}
	ui.Success(out, "Изменения отправлены")
	return nil
}

func showSyncStatus(ctx context.Context, out io.Writer, app *client.App, asJSON bool) error {
	status, err := app.Status(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return ui.JSON(out, status)
	}

	fmt.Fprintf(out, "Владелец:        %s\n", status.Owner)
	fmt.Fprintf(out, "Состояние:       %s\n", status.State)
	fmt.Fprintf(out, "Ожидают отправки: %d\n", status.Pending)
	fmt.Fprintf(out, "Последний прогон: %s (%s)\n", ui.Time(&status.LastSync), status.LastState)
	if status.LastError != "" {
		fmt.Fprintf(out, "Последняя ошибка: %s\n", color.RedString(status.LastError))
	}

	fmt.Fprintln(out, "\nВодяные знаки:")
	for _, w := range status.Watermarks {
		fmt.Fprintf(out, "  %-8s %-5s %s\n", w.Kind, w.Direction, ui.Time(w.At))
	}
	return nil
}

func init() {
	SyncCmd.Flags().BoolVarP(&forceSync, "force", "f", false, "полная пересинхронизация")
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "показать статус синхронизации")
	SyncCmd.Flags().BoolVarP(&quickPush, "quick", "q", false, "только отправить основные записи")
	SyncCmd.MarkFlagsMutuallyExclusive("force", "status", "quick")
}
