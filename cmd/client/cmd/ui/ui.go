// Package ui форматирует вывод команд клиента.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"replikeep/internal/domain/record"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
	faintColor = color.New(color.Faint)
)

func Success(w io.Writer, format string, args ...any) {
	okColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func Warn(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "! "+format+"\n", args...)
}

func Error(w io.Writer, format string, args ...any) {
	errColor.Fprintf(w, "✗ "+format+"\n", args...)
}

// Status окрашивает статус синхронизации записи.
func Status(s record.SyncStatus) string {
	switch s {
	case record.StatusSynced:
		return color.GreenString(string(s))
	case record.StatusFailed:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}

// Time печатает момент в локальном времени или прочерк.
func Time(t *time.Time) string {
	if t == nil || t.IsZero() {
		return faintColor.Sprint("-")
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// JSON печатает значение с отступами.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table печатает записи таблицей; describe возвращает краткое описание
// содержимого записи.
func Table(w io.Writer, recs []*record.Record, describe func(*record.Record) string) {
	if len(recs) == 0 {
		faintColor.Fprintln(w, "нет записей")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYNC ID\tСОДЕРЖИМОЕ\tИЗМЕНЕНА\tСТАТУС")
	for _, r := range recs {
		updated := r.UpdatedAt
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.SyncID, describe(r), Time(&updated), Status(r.SyncStatus))
	}
	_ = tw.Flush()
}
