package entry

import (
	"fmt"

	"github.com/spf13/cobra"

	"replikeep/internal/domain/record"
)

// EntryCmd - родительская команда для основных записей
var EntryCmd = &cobra.Command{
	Use:     "entry",
	Aliases: []string{"entries"},
	Short:   "Основные записи",
	Long:    `Создание, изменение, удаление и просмотр основных записей.`,
}

var (
	name     string
	category string
	quantity float64
	unit     string
	notes    string
	parent   string
	noPush   bool
)

func bindPayloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&name, "name", "n", "", "название")
	cmd.Flags().StringVarP(&category, "category", "c", "", "категория")
	cmd.Flags().Float64VarP(&quantity, "quantity", "q", 0, "количество")
	cmd.Flags().StringVarP(&unit, "unit", "u", "", "единица измерения")
	cmd.Flags().StringVar(&notes, "notes", "", "заметки")
	cmd.Flags().StringVar(&parent, "parent", "", "sync id родительской записи")
}

// applyFlags переносит в payload только явно переданные флаги.
func applyFlags(cmd *cobra.Command, p *record.EntryPayload) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Name = name
	}
	if flags.Changed("category") {
		p.Category = category
	}
	if flags.Changed("quantity") {
		p.Quantity = quantity
	}
	if flags.Changed("unit") {
		p.Unit = unit
	}
	if flags.Changed("notes") {
		p.Notes = notes
	}
	if flags.Changed("parent") {
		p.ParentSyncID = parent
	}
}

// Describe кратко описывает основную запись для таблицы.
func Describe(r *record.Record) string {
	p, err := record.DecodePayload(record.KindEntry, r.Payload)
	if err != nil {
		return "<повреждена>"
	}
	e := p.(record.EntryPayload)
	out := e.Name
	if e.Quantity != 0 {
		out += fmt.Sprintf(" %g%s", e.Quantity, e.Unit)
	}
	if e.Category != "" {
		out += " [" + e.Category + "]"
	}
	return out
}
