package repl

import (
	"fmt"

	"github.com/foiaio/foiadb/internal/db"
	"github.com/foiaio/foiadb/internal/foiadb/styled"
	"github.com/jedib0t/go-pretty/v6/table"
)

func cmdTables() {
	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"Table"})

	for _, name := range db.Tables() {
		tw.AppendRow(table.Row{name})
	}

	fmt.Println(tw.Render())
}

func cmdSchema() {
	for _, statement := range db.SchemaSQL() {
		fmt.Println(statement + ";")
		fmt.Println()
	}
}

func cmdInit(r *Repl) {
	if err := db.EnsureSchema(r.ctx, r.session); err != nil {
		cmdQueryError(err)
		return
	}

	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"OK"})
	tw.AppendRow(table.Row{"Schema initialized"})
	fmt.Println(tw.Render())
}
