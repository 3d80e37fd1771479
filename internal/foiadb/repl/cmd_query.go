package repl

import (
	"fmt"

	"github.com/foiaio/foiadb/internal/db"
	"github.com/foiaio/foiadb/internal/foiadb/styled"
	"github.com/foiaio/foiadb/internal/util/numutil"
	"github.com/jedib0t/go-pretty/v6/table"
)

func cmdQuery(r *Repl, input string) {
	cursor, err := r.session.Execute(r.ctx, input)
	if err != nil {
		cmdQueryError(err)
		return
	}

	rows := cursor.FetchAll()
	if len(rows) == 0 {
		tw := styled.NewTableWriter()
		tw.AppendHeader(table.Row{"OK"})
		tw.AppendRow(table.Row{"OK"})
		fmt.Println(tw.Render())
		return
	}

	tw := styled.NewTableWriter()
	header := table.Row{}
	for _, col := range rows[0].Columns() {
		header = append(header, col)
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		out := table.Row{}
		for _, col := range row.Columns() {
			value := row.Value(col)
			if value == nil {
				value = "NULL"
			}
			out = append(out, value)
		}
		tw.AppendRow(out)
	}

	fmt.Println(tw.Render())
	styled.DimmedColor().Printf("%s rows\n", numutil.IntWithCommas(len(rows)))
	fmt.Println()
}

func cmdQueryError(err error) {
	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"Error"})
	tw.AppendRow(table.Row{err.Error()})
	fmt.Println(tw.Render())

	if db.IsRetryable(err) {
		styled.DimmedColor().Printf("This failure is transient, retrying the statement may succeed\n")
		fmt.Println()
	}
}

func cmdCommit(r *Repl) {
	tw := styled.NewTableWriter()
	if !r.session.InTransaction() {
		tw.AppendHeader(table.Row{"OK"})
		tw.AppendRow(table.Row{"No transaction to commit"})
		fmt.Println(tw.Render())
		return
	}

	if err := r.session.Commit(); err != nil {
		cmdQueryError(err)
		return
	}
	tw.AppendHeader(table.Row{"OK"})
	tw.AppendRow(table.Row{"Transaction committed"})
	fmt.Println(tw.Render())
}

func cmdRollback(r *Repl) {
	tw := styled.NewTableWriter()
	if !r.session.InTransaction() {
		tw.AppendHeader(table.Row{"OK"})
		tw.AppendRow(table.Row{"No transaction to roll back"})
		fmt.Println(tw.Render())
		return
	}

	if err := r.session.Rollback(); err != nil {
		cmdQueryError(err)
		return
	}
	tw.AppendHeader(table.Row{"OK"})
	tw.AppendRow(table.Row{"Transaction rolled back"})
	fmt.Println(tw.Render())
}
