package repl

import (
	"fmt"

	"github.com/foiaio/foiadb/internal/foiadb/styled"
	"github.com/foiaio/foiadb/internal/util/numutil"
	"github.com/jedib0t/go-pretty/v6/table"
)

func cmdStats(r *Repl) {
	stats := r.database.Stats()

	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"Sessions", "Statements", "Inserts", "Commits", "Rollbacks"})
	tw.AppendRow(table.Row{
		numutil.IntWithCommas(int(stats.SessionsOpened)),
		numutil.IntWithCommas(int(stats.Statements)),
		numutil.IntWithCommas(int(stats.Inserts)),
		numutil.IntWithCommas(int(stats.Commits)),
		numutil.IntWithCommas(int(stats.Rollbacks)),
	})

	fmt.Println(tw.Render())
	styled.DimmedColor().Printf("Counters cover this process since startup\n")
	fmt.Println()
}
