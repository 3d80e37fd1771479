package repl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/foiaio/foiadb/internal/db"
	"github.com/foiaio/foiadb/internal/foiadb/styled"
	"github.com/jedib0t/go-pretty/v6/table"
)

type dotCmd struct {
	name         string
	autocomplete string
	help         string
}

func cmdHelpCommands() []dotCmd {
	cmds := []dotCmd{
		{name: ".tables", autocomplete: ".tables", help: "List all tables in the schema"},
		{name: ".schema", autocomplete: ".schema", help: "Print the schema statements"},
		{name: ".init", autocomplete: ".init", help: "Create any missing tables and indexes"},
		{name: ".stats", autocomplete: ".stats", help: "Show database usage counters"},
		{name: ".commit", autocomplete: ".commit", help: "Commit the current transaction"},
		{name: ".rollback", autocomplete: ".rollback", help: "Roll back the current transaction"},
		{name: ".clear", autocomplete: ".clear", help: "Clear the terminal screen"},
		{name: ".help", autocomplete: ".help", help: "Show the help message"},
		{name: ".quit", autocomplete: ".quit", help: "Exit the application"},
		{name: ".exit", autocomplete: ".exit", help: "Exit the application"},
		{name: "CTRL+c", help: "Exit the application"},
	}

	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].name < cmds[j].name
	})

	return cmds
}

func cmdHelp() {
	fmt.Println("Available commands:")
	cmds := cmdHelpCommands()

	tw := styled.NewTableWriter()
	tw.AppendHeader(table.Row{"Command", "Description"})

	for _, cmd := range cmds {
		tw.AppendRow(table.Row{cmd.name, cmd.help})
	}

	fmt.Println(tw.Render())
	fmt.Println("Anything else is run as SQL inside the session transaction.")
	fmt.Println("Statements use ? placeholders and run unchanged on both backends.")
	fmt.Println()
}

func cmdHelpCompleter(line string) []string {
	suggestions := []string{
		"SELECT ",
		"SELECT * FROM ",
		"SELECT COUNT(*) FROM ",
		"INSERT INTO ",
		"INSERT OR IGNORE INTO ",
		"UPDATE ",
		"DELETE FROM ",
	}

	for _, name := range db.Tables() {
		suggestions = append(suggestions, "SELECT * FROM "+name)
	}

	for _, cmd := range cmdHelpCommands() {
		if cmd.autocomplete != "" {
			suggestions = append(suggestions, cmd.autocomplete)
		}
	}

	results := []string{}
	for _, suggestion := range suggestions {
		if strings.HasPrefix(strings.ToLower(suggestion), strings.ToLower(line)) {
			results = append(results, suggestion)
		}
	}

	return results
}
