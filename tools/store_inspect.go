// Command store_inspect prints the records of a persistent chat store as a table.
// The server must be stopped, or the directory copied, since the store is opened read-only.
//
//	go run ./tools -db ./data -prefix queue:
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"random-chat/repositories"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "./data", "Path to the badger directory (BADGER_FILEPATH)")
	prefix := flag.String("prefix", "", "Key prefix to scan: user:, queue:, qidx:, presence:")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithReadOnly(true).WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := repositories.Scan(ctx, db, *prefix)
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "Interest", "Name", "Detail", "Key"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, entry := range entries {
		table.Append([]string{entry.Kind, entry.Interest, entry.Name, entry.Detail, entry.Key})
	}
	table.SetFooter([]string{"", "", "", "records", strconv.Itoa(len(entries))})
	table.Render()
}
