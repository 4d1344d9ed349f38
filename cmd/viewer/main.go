package main

import (
	"chat-relay/repositories"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Standalone inspector for the message store. Opens the database read-only
// with BypassLockGuard so it works while the relay holds the lock.
func main() {
	_ = godotenv.Load()
	dbPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to badger DB")
	clear := flag.Bool("clear", false, "Delete every stored message")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("No database path (set -db or BADGER_FILEPATH)")
	}

	if *clear {
		clearStore(*dbPath)
		return
	}

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Time", "ID", "Author", "Lang", "Body", "Cached"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("msg:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())
			err := item.Value(func(v []byte) error {
				var msg repositories.DiskMessage
				if err := json.Unmarshal(v, &msg); err != nil {
					fmt.Printf("Error unmarshaling key %s: %v\n", rawKey, err)
					return nil
				}

				displayID := msg.ID.String()[:8]
				langs := lo.Keys(msg.Translations)
				sort.Strings(langs)

				table.Append([]string{
					msg.At.Format("15:04:05"),
					displayID,
					msg.Author,
					msg.SourceLang,
					msg.Body,
					strings.Join(langs, " "),
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	header := color.New(color.BgBlack, color.FgGreen).
		Render(fmt.Sprintf(" %d messages in %s ", count, *dbPath))
	fmt.Println(header)
	table.Render()
}

func clearStore(path string) {
	db, err := badger.Open(badger.DefaultOptions(path).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repo := repositories.NewMessageRepository(db, logs.GetLoggerFromString("info"), nil)
	deleted, err := repo.ClearMessages()
	if err != nil {
		log.Fatal("Error while clearing messages: ", err)
	}
	fmt.Println(color.New(color.FgYellow).Render(
		fmt.Sprintf("Deleted %d messages", deleted)))
}
