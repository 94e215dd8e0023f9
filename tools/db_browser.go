package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abcfe/abcfe-keyring/common/utils"
	prt "github.com/abcfe/abcfe-keyring/protocol"
	"github.com/abcfe/abcfe-keyring/storage"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run tools/db_browser.go <db_path> [command]")
		fmt.Println("Commands:")
		fmt.Println("  meta      - Show metadata")
		fmt.Println("  keystores - List indexed keystore files")
		fmt.Println("  backups   - List keyring backups")
		fmt.Println("  keystore <address> - Show one keystore record")
		fmt.Println("  all       - Show all data")
		return
	}

	dbPath := os.Args[1]
	command := "meta"
	if len(os.Args) > 2 {
		command = os.Args[2]
	}

	// Open LevelDB
	db, err := leveldb.OpenFile(dbPath, &opt.Options{ReadOnly: true})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	index := storage.NewAccountIndex(db)
	defer index.Close()

	fmt.Printf("Database opened: %s\n\n", dbPath)

	switch command {
	case "meta":
		showMetadata(index)
	case "keystores":
		listKeystores(index)
	case "backups":
		listBackups(index)
	case "keystore":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run tools/db_browser.go <db_path> keystore <address>")
			return
		}
		showKeystore(index, os.Args[3])
	case "all":
		showAllData(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
	}
}

func formatTime(nanos int64) string {
	return time.Unix(0, nanos).UTC().Format(time.RFC3339)
}

func showMetadata(index *storage.AccountIndex) {
	fmt.Println("=== METADATA ===")

	latest, err := index.LatestBackup()
	if err != nil {
		fmt.Printf("Latest Backup: Not found (%v)\n", err)
	} else {
		fmt.Printf("Latest Backup: %s (%s, %s)\n", latest.FileName, latest.Algorithm, formatTime(latest.CreatedAt))
	}

	count, err := index.AccountCount()
	if err != nil {
		fmt.Printf("Account Count: Not found (%v)\n", err)
	} else {
		fmt.Printf("Account Count: %d\n", count)
	}

	fmt.Println()
}

func listKeystores(index *storage.AccountIndex) {
	fmt.Println("=== KEYSTORES ===")

	records, err := index.ListKeystores()
	if err != nil {
		fmt.Printf("Failed to list keystores: %v\n", err)
		return
	}
	for _, rec := range records {
		fmt.Printf("0x%s: %s\n", rec.Address, rec.FileName)
	}
	fmt.Printf("Total keystores: %d\n\n", len(records))
}

func listBackups(index *storage.AccountIndex) {
	fmt.Println("=== BACKUPS ===")

	backups, err := index.ListBackups()
	if err != nil {
		fmt.Printf("Failed to list backups: %v\n", err)
		return
	}
	for _, b := range backups {
		fmt.Printf("%s  %-9s accounts=%d  %s\n", b.FileName, b.Algorithm, b.NumAccounts, formatTime(b.CreatedAt))
	}
	fmt.Printf("Total backups: %d\n\n", len(backups))
}

func showKeystore(index *storage.AccountIndex, addrStr string) {
	fmt.Printf("=== KEYSTORE %s ===\n", addrStr)

	addr, err := utils.StringToAddress(addrStr)
	if err != nil {
		fmt.Printf("Invalid address: %v\n", err)
		return
	}

	rec, err := index.GetKeystore(addr)
	if err != nil {
		fmt.Printf("Keystore not found: %v\n", err)
		return
	}

	fmt.Printf("File: %s\n", rec.FileName)
	fmt.Printf("Created: %s\n", formatTime(rec.CreatedAt))
	fmt.Println()
}

func showAllData(db *leveldb.DB) {
	fmt.Println("=== ALL DATABASE DATA ===")

	iter := db.NewIterator(util.BytesPrefix(nil), nil)
	defer iter.Release()

	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		value := iter.Value()

		fmt.Printf("[%d] Key: %s\n", count, key)
		fmt.Printf("     Value Size: %d bytes\n", len(value))
		switch {
		case key == prt.PrefixMetaAccountCount:
			fmt.Printf("     Value: %d\n", utils.BytesToUint64(value))
		case len(value) <= 200:
			fmt.Printf("     Value: %s\n", string(value))
		default:
			fmt.Printf("     Value (hex): %s...\n", hex.EncodeToString(value[:50]))
		}
		fmt.Println()

		count++
		if count >= 50 { // Show max 50 entries
			fmt.Printf("... (showing first 50 entries)\n")
			break
		}
	}

	fmt.Printf("Total entries: %d\n", count)
}
