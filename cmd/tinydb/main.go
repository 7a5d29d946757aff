package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/robfig/cron/v3"

	"github.com/tuannm99/tinydb"
	"github.com/tuannm99/tinydb/internal"
	"github.com/tuannm99/tinydb/internal/record"
	"github.com/tuannm99/tinydb/internal/sql/executor"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfgPath := ""
	var positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-config" && i+1 < len(args) {
			cfgPath = args[i+1]
			i++
			continue
		}
		positional = append(positional, args[i])
	}

	cfg := internal.DefaultConfig()
	if cfgPath != "" {
		loaded, err := internal.LoadConfig(cfgPath)
		if err != nil {
			log.Printf("load config: %v", err)
			return 1
		}
		cfg = loaded
	}

	// Database filename is the first positional argument.
	if len(positional) > 0 {
		cfg.Storage.File = positional[0]
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	db, err := tinydb.OpenWithPoolSize(cfg.Storage.File, cfg.Storage.BufferPoolSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	fmt.Printf("tinydb ready on %s. Type .help for help or SQL commands.\n", cfg.Storage.File)

	// Periodic checkpoint so committed work becomes durable without an
	// explicit .checkpoint.
	c := cron.New()
	if iv := cfg.Checkpoint.IntervalSeconds; iv > 0 {
		_, err := c.AddFunc(fmt.Sprintf("@every %ds", iv), func() {
			if err := db.Checkpoint(); err != nil {
				slog.Warn("periodic checkpoint failed", "err", err)
			}
		})
		if err != nil {
			slog.Warn("schedule periodic checkpoint", "err", err)
		}
		c.Start()
		defer c.Stop()
	}

	session := db.NewSession()

	rl, err := readline.New("tinydb> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start prompt: %v\n", err)
		return 1
	}
	defer func() { _ = rl.Close() }()

	for {
		line, err := rl.Readline()
		if err != nil {
			// EOF or interrupt: leave the loop and shut down cleanly.
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				break
			}
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if done := dotCommand(db, line); done {
				break
			}
			continue
		}

		res, err := session.ExecSQL(line)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printRows(res)
		fmt.Println("OK")
	}

	shutdown(db, session)
	return 0
}

// dotCommand handles the shell's dot-commands. Returns true on .exit.
func dotCommand(db *tinydb.DB, line string) bool {
	switch line {
	case ".exit":
		return true
	case ".help":
		printHelp()
	case ".checkpoint":
		fmt.Println("Performing checkpoint...")
		if err := db.Checkpoint(); err != nil {
			fmt.Printf("Checkpoint failed: %v\n", err)
		} else {
			fmt.Println("Checkpoint completed successfully")
		}
	case ".tables":
		listTables(db)
	default:
		fmt.Printf("Unknown command: %s\n", line)
	}
	return false
}

func printRows(res *executor.Result) {
	for _, row := range res.Rows {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			cells = append(cells, v.String())
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}

func printHelp() {
	fmt.Println("tinydb - a simple relational database with MVCC support")
	fmt.Println("Commands:")
	fmt.Println("  CREATE TABLE table_name (col1 type, col2 type PRIMARY KEY, ...);")
	fmt.Println("  DROP TABLE table_name;")
	fmt.Println("  BEGIN;")
	fmt.Println("  INSERT INTO table_name VALUES (val1, val2, ...);")
	fmt.Println("  SELECT * FROM table_name [WHERE col = value];")
	fmt.Println("  DELETE FROM table_name WHERE col = value;")
	fmt.Println("  COMMIT;")
	fmt.Println("  ROLLBACK;")
	fmt.Println("  .help - Show this help")
	fmt.Println("  .checkpoint - Force checkpoint")
	fmt.Println("  .tables - List all tables")
	fmt.Println("  .exit - Exit the database")
	fmt.Println()
	fmt.Println("Supported data types: INT, VARCHAR(size), FLOAT")
}

func listTables(db *tinydb.DB) {
	schemas := db.Tables()
	fmt.Println("Tables in database:")
	if len(schemas) == 0 {
		fmt.Println("  No tables found.")
		return
	}

	for _, s := range schemas {
		cols := make([]string, 0, len(s.Columns))
		for _, c := range s.Columns {
			def := c.Name + " " + typeName(c)
			if c.PrimaryKey {
				def += " PRIMARY KEY"
			}
			cols = append(cols, def)
		}
		fmt.Printf("  %s (%s)\n", s.Name, strings.Join(cols, ", "))
	}
}

func typeName(c record.Column) string {
	switch c.Type {
	case record.TypeVarchar:
		return fmt.Sprintf("VARCHAR(%d)", c.Size)
	default:
		return c.Type.String()
	}
}

// shutdown commits any transaction left open by the session, then takes a
// final checkpoint so everything committed is durable.
func shutdown(db *tinydb.DB, session *executor.Session) {
	if id := session.CurrentTxn(); id != 0 {
		fmt.Println("Auto-committing active transaction...")
		if err := db.Engine().Txns().Commit(id); err != nil {
			slog.Warn("auto-commit failed", "txnID", id, "err", err)
		}
	}

	fmt.Println("Performing final checkpoint...")
	if err := db.Checkpoint(); err != nil {
		fmt.Printf("Checkpoint failed: %v\n", err)
	}
	fmt.Println("Goodbye!")
}
