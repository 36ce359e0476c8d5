// emberdb-cli is a thin command-line front end over an emberdb Engine. It
// speaks a line-oriented argv protocol of its own (get/put/delete/merge/
// stat/keys/backup/snapshot), not RESP or any other wire protocol.
//
// Usage:
//
//	emberdb-cli [flags] <command> [args...]
//
// Flags:
//
//	-data string          Data directory (default "data")
//	-index string         Index backend: btree, skiplist, bptree (default "btree")
//	-loglevel string      Log level: debug, info, warn, error (default "info")
//	-sync                 Fsync every write (default false)
//	-snapshot-dir string  Root directory for named snapshots (default "<data>-snapshots")
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/emberdb/emberdb"
	"github.com/emberdb/emberdb/internal/config"
	"github.com/emberdb/emberdb/internal/logging"
	"github.com/emberdb/emberdb/internal/snapshot"
	"github.com/emberdb/emberdb/internal/version"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	dataDir := flag.String("data", envOrDefault("EMBERDB_DATA", "data"), "Data directory")
	indexName := flag.String("index", envOrDefault("EMBERDB_INDEX", "btree"), "Index backend: btree, skiplist, bptree")
	logLevel := flag.String("loglevel", envOrDefault("EMBERDB_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	syncWrites := flag.Bool("sync", os.Getenv("EMBERDB_SYNC") == "true", "Fsync every write")
	snapshotDir := flag.String("snapshot-dir", envOrDefault("EMBERDB_SNAPSHOT_DIR", ""), "Root directory for named snapshots (default \"<data>-snapshots\")")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("emberdb-cli v%s (built %s)\n", version.Version, version.BuildTime)
		return
	}

	logger := logging.New(*logLevel)

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: emberdb-cli [flags] <get|put|delete|has|keys|stat|merge|backup|snapshot> [args...]")
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = *dataDir
	cfg.IndexType = *indexName
	cfg.SyncWrites = *syncWrites

	opts := cfg.EngineOptions()
	opts.Logger = logger

	db, err := emberdb.Open(opts)
	if err != nil {
		logger.Error("failed to open database", "err", err, "dir", *dataDir)
		os.Exit(1)
	}
	defer db.Close()

	if *snapshotDir == "" {
		*snapshotDir = *dataDir + "-snapshots"
	}
	snapshots, err := snapshot.NewManager(*snapshotDir)
	if err != nil {
		logger.Error("failed to open snapshot manager", "err", err, "dir", *snapshotDir)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		os.Exit(130)
	}()

	if err := run(db, snapshots, logger, args[0], args[1:]); err != nil {
		logger.Error("command failed", "command", args[0], "err", err)
		os.Exit(1)
	}
}

func run(db *emberdb.Engine, snapshots *snapshot.Manager, logger *slog.Logger, cmd string, args []string) error {
	switch cmd {
	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get <key>")
		}
		value, err := db.Get([]byte(args[0]))
		if err != nil {
			return err
		}
		fmt.Println(string(value))
		return nil

	case "put":
		if len(args) != 2 {
			return fmt.Errorf("usage: put <key> <value>")
		}
		return db.Put([]byte(args[0]), []byte(args[1]))

	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("usage: delete <key>")
		}
		return db.Delete([]byte(args[0]))

	case "has":
		if len(args) != 1 {
			return fmt.Errorf("usage: has <key>")
		}
		fmt.Println(db.Has([]byte(args[0])))
		return nil

	case "keys":
		for _, key := range db.ListKeys() {
			fmt.Println(string(key))
		}
		return nil

	case "stat":
		stat, err := db.Stat()
		if err != nil {
			return err
		}
		fmt.Printf("keys=%d data_files=%d reclaimable_bytes=%d disk_bytes=%d\n",
			stat.KeyNum, stat.DataFileNum, stat.ReclaimableSize, stat.DiskSize)
		return nil

	case "merge":
		logger.Info("starting merge")
		return db.Merge()

	case "backup":
		if len(args) != 1 {
			return fmt.Errorf("usage: backup <dest-dir>")
		}
		return db.Backup(args[0])

	case "snapshot":
		if len(args) == 0 {
			return fmt.Errorf("usage: snapshot <create|list|delete> [id]")
		}
		return runSnapshot(db, snapshots, args[0], args[1:])

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runSnapshot(db *emberdb.Engine, snapshots *snapshot.Manager, sub string, args []string) error {
	switch sub {
	case "create":
		var id string
		if len(args) == 1 {
			id = args[0]
		} else if len(args) != 0 {
			return fmt.Errorf("usage: snapshot create [id]")
		}
		meta, err := snapshots.Create(id, db)
		if err != nil {
			return err
		}
		fmt.Printf("created snapshot %s (%d bytes) at %s\n", meta.ID, meta.SizeBytes, meta.Dir)
		return nil

	case "list":
		metas, err := snapshots.List()
		if err != nil {
			return err
		}
		for _, meta := range metas {
			fmt.Printf("%s\t%s\t%d bytes\t%s\n", meta.ID, meta.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), meta.SizeBytes, meta.Dir)
		}
		return nil

	case "delete":
		if len(args) != 1 {
			return fmt.Errorf("usage: snapshot delete <id>")
		}
		return snapshots.Delete(args[0])

	default:
		return fmt.Errorf("unknown snapshot subcommand %q", sub)
	}
}
