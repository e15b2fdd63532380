package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/engine"
	"github.com/loglens/loglens/internal/format"
	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/report"
	"github.com/loglens/loglens/internal/server"
	"github.com/loglens/loglens/internal/storage"
)

func main() {
	pflag.String("listen", ":8077", "HTTP listen address")
	pflag.String("config", "", "Path to a config file")
	pflag.String("format", "", "Path to a log format profile (TOML or YAML)")
	pflag.String("snapshot", "", "Write a snapshot of the parsed table to this path on exit")
	pflag.String("auth-password", "", "Require this password for API access")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if pflag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: loglens [flags] <logfile | logfile.gz | snapshot.lens | report.zip>")
		pflag.PrintDefaults()
		os.Exit(2)
	}
	path := pflag.Arg(0)

	if strings.HasSuffix(path, ".zip") {
		if err := listReport(path); err != nil {
			log.Fatalf("System report error: %v", err)
		}
		return
	}

	table, err := loadTable(path, cfg)
	if err != nil {
		log.Fatalf("Load error: %v", err)
	}
	log.Printf("Table ready: %d rows, %d columns", table.Len(), len(table.Columns()))

	var passwordHash string
	if cfg.AuthPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AuthPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Password hash error: %v", err)
		}
		passwordHash = string(hash)
	}

	srv := server.NewViewerServer(table, passwordHash)
	go func() {
		log.Printf("Listening on %s", cfg.Listen)
		if err := srv.Start(cfg.Listen); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal: %v. Shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if cfg.Snapshot != "" {
		log.Printf("Writing snapshot to %s...", cfg.Snapshot)
		writer, err := storage.NewSnapshotWriter()
		if err != nil {
			log.Fatalf("Snapshot writer error: %v", err)
		}
		rows := table.Rows(0, -1, nil, nil)
		if err := writer.WriteSnapshot(cfg.Snapshot, table.Columns(), rows); err != nil {
			log.Fatalf("Snapshot write failed: %v", err)
		}
	}

	log.Println("LogLens exited gracefully.")
}

// loadTable builds the in-memory table from either a snapshot or a
// plain (optionally gzipped) log file.
func loadTable(path string, cfg config.Config) (*engine.Table, error) {
	if strings.HasSuffix(path, storage.SnapshotExt) {
		reader, err := storage.NewSnapshotReader()
		if err != nil {
			return nil, err
		}
		columns, rows, err := reader.ReadSnapshot(path)
		if err != nil {
			return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
		}
		table := engine.NewTable(columns)
		table.Append(rows...)
		return table, nil
	}

	profile := config.DefaultProfile()
	if cfg.Format != "" {
		loaded, err := config.LoadProfile(cfg.Format)
		if err != nil {
			return nil, err
		}
		log.Printf("Using format profile %q", loaded.Title)
		profile = loaded
	}
	return parseInto(path, profile, cfg.BatchSize)
}

func parseInto(path string, profile config.Profile, batchSize int) (*engine.Table, error) {
	instructions, err := profile.Instructions()
	if err != nil {
		return nil, fmt.Errorf("compiling format profile: %w", err)
	}
	parser := format.New(instructions)
	table := engine.NewTable(parser.Columns())

	out := make(chan []format.Row, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- ingest.Produce(path, parser, batchSize, out)
	}()
	for batch := range out {
		table.Append(batch...)
	}
	if err := <-errc; err != nil {
		return nil, err
	}
	return table, nil
}

// listReport prints the log inventory of a system report zip.
func listReport(path string) error {
	r, err := report.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	fmt.Printf("System report %s\n\n", path)
	fmt.Printf("Server logs (%d):\n", len(r.ServerLogs))
	for _, e := range r.ServerLogs {
		fmt.Printf("  %s  %10d  %s\n", e.Modified.Format("2006-01-02 15:04:05"), e.Size, e.Name)
	}
	fmt.Printf("\nClient logs (%d):\n", len(r.ClientLogs))
	for _, e := range r.ClientLogs {
		fmt.Printf("  %s  %10d  %s\n", e.Modified.Format("2006-01-02 15:04:05"), e.Size, e.Name)
	}
	return nil
}
