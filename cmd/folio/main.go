package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/eringen/folio"
	"github.com/eringen/folio/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe()
	case "export":
		err = runExport(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	case "version":
		fmt.Printf("folio %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`folio - flat-file blog engine built with Go and Echo

Usage:
  folio <command> [arguments]

Commands:
  serve                   Start the web server
  export [-o file] [-s3]  Write a backup file and optionally push it to S3
  restore -yes <file>     Replace every post with the posts in a backup
  version                 Print the folio version
  help                    Show this help message

Configuration is read from the environment (SITE_URL, DATA_PATH,
STORE_DRIVER, ADMIN_PASSWORD, SESSION_SECRET, BACKUP_S3_BUCKET, ...).`)
}

func runServe() error {
	cfg, err := folio.LoadConfig()
	if err != nil {
		return err
	}
	app := folio.New(cfg, views.Default(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		app.Close()
		return err
	case <-ctx.Done():
	}
	app.Log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

// openRepo opens the configured store without the web layer.
func openRepo(cfg folio.SiteConfig) (*folio.Repository, folio.Store, error) {
	store, err := folio.OpenStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	log := folio.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return folio.NewRepository(store, folio.WithRepositoryLogger(log)), store, nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "", `output file, "-" for stdout (default blog-backup-<date>.json)`)
	toS3 := fs.Bool("s3", false, "also upload the backup to BACKUP_S3_BUCKET")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := folio.LoadConfig()
	if err != nil {
		return err
	}
	if *toS3 && cfg.BackupBucket == "" {
		return fmt.Errorf("BACKUP_S3_BUCKET is not set")
	}
	repo, store, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	name := *out
	if name == "" {
		name = folio.BackupFileName(now)
	}
	var w io.Writer = os.Stdout
	if name != "-" {
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	n, err := repo.WriteBackup(ctx, w)
	if err != nil {
		return err
	}
	if name != "-" {
		fmt.Fprintf(os.Stderr, "exported %d posts to %s\n", n, name)
	}

	if !*toS3 {
		return nil
	}
	up, err := folio.NewS3Uploader(ctx, cfg.BackupRegion, cfg.BackupBucket, cfg.BackupEndpoint, cfg.BackupPrefix)
	if err != nil {
		return err
	}
	key, n, err := folio.PushBackup(ctx, repo, up, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "uploaded %d posts to s3://%s/%s\n", n, cfg.BackupBucket, path.Join(cfg.BackupPrefix, key))
	return nil
}

func runRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm replacing every existing post")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: folio restore -yes <file>")
	}
	if !*yes {
		return fmt.Errorf("restore replaces every post; pass -yes to confirm")
	}

	doc, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	cfg, err := folio.LoadConfig()
	if err != nil {
		return err
	}
	repo, store, err := openRepo(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := repo.Restore(context.Background(), doc)
	if err != nil {
		return fmt.Errorf("%s: %w", res.Message, err)
	}
	fmt.Fprintln(os.Stderr, res.Message)
	return nil
}
