// CLAUDE:SUMMARY CLI subcommands that register dataset sources in sources.db and import them into the datasets directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hazyhaar/voxsearch/pkg/config"
	"github.com/hazyhaar/voxsearch/pkg/importer"
)

func importUsage() {
	fmt.Fprintf(os.Stderr, `Usage: voxsearch import <command> [flags]

Commands:
  add      Register or update a source (-id, -format, -url, ...)
  set-url  Change the URL of a source
  remove   Delete a source definition
  list     List sources with their last check and import
  run      Import one source (-id) or every source (-all)
  check    Check that every source is reachable

Formats: %s
`, strings.Join(formatIDs(), ", "))
}

func formatIDs() []string {
	var ids []string
	for _, a := range importer.All() {
		ids = append(ids, a.ID())
	}
	return ids
}

func cmdImport(args []string) error {
	if len(args) < 1 {
		importUsage()
		return errors.New("missing import command")
	}

	switch args[0] {
	case "add":
		return cmdImportAdd(args[1:])
	case "set-url":
		return cmdImportSetURL(args[1:])
	case "remove":
		return cmdImportRemove(args[1:])
	case "list":
		return cmdImportList(args[1:])
	case "run":
		return cmdImportRun(args[1:])
	case "check":
		return cmdImportCheck(args[1:])
	}
	importUsage()
	return fmt.Errorf("unknown import command %q", args[0])
}

// importEnv carries what every import subcommand needs.
type importEnv struct {
	cfg *config.Config
	sdb *importer.SourceDB
}

func openImportEnv(cfgPath string) (*importEnv, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	config.NewLogger(cfg.Log, os.Stderr)

	dbPath := cfg.Sources.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.DatasetsDir, "sources.db")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	sdb, err := importer.OpenSourceDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	return &importEnv{cfg: cfg, sdb: sdb}, nil
}

func cmdImportAdd(args []string) error {
	fs := flag.NewFlagSet("import add", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	var src importer.Source
	fs.StringVar(&src.DatasetID, "id", "", "dataset ID (directory name)")
	fs.StringVar(&src.Format, "format", "lines", "source format: "+strings.Join(formatIDs(), ", "))
	fs.StringVar(&src.SourceURL, "url", "", "http(s) URL, file:// URL or local path")
	fs.StringVar(&src.Description, "description", "", "human readable description")
	fs.StringVar(&src.License, "license", "", "data license")
	fs.StringVar(&src.Delimiter, "delimiter", "", "CSV delimiter (default ,)")
	fs.StringVar(&src.Encoding, "encoding", "", "source encoding (default utf-8)")
	fs.BoolVar(&src.HasHeader, "header", true, "CSV has a header row")
	fs.StringVar(&src.TextColumn, "column", "", "CSV column holding the searchable text (default: first)")
	fs.StringVar(&src.Normalize, "normalize", "", "normalization mode: spoken or spoken_fold")
	fs.Parse(args)

	env, err := openImportEnv(*cfgPath)
	if err != nil {
		return err
	}
	defer env.sdb.Close()

	if err := env.sdb.Add(src); err != nil {
		return err
	}
	fmt.Printf("[%s] source registered (%s)\n", src.DatasetID, src.Format)
	return nil
}

func cmdImportSetURL(args []string) error {
	fs := flag.NewFlagSet("import set-url", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	id := fs.String("id", "", "dataset ID")
	url := fs.String("url", "", "new source URL")
	fs.Parse(args)

	if *id == "" || *url == "" {
		return errors.New("-id and -url are required")
	}
	env, err := openImportEnv(*cfgPath)
	if err != nil {
		return err
	}
	defer env.sdb.Close()
	return env.sdb.SetURL(*id, *url)
}

func cmdImportRemove(args []string) error {
	fs := flag.NewFlagSet("import remove", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	id := fs.String("id", "", "dataset ID")
	fs.Parse(args)

	env, err := openImportEnv(*cfgPath)
	if err != nil {
		return err
	}
	defer env.sdb.Close()
	return env.sdb.Remove(*id)
}

func cmdImportList(args []string) error {
	fs := flag.NewFlagSet("import list", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	env, err := openImportEnv(*cfgPath)
	if err != nil {
		return err
	}
	defer env.sdb.Close()

	sources, err := env.sdb.ListSources()
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Println("No sources. Add one with: voxsearch import add -id <id> -url <url>")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATASET\tFORMAT\tSTATUS\tRECORDS\tIMPORTED\tURL")
	for _, src := range sources {
		status, records, imported := "-", "-", "-"
		if src.LastStatus != nil {
			status = fmt.Sprint(*src.LastStatus)
		}
		if src.LastRecords != nil {
			records = fmt.Sprint(*src.LastRecords)
		}
		if src.LastImport != nil {
			imported = time.Unix(*src.LastImport, 0).Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", src.DatasetID, src.Format, status, records, imported, src.SourceURL)
	}
	return tw.Flush()
}

func cmdImportRun(args []string) error {
	fs := flag.NewFlagSet("import run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	id := fs.String("id", "", "dataset ID to import")
	all := fs.Bool("all", false, "import every registered source")
	timeout := fs.Duration("timeout", 2*time.Hour, "overall timeout")
	fs.Parse(args)

	if !*all && *id == "" {
		return errors.New("either -id or -all is required")
	}
	env, err := openImportEnv(*cfgPath)
	if err != nil {
		return err
	}
	defer env.sdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var sources []importer.Source
	if *all {
		if sources, err = env.sdb.ListSources(); err != nil {
			return err
		}
	} else {
		src, err := env.sdb.Get(*id)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	im := importer.New(env.cfg.DatasetsDir, nil)
	var failed int
	for _, src := range sources {
		fmt.Printf("[%s] importing...\n", src.DatasetID)
		res, err := im.Run(ctx, src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] ERROR: %v\n", src.DatasetID, err)
			failed++
			continue
		}
		if err := env.sdb.RecordImport(src.DatasetID, res.Records); err != nil {
			fmt.Fprintf(os.Stderr, "[%s] WARN: %v\n", src.DatasetID, err)
		}
		fmt.Printf("[%s] OK %d records -> %s/\n", src.DatasetID, res.Records, res.Dir)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(sources))
	}
	fmt.Println("Send SIGHUP to a running server to load the new datasets.")
	return nil
}

func cmdImportCheck(args []string) error {
	fs := flag.NewFlagSet("import check", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	env, err := openImportEnv(*cfgPath)
	if err != nil {
		return err
	}
	defer env.sdb.Close()

	importer.NewChecker(env.sdb, nil, env.cfg.Sources.CheckInterval).CheckAll(context.Background())
	return cmdImportList([]string{"-config", *cfgPath})
}
