package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/OCAP2/trail/internal/config"
	"github.com/OCAP2/trail/internal/prefs"
	sqlitestorage "github.com/OCAP2/trail/internal/storage/sqlite"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `trailctl - trail settings panel

Usage: trailctl [-config dir] [-prefs file] <command> [args]

Commands:
  show                 Show the current color and whether trails are on (default)
  color <#RRGGBB>      Set the trail color
  enable               Draw trails for dragged tokens
  disable              Stop drawing new trails
  presets              List the preset colors
  history [token]      List recent trails from the SQLite archive
`)
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trailctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	prefsPath := fs.String("prefs", "", "preferences file (overrides config)")
	limit := fs.Int("limit", 20, "number of trails shown by history")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(stderr, "trailctl: %v\n", err)
		return 1
	}
	if *prefsPath == "" {
		*prefsPath = config.GetPrefsConfig().Path
	}

	cmd, rest := "show", fs.Args()
	if len(rest) > 0 {
		cmd, rest = strings.ToLower(rest[0]), rest[1:]
	}

	var err error
	switch cmd {
	case "show":
		err = handleShow(stdout, *prefsPath)
	case "color":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: trailctl color <#RRGGBB>")
			return 2
		}
		err = handleColor(stdout, *prefsPath, rest[0])
	case "enable":
		err = handleEnabled(stdout, *prefsPath, true)
	case "disable":
		err = handleEnabled(stdout, *prefsPath, false)
	case "presets":
		handlePresets(stdout)
	case "history":
		token := ""
		if len(rest) > 0 {
			token = rest[0]
		}
		err = handleHistory(stdout, config.GetStorageConfig().Sqlite.Path, token, *limit)
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		printUsage(stderr)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "trailctl: %v\n", err)
		return 1
	}
	return 0
}

func handleShow(w io.Writer, path string) error {
	store, err := prefs.Open(path, discardLogger())
	if err != nil {
		return err
	}
	renderPrefs(w, store.Path(), store.Snapshot())
	return nil
}

func handleColor(w io.Writer, path, color string) error {
	store, err := prefs.Open(path, discardLogger())
	if err != nil {
		return err
	}
	if err := store.SetColor(color); err != nil {
		if errors.Is(err, prefs.ErrInvalidColor) {
			return fmt.Errorf("%w (try one of: %s)", err, strings.Join(prefs.Presets(), " "))
		}
		return err
	}
	renderPrefs(w, store.Path(), store.Snapshot())
	return nil
}

func handleEnabled(w io.Writer, path string, enabled bool) error {
	store, err := prefs.Open(path, discardLogger())
	if err != nil {
		return err
	}
	if err := store.SetEnabled(enabled); err != nil {
		return err
	}
	renderPrefs(w, store.Path(), store.Snapshot())
	return nil
}

func handlePresets(w io.Writer) {
	renderPresets(w, prefs.Presets())
}

func handleHistory(w io.Writer, dbPath, token string, limit int) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no trail archive at %s: %w", dbPath, err)
	}
	backend, err := sqlitestorage.New(sqlitestorage.Config{Path: dbPath}, zerolog.Nop())
	if err != nil {
		return err
	}
	defer backend.Close()
	if err := backend.Init(); err != nil {
		return err
	}

	trails, err := backend.RecentTrails(token, limit)
	if err != nil {
		return err
	}
	renderHistory(w, trails)
	return nil
}
