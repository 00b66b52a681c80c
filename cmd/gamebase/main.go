package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/JohnDeved/gamebase-cli/internal/cache"
	"github.com/JohnDeved/gamebase-cli/internal/catalog"
	"github.com/JohnDeved/gamebase-cli/internal/client"
	"github.com/JohnDeved/gamebase-cli/internal/config"
	"github.com/JohnDeved/gamebase-cli/internal/dbsync"
	"github.com/JohnDeved/gamebase-cli/internal/install"
	"github.com/JohnDeved/gamebase-cli/internal/media"
	"github.com/JohnDeved/gamebase-cli/internal/session"
	"github.com/JohnDeved/gamebase-cli/internal/settings"
	"github.com/JohnDeved/gamebase-cli/internal/tui"
	"github.com/JohnDeved/gamebase-cli/internal/util"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gamebase",
		Short: "A TUI browser and installer for the GameBase64 catalog",
		Long: `GameBase - Search the GameBase64 catalog of Commodore 64 games, install
them into a local content directory and pick one to start, directly in your terminal.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
		RunE:              runBrowse,
	}
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Launch the TUI browser",
		Args:  cobra.NoArgs,
		RunE:  runBrowse,
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Download the catalog if a newer one is available",
		Args:  cobra.NoArgs,
		RunE:  runUpdate,
	}
	updateCmd.Flags().Bool("force", false, "Download even when the local catalog is current")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search game names in the catalog",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().Int("filter", 0, "Filter flags: 1 popular, 2 installed, 3 both")
	searchCmd.Flags().Bool("glob", false, "Treat the query as a glob pattern over full names")
	searchCmd.Flags().Int("limit", 50, "Maximum number of results (0 = unlimited)")
	searchCmd.Flags().Bool("json", false, "Output JSON")

	installCmd := &cobra.Command{
		Use:   "install <row>",
		Short: "Download and extract a game",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstall,
	}

	uninstallCmd := &cobra.Command{
		Use:   "uninstall <row>",
		Short: "Remove an installed game",
		Args:  cobra.ExactArgs(1),
		RunE:  runUninstall,
	}

	listInstalledCmd := &cobra.Command{
		Use:   "list-installed",
		Short: "List installed games",
		Args:  cobra.NoArgs,
		RunE:  runListInstalled,
	}
	listInstalledCmd.Flags().Bool("json", false, "Output JSON")

	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Show attached disk and tape images",
		Args:  cobra.NoArgs,
		RunE:  runMedia,
	}
	mediaCmd.Flags().Bool("json", false, "Output JSON")
	mediaCmd.AddCommand(&cobra.Command{
		Use:   "detach",
		Short: "Detach all disk and tape images",
		Args:  cobra.NoArgs,
		RunE:  runMediaDetach,
	})

	rootCmd.AddCommand(browseCmd, updateCmd, searchCmd, installCmd, uninstallCmd, listInstalledCmd, mediaCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	return nil
}

// logToFile sends log output to the log file while the TUI owns the
// terminal. The returned func closes the file.
func logToFile() (func(), error) {
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(config.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	prev := log.Logger
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return func() {
		log.Logger = prev
		f.Close()
	}, nil
}

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	db       *settings.DB
	client   *client.Client
	syncer   *dbsync.Syncer
	store    *catalog.Store
	registry *media.Registry
	pipeline *install.Pipeline
}

// openApp loads config and settings. With withCatalog set it also makes
// sure a catalog is present, loads it and scans the content directory.
func openApp(ctx context.Context, withCatalog bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := settings.Open(config.SettingsPath())
	if err != nil {
		return nil, fmt.Errorf("opening settings: %w", err)
	}

	a := &app{
		cfg:      cfg,
		db:       db,
		client:   client.New(cfg.RequestsPerSecond),
		registry: media.New(db),
	}
	a.syncer = dbsync.New(a.client, db, cfg.CatalogURL, cfg.CatalogPath())
	if !withCatalog {
		return a, nil
	}

	if !a.syncer.Exists() {
		fmt.Fprintf(os.Stderr, "Downloading catalog from %s\n", cfg.CatalogURL)
		if _, err := a.syncer.Ensure(ctx, false, printProgress("catalog")); err != nil {
			a.Close()
			return nil, fmt.Errorf("downloading catalog: %w", err)
		}
		fmt.Fprintln(os.Stderr)
	}

	a.store, err = catalog.Load(cfg.CatalogPath(), cfg.CatalogEncoding)
	if err != nil {
		a.Close()
		return nil, err
	}
	log.Debug().Int("records", a.store.Count()).Msg("catalog loaded")

	a.pipeline = install.New(a.store, a.client, cfg.ContentDir, os.TempDir(), cfg.ArchiveURL, a.registry)
	a.pipeline.SetJournal(db)
	if err := a.pipeline.Scan(); err != nil {
		a.Close()
		return nil, fmt.Errorf("scanning %s: %w", cfg.ContentDir, err)
	}
	return a, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("closing settings")
	}
}

func (a *app) parseRow(arg string) (int, error) {
	row, err := strconv.Atoi(arg)
	if err != nil || row < 0 || row >= a.store.Count() {
		return 0, fmt.Errorf("invalid row %q: expected 0..%d", arg, a.store.Count()-1)
	}
	return row, nil
}

func printProgress(name string) client.ProgressFunc {
	var last time.Time
	return func(done, total int64) {
		if time.Since(last) < 250*time.Millisecond && done != total {
			return
		}
		last = time.Now()
		if total > 0 {
			fmt.Fprintf(os.Stderr, "\r  %s: %.1f%% (%s / %s)    ", name,
				float64(done)/float64(total)*100, util.FormatBytes(done), util.FormatBytes(total))
			return
		}
		fmt.Fprintf(os.Stderr, "\r  %s: %s    ", name, util.FormatBytes(done))
	}
}

func runBrowse(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var notice string
	checkCtx, checkCancel := context.WithTimeout(ctx, 10*time.Second)
	st, err := a.syncer.Check(checkCtx)
	checkCancel()
	if err != nil {
		log.Warn().Err(err).Msg("could not check for a catalog update")
	} else if st.UpdateAvailable {
		notice = "A newer catalog is available.\nRun 'gamebase update' to download it."
	}

	if !isInteractiveTerminal() {
		return errors.New("browse needs an interactive terminal; try 'gamebase search'")
	}

	restore, err := logToFile()
	if err != nil {
		log.Warn().Err(err).Msg("could not open log file")
	} else {
		defer restore()
	}

	shots := cache.New(a.client, a.cfg.CacheDir, a.cfg.ScreenshotURL, a.cfg.MaxConcurrentFetches)

	watcher, err := install.NewWatcher(a.cfg.ContentDir)
	if err != nil {
		log.Warn().Err(err).Msg("content directory changes will not be noticed")
	} else {
		defer watcher.Close()
	}

	sess := session.New(session.Deps{
		Store:    a.store,
		Cache:    shots,
		Pipeline: a.pipeline,
		Settings: a.db,
	}, 10)

	defer func() {
		for _, e := range shots.Entries() {
			if e.Status == cache.StatusFailed {
				log.Debug().Err(e.Err).Str("url", e.URL).Msg("screenshot fetch failed")
			}
		}
	}()

	launch, err := tui.Run(tui.Options{
		Session:  sess,
		Pipeline: a.pipeline,
		Cache:    shots,
		Watcher:  watcher,
		Notice:   notice,
	})
	if err != nil {
		return err
	}
	if launch == nil {
		return nil
	}

	if err := a.registry.Autostart(*launch); err != nil {
		return fmt.Errorf("recording launch: %w", err)
	}
	fmt.Println(launch.Path)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if !force {
		st, err := a.syncer.Check(ctx)
		if err != nil {
			return fmt.Errorf("checking catalog: %w", err)
		}
		if !st.UpdateAvailable {
			fmt.Printf("Catalog is up to date (%s)\n", st.Local.Format(time.RFC1123))
			return nil
		}
	}

	if err := a.syncer.Download(ctx, printProgress("catalog")); err != nil {
		return fmt.Errorf("downloading catalog: %w", err)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Printf("Catalog updated: %s\n", a.syncer.Path())
	return nil
}

type gameOut struct {
	Row       int    `json:"row"`
	Name      string `json:"name"`
	Publisher string `json:"publisher,omitempty"`
	Year      string `json:"year,omitempty"`
	Genre     string `json:"genre,omitempty"`
	Popular   bool   `json:"popular"`
	Installed bool   `json:"installed"`
	Dir       string `json:"dir,omitempty"`
}

func (a *app) game(row int) gameOut {
	rec := a.store.Record(row)
	g := gameOut{
		Row:       row,
		Name:      rec.Name(),
		Publisher: rec.Publisher(),
		Year:      rec.Year(),
		Genre:     rec.Genre(),
		Popular:   rec.Popular(),
		Installed: a.pipeline.IsInstalled(row),
	}
	if g.Installed {
		g.Dir = a.pipeline.Dir(row)
	}
	return g
}

func printGames(games []gameOut, jsonMode bool) error {
	if jsonMode {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(games)
	}
	for _, g := range games {
		mark := " "
		if g.Installed {
			mark = "*"
		}
		fmt.Printf("%s %6d\t%-40s\t%-24s\t%s\n", mark, g.Row, g.Name, g.Publisher, g.Year)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	filter, _ := cmd.Flags().GetInt("filter")
	globMode, _ := cmd.Flags().GetBool("glob")
	limit, _ := cmd.Flags().GetInt("limit")
	jsonMode, _ := cmd.Flags().GetBool("json")

	if filter < 0 || filter > int(catalog.FilterPopular|catalog.FilterInstalled) {
		return fmt.Errorf("invalid filter %d", filter)
	}

	a, err := openApp(context.Background(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	var rows []int
	if globMode {
		rows, err = catalog.SearchGlob(a.store, args[0])
		if err != nil {
			return err
		}
	} else {
		rows = catalog.Search(a.store, args[0], catalog.Filter(filter), a.pipeline.IsInstalled)
	}

	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	games := make([]gameOut, 0, len(rows))
	for _, row := range rows {
		games = append(games, a.game(row))
	}
	if len(games) == 0 && !jsonMode {
		fmt.Fprintln(os.Stderr, "No games found.")
		return nil
	}
	return printGames(games, jsonMode)
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	row, err := a.parseRow(args[0])
	if err != nil {
		return err
	}
	name := a.store.Record(row).Name()
	fmt.Fprintf(os.Stderr, "Installing: %s\n", name)
	fmt.Fprintf(os.Stderr, "To: %s\n", a.pipeline.Dir(row))

	bar := printProgress(name)
	err = a.pipeline.Install(ctx, row, func(p install.Progress) {
		switch p.State {
		case install.Downloading:
			bar(p.Done, p.Total)
		case install.Extracting:
			fmt.Fprintf(os.Stderr, "\r  Extracting...                              ")
		}
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("installing %s: %w", name, err)
	}
	fmt.Println(a.pipeline.LaunchPath(row))
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	a, err := openApp(context.Background(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	row, err := a.parseRow(args[0])
	if err != nil {
		return err
	}
	name := a.store.Record(row).Name()
	if !a.pipeline.IsInstalled(row) {
		fmt.Fprintf(os.Stderr, "%s is not installed\n", name)
		return nil
	}
	if err := a.pipeline.Uninstall(row); err != nil {
		return fmt.Errorf("uninstalling %s: %w", name, err)
	}
	fmt.Fprintf(os.Stderr, "Uninstalled: %s\n", name)
	return nil
}

func runListInstalled(cmd *cobra.Command, args []string) error {
	jsonMode, _ := cmd.Flags().GetBool("json")

	a, err := openApp(context.Background(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	rows := a.pipeline.Installed()
	games := make([]gameOut, 0, len(rows))
	for _, row := range rows {
		games = append(games, a.game(row))
	}

	if !jsonMode {
		fmt.Printf("Content directory: %s\n", a.pipeline.ContentRoot())
		// Installs done by this tool carry a timestamp; hand-copied ones do not.
		journal, err := a.db.Installs()
		if err != nil {
			log.Warn().Err(err).Msg("reading install journal")
		}
		when := make(map[int]time.Time, len(journal))
		for _, j := range journal {
			when[j.Row] = j.InstalledAt
		}
		for _, g := range games {
			at := ""
			if t, ok := when[g.Row]; ok {
				at = t.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%6d\t%-40s\t%-16s\t%s\n", g.Row, g.Name, at, util.TruncatePath(g.Dir, 60))
		}
		return nil
	}
	return printGames(games, true)
}

func runMedia(cmd *cobra.Command, args []string) error {
	jsonMode, _ := cmd.Flags().GetBool("json")

	a, err := openApp(context.Background(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	attached, err := a.registry.Attached()
	if err != nil {
		return err
	}
	last, ok, err := a.registry.LastLaunch()
	if err != nil {
		return err
	}

	if jsonMode {
		out := struct {
			Attached []media.Attachment `json:"attached"`
			Launch   *media.Launch      `json:"launch,omitempty"`
		}{Attached: attached}
		if ok {
			out.Launch = &last
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(attached) == 0 {
		fmt.Println("No media attached.")
	}
	for _, m := range attached {
		if m.Kind == media.KindTape {
			fmt.Printf("tape\t%s\n", m.Path)
			continue
		}
		fmt.Printf("disk %d\t%s\n", m.Unit, m.Path)
	}
	if ok {
		drive := "off"
		if last.TrueDrive {
			drive = "on"
		}
		fmt.Printf("\nLast started: %s (%s, true drive %s)\n  %s\n", last.Name, last.Model(), drive, last.Path)
	}
	return nil
}

func runMediaDetach(cmd *cobra.Command, args []string) error {
	a, err := openApp(context.Background(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.registry.DetachAll(); err != nil {
		return err
	}
	fmt.Println("All media detached.")
	return nil
}

func isInteractiveTerminal() bool {
	inInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	outInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (inInfo.Mode()&os.ModeCharDevice) != 0 && (outInfo.Mode()&os.ModeCharDevice) != 0
}
