package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"

	"github.com/handiism/beat-sharer/internal/config"
	"github.com/handiism/beat-sharer/internal/download"
	"github.com/handiism/beat-sharer/internal/share"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func main() {
	app := cli.App{
		Name:  "beatsharer",
		Usage: "share Beat Saber custom levels with a short key",
		Description: "upload publishes the codes of your installed levels under a key; " +
			"download fetches every level listed under a key. " +
			"For interactive mode, use: beatsharer-tui",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a JSON or YAML settings file",
				Value: config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:  "levels",
				Usage: "CustomLevels folder (overrides config)",
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "maximum concurrent downloads (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "playlist",
				Usage: "write a playlist of the downloaded levels",
			},
			&cli.BoolFlag{
				Name:  "no-skip",
				Usage: "download levels even if they are already installed",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "show verbose output",
			},
		},
		Commands: []*cli.Command{{
			Name:   "upload",
			Usage:  "share the installed levels and print their key",
			Action: withService(upload),
		}, {
			Name:      "download",
			Usage:     "download every level listed under a key",
			ArgsUsage: "<key>",
			Action:    withService(downloadKey),
		}, {
			Name:      "fetch",
			Usage:     "download levels by code",
			ArgsUsage: "<code>...",
			Action:    withService(fetch),
		}, {
			Name:   "codes",
			Usage:  "list the codes of the installed levels",
			Action: withService(codes),
		}, {
			Name:  "config",
			Usage: "inspect or create the settings file",
			Subcommands: []*cli.Command{{
				Name:   "show",
				Usage:  "print the effective settings",
				Action: showConfig,
			}, {
				Name:   "init",
				Usage:  "write the effective settings to the settings file",
				Action: initConfig,
			}},
		}},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings reads the settings file and applies the global flags.
func loadSettings(c *cli.Context) (*config.Settings, error) {
	settings, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if levels := c.String("levels"); levels != "" {
		settings.CustomLevelsPath = levels
	}
	if c.IsSet("parallel") {
		settings.MaxConcurrentDownloads = c.Int("parallel")
	}
	if c.Bool("playlist") {
		settings.CreatePlaylist = true
	}
	if c.Bool("no-skip") {
		settings.SkipExisting = false
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

func withService(action func(*cli.Context, *share.Service) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		settings, err := loadSettings(c)
		if err != nil {
			return err
		}
		return action(c, share.NewService(settings, printer(c.Bool("verbose"))))
	}
}

// printer returns a progress callback writing events to stdout.
func printer(verbose bool) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !verbose {
			return
		}

		var prefix string
		switch event.Level {
		case download.LevelError:
			prefix = "✗ "
		case download.LevelWarning:
			prefix = "! "
		case download.LevelSuccess:
			prefix = "✓ "
		case download.LevelInfo:
			prefix = "› "
		default:
			prefix = "  "
		}

		fmt.Println(prefix + event.Message)
	}
}

func upload(c *cli.Context, s *share.Service) error {
	key, codes, err := s.Upload(c.Context)
	if err != nil {
		return err
	}

	fmt.Println(rule)
	fmt.Printf("✨ Shared %d level(s). Your key is %d\n", len(codes), key)
	return nil
}

func downloadKey(c *cli.Context, s *share.Service) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: beatsharer download <key>", 2)
	}
	key, err := strconv.ParseUint(c.Args().First(), 10, 8)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid key %q: must be a number from 0 to 255", c.Args().First()), 2)
	}

	batch, err := s.Download(c.Context, uint8(key))
	if err != nil {
		return err
	}
	return finish(c.Context, s, batch)
}

func fetch(c *cli.Context, s *share.Service) error {
	if c.NArg() == 0 {
		return cli.Exit("usage: beatsharer fetch <code>...", 2)
	}

	var ids []string
	for _, arg := range c.Args().Slice() {
		for _, id := range strings.Split(arg, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	batch, err := s.Fetch(c.Context, ids)
	if err != nil {
		return err
	}
	return finish(c.Context, s, batch)
}

// finish waits for a batch, writes its playlist and prints a summary.
func finish(ctx context.Context, s *share.Service, batch *share.Batch) error {
	<-batch.Done()

	if err := batch.Err(); err != nil {
		if ctx.Err() != nil {
			return cli.Exit("download cancelled", 130)
		}
		return err
	}
	if _, err := s.WritePlaylist(batch); err != nil {
		return err
	}

	failures := batch.Failures()
	fmt.Println()
	fmt.Println(rule)
	fmt.Printf("✨ Complete! Downloaded %d/%d level(s) (%.2f MB)\n",
		batch.Completed(), batch.Total(), float64(batch.Received())/1024/1024)
	if n := len(batch.Skipped); n > 0 {
		fmt.Printf("   %d already installed\n", n)
	}
	for _, f := range failures {
		fmt.Printf("   ✗ %s: %s: %v\n", f.ID, f.Kind(), f.Err)
	}

	if len(failures) > 0 {
		return cli.Exit(fmt.Sprintf("%d level(s) failed", len(failures)), 1)
	}
	return nil
}

func codes(c *cli.Context, s *share.Service) error {
	codes, err := s.LocalCodes()
	if err != nil {
		return err
	}
	for _, code := range codes {
		fmt.Println(code)
	}
	return nil
}

func showConfig(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", c.String("config"), data)
	return nil
}

func initConfig(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	path := c.String("config")
	if err := settings.Save(path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Println("Settings written to " + path)
	return nil
}
