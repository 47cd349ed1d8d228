// Command autouv batch-unwraps OBJ meshes through the Ministry of
// Flat console engine and reconciles the results: a headless port of
// the AutoUV MOF bridge workflow.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/dudebrosw/autouv/pkg/batch"
	"github.com/dudebrosw/autouv/pkg/config"
	"github.com/dudebrosw/autouv/pkg/exchange"
	"github.com/dudebrosw/autouv/pkg/mof"
	"github.com/dudebrosw/autouv/pkg/reconcile"
	"github.com/dudebrosw/autouv/pkg/scene"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "autouv",
})

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:    "autouv",
		Usage:   "batch UV unwrapping via the Ministry of Flat engine",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			unwrapCommand(),
			configCommand(),
		},
	}
	if err := app.Run(ctx, os.Args); err != nil {
		logger.Fatal(err)
	}
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "autouv.toml"
	}
	return filepath.Join(dir, "autouv", "autouv.toml")
}

func unwrapCommand() *cli.Command {
	return &cli.Command{
		Name:      "unwrap",
		Usage:     "unwrap one or more OBJ files",
		ArgsUsage: "file.obj [file.obj ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "preferences file path",
				Value: defaultConfigPath(),
			},
			&cli.StringFlag{
				Name:  "mof-dir",
				Usage: "Ministry of Flat install directory (overrides preferences)",
			},
			&cli.StringFlag{
				Name:  "out-dir",
				Usage: "write unwrapped meshes here; default is next to each input",
			},
			&cli.IntFlag{
				Name:  "resolution",
				Usage: "texture resolution, power of two in [32, 4096]",
				Value: 1024,
			},
			&cli.FloatFlag{
				Name:  "aspect",
				Usage: "texture aspect ratio",
				Value: 1.0,
			},
			&cli.IntFlag{
				Name:  "udims",
				Usage: "number of UDIM tiles",
				Value: 1,
			},
			&cli.FloatFlag{
				Name:  "density",
				Usage: "pixels per unit in world scale mode",
				Value: 1024,
			},
			&cli.BoolFlag{Name: "separate-hard-edges", Usage: "separate hard edges for baking"},
			&cli.BoolFlag{Name: "use-normals", Usage: "classify polygons using mesh normals"},
			&cli.BoolFlag{Name: "overlap-identical", Usage: "overlap identical parts in UV space"},
			&cli.BoolFlag{Name: "overlap-mirrored", Usage: "overlap mirrored parts in UV space"},
			&cli.BoolFlag{Name: "world-scale", Usage: "scale UVs to world dimensions"},
			&cli.BoolFlag{Name: "replace", Usage: "replace the original mesh with the processed one"},
			&cli.BoolFlag{Name: "sanitize-original", Usage: "clean the source mesh before transfer"},
			&cli.BoolFlag{Name: "sanitize-processed", Usage: "clean the engine output before transfer"},
			&cli.BoolFlag{Name: "copy-source-uvs", Usage: "carry source UV channels onto the processed mesh"},
			&cli.BoolFlag{Name: "copy-processed-uvs", Usage: "copy the unwrapped channel back onto the original"},
			&cli.BoolFlag{Name: "copy-edge-sharps", Usage: "transfer sharp edge flags from the engine output"},
		},
		Action: unwrapAction,
	}
}

func unwrapAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Root().Bool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}
	// Optional .env next to the working directory; absence is fine.
	_ = godotenv.Load()

	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("no input files; see autouv unwrap --help")
	}

	prefs, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	if dir := cmd.String("mof-dir"); dir != "" {
		prefs.MOFDir = dir
	}
	if prefs.MOFDir == "" {
		prefs.MOFDir = os.Getenv("AUTOUV_MOF_DIR")
	}
	if prefs.MOFDir == "" {
		return fmt.Errorf("no engine directory configured: set mof_dir in %s, --mof-dir, or AUTOUV_MOF_DIR", cmd.String("config"))
	}

	params := mof.Params{
		Resolution:        cmd.Int("resolution"),
		AspectRatio:       cmd.Float("aspect"),
		SeparateHardEdges: cmd.Bool("separate-hard-edges"),
		UseNormals:        cmd.Bool("use-normals"),
		OverlapIdentical:  cmd.Bool("overlap-identical"),
		OverlapMirrored:   cmd.Bool("overlap-mirrored"),
		UDIMTiles:         cmd.Int("udims"),
		WorldScale:        cmd.Bool("world-scale"),
		TextureDensity:    cmd.Float("density"),
	}
	if err := params.Validate(); err != nil {
		return err
	}
	opts := reconcile.Options{
		ReplaceOriginal:         cmd.Bool("replace"),
		SanitizeOriginal:        cmd.Bool("sanitize-original"),
		SanitizeProcessed:       cmd.Bool("sanitize-processed"),
		CopySourceUVs:           cmd.Bool("copy-source-uvs"),
		CopyProcessedUVs:        cmd.Bool("copy-processed-uvs"),
		CopyProcessedEdgeSharps: cmd.Bool("copy-edge-sharps"),
		Epsilon:                 prefs.Epsilon,
	}

	objects, err := loadObjects(files)
	if err != nil {
		return err
	}

	scheduler := &batch.Scheduler{
		Runner: &mof.Runner{
			Exe:     prefs.ExecutablePath(),
			Timeout: prefs.Timeout(),
		},
		TempDir: prefs.TempDir,
		Log:     logger,
		Progress: func(done, total int) {
			logger.Info("progress", "done", done, "total", total)
		},
	}
	res, err := scheduler.Run(ctx, &batch.Job{
		Objects: objects,
		Params:  params,
		Options: opts,
	})
	if err != nil {
		return err
	}

	for _, o := range res.Outcomes {
		switch o.Kind {
		case batch.Failed:
			logger.Error("item failed", "object", o.Object, "err", o.Err)
		case batch.Skipped:
			logger.Warn("item skipped", "object", o.Object, "reason", o.Reason)
		}
	}
	if err := writeResults(cmd.String("out-dir"), files, objects, res); err != nil {
		return err
	}

	fmt.Println(res.Summary())
	if res.Failed > 0 || res.Aborted {
		return cli.Exit("", 1)
	}
	return nil
}

// loadObjects decodes each input file into a scene object named after
// the file.
func loadObjects(files []string) ([]*scene.Object, error) {
	objects := make([]*scene.Object, 0, len(files))
	for _, f := range files {
		m, err := exchange.DecodeFile(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
		name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		m.Name = name
		objects = append(objects, scene.NewObject(name, m))
	}
	return objects, nil
}

// writeResults saves each successful item's mesh next to its input
// (or into outDir) as <name>_unwrapped.obj.
func writeResults(outDir string, files []string, objects []*scene.Object, res *batch.Result) error {
	for i, o := range res.Outcomes {
		if o.Kind != batch.Success {
			continue
		}
		obj := objects[i]
		dir := outDir
		if dir == "" {
			dir = filepath.Dir(files[i])
		} else if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(dir, obj.Name+"_unwrapped.obj")
		if _, err := exchange.EncodeFile(path, obj.Mesh, exchange.Options{UseNormals: true}); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Info("wrote", "path", path)
	}
	return nil
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "manage preferences",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "write a default preferences file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "preferences file path",
						Value: defaultConfigPath(),
					},
					&cli.StringFlag{
						Name:  "mof-dir",
						Usage: "Ministry of Flat install directory",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					prefs := config.Default()
					prefs.MOFDir = cmd.String("mof-dir")
					path := cmd.String("config")
					if err := prefs.Save(path); err != nil {
						return err
					}
					logger.Info("wrote preferences", "path", path)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "print the effective preferences",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "preferences file path",
						Value: defaultConfigPath(),
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					prefs, err := config.Load(cmd.String("config"))
					if err != nil {
						return err
					}
					fmt.Printf("mof_dir         = %q\n", prefs.MOFDir)
					fmt.Printf("executable      = %q\n", prefs.Executable)
					fmt.Printf("temp_dir        = %q\n", prefs.TempDir)
					fmt.Printf("epsilon         = %g\n", prefs.Epsilon)
					fmt.Printf("timeout_seconds = %d\n", prefs.TimeoutSeconds)
					return nil
				},
			},
		},
	}
}
