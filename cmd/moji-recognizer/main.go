package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	mojirecognizer "github.com/menta2k/moji-recognizer"
	"github.com/menta2k/moji-recognizer/internal/config"
	"github.com/menta2k/moji-recognizer/internal/logging"
	"github.com/menta2k/moji-recognizer/internal/utils"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

func main() {
	var configPath, saveConfig string
	var family, lang string
	var in, script string
	var topK, brush int
	var auto, asJSON, verbose, version bool

	// Debug image export
	var debugDir, dbgext string
	var dbgquality int

	flag.StringVar(&configPath, "config", "", "config file (yaml|json), defaults to "+config.GetConfigPath()+" when present")
	flag.StringVar(&saveConfig, "saveconfig", "", "write the effective configuration to this path and exit")

	flag.StringVar(&family, "family", "", "script family: hiragana|katakana|kanji|kuzushiji")
	flag.StringVar(&lang, "lang", "", "label language: en|ja")
	flag.IntVar(&topK, "topk", 0, "number of candidates to show")
	flag.IntVar(&brush, "brush", 0, "brush width in pixels (4-12)")
	flag.BoolVar(&auto, "auto", false, "recognize automatically after each stroke")

	flag.StringVar(&in, "in", "", "recognize an image file (jpg/png/webp) and exit")
	flag.BoolVar(&asJSON, "json", false, "print the -in result as JSON")
	flag.StringVar(&script, "script", "", "run shell commands from a file, one per line")

	flag.StringVar(&debugDir, "debug", "", "directory for model input and overlay images")
	flag.StringVar(&dbgext, "dbgext", "", "debug image format: png|jpg|webp")
	flag.IntVar(&dbgquality, "dbgquality", 0, "debug image quality (for jpg/webp)")

	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.BoolVar(&version, "version", false, "print version and exit")

	flag.Parse()

	if version {
		fmt.Println("moji-recognizer", mojirecognizer.GetVersion())
		return
	}

	logging.SetLogger(logging.NewText(os.Stderr, verbose))

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	// Command line flags override the file
	if family != "" {
		cfg.Session.Family = family
	}
	if lang != "" {
		cfg.Session.Language = lang
	}
	if topK > 0 {
		cfg.Ranker.TopK = topK
	}
	if brush > 0 {
		cfg.Canvas.BrushWidth = brush
	}
	if auto {
		cfg.Session.AutoRecognize = true
	}
	if debugDir != "" {
		cfg.Output.DebugDir = debugDir
	}
	if dbgext != "" {
		cfg.Output.DebugFormat = dbgext
	}
	if dbgquality > 0 {
		cfg.Output.Quality = dbgquality
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if saveConfig != "" {
		if err := cfg.SaveToFile(saveConfig); err != nil {
			log.Fatal(err)
		}
		fmt.Println("wrote", saveConfig)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rec, err := mojirecognizer.New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if in != "" {
		if err := recognizeFile(ctx, rec, in, asJSON); err != nil {
			log.Fatal(err)
		}
		return
	}

	s, err := rec.NewSession(newPrinter(os.Stdout))
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if err := runShell(ctx, rec, s, script, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if !utils.FileExists(config.GetConfigPath()) {
			return config.Default(), nil
		}
		path = config.GetConfigPath()
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func recognizeFile(ctx context.Context, rec *mojirecognizer.Recognizer, path string, asJSON bool) error {
	cfg := rec.Config()
	family, err := types.ParseFamily(cfg.Session.Family)
	if err != nil {
		return err
	}
	lang, err := types.ParseLanguage(cfg.Session.Language)
	if err != nil {
		return err
	}

	o, err := rec.RecognizeFile(ctx, path, family, lang)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(newReport(path, o))
	}
	fmt.Println(formatOutcome(o))
	if o.Err != nil {
		return fmt.Errorf("recognition failed")
	}
	return nil
}
