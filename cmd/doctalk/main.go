package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/kurlez/doctalk/internal/config"
	"github.com/kurlez/doctalk/internal/pipeline"
	"github.com/kurlez/doctalk/internal/services"
	"github.com/kurlez/doctalk/internal/voice"
	"golang.org/x/sync/errgroup"
)

func main() {
	outputDir := flag.String("o", "", "output directory (overrides OUTPUT_DIR)")
	voiceName := flag.String("voice", "", "voice name (overrides DEFAULT_VOICE)")
	provider := flag.String("provider", "", "synthesis provider: azure, openai, or gemini (overrides TTS_PROVIDER)")
	listVoices := flag.Bool("list", false, "list available voices and exit")
	parallel := flag.Int("parallel", 1, "documents converted concurrently")
	flag.Usage = usage
	flag.Parse()

	if *listVoices {
		printVoices()
		return
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	// Flag overrides beat the environment; config.Load reads both
	if *provider != "" {
		os.Setenv("TTS_PROVIDER", *provider)
	}
	if *outputDir != "" {
		os.Setenv("OUTPUT_DIR", *outputDir)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	catalog := voice.Default()
	if cfg.VoiceCatalogPath != "" {
		catalog, err = voice.LoadFile(cfg.VoiceCatalogPath)
		if err != nil {
			log.Fatalf("Failed to load voice catalog: %v", err)
		}
	}

	selectedVoice := cfg.DefaultVoice
	if *voiceName != "" {
		selectedVoice = *voiceName
	}
	if _, err := catalog.Resolve(selectedVoice); err != nil {
		log.Fatalf("Unknown voice %q — run with -list to see the catalog", selectedVoice)
	}

	files, err := collectDocuments(flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(files) == 0 {
		log.Fatal("No convertible documents found (.md, .markdown, .epub, .txt)")
	}

	events := make(chan pipeline.Event, 64)
	converter := pipeline.New(cfg, newSynthesizer(cfg), services.NewFFmpegService(), catalog, nil)
	converter.Events = events

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		printProgress(events)
	}()

	if *parallel < 1 {
		*parallel = 1
	}

	var failures int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*parallel)

	for _, file := range files {
		file := file
		g.Go(func() error {
			result, err := converter.ConvertFile(gctx, file, selectedVoice)
			if err != nil {
				atomic.AddInt64(&failures, 1)
				log.Printf("FAILED %s: %v", file, err)
				// One bad document must not sink the batch
				return nil
			}
			for _, part := range result.Parts {
				fmt.Printf("%s (%.0fs)\n", part.Path, part.Duration)
			}
			if result.Report.Failed > 0 {
				log.Printf("WARNING %s: %d of %d chunks missing from the audio", file, result.Report.Failed, result.Report.TotalChunks)
			}
			return nil
		})
	}

	g.Wait()
	close(events)
	<-progressDone

	if int(failures) == len(files) {
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: doctalk [flags] <file-or-directory>...

Converts Markdown, EPUB, and plain-text documents to audio files.
Directories are walked recursively for convertible documents.

Flags:
`)
	flag.PrintDefaults()
}

func printVoices() {
	catalog := voice.Default()
	if path := os.Getenv("VOICE_CATALOG_PATH"); path != "" {
		loaded, err := voice.LoadFile(path)
		if err != nil {
			log.Fatalf("Failed to load voice catalog: %v", err)
		}
		catalog = loaded
	}

	for _, v := range catalog.Voices() {
		fmt.Printf("%-12s %s\n", v.Name, v.Description)
	}
}

// collectDocuments expands the argument list into convertible files.
// Directories are walked recursively; explicitly named files are taken as
// given so an unsupported extension fails loudly later instead of being
// skipped.
func collectDocuments(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}

		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".md", ".markdown", ".epub", ".txt":
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot walk %s: %w", arg, err)
		}
	}
	return files, nil
}

func printProgress(events <-chan pipeline.Event) {
	for ev := range events {
		switch ev.Stage {
		case pipeline.StageChunked:
			log.Printf("%s: %d chunks", ev.Title, ev.TotalChunks)
		case pipeline.StageChunkDone:
			if ev.Err != nil {
				log.Printf("%s: chunk %d/%d failed", ev.Title, ev.ChunkIndex+1, ev.TotalChunks)
			} else {
				log.Printf("%s: chunk %d/%d done", ev.Title, ev.ChunkIndex+1, ev.TotalChunks)
			}
		case pipeline.StageAssembling:
			log.Printf("%s: assembling", ev.Title)
		case pipeline.StageSplitting:
			log.Printf("%s: checking part duration", ev.Title)
		case pipeline.StageDone:
			log.Printf("%s: done", ev.Title)
		}
	}
}

func newSynthesizer(cfg *config.Config) services.Synthesizer {
	switch cfg.TTSProvider {
	case "openai":
		return services.NewOpenAITTS(cfg.OpenAIKey)
	case "gemini":
		return services.NewGeminiTTS(cfg.GeminiKey, "")
	default:
		return services.NewAzureSpeech(cfg.AzureSpeechKey, cfg.AzureSpeechRegion)
	}
}
