package main

import (
	"context"
	"os"
	"time"

	"imagedetect/internal/config"
	"imagedetect/internal/logging"
	"imagedetect/internal/phrases"
	"imagedetect/internal/ui"
	"imagedetect/processing/detector"
	"imagedetect/processing/speech"
)

func main() {
	cfg := config.LoadConfigFile(config.DefaultConfigPath)
	log := logging.New(cfg.LogLevel)

	book, err := phrases.New(cfg.Speech.Language)
	if err != nil {
		log.Error("loading phrases failed", "err", err)
		os.Exit(1)
	}

	opts := []detector.Option{
		detector.WithMaxUploadSide(cfg.Detector.MaxUploadSide),
		detector.WithLogger(log),
	}
	if cfg.Detector.ClassNames != "" {
		names, err := detector.LoadClassNames(cfg.Detector.ClassNames)
		if err != nil {
			log.Warn("class names file ignored", "path", cfg.Detector.ClassNames, "err", err)
		} else {
			opts = append(opts, detector.WithClassNames(names))
		}
	}

	det := detector.NewRemoteDetector(cfg.Detector.Addr, opts...)
	proc := detector.NewProcessor(det, cfg.GetTimeout(), log)

	var narrator *speech.Narrator
	engine, err := speech.NewCommandEngine(cfg.Speech.Engine, cfg.Speech.Rate)
	switch {
	case err == nil:
		narrator = speech.NewNarrator(engine, book, cfg.Speech.QueueSize, log)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		narrator.PickVoice(ctx)
		cancel()
	case cfg.Speech.Required && cfg.Speech.Engine != "none":
		log.Error("speech engine unavailable", "err", err)
		app := ui.CreateApp(cfg, proc, nil, book, log)
		app.RunFatal(err)
		os.Exit(1)
	default:
		log.Warn("speech disabled", "err", err)
	}

	log.Info("starting", "detector", det.URL(), "model", cfg.GetModel(), "language", book.Tag().String())

	app := ui.CreateApp(cfg, proc, narrator, book, log)
	app.Run()
}
