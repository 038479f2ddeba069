// cmd/cctv-kiosk/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/vbaud/cctv-kiosk/internal/config"
	"github.com/vbaud/cctv-kiosk/internal/decode"
	"github.com/vbaud/cctv-kiosk/internal/doorbell"
	"github.com/vbaud/cctv-kiosk/internal/mqttclient"
	"github.com/vbaud/cctv-kiosk/internal/snapshot"
	"github.com/vbaud/cctv-kiosk/internal/supervisor"
	"github.com/vbaud/cctv-kiosk/internal/ui"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the kiosk configuration")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("[main] no .env loaded: %v", err)
	}

	// Configuration faults are fatal: running with a partial camera list is
	// worse than refusing to start.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[main] %v", err)
	}

	// Optional remote snapshot mirror.
	if store, err := snapshot.NewMinioStoreFromEnv(); err != nil {
		log.Printf("[main] snapshot mirror disabled: %v", err)
	} else {
		snapshot.DefaultStore = store
	}

	sup := supervisor.New(cfg.Cameras, cfg.IdleTimeout())

	// Optional status publishing.
	if mqttCli, err := mqttclient.NewClientFromEnv("cctv-kiosk"); err != nil {
		log.Printf("[main] status publishing disabled: %v", err)
	} else {
		defer mqttCli.Close()
		sup.SetStatusPublisher(mqttCli, getenv("KIOSK_STATUS_TOPIC", "cctv-kiosk"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One decode worker per camera, for the process lifetime. The first
	// camera is the initial selection and starts active.
	for i, cam := range cfg.Cameras {
		w := decode.NewWorker(cam.URL, cam.Name, decode.Options{
			WaitForKeyframe: cfg.Options.WaitForKeyframe,
			UseTCP:          cfg.Options.UseTCPForRTSP,
			HWDecoder:       cfg.Options.HWDecoder,
			InitialActive:   i == 0,
		}, sup.Control(cam.URL), sup.Frames())
		go w.Run(ctx)
	}

	if cfg.DoorbellEnabled() {
		mon := doorbell.NewMonitor(cfg.Doorbell, sup.Wake())
		go func() {
			if err := mon.Run(ctx); err != nil {
				log.Printf("[main] doorbell monitor ended with error: %v", err)
			}
		}()
	} else {
		log.Printf("[main] no doorbell configured, event monitor disabled")
	}

	go sup.Run(ctx)

	// Blocks until the window closes; cancellation then stops every worker.
	ui.New(cfg, sup).Run(ctx)
	log.Printf("[main] window closed, shutting down")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
