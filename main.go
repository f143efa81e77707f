package main

import (
	"context"
	"embed"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/slumber.report/api"
	"github.com/banshee-data/slumber.report/internal/actigraphy"
	"github.com/banshee-data/slumber.report/internal/config"
	"github.com/banshee-data/slumber.report/internal/db"
	"github.com/banshee-data/slumber.report/internal/monitoring"
	"github.com/banshee-data/slumber.report/internal/serialmux"
	"github.com/banshee-data/slumber.report/internal/telemetry"
	"github.com/banshee-data/slumber.report/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS
	devMode     = flag.Bool("dev", false, "Run in dev mode (replay fixtures.txt instead of opening the serial port)")
	listen      = flag.String("listen", "", "Listen address (overrides config)")
	configPath  = flag.String("config", "", "Path to JSON config file")
	dbPath      = flag.String("db", "", "Path to sqlite database (overrides config)")
	serialPort  = flag.String("serial", "", "Serial port device (overrides config)")
	migrations  = flag.String("migrations", "internal/db/migrations", "Migrations directory; empty to skip migrations")
	deviceID    = flag.String("device", "wrist-01", "Device identifier for telemetry")
)

func main() {
	flag.Parse()
	log.Printf("slumber %s", version.String())

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *listen == "" {
		*listen = cfg.GetListen()
	}
	if *dbPath == "" {
		*dbPath = cfg.GetDBPath()
	}
	if *serialPort == "" {
		*serialPort = cfg.GetSerialPort()
	}

	params := cfg.TrackerParams()

	var m serialmux.SerialMuxInterface
	if *devMode {
		data, err := os.ReadFile("fixtures.txt")
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		m = serialmux.NewMockSerialMux(data)
	} else {
		var err error
		m, err = serialmux.NewRealSerialMux(*serialPort, cfg.GetBaudRate())
		if err != nil {
			log.Fatalf("failed to open IMU serial port: %v", err)
		}
		if err := m.Initialize(params.SampleRate); err != nil {
			log.Fatalf("failed to initialize IMU: %v", err)
		}
	}
	defer m.Close()

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()

	if *migrations != "" {
		if err := database.MigrateUp(*migrations); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	sessionID, err := database.BeginSession(params.SampleRate, "live capture")
	if err != nil {
		log.Fatalf("failed to begin session: %v", err)
	}
	log.Printf("session %s started (fs=%dHz window=%ds history=%d threshold=%.1f°)",
		sessionID, params.SampleRate, params.SecondsPerUpdate, params.HistoryWindows, params.ThresholdDegrees)

	stats := &monitoring.PipelineStats{}

	var publisher *telemetry.Publisher
	if broker := cfg.GetMQTTBroker(); broker != "" {
		publisher = telemetry.NewPublisher(telemetry.Options{
			Broker:   broker,
			Topic:    cfg.GetMQTTTopic(),
			Username: cfg.GetMQTTUsername(),
			Password: cfg.GetMQTTPassword(),
			UseTLS:   cfg.GetMQTTUseTLS(),
			DeviceID: *deviceID,
		})
		if err := publisher.Connect(); err != nil {
			log.Printf("mqtt telemetry disabled: %v", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	// The transition callback closes over the API server for websocket
	// broadcasts; the server in turn needs the tracker for its state
	// endpoint, so the variable is declared up front.
	var apiServer *api.Server

	var sampleIndex int64
	tracker := actigraphy.NewVanHeesTrackerWithParams(params, func(s actigraphy.State) {
		t := float64(sampleIndex) / float64(params.SampleRate)
		stats.AddTransition()
		log.Printf("state changed to %s at t=%.1fs (sample %d)", s, t, sampleIndex)

		if err := database.RecordTransition(sessionID, sampleIndex, t, uint8(s)); err != nil {
			log.Printf("failed to record transition: %v", err)
		}
		if apiServer != nil {
			apiServer.Broadcast(s, t)
		}
		if publisher != nil {
			if err := publisher.PublishTransition(s, t); err != nil {
				stats.AddPublishError()
				log.Printf("failed to publish transition: %v", err)
			} else {
				stats.AddPublished()
			}
		}
	})

	apiServer = api.NewServer(database, stats, sessionID, tracker.State)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// subscribe to the serial port sample lines and feed them, in order,
	// into the tracker
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := m.Subscribe()
		defer m.Unsubscribe(id)
		for {
			select {
			case line, ok := <-c:
				if !ok {
					log.Print("sample routine terminated (port closed)")
					return
				}
				x, y, z, err := serialmux.ParseSampleLine(line)
				if err != nil {
					stats.AddParseError()
					continue
				}
				stats.AddSample()
				tracker.UpdateAccel(x, y, z)
				sampleIndex++
			case <-ctx.Done():
				log.Print("sample routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		apiMux := apiServer.ServeMux()
		mux.Handle("/api/", http.StripPrefix("/api", apiMux))

		// read static files from the embedded filesystem in production or
		// from the local ./static in dev for easier iteration without
		// restarting the server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			staticHandler = http.FileServer(http.FS(staticFiles))
		}
		mux.Handle("/", staticHandler)

		server := &http.Server{
			Addr:    *listen,
			Handler: mux,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
