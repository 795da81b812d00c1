package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"meteodata.example/meteodata-server/internal/config"
	"meteodata.example/meteodata-server/internal/connector"
	"meteodata.example/meteodata-server/internal/decoder/bulktext"
	"meteodata.example/meteodata-server/internal/decoder/restapi"
	"meteodata.example/meteodata-server/internal/ingest"
	"meteodata.example/meteodata-server/internal/liveness"
	logpkg "meteodata.example/meteodata-server/internal/log"
	"meteodata.example/meteodata-server/internal/metrics"
	"meteodata.example/meteodata-server/internal/mqtt"
	"meteodata.example/meteodata-server/internal/passive/bulkfile"
	"meteodata.example/meteodata-server/internal/passive/vp2tcp"
	"meteodata.example/meteodata-server/internal/poll"
	"meteodata.example/meteodata-server/internal/registry"
	"meteodata.example/meteodata-server/internal/store"
	"meteodata.example/meteodata-server/internal/store/relstore"
	"meteodata.example/meteodata-server/internal/supervisor"
)

// exitConfig is the sysexits.h-style code (EX_CONFIG) returned when the
// configuration file cannot be loaded, matching the BSD sysexits
// convention several Go CLI daemons in this ecosystem follow.
const exitConfig = 78

// exitFatal matches the original daemon's sd_notify(ERRNO=255) convention
// for an unrecoverable runtime failure.
const exitFatal = 255

func runDaemon() error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitConfig)
	}

	if err := logpkg.Init(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logging: %v\n", err)
		os.Exit(exitConfig)
	}

	slog.Info("meteodata-server starting", "config", configFile, "threads", cfg.Threads)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stationStore, err := registry.NewFileStore("/var/lib/meteodata/stations")
	if err != nil {
		logpkg.Critical("failed to open station store", "error", err)
		supervisor.NotifyFatal(err)
		os.Exit(exitFatal)
	}

	reg, err := registry.New(stationStore)
	if err != nil {
		logpkg.Critical("failed to load station registry", "error", err)
		supervisor.NotifyFatal(err)
		os.Exit(exitFatal)
	}
	cache := registry.NewCache()

	sinks := store.Sinks{store.NewMemSink()}
	if cfg.Store.RelationalDSN != "" {
		relSink, err := relstore.Open(ctx, cfg.Store.RelationalDSN)
		if err != nil {
			logpkg.Critical("failed to open relational store", "error", err)
			supervisor.NotifyFatal(err)
			os.Exit(exitFatal)
		}
		defer relSink.Close()
		sinks = append(sinks, relSink)
	}

	connectors := make(map[string]connector.Connector)

	if cfg.Disabled.Enabled("mqtt") {
		mms := mqtt.NewMMS()
		decoder := mqtt.NewVP2Decoder()
		broker := mqtt.BrokerDetails{Host: cfg.Host, Port: 1883, User: cfg.User, Password: cfg.Password}
		for _, st := range reg.All() {
			mms.AddBinding(mqtt.Binding{Broker: broker, Station: st, Decoder: decoder})
		}
		connectors["mqtt"] = mms
	}

	if cfg.Disabled.Enabled("vp2") {
		connectors["vp2tcp"] = vp2tcp.New(":5886", nil)
	}

	if cfg.Disabled.Enabled("synop") {
		currentDecoder := bulktext.New("AAXX")
		synopCurrent := bulkfile.New("synop-current",
			func(ref time.Time) string { return "https://data.meteodata.example/synop/current.txt" },
			bulkfile.AlignToNextMark(time.Now(), bulkfile.SynopCurrentInterval), bulkfile.SynopCurrentInterval, currentDecoder)
		connectors["synop-current"] = synopCurrent

		deferredDecoder := bulktext.New("AAXX")
		synopDeferred := bulkfile.New("synop-deferred",
			func(ref time.Time) string { return "https://data.meteodata.example/synop/deferred.txt" },
			bulkfile.AlignToNextHour(time.Now(), 6), bulkfile.SynopDeferredInterval, deferredDecoder)
		connectors["synop-deferred"] = synopDeferred
	}

	if cfg.Disabled.Enabled("ship") {
		shipDecoder := bulktext.New("BBXX", "ZZYY")
		shipBuoy := bulkfile.New("ship-buoy",
			func(ref time.Time) string { return "https://data.meteodata.example/ship/latest.txt" },
			bulkfile.AlignToNextHour(time.Now(), 0), bulkfile.ShipBuoyInterval, shipDecoder)
		connectors["ship-buoy"] = shipBuoy
	}

	if poller := buildPollScheduler(cfg); poller != nil {
		connectors["poll"] = poller
	}

	pipeline := ingest.New("ingest", sinks, reg, nil)
	caps := connector.Capability{Registry: reg, Cache: cache, Pipeline: pipeline}

	metricsServer := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)

	sv := supervisor.New(connectors, caps, cfg.Control.Socket,
		supervisor.WithMetricsServer(metricsServer),
		supervisor.WithLiveness(liveness.New()),
		supervisor.WithPIDFile(cfg.Control.PIDFile),
		supervisor.WithShutdownGrace(cfg.ShutdownGrace),
	)

	if err := sv.Start(ctx); err != nil {
		logpkg.Critical("failed to start", "error", err)
		supervisor.NotifyFatal(err)
		os.Exit(exitFatal)
	}

	return sv.Run(ctx)
}

// buildPollScheduler wires every enabled, API-key-configured vendor
// downloader into one shared periodic-poll connector, or returns nil if
// none are enabled/configured.
func buildPollScheduler(cfg *config.Config) connector.Connector {
	scheduler := poll.New()
	added := 0

	if cfg.Disabled.Enabled("weatherlink") && cfg.WeatherlinkAPIv2Key != "" {
		scheduler.Add(restapi.New("weatherlink", "https://api.weatherlink.com/v2/",
			cfg.WeatherlinkAPIv2Key, cfg.WeatherlinkAPIv2Secret, 7*24*time.Hour))
		added++
	}
	if cfg.Disabled.Enabled("fieldclimate") && cfg.FieldClimateKey != "" {
		scheduler.Add(restapi.New("fieldclimate", "https://api.fieldclimate.com/v2/",
			cfg.FieldClimateKey, cfg.FieldClimateSecret, 7*24*time.Hour))
		added++
	}
	if cfg.Disabled.Enabled("objenious") && cfg.ObjeniousKey != "" {
		scheduler.Add(restapi.New("objenious", "https://api.objenious.com/v1/",
			cfg.ObjeniousKey, "", 7*24*time.Hour))
		added++
	}

	if added == 0 {
		return nil
	}
	return scheduler
}
