package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"voxelbuilder.ai/internal/persistence/archive"
	"voxelbuilder.ai/internal/persistence/indexdb"
	persistlog "voxelbuilder.ai/internal/persistence/log"
	"voxelbuilder.ai/internal/persistence/mirror"
	"voxelbuilder.ai/internal/persistence/snapshot"
	"voxelbuilder.ai/internal/sim/catalogs"
	"voxelbuilder.ai/internal/sim/tuning"
	"voxelbuilder.ai/internal/sim/world"
	"voxelbuilder.ai/internal/telemetry/influx"
	"voxelbuilder.ai/internal/transport/mqtt"
	"voxelbuilder.ai/internal/transport/observer"
	"voxelbuilder.ai/internal/transport/ws"
)

var (
	addr         string // HTTP listen address
	worldID      string // World id (default: scenario world_id)
	dataDir      string // Runtime data directory
	tuningPath   string // tuning.yaml path
	scenarioPath string // scenario.yaml path
	snapPath     string // Snapshot to resume from
	loadLatest   bool   // Resume from the newest snapshot in the data dir
	disableDB    bool   // Skip the sqlite index
	mqttBroker   string // MQTT broker url; empty disables status publishing
	mqttClientID string
	mqttUser     string
	mqttQoS      int
	archiveEvery uint64 // Copy every Nth-tick snapshot into archives/; 0 disables
	mirrorURL    string // S3-compatible endpoint; empty disables mirroring
	mirrorBucket string
	mirrorPrefix string
	mirrorRegion string
	influxURL    string // InfluxDB v2 url; empty disables telemetry
	influxOrg    string
	influxBucket string
	influxSample uint64
)

// runCmd hosts a world until SIGINT/SIGTERM
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a builder world",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runWorld(ctx)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&addr, "addr", "127.0.0.1:8080", "HTTP listen address")
	f.StringVar(&worldID, "world", "", "World id (default: scenario world_id)")
	f.StringVar(&dataDir, "data", "./data", "Runtime data directory")
	f.StringVar(&tuningPath, "tuning", "", "Path to tuning.yaml (default: <configs>/tuning.yaml)")
	f.StringVar(&scenarioPath, "scenario", "", "Path to scenario.yaml (default: <configs>/scenario.yaml)")
	f.StringVar(&snapPath, "snapshot", "", "Snapshot to resume from")
	f.BoolVar(&loadLatest, "load-latest-snapshot", true, "Resume from the newest snapshot in the data dir when --snapshot is empty")
	f.BoolVar(&disableDB, "disable-db", false, "Disable the sqlite index")
	f.StringVar(&mqttBroker, "mqtt-broker", "", "MQTT broker url, e.g. tcp://127.0.0.1:1883 (empty disables)")
	f.StringVar(&mqttClientID, "mqtt-client-id", "", "MQTT client id")
	f.StringVar(&mqttUser, "mqtt-user", "", "MQTT username (password from VOXELBUILDER_MQTT_PASSWORD)")
	f.IntVar(&mqttQoS, "mqtt-qos", 1, "MQTT QoS for status messages")
	f.Uint64Var(&archiveEvery, "archive-every", 0, "Archive the snapshot closing every N ticks (0 disables)")
	f.StringVar(&mirrorURL, "mirror-endpoint", "", "S3-compatible endpoint for snapshot mirroring (keys from VOXELBUILDER_MIRROR_ACCESS_KEY/SECRET_KEY)")
	f.StringVar(&mirrorBucket, "mirror-bucket", "", "Bucket for snapshot mirroring")
	f.StringVar(&mirrorPrefix, "mirror-prefix", "", "Object key prefix for mirrored snapshots")
	f.StringVar(&mirrorRegion, "mirror-region", "auto", "SigV4 region of the mirror endpoint")
	f.StringVar(&influxURL, "influx-url", "", "InfluxDB v2 url for builder telemetry (token from VOXELBUILDER_INFLUX_TOKEN)")
	f.StringVar(&influxOrg, "influx-org", "voxelbuilder", "InfluxDB organization")
	f.StringVar(&influxBucket, "influx-bucket", "builders", "InfluxDB bucket")
	f.Uint64Var(&influxSample, "influx-sample-every", 20, "Sample builder state every N ticks")
}

func runWorld(ctx context.Context) error {
	cats, err := catalogs.Load(configDir)
	if err != nil {
		return fmt.Errorf("load catalogs: %w", err)
	}

	tp := strings.TrimSpace(tuningPath)
	if tp == "" {
		tp = filepath.Join(configDir, "tuning.yaml")
	}
	sp := strings.TrimSpace(scenarioPath)
	if sp == "" {
		sp = filepath.Join(configDir, "scenario.yaml")
	}
	scen, err := LoadScenario(sp)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load scenario: %w", err)
	}

	id := worldID
	if id == "" {
		id = scen.WorldID
	}
	if id == "" {
		id = "world_1"
	}
	log := logrus.WithField("world", id)

	worldDir := filepath.Join(dataDir, "worlds", id)
	snapDir := filepath.Join(worldDir, "snapshots")
	if err := os.MkdirAll(snapDir, 0o755); err != nil {
		return err
	}

	snapshotToLoad := strings.TrimSpace(snapPath)
	if snapshotToLoad == "" && loadLatest {
		snapshotToLoad = latestSnapshot(snapDir)
	}

	tune, err := tuning.Load(tp)
	if err != nil {
		if snapshotToLoad == "" || !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load tuning: %w", err)
		}
		log.WithField("path", tp).Warn("tuning not found; using defaults")
		tune = tuning.Defaults()
	}

	var idx *indexdb.SQLiteIndex
	if !disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(configDir, cats, tune); err != nil {
			log.WithError(err).Warn("index catalogs")
		}
	}

	tickLog := persistlog.NewTickLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer tickLog.Close()
	defer auditLog.Close()

	cfg := world.ConfigFromTuning(id, scen.Seed, tune)
	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		w, err = world.NewFromSnapshot(cfg, cats, snap, log)
		if err != nil {
			return fmt.Errorf("resume %s: %w", snapshotToLoad, err)
		}
		log.WithFields(logrus.Fields{"snapshot": snapshotToLoad, "tick": w.CurrentTick()}).Info("resumed from snapshot")
	} else {
		w, err = world.New(cfg, cats, log)
		if err != nil {
			return fmt.Errorf("world: %w", err)
		}
		if err := scen.Apply(w); err != nil {
			return fmt.Errorf("apply scenario: %w", err)
		}
	}
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})

	var mir *mirror.Mirror
	if mirrorURL != "" {
		client, err := mirror.NewClient(mirror.ClientConfig{
			Endpoint:  mirrorURL,
			Bucket:    mirrorBucket,
			Region:    mirrorRegion,
			AccessKey: os.Getenv("VOXELBUILDER_MIRROR_ACCESS_KEY"),
			SecretKey: os.Getenv("VOXELBUILDER_MIRROR_SECRET_KEY"),
		})
		if err != nil {
			return err
		}
		mir = mirror.New(client, dataDir, mirrorPrefix, 1, 64, log.WithField("component", "mirror"))
		defer mir.Close()
	}

	writeSnap := func(snap snapshot.SnapshotV1) {
		path := snapshot.PathForTick(snapDir, snap.Header.Tick)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			log.WithError(err).Error("snapshot write")
			return
		}
		log.WithFields(logrus.Fields{"tick": snap.Header.Tick, "path": path}).Info("snapshot written")
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
		mir.Enqueue(path)
		dst, archived, err := archive.ArchiveEpoch(worldDir, path, snap, archiveEvery)
		switch {
		case err != nil:
			log.WithError(err).Error("snapshot archive")
		case archived:
			log.WithField("path", dst).Info("epoch archived")
			mir.Enqueue(dst)
		}
	}

	if snapshotToLoad == "" {
		// Tick 0 runs here so the genesis snapshot is a replay base for
		// every logged tick that follows.
		w.StepOnce(nil)
		genesis, err := w.Checkpoint()
		if err != nil {
			return err
		}
		writeSnap(genesis)
	}

	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		for snap := range snapCh {
			writeSnap(snap)
		}
	}()

	obs := observer.NewServer(w, log.WithField("component", "observer"))
	w.AddObserver(obs)
	ctl := ws.NewServer(w, log.WithField("component", "control"))

	var pub *mqtt.StatusPublisher
	if mqttBroker != "" {
		client, err := mqtt.Connect(mqtt.Config{
			BrokerURL: mqttBroker,
			ClientID:  mqttClientID,
			Username:  mqttUser,
			Password:  os.Getenv("VOXELBUILDER_MQTT_PASSWORD"),
			QoS:       byte(mqttQoS),
		}, id)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer client.Close()
		pub = mqtt.NewStatusPublisher(client, id, log.WithField("component", "mqtt"))
		w.AddObserver(pub)
		log.WithField("broker", mqttBroker).Info("publishing builder status over mqtt")
	}

	if influxURL != "" {
		ic, err := influx.Connect(ctx, influx.Config{
			URL:    influxURL,
			Token:  os.Getenv("VOXELBUILDER_INFLUX_TOKEN"),
			Org:    influxOrg,
			Bucket: influxBucket,
		}, log.WithField("component", "influx"))
		if err != nil {
			return err
		}
		defer ic.Close()
		w.AddObserver(influx.NewRecorder(ic.Writer(), id, influxSample))
		log.WithField("url", influxURL).Info("recording builder telemetry")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w, obs, idx, pub, mir)
	})
	mux.HandleFunc("/v1/bootstrap", obs.BootstrapHandler())
	mux.HandleFunc("/v1/observe", obs.WSHandler())
	mux.HandleFunc("/v1/control", ctl.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.WithField("addr", addr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server")
		}
	}()

	runErr := w.Run(ctx)
	w.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// The loop has stopped; flush queued snapshots, then write a final one.
	close(snapCh)
	<-snapDone
	if final, err := w.Checkpoint(); err == nil {
		writeSnap(final)
	}
	if pub != nil {
		pub.Close()
	}
	log.WithField("tick", w.CurrentTick()).Info("world stopped")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// latestSnapshot returns the highest-tick <tick>.snap.zst in dir, or "".
func latestSnapshot(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	type cand struct {
		tick uint64
		path string
	}
	var cands []cand
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		t, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		cands = append(cands, cand{tick: t, path: filepath.Join(dir, name)})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].tick < cands[j].tick })
	return cands[len(cands)-1].path
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

// WriteTick writes to both sinks and reports every failure, so the world
// logs a lost JSONL entry even when the index write succeeded.
func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	var errA, errB error
	if m.a != nil {
		errA = m.a.WriteTick(entry)
	}
	if m.b != nil {
		errB = m.b.WriteTick(entry)
	}
	return errors.Join(errA, errB)
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	var errA, errB error
	if m.a != nil {
		errA = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		errB = m.b.WriteAudit(entry)
	}
	return errors.Join(errA, errB)
}
