// Command arprobe runs the color probe render loop against a simulated AR
// session, captures every probe at the end and writes an overlay PNG.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gogpu/arprobe"
	"github.com/gogpu/arprobe/ar"
	"github.com/gogpu/arprobe/ar/sim"
	_ "github.com/gogpu/arprobe/gpu" // register the GPU sampler when available
	promcollector "github.com/gogpu/arprobe/metrics/prometheus"
	"github.com/gogpu/arprobe/storage"
	storageminio "github.com/gogpu/arprobe/storage/minio"
)

type config struct {
	width, height int
	rotation      int
	frames        int
	taps          int
	tapRate       float64
	useGPU        bool
	seed          uint64
	photoDir      string
	minioEndpoint string
	minioBucket   string
	minioAccess   string
	minioSecret   string
	metricsAddr   string
	output        string
	verbose       bool
}

func main() {
	var cfg config
	flag.IntVar(&cfg.width, "width", 640, "display width")
	flag.IntVar(&cfg.height, "height", 480, "display height")
	flag.IntVar(&cfg.rotation, "rotation", 0, "display rotation in degrees (0, 90, 180, 270)")
	flag.IntVar(&cfg.frames, "frames", 300, "maximum frames to render")
	flag.IntVar(&cfg.taps, "taps", 6, "taps to place")
	flag.Float64Var(&cfg.tapRate, "tap-rate", 20, "maximum taps per second")
	flag.BoolVar(&cfg.useGPU, "gpu", true, "use the GPU sampler when available")
	flag.Uint64Var(&cfg.seed, "seed", 0, "random palette seed (0 keeps the default palette)")
	flag.StringVar(&cfg.photoDir, "photos", "photos", "photo directory")
	flag.StringVar(&cfg.minioEndpoint, "minio", "", "MinIO endpoint; stores photos there instead of -photos")
	flag.StringVar(&cfg.minioBucket, "minio-bucket", "arprobe", "MinIO bucket")
	flag.StringVar(&cfg.minioAccess, "minio-access", "minioadmin", "MinIO access key")
	flag.StringVar(&cfg.minioSecret, "minio-secret", "minioadmin", "MinIO secret key")
	flag.StringVar(&cfg.metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	flag.StringVar(&cfg.output, "output", "arprobe.png", "overlay output file")
	flag.BoolVar(&cfg.verbose, "v", false, "log render loop diagnostics")
	flag.Parse()

	if cfg.verbose {
		arprobe.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("arprobe: %v", err)
	}
}

func run(ctx context.Context, cfg config) error {
	simCfg := sim.Config{}
	if cfg.seed != 0 {
		simCfg.Palette = scenePalette(cfg.seed)
	}
	session := sim.NewSession(simCfg)

	photos, err := newPhotoStore(ctx, cfg)
	if err != nil {
		return err
	}
	metrics, err := newMetrics(cfg)
	if err != nil {
		return err
	}

	repo := storage.NewMemoryRepository()
	capturer := arprobe.NewCapturer(repo, photos,
		arprobe.WithCaptureContext(ctx),
		arprobe.WithCaptureMetrics(metrics))
	taps := arprobe.NewTapQueue(arprobe.WithTapRate(rate.Limit(cfg.tapRate), 2))

	renderer := arprobe.Renderer(arprobe.NewSoftwareRenderer())
	if cfg.useGPU {
		renderer = arprobe.DefaultRenderer()
	}
	log.Printf("renderer: %s", renderer.Name())

	loop := arprobe.NewRenderLoop(session, renderer,
		arprobe.WithTapQueue(taps),
		arprobe.WithCapturer(capturer),
		arprobe.WithMetrics(metrics))
	defer func() {
		if err := loop.Destroy(); err != nil {
			log.Printf("destroy: %v", err)
		}
	}()

	if err := loop.Resume(); err != nil {
		return err
	}
	if err := loop.SurfaceCreated(); err != nil {
		return err
	}
	if err := loop.SurfaceChanged(cfg.width, cfg.height, ar.RotationFromDegrees(cfg.rotation)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	var captured arprobe.ProbeState

	if cfg.metricsAddr != "" {
		srv := &http.Server{Addr: cfg.metricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		log.Printf("metrics on http://%s/metrics", cfg.metricsAddr)
	}

	// Render goroutine.
	g.Go(func() error {
		ticker := time.NewTicker(sim.FrameInterval)
		defer ticker.Stop()
		for i := 0; i < cfg.frames; i++ {
			if err := loop.DrawFrame(gctx); err != nil {
				return fmt.Errorf("frame %d: %w", i, err)
			}
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
			}
		}
		return errors.New("ran out of frames before the capture finished")
	})

	// UI goroutine.
	g.Go(func() error {
		defer close(done)
		updates, cancel := loop.Probes().Subscribe()
		defer cancel()

		for _, p := range tapPoints(cfg.width, cfg.height, cfg.taps) {
			for !loop.ProduceTap(p.X, p.Y) {
				// Rate limited; retry after the next frame.
				if err := waitUpdate(gctx, updates); err != nil {
					return err
				}
			}
		}
		for taps.Len() > 0 {
			if err := waitUpdate(gctx, updates); err != nil {
				return err
			}
		}
		// One more publish so the probes of the last taps carry colors.
		if err := waitUpdate(gctx, updates); err != nil {
			return err
		}
		captured = loop.Probes().Snapshot()
		log.Printf("%d probes placed from %d taps", len(captured.Visible()), cfg.taps)

		loop.CaptureAll()
		for loop.CaptureStatus() != arprobe.CaptureNone {
			if err := waitUpdate(gctx, updates); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if err := capturer.Wait(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	report(repo)
	if basic, ok := metrics.(*arprobe.BasicMetricsCollector); ok {
		log.Printf("stats: %+v", basic.GetStats())
	}
	if err := writeOverlay(cfg.output, renderer, captured, cfg.width, cfg.height); err != nil {
		return err
	}
	log.Printf("overlay saved to %s", cfg.output)
	return nil
}

func waitUpdate(ctx context.Context, updates <-chan arprobe.ProbeState) error {
	select {
	case <-updates:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tapPoints spreads n taps over the lower half of the display, where the
// default camera sees the ground.
func tapPoints(w, h, n int) []arprobe.Coordinate {
	pts := make([]arprobe.Coordinate, n)
	for i := range pts {
		x := float32(w) * float32(i+1) / float32(n+1)
		y := float32(h) * (0.6 + 0.3*float32(i%3)/2)
		pts[i] = arprobe.Pt(x, y)
	}
	return pts
}

func newPhotoStore(ctx context.Context, cfg config) (arprobe.PhotoStore, error) {
	if cfg.minioEndpoint == "" {
		return storage.NewDirPhotoStore(cfg.photoDir)
	}
	client, err := minio.New(cfg.minioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.minioAccess, cfg.minioSecret, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.minioBucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.minioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio bucket: %w", err)
		}
	}
	return storageminio.NewPhotoStore(client, cfg.minioBucket, "photos/"), nil
}

func newMetrics(cfg config) (arprobe.MetricsCollector, error) {
	if cfg.metricsAddr == "" {
		return &arprobe.BasicMetricsCollector{}, nil
	}
	return promcollector.NewCollector(prom.DefaultRegisterer)
}

// scenePalette builds tile colors from generated palettes.
func scenePalette(seed uint64) []color.NRGBA {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var out []color.NRGBA
	for len(out) < 8 {
		for _, c := range arprobe.GeneratePalette(rng) {
			out = append(out, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}
	return out
}

func report(repo *storage.MemoryRepository) {
	for _, p := range repo.PalettesWithColors() {
		hexes := make([]string, len(p.Colors))
		for i, c := range p.Colors {
			hexes[i] = c.Hex()
		}
		log.Printf("palette %d: %v", p.Palette.ID, hexes)
	}
	for _, p := range repo.Photos() {
		log.Printf("photo %d: %s", p.ID, p.URI)
	}
}
