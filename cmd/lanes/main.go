// Command lanes resolves a CSV of lanes through the configured provider
// chain and distance cache, then writes the results as JSON. Running it
// against a shared cache backend warms the cache for the lanes listed.
//
// The CSV needs an origin and destination column; id, equipment, hazmat and
// stops (semicolon separated) are optional.
//
// Usage:
//
//	CACHE_BACKEND=postgres DATABASE_URL=... go run ./cmd/lanes \
//	  -in data/lanes.csv \
//	  -out data/lane_distances.json
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/freight-mileage-service/internal/adapter/routing"
	"github.com/couchcryptid/freight-mileage-service/internal/cache"
	"github.com/couchcryptid/freight-mileage-service/internal/cache/backend"
	"github.com/couchcryptid/freight-mileage-service/internal/config"
	"github.com/couchcryptid/freight-mileage-service/internal/domain"
	"github.com/couchcryptid/freight-mileage-service/internal/mileage"
	"github.com/couchcryptid/freight-mileage-service/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "", "CSV file of lanes to resolve")
	out := flag.String("out", "", "output path for the JSON results (default stdout)")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		return errors.New("missing required flag: -in")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	f, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	reqs, err := readLanes(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *in, err)
	}
	log.Printf("read %d lanes", len(reqs))

	ctx := context.Background()
	store, closeStore, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open distance cache: %w", err)
	}
	defer closeStore()

	primary, _ := domain.ParseProviderID(cfg.ActiveProvider)
	resolver, err := mileage.NewResolver(primary, routing.NewProviders(cfg, logger),
		cache.New(store, cfg.CacheTTL, clockwork.NewRealClock(), logger, metrics), logger, metrics)
	if err != nil {
		return err
	}
	batch := mileage.NewBatchResolver(resolver, cfg.BatchConcurrency, logger, metrics)

	lanes := make([]domain.Lane, len(reqs))
	for i, r := range reqs {
		lanes[i] = r.Lane()
	}
	results := batch.ResolveBatch(ctx, lanes)

	distances := make([]domain.LaneDistance, len(reqs))
	for i, r := range reqs {
		distances[i] = domain.NewLaneDistance(r, results[i])
	}

	if err := writeJSON(*out, distances); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	printStats(distances)
	return nil
}

// readLanes parses a header-led CSV into lane requests. Rows without an
// origin or destination are rejected with their line number.
func readLanes(r io.Reader) ([]domain.LaneRequest, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"origin", "destination"} {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing %q column", col)
		}
	}

	reqs := make([]domain.LaneRequest, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		req := domain.LaneRequest{
			ID:          get(row, colIdx, "id"),
			Origin:      get(row, colIdx, "origin"),
			Destination: get(row, colIdx, "destination"),
			Equipment:   get(row, colIdx, "equipment"),
		}
		if req.ID == "" {
			req.ID = strconv.Itoa(line)
		}
		if req.Origin == "" || req.Destination == "" {
			return nil, fmt.Errorf("line %d: origin and destination are required", line)
		}
		if h := get(row, colIdx, "hazmat"); h != "" {
			req.Hazmat, err = strconv.ParseBool(h)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid hazmat %q", line, h)
			}
		}
		if s := get(row, colIdx, "stops"); s != "" {
			for _, stop := range strings.Split(s, ";") {
				if stop = strings.TrimSpace(stop); stop != "" {
					req.Stops = append(req.Stops, stop)
				}
			}
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// printStats logs how many lanes each source answered.
func printStats(distances []domain.LaneDistance) {
	counts := map[string]int{}
	cached := 0
	for _, d := range distances {
		counts[string(d.Distance.Source)]++
		if d.Distance.Cached {
			cached++
		}
	}
	sources := make([]string, 0, len(counts))
	for s := range counts {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		log.Printf("%s: %d lanes", s, counts[s])
	}
	log.Printf("served from cache: %d/%d", cached, len(distances))
}
