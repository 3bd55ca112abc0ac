// Command build-catalog rebuilds the entity catalog for one or more
// observation slices: it partitions each slice's key domain, rebuilds
// every partition in parallel, and reports per-partition outcomes.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/cognicore/tabellarius/pkg/catalog"
	"github.com/cognicore/tabellarius/pkg/catalog/config"
	"github.com/cognicore/tabellarius/pkg/catalog/normalize"
	"github.com/cognicore/tabellarius/pkg/catalog/store"
	"github.com/cognicore/tabellarius/pkg/catalog/store/sqlite"
)

func main() {
	var (
		dbPath      = flag.String("db", "", "Path to SQLite database (required unless -config)")
		cfgPath     = flag.String("config", "", "Optional job config YAML covering multiple slices")
		entityType  = flag.String("type", "", "Entity type (skill, title, job_title, company, ...)")
		source      = flag.String("source", "", "Observation source (linkedin, indeed, adzuna, ...)")
		language    = flag.String("language", "en", "Language code")
		batches     = flag.Int("batches", 1, "Number of key-range partitions")
		concurrency = flag.Int("concurrency", 1, "Parallel partition workers")
		batchSize   = flag.Int("batch-size", 1000, "Writer commit interval")
		packPath    = flag.String("lang-pack", "", "Optional language pack YAML")
		careerSteps = flag.Bool("career-steps", false, "Also rebuild career-step records")
	)
	flag.Parse()

	var selectors []config.EntitySelector
	if *cfgPath != "" {
		cfg, err := config.LoadJobConfig(*cfgPath)
		if err != nil {
			log.Fatal("Failed to load job config: ", err)
		}
		*dbPath = cfg.Database
		*batches = cfg.Batches
		*concurrency = cfg.Concurrency
		*batchSize = cfg.BatchSize
		selectors = cfg.Entities
	} else {
		if *dbPath == "" {
			log.Fatal("--db required")
		}
		if !normalize.ValidType(*entityType) {
			log.Fatalf("--type must be a known entity type, got %q", *entityType)
		}
		if *source == "" {
			log.Fatal("--source required")
		}
		selectors = []config.EntitySelector{{
			Type:     *entityType,
			Source:   *source,
			Language: *language,
		}}
	}

	normOpts := normalize.Options{}
	if *packPath != "" {
		pack, err := config.LoadLanguagePack(*packPath)
		if err != nil {
			log.Fatal("Failed to load language pack: ", err)
		}
		normOpts.Packs = []*normalize.LanguagePack{pack}
	}

	ctx := context.Background()
	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal("Failed to open store: ", err)
	}

	builder := catalog.New(catalog.Options{
		Store:       st,
		Normalizer:  normalize.New(normOpts),
		BatchSize:   *batchSize,
		Concurrency: *concurrency,
	})
	defer builder.Close()

	failed := 0
	for _, sel := range selectors {
		q := store.Query{Type: sel.Type, Source: sel.Source, Language: sel.Language}
		log.Printf("Rebuilding %s:%s:%s in %d batches...", sel.Type, sel.Source, sel.Language, *batches)

		results, err := builder.Rebuild(ctx, q, *batches)
		if err != nil {
			log.Fatal("Rebuild aborted: ", err)
		}
		for _, r := range results {
			if r.Err != nil {
				failed++
				upper := "<end>"
				if r.Interval.Upper != nil {
					upper = *r.Interval.Upper
				}
				log.Printf("Partition [%s, %s) failed: %v", r.Interval.Lower, upper, r.Err)
			}
		}
	}

	if *careerSteps {
		written, err := builder.BuildCareerSteps(ctx)
		if err != nil {
			log.Fatal("Career-step rebuild failed: ", err)
		}
		log.Printf("Career steps: %d records", written)
	}

	if failed > 0 {
		log.Printf("%d partitions failed; re-run the same slices to repair them", failed)
		os.Exit(1)
	}
	log.Println("Catalog rebuild complete")
}
