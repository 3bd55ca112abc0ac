// Command entity-cloud prints the entities most characteristic of one
// category, e.g. the skills over-represented among holders of a given
// job title.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/cognicore/tabellarius/pkg/catalog"
	"github.com/cognicore/tabellarius/pkg/catalog/mapper"
	"github.com/cognicore/tabellarius/pkg/catalog/normalize"
	"github.com/cognicore/tabellarius/pkg/catalog/store"
	"github.com/cognicore/tabellarius/pkg/catalog/store/sqlite"
)

func main() {
	var (
		dbPath     = flag.String("db", "", "Path to SQLite database (required)")
		category   = flag.String("category", "", "Category key, e.g. title:linkedin:en:softwar engin (required)")
		entityType = flag.String("type", "skill", "Entity type to cloud")
		source     = flag.String("source", "", "Observation source (required)")
		language   = flag.String("language", "en", "Language code")
		sigma      = flag.Float64("sigma", 3.0, "Significance gate in standard errors")
		limit      = flag.Int("limit", 25, "Maximum entities to print")
		mapping    = flag.String("mapping", "", "Optional entity-mapping CSV for display names")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}
	if *category == "" {
		log.Fatal("--category required")
	}
	if *source == "" {
		log.Fatal("--source required")
	}
	if _, err := normalize.ParseKey(*category); err != nil {
		log.Fatal("--category must be a full entity key: ", err)
	}

	ctx := context.Background()
	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal("Failed to open store: ", err)
	}

	builder := catalog.New(catalog.Options{Store: st})
	defer builder.Close()

	names := mapper.New(builder)
	if *mapping != "" {
		if err := names.LoadFile(*mapping); err != nil {
			log.Fatal("Failed to load entity mapping: ", err)
		}
	}

	q := store.Query{Type: *entityType, Source: *source, Language: *language}
	entries, err := builder.EntityCloud(ctx, *category, q, *sigma, *limit)
	if err != nil {
		log.Fatal("Entity cloud failed: ", err)
	}
	if len(entries) == 0 {
		log.Println("No significant entities")
		return
	}

	fmt.Printf("%-40s %10s %10s %8s %8s\n", "ENTITY", "COUNT", "COINC", "SCORE", "STDERR")
	for _, e := range entries {
		name, err := names.Name(ctx, e.Key)
		if err != nil {
			name = e.Key
		}
		fmt.Printf("%-40s %10d %10d %8.4f %8.4f\n",
			name, e.Count, e.Coincidence, e.Score, e.Error)
	}
}
