// Command import-postings ingests a JSONL dump of crawled profiles and
// job postings into the observation tables. Each line is one document:
//
//	{"id": "p1", "source": "linkedin", "language": "en",
//	 "posting": false, "title": "Senior Engineer", "company": "Acme",
//	 "skills": ["Go", "SQL"],
//	 "experiences": [{"title": "Engineer", "skills": ["Go"]}]}
//
// Titles, companies and skills are normalized on the way in; mentions
// that normalize to nothing are dropped and counted. HTML left in
// scraped fields is stripped first.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/cognicore/tabellarius/internal/htmltext"
	"github.com/cognicore/tabellarius/pkg/catalog"
	"github.com/cognicore/tabellarius/pkg/catalog/config"
	"github.com/cognicore/tabellarius/pkg/catalog/normalize"
	"github.com/cognicore/tabellarius/pkg/catalog/store"
	"github.com/cognicore/tabellarius/pkg/catalog/store/sqlite"
)

// Document is one line of the dump.
type Document struct {
	ID          string       `json:"id"`
	Source      string       `json:"source"`
	Language    string       `json:"language"`
	Posting     bool         `json:"posting"`
	Title       string       `json:"title"`
	Company     string       `json:"company"`
	Sector      string       `json:"sector"`
	Skills      []string     `json:"skills"`
	Experiences []Experience `json:"experiences"`
	Institute   string       `json:"institute"`
	Degree      string       `json:"degree"`
	Subject     string       `json:"subject"`
}

// Experience is one nested work-history record.
type Experience struct {
	Title   string   `json:"title"`
	Company string   `json:"company"`
	Skills  []string `json:"skills"`
}

func main() {
	var (
		input    = flag.String("input", "", "Path to JSONL dump (required)")
		dbPath   = flag.String("db", "", "Path to SQLite database (required)")
		packPath = flag.String("lang-pack", "", "Optional language pack YAML")
		vocab    = flag.String("skill-vocab", "", "Optional newline-separated skill vocabulary for job-posting titles")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("--input required")
	}
	if *dbPath == "" {
		log.Fatal("--db required")
	}

	normOpts := normalize.Options{}
	if *packPath != "" {
		pack, err := config.LoadLanguagePack(*packPath)
		if err != nil {
			log.Fatal("Failed to load language pack: ", err)
		}
		normOpts.Packs = []*normalize.LanguagePack{pack}
	}
	if *vocab != "" {
		words, err := loadVocabulary(*vocab)
		if err != nil {
			log.Fatal("Failed to load skill vocabulary: ", err)
		}
		normOpts.SkillVocabulary = words
	}

	ctx := context.Background()
	st, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal("Failed to open store: ", err)
	}

	builder := catalog.New(catalog.Options{
		Store:      st,
		Normalizer: normalize.New(normOpts),
	})
	defer builder.Close()

	f, err := os.Open(*input)
	if err != nil {
		log.Fatal("Failed to open input: ", err)
	}
	defer f.Close()

	var imported, skippedDocs, droppedMentions int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc Document
		if err := json.Unmarshal(line, &doc); err != nil {
			skippedDocs++
			continue
		}
		if doc.ID == "" || doc.Source == "" || doc.Language == "" {
			skippedDocs++
			continue
		}

		dropped, err := importDocument(ctx, builder, doc)
		if err != nil {
			log.Fatal("Import failed: ", err)
		}
		droppedMentions += dropped

		imported++
		if imported%1000 == 0 {
			log.Printf("Imported %d documents...", imported)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatal("Read failed: ", err)
	}

	log.Printf("Imported %d documents (%d skipped, %d mentions dropped by normalization)",
		imported, skippedDocs, droppedMentions)
}

// importDocument records every entity mention of one document and
// returns how many mentions normalization dropped.
func importDocument(ctx context.Context, builder *catalog.Builder, doc Document) (int, error) {
	dropped := 0
	observe := func(entityType, raw string, kind store.Kind) error {
		raw = htmltext.Extract(raw)
		if raw == "" {
			return nil
		}
		kept, err := builder.Observe(ctx, entityType, doc.Source, doc.Language, raw, doc.ID, kind, 1)
		if err != nil {
			return err
		}
		if !kept {
			dropped++
		}
		return nil
	}

	titleType := normalize.TypeTitle
	if doc.Posting {
		titleType = normalize.TypeJobTitle
	}

	if doc.Title != "" {
		if err := observe(titleType, doc.Title, store.KindProfile); err != nil {
			return dropped, err
		}
	}
	if doc.Company != "" {
		if err := observe(normalize.TypeCompany, doc.Company, store.KindProfile); err != nil {
			return dropped, err
		}
	}
	if doc.Sector != "" {
		if err := observe(normalize.TypeSector, doc.Sector, store.KindProfile); err != nil {
			return dropped, err
		}
	}
	if doc.Institute != "" {
		if err := observe(normalize.TypeInstitute, doc.Institute, store.KindProfile); err != nil {
			return dropped, err
		}
	}
	if doc.Degree != "" {
		if err := observe(normalize.TypeDegree, doc.Degree, store.KindProfile); err != nil {
			return dropped, err
		}
	}
	if doc.Subject != "" {
		if err := observe(normalize.TypeSubject, doc.Subject, store.KindProfile); err != nil {
			return dropped, err
		}
	}
	for _, skill := range doc.Skills {
		if err := observe(normalize.TypeSkill, skill, store.KindProfile); err != nil {
			return dropped, err
		}
	}

	var historyTitles []string
	for _, exp := range doc.Experiences {
		if exp.Title != "" {
			historyTitles = append(historyTitles, htmltext.Extract(exp.Title))
			if err := observe(normalize.TypeTitle, exp.Title, store.KindSubdocument); err != nil {
				return dropped, err
			}
		}
		if exp.Company != "" {
			if err := observe(normalize.TypeCompany, exp.Company, store.KindSubdocument); err != nil {
				return dropped, err
			}
		}
		for _, skill := range exp.Skills {
			if err := observe(normalize.TypeSkill, skill, store.KindSubdocument); err != nil {
				return dropped, err
			}
		}
	}
	if len(historyTitles) > 0 {
		err := builder.RecordTitleHistory(ctx, doc.Source, doc.Language, doc.ID, historyTitles)
		if err != nil {
			return dropped, err
		}
	}

	return dropped, nil
}

func loadVocabulary(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		words = append(words, line)
	}
	return words, scanner.Err()
}
