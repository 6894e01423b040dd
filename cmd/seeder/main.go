package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/foxxcyber/pantry-assist/internal/config"
	"github.com/foxxcyber/pantry-assist/internal/database"
	"github.com/foxxcyber/pantry-assist/internal/logger"
	"github.com/foxxcyber/pantry-assist/internal/models"
	"github.com/foxxcyber/pantry-assist/internal/usage"
)

// CatalogEntry is one product row of a catalog CSV
type CatalogEntry struct {
	Name        string
	Category    string
	Unit        string
	Description string
}

// extraUnits supplements the units created by the migrations
var extraUnits = []models.Unit{
	{Name: "puszka", Abbreviation: "puszka", Kind: "count"},
	{Name: "pęczek", Abbreviation: "pęczek", Kind: "count"},
	{Name: "szczypta", Abbreviation: "szczypta", Kind: "mass"},
}

// builtinCatalog is used when no CSV is given
var builtinCatalog = []CatalogEntry{
	{"mleko", "nabiał", "l", "Mleko krowie"},
	{"masło", "nabiał", "g", ""},
	{"śmietana", "nabiał", "ml", ""},
	{"jogurt naturalny", "nabiał", "g", ""},
	{"ser żółty", "nabiał", "g", ""},
	{"twaróg", "nabiał", "g", ""},
	{"jajka", "nabiał", "szt", ""},
	{"mąka pszenna", "sypkie", "g", ""},
	{"cukier", "sypkie", "g", ""},
	{"sól", "przyprawy", "g", ""},
	{"pieprz", "przyprawy", "g", ""},
	{"ryż", "sypkie", "g", ""},
	{"makaron", "sypkie", "g", ""},
	{"kasza gryczana", "sypkie", "g", ""},
	{"olej rzepakowy", "tłuszcze", "ml", ""},
	{"oliwa z oliwek", "tłuszcze", "ml", ""},
	{"cebula", "warzywa", "szt", ""},
	{"czosnek", "warzywa", "szt", ""},
	{"ziemniaki", "warzywa", "kg", ""},
	{"marchew", "warzywa", "szt", ""},
	{"pomidory", "warzywa", "szt", ""},
	{"jabłka", "owoce", "szt", ""},
	{"cytryna", "owoce", "szt", ""},
	{"pierś z kurczaka", "mięso", "g", ""},
	{"mięso mielone", "mięso", "g", ""},
	{"boczek", "mięso", "g", ""},
	{"łosoś", "ryby", "g", ""},
	{"tofu", "roślinne", "g", ""},
	{"mleko owsiane", "roślinne", "l", ""},
	{"chleb", "pieczywo", "szt", ""},
	{"drożdże", "sypkie", "g", ""},
	{"proszek do pieczenia", "sypkie", "g", ""},
	{"miód", "słodkie", "g", ""},
}

func main() {
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing to database")
	localFile := flag.String("file", "", "Catalog CSV file (name,category,unit,description)")
	sourceURL := flag.String("url", "", "Download the catalog CSV from this URL")
	categoryFilter := flag.String("category", "", "Only import products from this category")
	receiptScans := flag.Int("daily-receipt-scans", usage.DefaultLimits.ReceiptScans, "Daily receipt scan limit to store")
	substitutions := flag.Int("daily-substitutions", usage.DefaultLimits.Substitutions, "Daily substitution analysis limit to store")
	skipLimits := flag.Bool("skip-limits", false, "Leave the stored usage limits unchanged")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Development: true}).Named("seeder")
	defer log.Sync()

	entries, err := loadCatalog(*localFile, *sourceURL, log)
	if err != nil {
		log.Fatal("failed to load catalog", zap.Error(err))
	}
	entries = filterCategory(entries, *categoryFilter)

	log.Info("catalog loaded", zap.Int("products", len(entries)))

	limits := usage.Limits{ReceiptScans: *receiptScans, Substitutions: *substitutions}
	if limits.ReceiptScans < 0 || limits.Substitutions < 0 {
		log.Fatal("limits must not be negative")
	}

	if *dryRun {
		log.Info("DRY RUN - no changes will be made")
		printPreview(entries, limits, 20)
		return
	}

	ctx := context.Background()

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	for i := range extraUnits {
		if err := db.UpsertUnit(ctx, &extraUnits[i]); err != nil {
			log.Fatal("failed to upsert unit", zap.String("unit", extraUnits[i].Name), zap.Error(err))
		}
	}
	log.Info("units ensured", zap.Int("extra", len(extraUnits)))

	imported, skipped, err := importCatalog(ctx, db, entries, log)
	if err != nil {
		log.Fatal("failed to import catalog", zap.Error(err))
	}
	log.Info("catalog import complete", zap.Int("imported", imported), zap.Int("skipped", skipped))

	if !*skipLimits {
		if err := db.SetUsageLimits(ctx, limits); err != nil {
			log.Fatal("failed to store usage limits", zap.Error(err))
		}
		log.Info("usage limits stored",
			zap.Int("daily_receipt_scans", limits.ReceiptScans),
			zap.Int("daily_substitutions", limits.Substitutions),
		)
	}
}

func loadCatalog(file, url string, log *zap.Logger) ([]CatalogEntry, error) {
	switch {
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog file: %w", err)
		}
		defer f.Close()
		log.Info("reading catalog", zap.String("file", file))
		return parseCatalog(f, log)

	case url != "":
		log.Info("downloading catalog", zap.String("url", url))
		resp, err := http.Get(url)
		if err != nil {
			return nil, fmt.Errorf("failed to download catalog: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download catalog: HTTP %d", resp.StatusCode)
		}
		return parseCatalog(resp.Body, log)
	}

	out := make([]CatalogEntry, len(builtinCatalog))
	copy(out, builtinCatalog)
	return out, nil
}

// parseCatalog reads a CSV with a header row. Columns are matched by name,
// only "name" is required. Later rows win when a name repeats.
func parseCatalog(reader io.Reader, log *zap.Logger) ([]CatalogEntry, error) {
	csvReader := csv.NewReader(bufio.NewReader(reader))
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	nameCol, ok := colMap["name"]
	if !ok {
		return nil, errors.New(`catalog CSV needs a "name" column`)
	}

	field := func(record []string, col string) string {
		i, ok := colMap[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	byName := make(map[string]CatalogEntry)
	rowCount := 0
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("skipping malformed row", zap.Error(err))
			continue
		}
		rowCount++

		if nameCol >= len(record) {
			continue
		}
		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			continue
		}

		byName[strings.ToLower(name)] = CatalogEntry{
			Name:        name,
			Category:    field(record, "category"),
			Unit:        field(record, "unit"),
			Description: field(record, "description"),
		}
	}

	log.Debug("processed catalog rows", zap.Int("rows", rowCount))

	entries := make([]CatalogEntry, 0, len(byName))
	for _, e := range byName {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Category != entries[j].Category {
			return entries[i].Category < entries[j].Category
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func filterCategory(entries []CatalogEntry, category string) []CatalogEntry {
	if category == "" {
		return entries
	}
	var out []CatalogEntry
	for _, e := range entries {
		if strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out
}

// importCatalog upserts products, resolving the unit column by abbreviation
// or name. Unknown units leave the default unset.
func importCatalog(ctx context.Context, db *database.DB, entries []CatalogEntry, log *zap.Logger) (imported, skipped int, err error) {
	// Unit lookups are cached, misses included
	unitIDs := make(map[string]*int)
	unitID := func(name string) (*int, error) {
		key := strings.ToLower(name)
		if id, ok := unitIDs[key]; ok {
			return id, nil
		}
		u, err := db.GetUnitByName(ctx, name)
		if errors.Is(err, database.ErrUnitNotFound) {
			unitIDs[key] = nil
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		unitIDs[key] = &u.ID
		return &u.ID, nil
	}

	for _, e := range entries {
		req := &models.CreateProductRequest{Name: e.Name}
		if e.Category != "" {
			req.Category = &e.Category
		}
		if e.Description != "" {
			req.Description = &e.Description
		}
		if e.Unit != "" {
			id, err := unitID(e.Unit)
			if err != nil {
				return imported, skipped, fmt.Errorf("failed to look up unit %q: %w", e.Unit, err)
			}
			if id == nil {
				log.Warn("unknown unit, leaving default unset", zap.String("product", e.Name), zap.String("unit", e.Unit))
			}
			req.DefaultUnitID = id
		}

		if _, err := db.UpsertProduct(ctx, req); err != nil {
			log.Warn("failed to import product", zap.String("product", e.Name), zap.Error(err))
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped, nil
}

// printPreview shows a sample of the data to be imported
func printPreview(entries []CatalogEntry, limits usage.Limits, limit int) {
	fmt.Println("\n=== Preview of catalog import ===")
	fmt.Printf("Total: %d products\n\n", len(entries))

	categoryCount := make(map[string]int)
	for _, e := range entries {
		categoryCount[e.Category]++
	}

	fmt.Println("Products per category:")
	categories := make([]string, 0, len(categoryCount))
	for c := range categoryCount {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		name := c
		if name == "" {
			name = "(none)"
		}
		fmt.Printf("  %s: %d\n", name, categoryCount[c])
	}

	fmt.Printf("\nSample products (first %d):\n", limit)
	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Printf("  %s [%s] %s\n", e.Name, e.Category, e.Unit)
	}

	fmt.Printf("\nDaily limits: %d receipt scans, %d substitutions\n", limits.ReceiptScans, limits.Substitutions)
}
