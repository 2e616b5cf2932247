// Command audit runs website audits for a file of businesses without any
// backing services: in-memory store, no persistence, colored summary.
//
// Input format, one business per line:
//
//	Bar Luna;https://www.barluna.it
//	Officina Rossi;rossi-auto.it
//
// Lines starting with # are skipped. A line without a semicolon is
// treated as a bare URL and the host doubles as the business name.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/config"
	"github.com/karalisweb/leadaudit/internal/domain"
	"github.com/karalisweb/leadaudit/internal/scoring"
	"github.com/karalisweb/leadaudit/internal/services/audit"
	"github.com/karalisweb/leadaudit/internal/signals"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow, color.Bold)
	cyan   = color.New(color.FgCyan, color.Bold)
	bold   = color.New(color.Bold)
)

type outcome struct {
	lead *domain.Lead
	err  error
}

func main() {
	godotenv.Load()

	file := flag.String("file", "", "File with one business per line (name;url)")
	workers := flag.Int("workers", 4, "Concurrent audits")
	threshold := flag.Int("threshold", 60, "Callability score threshold (0-100)")
	budget := flag.Duration("budget", 90*time.Second, "Wall-clock budget per audit")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	if *file == "" {
		red.Println("❌ -file is required")
		flag.Usage()
		os.Exit(1)
	}

	entries, err := readEntries(*file)
	if err != nil {
		red.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		yellow.Println("Nothing to audit.")
		return
	}

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	store := audit.NewMemoryStore()
	auditor, err := newAuditor(store, *threshold, *budget, logger)
	if err != nil {
		red.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	var leads []*domain.Lead
	for _, e := range entries {
		website := e.url
		lead := domain.NewLead(e.name, &website)
		store.Put(lead)
		leads = append(leads, lead)
	}

	bold.Printf("Auditing %d websites with %d workers\n\n", len(leads), *workers)

	bar := progressbar.NewOptions(len(leads),
		progressbar.OptionSetDescription("   Auditing..."),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
	)

	outcomes := make([]outcome, len(leads))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				lead := leads[i]
				// SERP corroboration needs an external collaborator;
				// the CLI always runs on tag presence alone.
				_, auditErr := auditor.AuditLead(context.Background(), lead.ID, audit.Options{SkipSerp: true})
				updated, getErr := store.GetByID(context.Background(), lead.ID)
				if getErr != nil {
					outcomes[i] = outcome{err: getErr}
				} else {
					outcomes[i] = outcome{lead: updated, err: auditErr}
				}
				bar.Add(1)
			}
		}()
	}

	for i := range leads {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	fmt.Println()
	fmt.Println()

	printResults(outcomes)
}

type entry struct {
	name string
	url  string
}

func readEntries(path string) ([]entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	var entries []entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, url := line, line
		if i := strings.IndexByte(line, ';'); i >= 0 {
			name = strings.TrimSpace(line[:i])
			url = strings.TrimSpace(line[i+1:])
		} else {
			name = strings.TrimPrefix(strings.TrimPrefix(line, "https://"), "http://")
			if j := strings.IndexByte(name, '/'); j >= 0 {
				name = name[:j]
			}
		}
		entries = append(entries, entry{name: name, url: url})
	}

	return entries, scanner.Err()
}

func newAuditor(store audit.LeadStore, threshold int, budget time.Duration, logger *zap.Logger) (*audit.Auditor, error) {
	scorer, err := scoring.NewScorer(scoring.DefaultWeights())
	if err != nil {
		return nil, err
	}

	cfg := config.AuditConfig{
		ScoreThreshold:    threshold,
		SkipSerp:          true,
		CrawlBudget:       budget,
		RequestTimeout:    15 * time.Second,
		MaxRetries:        2,
		RequestsPerSecond: 2,
		UserAgent:         "Mozilla/5.0 (compatible; KaralisAudit/1.0)",
	}

	probe := audit.NewHTTPProbe(cfg.RequestTimeout, cfg.UserAgent)

	return audit.NewAuditor(store, nil, nil, probe,
		scorer, signals.NewDetector(nil, logger), cfg, nil, logger)
}

func printResults(outcomes []outcome) {
	byTag := make(map[domain.CommercialTag][]*domain.Lead)
	var failed []outcome

	for _, o := range outcomes {
		if o.err != nil || o.lead == nil || o.lead.AuditStatus != domain.AuditStatusCompleted {
			failed = append(failed, o)
			continue
		}
		tag := *o.lead.CommercialTag
		byTag[tag] = append(byTag[tag], o.lead)
	}

	order := []domain.CommercialTag{
		domain.TagAdsAttiveControlloAssente,
		domain.TagTrafficoSenzaDirezione,
		domain.TagStrutturaOkNonPrioritizzata,
		domain.TagDaApprofondire,
		domain.TagNonTarget,
	}

	for _, tag := range order {
		leads := byTag[tag]
		if len(leads) == 0 {
			continue
		}
		sort.Slice(leads, func(i, j int) bool {
			return *leads[i].OpportunityScore > *leads[j].OpportunityScore
		})

		tagColor(tag).Printf("%s (%d)\n", tag, len(leads))
		for _, lead := range leads {
			marker := "  "
			if lead.IsCallable {
				marker = "📞"
			}
			fmt.Printf(" %s %3d  %-30s %s\n", marker, *lead.OpportunityScore, truncate(lead.Name, 30), *lead.Website)
		}
		fmt.Println()
	}

	if len(failed) > 0 {
		red.Printf("FALLITI (%d)\n", len(failed))
		for _, o := range failed {
			if o.lead != nil {
				fmt.Printf("    %-30s %s\n", truncate(o.lead.Name, 30), o.lead.AuditFailReason)
			} else if o.err != nil {
				fmt.Printf("    %v\n", o.err)
			}
		}
		fmt.Println()
	}

	completed := len(outcomes) - len(failed)
	green.Printf("✓ %d completati", completed)
	fmt.Printf(" · ")
	red.Printf("%d falliti\n", len(failed))
}

func tagColor(tag domain.CommercialTag) *color.Color {
	switch tag {
	case domain.TagAdsAttiveControlloAssente:
		return green
	case domain.TagTrafficoSenzaDirezione:
		return cyan
	case domain.TagStrutturaOkNonPrioritizzata:
		return yellow
	case domain.TagNonTarget:
		return red
	default:
		return bold
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
