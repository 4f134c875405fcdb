package convert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/docconvert/internal/assemble"
	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/extract"
	"github.com/local/docconvert/internal/layout"
	"github.com/local/docconvert/internal/metrics"
	"github.com/local/docconvert/internal/render"
)

// Classifier assigns a document class driving chain selection.
type Classifier interface {
	Classify(src *document.Source) document.Analysis
}

// Health tracks per-strategy availability across conversions.
type Health interface {
	IsAvailable(strategy string) bool
	RecordOutcome(strategy string, outcome document.Outcome, dur time.Duration)
	AvgLatency(strategy string) (time.Duration, bool)
}

const (
	fallbackRenderDPI   = 150.0
	fallbackJPEGQuality = 85
)

// Orchestrator runs the strategy chain for a document class until one
// strategy yields output. A conversion never fails: in the worst case
// the placeholder content or the canned document comes back, flagged
// degraded.
type Orchestrator struct {
	classifier    Classifier
	health        Health
	strategies    map[string]extract.Strategy
	reconstructor *layout.Reconstructor
	assembler     *assemble.Assembler
	cloudDisabled bool
}

// New builds an Orchestrator over the given strategies. Strategies
// absent from the map are skipped when a chain names them.
func New(classifier Classifier, health Health, strategies []extract.Strategy, reconstructor *layout.Reconstructor, assembler *assemble.Assembler, cloudDisabled bool) *Orchestrator {
	m := make(map[string]extract.Strategy, len(strategies))
	for _, s := range strategies {
		m[s.Name()] = s
	}
	return &Orchestrator{
		classifier:    classifier,
		health:        health,
		strategies:    m,
		reconstructor: reconstructor,
		assembler:     assembler,
		cloudDisabled: cloudDisabled,
	}
}

// chainEntry pairs a strategy name with its rank. Entries sharing a
// rank are interchangeable and ordered by observed latency.
type chainEntry struct {
	name string
	rank int
}

var chainTable = map[document.Class][]chainEntry{
	document.ClassOfficial: {
		{extract.NameCloudAPI, 0},
		{extract.NameNativeText, 1},
		{extract.NameOCR, 2},
	},
	document.ClassTextBased: {
		{extract.NameCloudAPI, 0},
		{extract.NameNativeText, 1},
	},
	document.ClassScannedImage: {
		{extract.NameOCR, 0},
		{extract.NameCloudAPI, 1},
	},
	document.ClassMixed: {
		{extract.NameNativeText, 0},
		{extract.NameOCR, 0},
		{extract.NameCloudAPI, 1},
	},
}

// chainFor resolves the ordered strategy list for a class. The
// placeholder terminates every chain.
func (o *Orchestrator) chainFor(class document.Class) []string {
	entries := chainTable[class]
	if entries == nil {
		entries = chainTable[document.ClassMixed]
	}

	kept := make([]chainEntry, 0, len(entries))
	for _, e := range entries {
		if e.name == extract.NameCloudAPI && o.cloudDisabled {
			continue
		}
		if _, ok := o.strategies[e.name]; !ok {
			continue
		}
		kept = append(kept, e)
	}

	// Within a rank group, prefer the historically faster strategy.
	// Unsampled strategies keep their declared position.
	for i := 1; i < len(kept); i++ {
		if kept[i].rank != kept[i-1].rank {
			continue
		}
		l1, ok1 := o.health.AvgLatency(kept[i-1].name)
		l2, ok2 := o.health.AvgLatency(kept[i].name)
		if ok1 && ok2 && l2 < l1 {
			kept[i-1], kept[i] = kept[i], kept[i-1]
		}
	}

	chain := make([]string, 0, len(kept)+1)
	for _, e := range kept {
		chain = append(chain, e.name)
	}
	return append(chain, extract.NamePlaceholder)
}

// Convert runs the full pipeline. The only error it surfaces is input
// validation; every other failure mode degrades into fallback output.
func (o *Orchestrator) Convert(ctx context.Context, src *document.Source, format document.Format) (*document.Result, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, &document.ValidationError{Message: "empty document source"}
	}
	if !document.ValidFormat(format) {
		return nil, &document.ValidationError{Message: fmt.Sprintf("unsupported target format: %s", format)}
	}

	start := time.Now()
	analysis := o.classifier.Classify(src)
	chain := o.chainFor(analysis.Class)
	primary := chain[0]

	result := &document.Result{
		ID:        uuid.NewString(),
		Format:    format,
		Class:     analysis.Class,
		PageCount: analysis.PageCount(),
		StartedAt: start,
	}

	log.Info().
		Str("conversion_id", result.ID).
		Str("filename", src.Filename).
		Str("class", string(analysis.Class)).
		Str("format", string(format)).
		Strs("chain", chain).
		Msg("conversion started")

	for i, name := range chain {
		isPlaceholder := name == extract.NamePlaceholder

		// Cancellation is honored between attempts, but the terminal
		// placeholder still runs so the output guarantee holds.
		if err := ctx.Err(); err != nil && !isPlaceholder {
			result.Attempts = append(result.Attempts, document.Attempt{
				Strategy: name, Outcome: document.OutcomeSkipped, Error: err.Error(),
			})
			continue
		}

		if !isPlaceholder && !o.health.IsAvailable(name) {
			// An unavailable strategy is skipped unless nothing real
			// remains after it.
			if realEntriesAfter(chain, i) > 0 {
				log.Debug().Str("conversion_id", result.ID).Str("strategy", name).Msg("strategy unavailable, skipping")
				result.Attempts = append(result.Attempts, document.Attempt{
					Strategy: name, Outcome: document.OutcomeSkipped, Error: "marked unavailable",
				})
				continue
			}
			log.Info().Str("conversion_id", result.ID).Str("strategy", name).Msg("strategy unavailable but last before placeholder, attempting anyway")
		}

		strat := o.strategies[name]
		if strat == nil {
			result.Attempts = append(result.Attempts, document.Attempt{
				Strategy: name, Outcome: document.OutcomeSkipped, Error: "strategy not registered",
			})
			continue
		}
		t0 := time.Now()
		content, err := strat.Extract(ctx, src, analysis)
		dur := time.Since(t0)

		outcome := extract.OutcomeFor(err)
		o.health.RecordOutcome(name, outcome, dur)
		metrics.ObserveAttempt(name, string(outcome), dur)

		attempt := document.Attempt{Strategy: name, Outcome: outcome, DurationMS: dur.Milliseconds()}
		if err != nil {
			attempt.Error = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			log.Warn().
				Str("conversion_id", result.ID).
				Str("strategy", name).
				Str("outcome", string(outcome)).
				Dur("duration", dur).
				Err(err).
				Msg("extraction attempt failed")
			continue
		}

		output, aerr := o.produce(content, analysis, format, src)
		if aerr != nil {
			attempt.Outcome = document.OutcomeSoftFailure
			attempt.Error = fmt.Sprintf("assembly failed: %v", aerr)
			result.Attempts = append(result.Attempts, attempt)
			log.Warn().
				Str("conversion_id", result.ID).
				Str("strategy", name).
				Err(aerr).
				Msg("assembly failed, continuing chain")
			continue
		}

		attempt.Extracted = content
		result.Attempts = append(result.Attempts, attempt)
		result.Output = output
		result.StrategyUsed = name
		break
	}

	if result.Output == nil {
		// Contractually unreachable: the placeholder cannot fail. The
		// canned document keeps the guarantee if it somehow does.
		log.Error().Str("conversion_id", result.ID).Msg("all strategies exhausted including placeholder, emitting canned output")
		result.Output = o.assembler.Canned(format, src.Filename)
		result.StrategyUsed = extract.NamePlaceholder
	}

	result.Degraded = result.StrategyUsed != primary
	result.FinishedAt = time.Now()

	status := "success"
	if result.Degraded {
		status = "degraded"
		metrics.IncDegraded(result.StrategyUsed)
	}
	metrics.ObserveConversion(string(analysis.Class), string(format), status, result.FinishedAt.Sub(start))

	log.Info().
		Str("conversion_id", result.ID).
		Str("strategy", result.StrategyUsed).
		Bool("degraded", result.Degraded).
		Int("attempts", len(result.Attempts)).
		Dur("duration", result.FinishedAt.Sub(start)).
		Msg("conversion finished")

	return result, nil
}

// produce reconstructs layout and assembles the target bytes. The PDF
// target additionally rasterizes the source pages for full-page image
// placement.
func (o *Orchestrator) produce(content *document.Content, analysis document.Analysis, format document.Format, src *document.Source) ([]byte, error) {
	doc := o.reconstructor.Reconstruct(content, analysis)

	if format == document.FormatPDF {
		images, err := render.AllPagesJPEG(src.Data, fallbackRenderDPI, fallbackJPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("rasterize source pages: %w", err)
		}
		doc.PageImages = images
	}

	return o.assembler.Assemble(doc, format)
}

// realEntriesAfter counts non-placeholder entries after index i.
func realEntriesAfter(chain []string, i int) int {
	n := 0
	for _, name := range chain[i+1:] {
		if name != extract.NamePlaceholder {
			n++
		}
	}
	return n
}
