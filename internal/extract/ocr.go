package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/local/docconvert/internal/config"
	"github.com/local/docconvert/internal/document"
	"github.com/local/docconvert/internal/metrics"
	"github.com/local/docconvert/internal/render"
)

// OCRStrategy rasterizes pages and runs the tesseract binary over
// them, parsing its TSV output into positioned line blocks. Pages run
// in parallel up to the configured worker count.
type OCRStrategy struct {
	cfg config.OCRConfig
}

func NewOCRStrategy(cfg config.OCRConfig) *OCRStrategy {
	return &OCRStrategy{cfg: cfg}
}

func (s *OCRStrategy) Name() string { return NameOCR }

func (s *OCRStrategy) Extract(ctx context.Context, src *document.Source, analysis document.Analysis) (*document.Content, error) {
	binary, err := exec.LookPath(s.cfg.Binary)
	if err != nil {
		return nil, &document.UnavailableError{Service: "ocr", Reason: fmt.Sprintf("%s not found in PATH", s.cfg.Binary)}
	}

	tmpDir, err := os.MkdirTemp("", "docconvert-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pages := analysis.Pages
	if len(pages) == 0 {
		pages = []document.PageInfo{{Index: 1, Width: 595.28, Height: 841.89, Orientation: document.Portrait}}
	}

	var mu sync.Mutex
	perPage := make(map[int][]document.Block, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(s.cfg.Workers))

	for _, info := range pages {
		info := info
		g.Go(func() error {
			dpi := s.pageDPI(analysis.Class, info.Orientation)
			blocks, err := s.ocrPage(gctx, binary, tmpDir, src.Data, info, dpi)
			if err != nil {
				return fmt.Errorf("page %d: %w", info.Index, err)
			}
			mu.Lock()
			perPage[info.Index] = blocks
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic page order regardless of worker completion order.
	indices := make([]int, 0, len(perPage))
	for idx := range perPage {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var blocks []document.Block
	for _, idx := range indices {
		blocks = append(blocks, perPage[idx]...)
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("OCR found no text: %w", ErrNoContent)
	}

	log.Debug().
		Str("filename", src.Filename).
		Int("pages", len(pages)).
		Int("blocks", len(blocks)).
		Msg("OCR extraction complete")

	return &document.Content{Blocks: blocks, PageCount: len(pages)}, nil
}

// pageDPI picks the render resolution. Official documents get the
// highest setting so stamps and fine print survive; landscape pages
// get a bump because they tend to hold tables.
// errgroup treats a limit of zero as "no goroutines may start", so a
// missing worker count must clamp to one.
func workerLimit(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func (s *OCRStrategy) pageDPI(class document.Class, orientation document.Orientation) int {
	if class == document.ClassOfficial {
		return s.cfg.DPIOfficial
	}
	if orientation == document.Landscape {
		return s.cfg.DPILandscape
	}
	return s.cfg.DPIPortrait
}

func (s *OCRStrategy) ocrPage(ctx context.Context, binary, tmpDir string, data []byte, info document.PageInfo, dpi int) ([]document.Block, error) {
	gray, err := render.PageGray(data, info.Index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	metrics.IncRendered("ocr")

	payload, err := render.EncodePNG(gray)
	if err != nil {
		return nil, err
	}
	imgPath := filepath.Join(tmpDir, fmt.Sprintf("page_%04d.png", info.Index))
	if err := os.WriteFile(imgPath, payload, 0o644); err != nil {
		return nil, fmt.Errorf("write page image: %w", err)
	}

	out, err := s.runTesseract(ctx, binary, imgPath, s.cfg.Languages)
	if err != nil && s.cfg.FallbackLanguage != "" && s.cfg.FallbackLanguage != s.cfg.Languages {
		log.Warn().Err(err).Int("page", info.Index).Str("fallback", s.cfg.FallbackLanguage).
			Msg("OCR failed, retrying with fallback language")
		out, err = s.runTesseract(ctx, binary, imgPath, s.cfg.FallbackLanguage)
	}
	if err != nil {
		return nil, err
	}

	scale := 72.0 / float64(dpi)
	return parseTSV(out, info.Index, scale, s.cfg.ConfidenceFloor), nil
}

func (s *OCRStrategy) runTesseract(ctx context.Context, binary, imgPath, lang string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.PageTimeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(cctx, binary, imgPath, "stdout", "-l", lang, "--psm", "6", "tsv")
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("tesseract timeout after %s", s.cfg.PageTimeout)
		}
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	log.Debug().Str("lang", lang).Dur("duration", time.Since(start)).Msg("tesseract run complete")
	return stdout.String(), nil
}

// tsvWord is one level-5 row of tesseract TSV output.
type tsvWord struct {
	block, par, line         int
	left, top, width, height int
	conf                     float64
	text                     string
}

// parseTSV groups word rows into line blocks, converting pixel
// geometry to points via scale.
func parseTSV(out string, page int, scale, confidenceFloor float64) []document.Block {
	lines := strings.Split(out, "\n")

	type lineKey struct{ block, par, line int }
	order := []lineKey{}
	grouped := map[lineKey][]tsvWord{}

	for i, row := range lines {
		if i == 0 || strings.TrimSpace(row) == "" {
			continue // header or trailing blank
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		level, _ := strconv.Atoi(cols[0])
		if level != 5 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		w := tsvWord{text: text}
		w.block, _ = strconv.Atoi(cols[2])
		w.par, _ = strconv.Atoi(cols[3])
		w.line, _ = strconv.Atoi(cols[4])
		w.left, _ = strconv.Atoi(cols[6])
		w.top, _ = strconv.Atoi(cols[7])
		w.width, _ = strconv.Atoi(cols[8])
		w.height, _ = strconv.Atoi(cols[9])
		w.conf, _ = strconv.ParseFloat(cols[10], 64)

		key := lineKey{w.block, w.par, w.line}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], w)
	}

	var blocks []document.Block
	for _, key := range order {
		words := grouped[key]
		sort.SliceStable(words, func(i, j int) bool { return words[i].left < words[j].left })

		minX, minY := words[0].left, words[0].top
		maxX, maxY := words[0].left+words[0].width, words[0].top+words[0].height
		confSum := 0.0
		parts := make([]string, 0, len(words))
		for _, w := range words {
			parts = append(parts, w.text)
			confSum += w.conf
			if w.left < minX {
				minX = w.left
			}
			if w.top < minY {
				minY = w.top
			}
			if w.left+w.width > maxX {
				maxX = w.left + w.width
			}
			if w.top+w.height > maxY {
				maxY = w.top + w.height
			}
		}
		avgConf := confSum / float64(len(words))

		blocks = append(blocks, document.Block{
			Kind: document.BlockText,
			Page: page,
			BBox: document.BBox{
				X: float64(minX) * scale,
				Y: float64(minY) * scale,
				W: float64(maxX-minX) * scale,
				H: float64(maxY-minY) * scale,
			},
			Text:          strings.Join(parts, " "),
			Font:          document.FontHint{Size: float64(maxY-minY) * scale},
			Confidence:    avgConf,
			LowConfidence: avgConf < confidenceFloor,
		})
	}
	return blocks
}
