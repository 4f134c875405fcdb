package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/local/docconvert/internal/config"
	"github.com/local/docconvert/internal/document"
)

// CloudStrategy sends the PDF to a structured-extraction API: upload
// asset, submit an extraction job, poll until done, download the
// element JSON. Elements come back with page geometry in points with a
// top-left origin, so they map straight onto content blocks.
type CloudStrategy struct {
	cfg     config.CloudConfig
	http    *http.Client
	limiter *rate.Limiter
}

func NewCloudStrategy(cfg config.CloudConfig) *CloudStrategy {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	return &CloudStrategy{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (s *CloudStrategy) Name() string { return NameCloudAPI }

func (s *CloudStrategy) Extract(ctx context.Context, src *document.Source, analysis document.Analysis) (*document.Content, error) {
	if s.cfg.Endpoint == "" || s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return nil, &document.AuthError{Service: "cloud_api", Reason: "missing credentials"}
	}
	if !src.IsPDF() {
		return nil, fmt.Errorf("cloud extraction accepts PDF only, got %s: %w", src.MIME, ErrNoContent)
	}

	token, err := s.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	assetID, err := s.upload(ctx, token, src)
	if err != nil {
		return nil, err
	}

	jobURL, err := s.submit(ctx, token, assetID)
	if err != nil {
		return nil, err
	}

	contentURL, err := s.poll(ctx, token, jobURL)
	if err != nil {
		return nil, err
	}

	return s.download(ctx, token, contentURL, analysis)
}

func (s *CloudStrategy) authenticate(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)

	body, err := s.do(ctx, "", http.MethodPost, s.cfg.Endpoint+"/oauth/token",
		"application/x-www-form-urlencoded", []byte(form.Encode()), nil)
	if err != nil {
		var httpErr *document.HTTPError
		if errors.As(err, &httpErr) && (httpErr.StatusCode == 401 || httpErr.StatusCode == 403) {
			return "", &document.AuthError{Service: "cloud_api", Reason: "invalid credentials"}
		}
		return "", err
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.AccessToken == "" {
		return "", fmt.Errorf("malformed token response")
	}
	return resp.AccessToken, nil
}

func (s *CloudStrategy) upload(ctx context.Context, token string, src *document.Source) (string, error) {
	body, err := s.do(ctx, token, http.MethodPost, s.cfg.Endpoint+"/assets",
		"application/pdf", src.Data, nil)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	var resp struct {
		AssetID string `json:"asset_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.AssetID == "" {
		return "", fmt.Errorf("malformed upload response")
	}
	return resp.AssetID, nil
}

func (s *CloudStrategy) submit(ctx context.Context, token, assetID string) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"asset_id": assetID,
		"elements": []string{"text", "tables", "figures"},
	})

	var location string
	_, err := s.do(ctx, token, http.MethodPost, s.cfg.Endpoint+"/operations/extract",
		"application/json", payload, func(resp *http.Response) {
			location = resp.Header.Get("Location")
		})
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	if location == "" {
		return "", fmt.Errorf("submit response missing job location")
	}
	if strings.HasPrefix(location, "/") {
		location = s.cfg.Endpoint + location
	}
	return location, nil
}

func (s *CloudStrategy) poll(ctx context.Context, token, jobURL string) (string, error) {
	deadline := time.Now().Add(s.cfg.PollTimeout)
	for {
		if time.Now().After(deadline) {
			return "", fmt.Errorf("extraction job timeout after %s", s.cfg.PollTimeout)
		}

		body, err := s.do(ctx, token, http.MethodGet, jobURL, "", nil, nil)
		if err != nil {
			return "", fmt.Errorf("poll: %w", err)
		}

		var resp struct {
			Status     string `json:"status"`
			ContentURL string `json:"content_url"`
			Error      string `json:"error"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("malformed job status")
		}

		switch resp.Status {
		case "done":
			if resp.ContentURL == "" {
				return "", fmt.Errorf("job done but no content URL")
			}
			if strings.HasPrefix(resp.ContentURL, "/") {
				return s.cfg.Endpoint + resp.ContentURL, nil
			}
			return resp.ContentURL, nil
		case "failed":
			return "", fmt.Errorf("extraction job failed: %s", resp.Error)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// cloudElement is one entry of the extraction result JSON.
type cloudElement struct {
	Path   string     `json:"path"`
	Page   int        `json:"page"`
	Text   string     `json:"text"`
	Bounds [4]float64 `json:"bounds"`
	Font   struct {
		Name   string  `json:"name"`
		Size   float64 `json:"size"`
		Weight int     `json:"weight"`
	} `json:"font"`
	Data string `json:"data"` // base64 image payload for figures
	MIME string `json:"mime"`
}

func (s *CloudStrategy) download(ctx context.Context, token, contentURL string, analysis document.Analysis) (*document.Content, error) {
	body, err := s.do(ctx, token, http.MethodGet, contentURL, "", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	var resp struct {
		Elements []cloudElement `json:"elements"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed extraction content: %w", err)
	}
	if len(resp.Elements) == 0 {
		return nil, fmt.Errorf("extraction returned no elements: %w", ErrNoContent)
	}

	pageCount := analysis.PageCount()
	var blocks []document.Block
	for _, el := range resp.Elements {
		page := el.Page
		if page < 1 {
			page = 1
		}
		if page > pageCount {
			pageCount = page
		}
		bbox := document.BBox{X: el.Bounds[0], Y: el.Bounds[1], W: el.Bounds[2], H: el.Bounds[3]}

		switch {
		case strings.HasPrefix(el.Path, "/Figure"):
			payload, err := base64.StdEncoding.DecodeString(el.Data)
			if err != nil || len(payload) == 0 {
				log.Warn().Int("page", page).Msg("figure element with unreadable payload, skipped")
				continue
			}
			mime := el.MIME
			if mime == "" {
				mime = "image/png"
			}
			blocks = append(blocks, document.Block{
				Kind: document.BlockImage, Page: page, BBox: bbox,
				Image: payload, ImageMIME: mime, Confidence: -1,
			})
		case strings.HasPrefix(el.Path, "/Table"):
			if el.Text == "" {
				continue
			}
			blocks = append(blocks, document.Block{
				Kind: document.BlockTable, Page: page, BBox: bbox,
				Text: el.Text, Confidence: -1,
			})
		default:
			if el.Text == "" {
				continue
			}
			blocks = append(blocks, document.Block{
				Kind: document.BlockText, Page: page, BBox: bbox,
				Text: el.Text,
				Font: document.FontHint{
					Name: el.Font.Name,
					Size: el.Font.Size,
					Bold: el.Font.Weight >= 700 || strings.Contains(el.Font.Name, "Bold"),
				},
				Confidence: -1,
			})
		}
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("extraction elements carried no usable content: %w", ErrNoContent)
	}
	return &document.Content{Blocks: blocks, PageCount: pageCount}, nil
}

// do performs one rate-limited HTTP call with a single retry on
// transient failures. Non-2xx responses become HTTPError.
func (s *CloudStrategy) do(ctx context.Context, token, method, u, contentType string, payload []byte, onResp func(*http.Response)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		if s.cfg.OrgID != "" {
			req.Header.Set("X-Org-Id", s.cfg.OrgID)
		}

		resp, err := s.http.Do(req)
		if err != nil {
			lastErr = err
			if isTransientError(err) && attempt == 0 {
				continue
			}
			return nil, err
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			httpErr := &document.HTTPError{
				StatusCode: resp.StatusCode,
				Body:       truncate(string(body), 512),
				Service:    "cloud_api",
			}
			lastErr = httpErr
			if isTransientError(httpErr) && attempt == 0 {
				continue
			}
			return nil, httpErr
		}

		if onResp != nil {
			onResp(resp)
		}
		return body, nil
	}
	return nil, lastErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
