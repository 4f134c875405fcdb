package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %s", cfg.Server.Addr)
	}
	if cfg.OCR.Languages != "kor+eng" || cfg.OCR.FallbackLanguage != "eng" {
		t.Errorf("ocr languages = %s / %s", cfg.OCR.Languages, cfg.OCR.FallbackLanguage)
	}
	if cfg.Classify.TextRatioHigh != 0.8 || cfg.Classify.TextRatioLow != 0.2 {
		t.Errorf("classify ratios = %f / %f", cfg.Classify.TextRatioHigh, cfg.Classify.TextRatioLow)
	}
	if cfg.Health.SoftFailureThreshold != 3 || cfg.Health.BaseBackoff != 30*time.Second {
		t.Errorf("health = %+v", cfg.Health)
	}
	if cfg.Health.BackoffFactor != 1.5 || cfg.Health.MaxBackoff != 10*time.Minute {
		t.Errorf("health backoff = %+v", cfg.Health)
	}
	if cfg.Layout.OverlapIoU != 0.15 {
		t.Errorf("overlap iou = %f", cfg.Layout.OverlapIoU)
	}
	if cfg.Redis.RecordTTL != 72*time.Hour {
		t.Errorf("record ttl = %v", cfg.Redis.RecordTTL)
	}
	if cfg.Cloud.Disabled {
		t.Error("cloud should default to enabled")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("OCR_WORKERS", "8")
	t.Setenv("CLOUD_EXTRACT_DISABLED", "true")
	t.Setenv("HEALTH_BASE_BACKOFF", "10s")
	t.Setenv("CLASSIFY_TEXT_RATIO_HIGH", "0.9")

	cfg := FromEnv()
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %s", cfg.Server.Addr)
	}
	if cfg.OCR.Workers != 8 {
		t.Errorf("workers = %d", cfg.OCR.Workers)
	}
	if !cfg.Cloud.Disabled {
		t.Error("cloud disabled override not applied")
	}
	if cfg.Health.BaseBackoff != 10*time.Second {
		t.Errorf("base backoff = %v", cfg.Health.BaseBackoff)
	}
	if cfg.Classify.TextRatioHigh != 0.9 {
		t.Errorf("ratio high = %f", cfg.Classify.TextRatioHigh)
	}
}

func TestFromEnvBadValuesFallBack(t *testing.T) {
	t.Setenv("OCR_WORKERS", "many")
	t.Setenv("HEALTH_BASE_BACKOFF", "soon")
	t.Setenv("CLOUD_REQUESTS_PER_SEC", "fast")

	cfg := FromEnv()
	if cfg.OCR.Workers != 4 {
		t.Errorf("workers = %d, want default 4", cfg.OCR.Workers)
	}
	if cfg.Health.BaseBackoff != 30*time.Second {
		t.Errorf("base backoff = %v, want default", cfg.Health.BaseBackoff)
	}
	if cfg.Cloud.RequestsPerSec != 2.0 {
		t.Errorf("rps = %f, want default", cfg.Cloud.RequestsPerSec)
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on"} {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) = false", v)
		}
	}
	for _, v := range []string{"0", "false", "off", "", "nope"} {
		if parseBool(v) {
			t.Errorf("parseBool(%q) = true", v)
		}
	}
}
