package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    FlushInterval time.Duration
}

// CloudConfig configures the structured-extraction API backend.
type CloudConfig struct {
    Endpoint       string
    ClientID       string
    ClientSecret   string
    OrgID          string
    Disabled       bool
    RequestTimeout time.Duration
    PollInterval   time.Duration
    PollTimeout    time.Duration
    RequestsPerSec float64
}

// OCRConfig configures the tesseract OCR backend.
type OCRConfig struct {
    Binary           string
    Languages        string
    FallbackLanguage string
    Workers          int
    ConfidenceFloor  float64
    PageTimeout      time.Duration
    DPIPortrait      int
    DPILandscape     int
    DPIOfficial      int
}

// ClassifyConfig holds document classification thresholds.
type ClassifyConfig struct {
    TextPageMinChars  int
    TextRatioHigh     float64
    TextRatioLow      float64
    OfficialThreshold float64
}

// LayoutConfig holds layout reconstruction tolerances.
type LayoutConfig struct {
    CenterOffsetTol float64
    MarginDiffTol   float64
    RightMarginMax  float64
    LeftMarginMin   float64
    OverlapIoU      float64
    MinGapPt        float64
    MaxGapPt        float64
    HeadingMaxChars int
    HeadingMinPt    float64
}

// HealthConfig controls strategy availability tracking.
type HealthConfig struct {
    SoftFailureThreshold int
    SoftFailureWindow    time.Duration
    BaseBackoff          time.Duration
    MaxBackoff           time.Duration
    BackoffFactor        float64
}

// StorageConfig holds output and artifact storage settings.
type StorageConfig struct {
    OutputDir     string
    S3Bucket      string
    S3Prefix      string
    EncryptionKey string
    MaxUploadMB   int
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
    Addr            string
    ShutdownTimeout time.Duration
}

// RedisConfig holds conversion record store connectivity.
type RedisConfig struct {
    URL       string
    RecordTTL time.Duration
}

// Config is the top-level configuration.
type Config struct {
    Logging  LoggingConfig
    Axiom    AxiomConfig
    Cloud    CloudConfig
    OCR      OCRConfig
    Classify ClassifyConfig
    Layout   LayoutConfig
    Health   HealthConfig
    Storage  StorageConfig
    Server   ServerConfig
    Redis    RedisConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/docconvert.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_docconvert",
        FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
    }

    // Cloud extraction defaults
    cfg.Cloud = CloudConfig{
        Endpoint:       getEnv("CLOUD_EXTRACT_ENDPOINT", ""),
        ClientID:       getEnv("CLOUD_EXTRACT_CLIENT_ID", ""),
        ClientSecret:   getEnv("CLOUD_EXTRACT_CLIENT_SECRET", ""),
        OrgID:          getEnv("CLOUD_EXTRACT_ORG_ID", ""),
        Disabled:       parseBool(getEnv("CLOUD_EXTRACT_DISABLED", "0")),
        RequestTimeout: parseDuration(getEnv("CLOUD_REQUEST_TIMEOUT", "60s"), 60*time.Second),
        PollInterval:   parseDuration(getEnv("CLOUD_POLL_INTERVAL", "2s"), 2*time.Second),
        PollTimeout:    parseDuration(getEnv("CLOUD_POLL_TIMEOUT", "120s"), 120*time.Second),
        RequestsPerSec: parseFloat(getEnv("CLOUD_REQUESTS_PER_SEC", "2.0"), 2.0),
    }

    // OCR defaults
    cfg.OCR = OCRConfig{
        Binary:           getEnv("OCR_BINARY", "tesseract"),
        Languages:        getEnv("OCR_LANGUAGES", "kor+eng"),
        FallbackLanguage: getEnv("OCR_FALLBACK_LANGUAGE", "eng"),
        Workers:          parseInt(getEnv("OCR_WORKERS", "4"), 4),
        ConfidenceFloor:  parseFloat(getEnv("OCR_CONFIDENCE_FLOOR", "40"), 40),
        PageTimeout:      parseDuration(getEnv("OCR_PAGE_TIMEOUT", "90s"), 90*time.Second),
        DPIPortrait:      parseInt(getEnv("OCR_DPI_PORTRAIT", "200"), 200),
        DPILandscape:     parseInt(getEnv("OCR_DPI_LANDSCAPE", "300"), 300),
        DPIOfficial:      parseInt(getEnv("OCR_DPI_OFFICIAL", "400"), 400),
    }

    // Classification thresholds
    cfg.Classify = ClassifyConfig{
        TextPageMinChars:  parseInt(getEnv("CLASSIFY_TEXT_PAGE_MIN_CHARS", "50"), 50),
        TextRatioHigh:     parseFloat(getEnv("CLASSIFY_TEXT_RATIO_HIGH", "0.8"), 0.8),
        TextRatioLow:      parseFloat(getEnv("CLASSIFY_TEXT_RATIO_LOW", "0.2"), 0.2),
        OfficialThreshold: parseFloat(getEnv("CLASSIFY_OFFICIAL_THRESHOLD", "0.5"), 0.5),
    }

    // Layout reconstruction tolerances
    cfg.Layout = LayoutConfig{
        CenterOffsetTol: parseFloat(getEnv("LAYOUT_CENTER_OFFSET_TOL", "0.05"), 0.05),
        MarginDiffTol:   parseFloat(getEnv("LAYOUT_MARGIN_DIFF_TOL", "0.1"), 0.1),
        RightMarginMax:  parseFloat(getEnv("LAYOUT_RIGHT_MARGIN_MAX", "0.15"), 0.15),
        LeftMarginMin:   parseFloat(getEnv("LAYOUT_LEFT_MARGIN_MIN", "0.3"), 0.3),
        OverlapIoU:      parseFloat(getEnv("LAYOUT_OVERLAP_IOU", "0.15"), 0.15),
        MinGapPt:        parseFloat(getEnv("LAYOUT_MIN_GAP_PT", "2.85"), 2.85),
        MaxGapPt:        parseFloat(getEnv("LAYOUT_MAX_GAP_PT", "56.7"), 56.7),
        HeadingMaxChars: parseInt(getEnv("LAYOUT_HEADING_MAX_CHARS", "40"), 40),
        HeadingMinPt:    parseFloat(getEnv("LAYOUT_HEADING_MIN_PT", "14"), 14),
    }

    // Health tracker defaults
    cfg.Health = HealthConfig{
        SoftFailureThreshold: parseInt(getEnv("HEALTH_SOFT_FAILURE_THRESHOLD", "3"), 3),
        SoftFailureWindow:    parseDuration(getEnv("HEALTH_SOFT_FAILURE_WINDOW", "5m"), 5*time.Minute),
        BaseBackoff:          parseDuration(getEnv("HEALTH_BASE_BACKOFF", "30s"), 30*time.Second),
        MaxBackoff:           parseDuration(getEnv("HEALTH_MAX_BACKOFF", "10m"), 10*time.Minute),
        BackoffFactor:        parseFloat(getEnv("HEALTH_BACKOFF_FACTOR", "1.5"), 1.5),
    }

    // Storage defaults
    cfg.Storage = StorageConfig{
        OutputDir:     getEnv("OUTPUT_DIR", "output"),
        S3Bucket:      getEnv("S3_BUCKET", ""),
        S3Prefix:      getEnv("S3_PREFIX", "converted"),
        EncryptionKey: getEnv("ARTIFACT_ENCRYPTION_KEY", ""),
        MaxUploadMB:   parseInt(getEnv("MAX_UPLOAD_MB", "100"), 100),
    }

    // Server defaults
    cfg.Server = ServerConfig{
        Addr:            getEnv("HTTP_ADDR", ":8080"),
        ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"), 15*time.Second),
    }

    // Redis defaults
    cfg.Redis = RedisConfig{
        URL:       getEnv("REDIS_URL", "redis://localhost:6379"),
        RecordTTL: parseDuration(getEnv("RECORD_TTL", "72h"), 72*time.Hour),
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
