package logger

import (
    "context"
    "encoding/json"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/axiomhq/axiom-go/axiom"
    "github.com/axiomhq/axiom-go/axiom/ingest"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
    lumberjack "gopkg.in/natefinch/lumberjack.v2"

    "github.com/local/docconvert/internal/config"
)

const serviceName = "docconvert"

var forwarder *axiomForwarder

// Init wires the global zerolog logger from configuration: rotated
// file output, console (pretty in dev), and an optional Axiom
// forwarder. A broken Axiom setup degrades to local-only logging.
func Init(lc config.LoggingConfig, ac config.AxiomConfig) error {
    writers, err := localWriters(lc)
    if err != nil {
        return err
    }

    if ac.Send && ac.APIKey != "" {
        fw, err := newAxiomForwarder(ac)
        if err != nil {
            fmt.Fprintf(os.Stderr, "axiom forwarding disabled: %v\n", err)
        } else {
            forwarder = fw
            writers = append(writers, fw)
        }
    }

    zerolog.TimeFieldFormat = time.RFC3339
    lvl, err := zerolog.ParseLevel(lc.Level)
    if err != nil {
        lvl = zerolog.InfoLevel
    }
    log.Logger = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Logger()
    return nil
}

// Close drains the Axiom forwarder if one is running.
func Close() {
    if forwarder != nil {
        forwarder.close()
        forwarder = nil
    }
}

func localWriters(lc config.LoggingConfig) ([]io.Writer, error) {
    var writers []io.Writer
    if lc.File != "" {
        if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err != nil {
            return nil, fmt.Errorf("create log dir: %w", err)
        }
        writers = append(writers, &lumberjack.Logger{
            Filename:   lc.File,
            MaxSize:    lc.MaxSizeMB,
            MaxBackups: lc.MaxBackups,
            MaxAge:     lc.MaxAgeDays,
            Compress:   lc.Compress,
        })
    }
    if lc.Pretty {
        writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
    } else {
        writers = append(writers, os.Stdout)
    }
    return writers, nil
}

const (
    forwardBuffer = 1000
    batchMax      = 200
    ingestTimeout = 15 * time.Second
)

// axiomForwarder batches zerolog JSON lines and ships them to Axiom.
// Debug lines stay local, and events are dropped when the buffer is
// full rather than blocking a log call.
type axiomForwarder struct {
    client  *axiom.Client
    dataset string
    events  chan axiom.Event
    done    chan struct{}
    wg      sync.WaitGroup
}

func newAxiomForwarder(ac config.AxiomConfig) (*axiomForwarder, error) {
    opts := []axiom.Option{axiom.SetToken(ac.APIKey)}
    if ac.OrgID != "" {
        opts = append(opts, axiom.SetOrganizationID(ac.OrgID))
    }
    client, err := axiom.NewClient(opts...)
    if err != nil {
        return nil, err
    }

    fw := &axiomForwarder{
        client:  client,
        dataset: ac.Dataset,
        events:  make(chan axiom.Event, forwardBuffer),
        done:    make(chan struct{}),
    }
    interval := ac.FlushInterval
    if interval <= 0 {
        interval = 10 * time.Second
    }
    fw.wg.Add(1)
    go fw.run(interval)
    return fw, nil
}

func (f *axiomForwarder) Write(p []byte) (int, error) {
    var ev map[string]interface{}
    if err := json.Unmarshal(p, &ev); err != nil {
        ev = map[string]interface{}{"message": string(p), "level": "info"}
    }
    if lvl, _ := ev["level"].(string); lvl == "debug" {
        return len(p), nil
    }
    ev["service"] = serviceName
    if _, ok := ev[ingest.TimestampField]; !ok {
        ev[ingest.TimestampField] = time.Now()
    }
    select {
    case f.events <- axiom.Event(ev):
    default:
    }
    return len(p), nil
}

func (f *axiomForwarder) run(interval time.Duration) {
    defer f.wg.Done()
    ticker := time.NewTicker(interval)
    defer ticker.Stop()

    batch := make([]axiom.Event, 0, batchMax)
    for {
        select {
        case <-f.done:
            f.flush(batch)
            return
        case <-ticker.C:
            batch = f.flush(batch)
        case ev := <-f.events:
            batch = append(batch, ev)
            if len(batch) >= batchMax {
                batch = f.flush(batch)
            }
        }
    }
}

func (f *axiomForwarder) flush(batch []axiom.Event) []axiom.Event {
    if len(batch) == 0 {
        return batch
    }
    ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
    _, _ = f.client.IngestEvents(ctx, f.dataset, batch)
    cancel()
    return batch[:0]
}

func (f *axiomForwarder) close() {
    close(f.done)
    f.wg.Wait()
}
