package store

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    redis "github.com/redis/go-redis/v9"

    "github.com/local/docconvert/internal/document"
)

// Record is the persisted summary of one conversion: outcome, attempt
// trail and where the artifact landed. Output bytes stay on disk or in
// object storage, never in Redis.
type Record struct {
    ID           string              `json:"id"`
    Filename     string              `json:"filename"`
    Format       document.Format     `json:"format"`
    Class        document.Class      `json:"class"`
    StrategyUsed string              `json:"strategy_used"`
    Degraded     bool                `json:"degraded"`
    PageCount    int                 `json:"page_count"`
    Attempts     []document.Attempt  `json:"attempts"`
    OutputPath   string              `json:"output_path,omitempty"`
    ArtifactKey  string              `json:"artifact_key,omitempty"`
    StartedAt    time.Time           `json:"started_at"`
    FinishedAt   time.Time           `json:"finished_at"`
}

// RedisRecords stores conversion records in Redis with a TTL.
type RedisRecords struct {
    client *redis.Client
    keyNS  string
    ttl    time.Duration
}

func NewRedisRecords(redisURL string, ttl time.Duration) (*RedisRecords, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, err }
    c := redis.NewClient(opt)
    if err := c.Ping(context.Background()).Err(); err != nil { return nil, err }
    return &RedisRecords{client: c, keyNS: "conversion", ttl: ttl}, nil
}

func (s *RedisRecords) key(id string) string { return fmt.Sprintf("%s:%s:record", s.keyNS, id) }

// Save writes the record and refreshes its TTL.
func (s *RedisRecords) Save(ctx context.Context, rec Record) error {
    b, err := json.Marshal(rec)
    if err != nil { return err }
    return s.client.Set(ctx, s.key(rec.ID), b, s.ttl).Err()
}

// Get loads a record; the bool reports whether it existed.
func (s *RedisRecords) Get(ctx context.Context, id string) (Record, bool, error) {
    res, err := s.client.Get(ctx, s.key(id)).Result()
    if err == redis.Nil { return Record{}, false, nil }
    if err != nil { return Record{}, false, err }
    var rec Record
    if err := json.Unmarshal([]byte(res), &rec); err != nil { return Record{}, false, err }
    return rec, true, nil
}

func (s *RedisRecords) Close() error { return s.client.Close() }

// Client returns the underlying Redis client
func (s *RedisRecords) Client() *redis.Client { return s.client }
