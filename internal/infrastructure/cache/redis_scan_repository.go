package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scancheckout/backend/internal/domain/scan"
)

const defaultScanKeyPrefix = "scancheckout:scan:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// TTL expires scan records; zero keeps them forever.
	TTL time.Duration
}

// RedisScanRepository stores scan records as JSON strings in Redis so that
// several API instances share them.
type RedisScanRepository struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisScanRepository connects to Redis and verifies the connection.
func NewRedisScanRepository(cfg RedisConfig) (*RedisScanRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisScanRepositoryWithClient(client, "", cfg.TTL), nil
}

// NewRedisScanRepositoryWithClient wraps an existing client.
func NewRedisScanRepositoryWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisScanRepository {
	if keyPrefix == "" {
		keyPrefix = defaultScanKeyPrefix
	}
	return &RedisScanRepository{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

type redisCandidate struct {
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type redisDetection struct {
	BBox       [4]float64       `json:"bbox"`
	Candidates []redisCandidate `json:"candidates"`
}

type redisScanRecord struct {
	ID           string           `json:"id"`
	StoreID      string           `json:"store_id"`
	DeviceID     string           `json:"device_id,omitempty"`
	ImageKey     string           `json:"image_key"`
	ImageURI     string           `json:"image_uri"`
	ContentType  string           `json:"content_type"`
	SizeBytes    int64            `json:"size_bytes"`
	CreatedAt    time.Time        `json:"created_at"`
	Detections   []redisDetection `json:"detections,omitempty"`
	ModelVersion string           `json:"model_version,omitempty"`
}

func (s *RedisScanRepository) key(id string) string {
	return s.keyPrefix + id
}

// Save implements scan.Repository
func (s *RedisScanRepository) Save(ctx context.Context, record *scan.Record) error {
	data, err := json.Marshal(toRedisRecord(record))
	if err != nil {
		return fmt.Errorf("failed to encode scan record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(record.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save scan record: %w", err)
	}
	return nil
}

// FindByID implements scan.Repository
func (s *RedisScanRepository) FindByID(ctx context.Context, id string) (*scan.Record, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, scan.ErrScanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan record: %w", err)
	}
	return decodeRedisRecord(data)
}

// SaveDetections implements scan.Repository. The read-modify-write runs
// under WATCH so concurrent inferences on one scan do not interleave.
func (s *RedisScanRepository) SaveDetections(ctx context.Context, id string, detections []scan.Detection, modelVersion string) (*scan.Record, error) {
	key := s.key(id)
	var updated *scan.Record

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return scan.ErrScanNotFound
		}
		if err != nil {
			return err
		}
		record, err := decodeRedisRecord(data)
		if err != nil {
			return err
		}
		record.Detections = detections
		record.ModelVersion = modelVersion

		encoded, err := json.Marshal(toRedisRecord(record))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, redis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = record
		}
		return err
	}

	if err := s.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, scan.ErrScanNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save detections: %w", err)
	}
	return updated, nil
}

// Close closes the Redis connection.
func (s *RedisScanRepository) Close() error {
	return s.client.Close()
}

func toRedisRecord(r *scan.Record) redisScanRecord {
	out := redisScanRecord{
		ID:           r.ID,
		StoreID:      r.StoreID,
		DeviceID:     r.DeviceID,
		ImageKey:     r.ImageKey,
		ImageURI:     r.ImageURI,
		ContentType:  r.ContentType,
		SizeBytes:    r.SizeBytes,
		CreatedAt:    r.CreatedAt,
		ModelVersion: r.ModelVersion,
	}
	for _, d := range r.Detections {
		rd := redisDetection{BBox: d.BBox, Candidates: make([]redisCandidate, 0, len(d.Candidates))}
		for _, c := range d.Candidates {
			rd.Candidates = append(rd.Candidates, redisCandidate(c))
		}
		out.Detections = append(out.Detections, rd)
	}
	return out
}

func decodeRedisRecord(data []byte) (*scan.Record, error) {
	var rr redisScanRecord
	if err := json.Unmarshal(data, &rr); err != nil {
		return nil, fmt.Errorf("failed to decode scan record: %w", err)
	}
	out := &scan.Record{
		ID:           rr.ID,
		StoreID:      rr.StoreID,
		DeviceID:     rr.DeviceID,
		ImageKey:     rr.ImageKey,
		ImageURI:     rr.ImageURI,
		ContentType:  rr.ContentType,
		SizeBytes:    rr.SizeBytes,
		CreatedAt:    rr.CreatedAt,
		ModelVersion: rr.ModelVersion,
	}
	for _, d := range rr.Detections {
		det := scan.Detection{BBox: d.BBox, Candidates: make([]scan.Candidate, 0, len(d.Candidates))}
		for _, c := range d.Candidates {
			det.Candidates = append(det.Candidates, scan.Candidate(c))
		}
		out.Detections = append(out.Detections, det)
	}
	return out, nil
}

var _ scan.Repository = (*RedisScanRepository)(nil)
