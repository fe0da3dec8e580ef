package services

import (
	"context"
	"encoding/json"
	"time"

	"activation_server/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedApplicationVersion is the credential tuple cached per application
// key. Signature verification resolves the application key on every request;
// the cache keeps that lookup off the database.
type CachedApplicationVersion struct {
	VersionId         uint   `json:"version_id"`
	ApplicationId     uint   `json:"application_id"`
	ApplicationKey    string `json:"application_key"`
	ApplicationSecret string `json:"application_secret"`
	Supported         bool   `json:"supported"`
}

type IRedisService interface {
	GetApplicationVersion(applicationKey string) (*CachedApplicationVersion, error)
	StoreApplicationVersion(entry *CachedApplicationVersion) error
	InvalidateApplicationVersion(applicationKey string) error
}

type RedisService struct {
	client *redis.Client
}

func NewRedisService(client *redis.Client) IRedisService {
	return &RedisService{client: client}
}

const applicationVersionKeyPrefix = "app-version:"

const applicationVersionTTL = time.Hour

func (s *RedisService) GetApplicationVersion(applicationKey string) (*CachedApplicationVersion, error) {
	ctx := context.Background()
	raw, err := s.client.Get(ctx, applicationVersionKeyPrefix+applicationKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var entry CachedApplicationVersion
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *RedisService) StoreApplicationVersion(entry *CachedApplicationVersion) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	ctx := context.Background()
	err = s.client.Set(ctx, applicationVersionKeyPrefix+entry.ApplicationKey, raw, applicationVersionTTL).Err()
	if err != nil {
		config.Logger.Error("Failed to cache application version", zap.Error(err))
	}
	return err
}

func (s *RedisService) InvalidateApplicationVersion(applicationKey string) error {
	ctx := context.Background()
	return s.client.Del(ctx, applicationVersionKeyPrefix+applicationKey).Err()
}
