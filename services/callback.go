package services

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"activation_server/config"
	"activation_server/repository"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActivationChangeEvent is the payload delivered after an activation status
// change: POSTed to every registered callback URL of the application and
// published to the Kafka topic.
type ActivationChangeEvent struct {
	ApplicationId uint   `json:"applicationId"`
	ActivationId  string `json:"activationId"`
}

// ICallbackService dispatches change notifications. Notify never blocks the
// request path: events go onto a bounded queue and when the queue is full
// the oldest event is dropped and counted.
type ICallbackService interface {
	Notify(applicationId uint, activationId string)
	DroppedEvents() int64
	Shutdown()
}

type CallbackService struct {
	db       *gorm.DB
	repo     repository.IIntegrationRepository
	producer sarama.SyncProducer
	topic    string
	client   *http.Client

	queue   chan ActivationChangeEvent
	done    chan struct{}
	dropped atomic.Int64
}

func NewCallbackService(db *gorm.DB, repo repository.IIntegrationRepository, producer sarama.SyncProducer) ICallbackService {
	cb := config.Conf.Application.Callback

	transport := &http.Transport{}
	if cb.HttpProxyURL != "" {
		if proxyURL, err := url.Parse(cb.HttpProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	s := &CallbackService{
		db:       db,
		repo:     repo,
		producer: producer,
		topic:    config.Conf.Application.Kafka.Topic,
		client: &http.Client{
			Timeout:   time.Duration(cb.HttpTimeoutMillis) * time.Millisecond,
			Transport: transport,
		},
		queue: make(chan ActivationChangeEvent, cb.QueueSize),
		done:  make(chan struct{}),
	}

	for i := 0; i < cb.Workers; i++ {
		go s.worker()
	}
	return s
}

// Notify enqueues an event; with a full queue the oldest event is dropped
// to make room, so the request worker never waits.
func (s *CallbackService) Notify(applicationId uint, activationId string) {
	event := ActivationChangeEvent{ApplicationId: applicationId, ActivationId: activationId}
	for {
		select {
		case s.queue <- event:
			return
		default:
		}
		select {
		case <-s.queue:
			dropped := s.dropped.Add(1)
			config.Logger.Warn("Callback queue full, dropped oldest event",
				zap.Int64("dropped_total", dropped))
		default:
		}
	}
}

func (s *CallbackService) DroppedEvents() int64 {
	return s.dropped.Load()
}

func (s *CallbackService) Shutdown() {
	close(s.done)
}

func (s *CallbackService) worker() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.queue:
			s.deliver(event)
		}
	}
}

func (s *CallbackService) deliver(event ActivationChangeEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	if s.producer != nil {
		msg := &sarama.ProducerMessage{
			Topic: s.topic,
			Key:   sarama.StringEncoder(event.ActivationId),
			Value: sarama.ByteEncoder(payload),
		}
		if _, _, err := s.producer.SendMessage(msg); err != nil {
			config.Logger.Warn("Failed to publish activation change event",
				zap.String("activation_id", event.ActivationId), zap.Error(err))
		}
	}

	if s.db == nil {
		return
	}
	callbacks, err := s.repo.ListCallbackUrls(s.db, event.ApplicationId)
	if err != nil {
		config.Logger.Warn("Failed to load callback URLs", zap.Error(err))
		return
	}
	for _, callback := range callbacks {
		resp, err := s.client.Post(callback.CallbackUrl, "application/json", bytes.NewReader(payload))
		if err != nil {
			config.Logger.Warn("Callback delivery failed",
				zap.String("url", callback.CallbackUrl), zap.Error(err))
			continue
		}
		resp.Body.Close()
	}
}
