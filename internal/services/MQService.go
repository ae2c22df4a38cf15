// This file contains the implementation of MQService. The service connects to a
// rabbitMQ AMPQ 0.9.1 broker, declares the queues it works with, publishes saved
// tweets and consumes on-demand twawl requests.
//
// A go channel and waitgroup are used to manage the consumer, and the service can be
// gracefully shutdown by closing the stopChan. The consumer should be tolerant to
// connection failures, and will attempt to reconnect every 5 seconds if the
// connection is lost.

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/frankk00/gaetools/internal/log"
	"github.com/frankk00/gaetools/internal/twitter"
)

const (
	// QueueTweetsFound receives every tweet the twawler decided to keep.
	QueueTweetsFound = "tweets.found"
	// QueueTwawlRequests carries on-demand twawl triggers for a rule.
	QueueTwawlRequests = "twawl.requests"
)

// TwawlTrigger runs a twawl for the named rule; wired to the tasks service.
type TwawlTrigger func(ctx context.Context, ruleName string) error

// TweetMessage is the payload published to the tweets.found queue.
type TweetMessage struct {
	RuleName        string    `json:"rule_name"`
	TweetID         int64     `json:"tweet_id"`
	CreatedAt       time.Time `json:"created_at"`
	FromUser        string    `json:"from_user"`
	FromUserID      int64     `json:"from_user_id"`
	Text            string    `json:"text"`
	ISOLanguageCode string    `json:"iso_language_code,omitempty"`
}

// TwawlRequestMessage is the payload expected on the twawl.requests queue.
type TwawlRequestMessage struct {
	RuleName string `json:"rule_name"`
}

type MQService struct {
	amqpURL    string
	trigger    TwawlTrigger
	connection *amqp.Connection
	channel    *amqp.Channel
	logger     *log.Logger
	// used for reconnection and graceful shutdown
	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewMQService connects to the broker at amqpURL and starts the twawl request
// consumer. The trigger is invoked for each consumed request.
func NewMQService(amqpURL string, trigger TwawlTrigger, logger *log.Logger) (*MQService, error) {
	service := &MQService{
		amqpURL:  amqpURL,
		trigger:  trigger,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	if err := service.connect(); err != nil {
		return nil, err
	}

	service.wg.Add(1)
	go service.runConsumer(QueueTwawlRequests, service.processTwawlRequest)

	return service, nil
}

// connect establishes a connection to the AMPQ message broker and declares the
// queues the service works with.
func (s *MQService) connect() error {
	timeout := time.Now().Add(time.Minute / 4)
	var err error

	var connection *amqp.Connection
	for time.Now().Before(timeout) {
		connection, err = amqp.Dial(s.amqpURL)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %v", err)
	}

	channel, err := connection.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %v", err)
	}

	for _, queue := range []string{QueueTweetsFound, QueueTwawlRequests} {
		if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %v", queue, err)
		}
	}

	s.mu.Lock()
	s.connection = connection
	s.channel = channel
	s.mu.Unlock()
	return nil
}

// ensureConnection ensures that the AMPQ connection is established
func (s *MQService) ensureConnection() error {
	s.mu.Lock()
	connected := s.connection != nil && !s.connection.IsClosed()
	s.mu.Unlock()
	if connected {
		return nil
	}

	s.logger.Info("Reconnecting to RabbitMQ...")
	return s.connect()
}

// runConsumer runs a consumer for the specified queue and consumption handler
func (s *MQService) runConsumer(queueName string, processFunc func(amqp.Delivery) error) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			s.logger.Infof("Stopping %s consumer", queueName)
			return
		default:
			if err := s.consume(queueName, processFunc); err != nil {
				s.logger.Errorf("Error in %s consumer: %v. Reconnecting in 5 seconds...", queueName, err)
				time.Sleep(5 * time.Second)
			}
		}
	}
}

// consume consumes messages from the specified queue and processes them using the
// provided function
func (s *MQService) consume(queueName string, processFunc func(amqp.Delivery) error) error {
	if err := s.ensureConnection(); err != nil {
		return fmt.Errorf("failed to ensure connection: %v", err)
	}

	s.mu.Lock()
	connection := s.connection
	s.mu.Unlock()

	ch, err := connection.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %v", err)
	}
	defer ch.Close()

	consumerTag := "gaetools-" + uuid.NewString()
	messages, err := ch.Consume(queueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %v", err)
	}

	s.logger.Infof("Started consuming from %s", queueName)

	for msg := range messages {
		if err := processFunc(msg); err != nil {
			s.logger.Errorf("Error processing message from %s: %v", queueName, err)
			msg.Nack(false, true) // Negative acknowledge and requeue
		} else {
			msg.Ack(false)
		}
	}

	return fmt.Errorf("consumer channel closed")
}

// processTwawlRequest handles one message from the twawl.requests queue by running
// a twawl for the named rule. Settling the delivery is the consume loop's job:
// returning nil acks (which drops a malformed message), an error nacks and requeues.
func (s *MQService) processTwawlRequest(d amqp.Delivery) error {
	var request TwawlRequestMessage
	if err := json.Unmarshal(d.Body, &request); err != nil {
		s.logger.Errorf("Error unmarshalling twawl request, dropping: %v", err)
		return nil
	}
	if request.RuleName == "" {
		s.logger.Error("twawl request with no rule name, dropping")
		return nil
	}

	s.logger.Infof("twawl request received for rule %s", request.RuleName)
	return s.trigger(context.Background(), request.RuleName)
}

// PublishTweet publishes a saved tweet to the tweets.found queue.
func (s *MQService) PublishTweet(ctx context.Context, t *twitter.Tweet, ruleName string) error {
	message := TweetMessage{
		RuleName:        ruleName,
		TweetID:         t.ID,
		CreatedAt:       t.CreatedAt,
		FromUser:        t.FromUser,
		FromUserID:      t.FromUserID,
		Text:            t.Text,
		ISOLanguageCode: t.ISOLanguageCode,
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal tweet message: %v", err)
	}

	if err := s.ensureConnection(); err != nil {
		return err
	}

	s.mu.Lock()
	channel := s.channel
	s.mu.Unlock()

	err = channel.PublishWithContext(ctx, "", QueueTweetsFound, false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: uuid.NewString(),
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish tweet: %v", err)
	}

	s.logger.Debugf("tweet %d published to %s", t.ID, QueueTweetsFound)
	return nil
}

// Connected reports whether the broker connection is up. Used by the capability
// checker.
func (s *MQService) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connection != nil && !s.connection.IsClosed()
}

// Shutdown shuts down the MQ service
func (s *MQService) Shutdown() {
	s.logger.Info("Shutting down MQ service...")
	close(s.stopChan)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connection != nil {
		s.connection.Close()
	}
	s.logger.Info("MQ service shut down")
}
