// This file contains the Service, the single entry point for running a twawl. The web
// trigger endpoint, the interval scheduler and the broker consumer all come through
// Twawl, so a run behaves identically no matter what kicked it off.

package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/frankk00/gaetools/internal/log"
	"github.com/frankk00/gaetools/internal/models/token"
	"github.com/frankk00/gaetools/internal/slicer"
)

// TokenDirectory resolves persisted OAuth tokens by account; satisfied by
// *token.Manager.
type TokenDirectory interface {
	FindByUserName(ctx context.Context, username string) (*token.AuthRequest, error)
}

// Options adjust a single twawl run.
type Options struct {
	// AllowInit permits starting a fresh OAuth authorization if needed.
	AllowInit bool
	// RequestKey selects a previously authorized OAuth token.
	RequestKey string
	// Account selects the latest token authorized by the named twitter account.
	// Ignored when RequestKey is set.
	Account string
	// MaxInterval bounds the run; zero means slicer.DefaultMaxInterval.
	MaxInterval time.Duration
	// Inspectors are applied to every processed tweet, after the service-wide ones.
	Inspectors []Inspector
}

// Result summarizes a completed twawl run.
type Result struct {
	RuleName    string        `json:"rule_name"`
	Processed   int64         `json:"processed"`
	HighTweetID int64         `json:"high_tweet_id"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
}

type Service struct {
	searcher  Searcher
	rules     RuleStore
	histories HistoryStore
	tweets    TweetStore
	tokens    TokenDirectory
	publisher Publisher
	logger    *log.Logger

	// inspectors applied to every run
	inspectors []Inspector
}

func NewService(searcher Searcher, rules RuleStore, histories HistoryStore, tweets TweetStore, tokens TokenDirectory, publisher Publisher, logger *log.Logger) *Service {
	return &Service{
		searcher:  searcher,
		rules:     rules,
		histories: histories,
		tweets:    tweets,
		tokens:    tokens,
		publisher: publisher,
		logger:    logger,
	}
}

// AddInspector registers an inspector applied to every twawl run.
func (s *Service) AddInspector(inspector Inspector) {
	s.inspectors = append(s.inspectors, inspector)
}

// SetPublisher wires in a publisher after construction. The broker service needs
// the twawl service for its request consumer, so the two are connected in two steps.
func (s *Service) SetPublisher(publisher Publisher) {
	s.publisher = publisher
}

// Twawl runs a sliced search for the named rule and reports what happened.
func (s *Service) Twawl(ctx context.Context, ruleName string, opts Options) (*Result, error) {
	if opts.RequestKey == "" && opts.Account != "" {
		if s.tokens == nil {
			return nil, fmt.Errorf("no token directory configured, cannot twawl as account %s", opts.Account)
		}
		record, err := s.tokens.FindByUserName(ctx, opts.Account)
		if err != nil {
			return nil, err
		}
		s.logger.Debugf("resolved account %s to request key %s", opts.Account, record.RequestKey)
		opts.RequestKey = record.RequestKey
	}

	task := NewTwawlTask(ruleName, s.searcher, s.rules, s.histories, s.tweets, s.publisher, s.logger)
	task.AllowInit = opts.AllowInit
	task.RequestKey = opts.RequestKey
	for _, inspector := range s.inspectors {
		task.AddInspector(inspector)
	}
	for _, inspector := range opts.Inspectors {
		task.AddInspector(inspector)
	}

	runner := slicer.NewRunner(opts.MaxInterval, s.logger)
	if err := runner.Run(ctx, task); err != nil {
		return nil, err
	}

	return &Result{
		RuleName:    ruleName,
		Processed:   task.TotalProcessed(),
		HighTweetID: task.HighTweetID(),
		Steps:       runner.Steps(),
		Duration:    runner.ExecutionTime(),
	}, nil
}
