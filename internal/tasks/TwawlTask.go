// This file contains the TwawlTask, a slicer.Task that searches for tweets matching a
// rule. Each step issues one search API call from the rule's high tweet watermark,
// follows next-page continuations across steps, and aggregates results into the rule
// and daily history records when progress was made.

package tasks

import (
	"context"
	"time"

	"github.com/frankk00/gaetools/internal/log"
	"github.com/frankk00/gaetools/internal/models/history"
	"github.com/frankk00/gaetools/internal/models/rule"
	"github.com/frankk00/gaetools/internal/twitter"
)

// MinTweetProcessingInterval is the minimum slice time a step needs to be worth
// starting another search API call.
const MinTweetProcessingInterval = 5 * time.Second

// Inspector looks at a tweet and decides whether it should be kept, by clearing
// WorthSaving. Inspectors must not block.
type Inspector func(*twitter.Tweet)

// Searcher issues search API calls; satisfied by *twitter.Client.
type Searcher interface {
	SearchWithOptions(ctx context.Context, req *twitter.SearchRequest, callback func(*twitter.Tweet), opts twitter.RequestOptions) error
}

// RuleStore is the slice of the rule manager the task needs.
type RuleStore interface {
	FindOrCreate(ctx context.Context, name string) (*rule.TwawlRule, error)
	Update(ctx context.Context, r *rule.TwawlRule, highTweetID, tweetsIncrement int64) error
}

// HistoryStore is the slice of the history manager the task needs.
type HistoryStore interface {
	FindOrCreateToday(ctx context.Context, ruleName string) (*history.TwawlHistory, error)
	Save(ctx context.Context, record *history.TwawlHistory) error
}

// TweetStore persists tweets worth keeping.
type TweetStore interface {
	SaveTweet(ctx context.Context, t *twitter.Tweet, ruleName string) error
}

// Publisher pushes saved tweets to the message broker. May be nil when no broker
// is configured.
type Publisher interface {
	PublishTweet(ctx context.Context, t *twitter.Tweet, ruleName string) error
}

type TwawlTask struct {
	// RuleName names the twawl rule to search under.
	RuleName string
	// AllowInit permits starting a fresh OAuth authorization when no access
	// token is available.
	AllowInit bool
	// RequestKey selects a previously authorized OAuth token.
	RequestKey string

	searcher   Searcher
	rules      RuleStore
	histories  HistoryStore
	tweets     TweetStore
	publisher  Publisher
	logger     *log.Logger
	inspectors []Inspector

	// per-run state
	highTweetID    int64
	nextPage       string
	stepProcessed  int64
	totalProcessed int64
	stepCtx        context.Context
}

func NewTwawlTask(ruleName string, searcher Searcher, rules RuleStore, histories HistoryStore, tweets TweetStore, publisher Publisher, logger *log.Logger) *TwawlTask {
	return &TwawlTask{
		RuleName:  ruleName,
		searcher:  searcher,
		rules:     rules,
		histories: histories,
		tweets:    tweets,
		publisher: publisher,
		logger:    logger,
	}
}

// AddInspector registers an inspector that gets a look at every processed tweet.
func (t *TwawlTask) AddInspector(inspector Inspector) {
	t.inspectors = append(t.inspectors, inspector)
}

// TotalProcessed returns the number of tweets processed across the whole run.
func (t *TwawlTask) TotalProcessed() int64 {
	return t.totalProcessed
}

// HighTweetID returns the highest tweet id seen during the run.
func (t *TwawlTask) HighTweetID() int64 {
	return t.highTweetID
}

func (t *TwawlTask) Setup(ctx context.Context) error {
	t.logger.Debugf("twawl task setup initiated for rule %s", t.RuleName)
	t.highTweetID = 0
	t.nextPage = ""
	t.totalProcessed = 0
	return nil
}

func (t *TwawlTask) RunStep(ctx context.Context) (bool, error) {
	// not enough slice time left to be worth another API call
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < MinTweetProcessingInterval {
		return true, nil
	}

	if t.RuleName == "" {
		t.logger.Warn("no twawl rule name is set, unable to twawl for tweets")
		return true, nil
	}

	r, err := t.rules.FindOrCreate(ctx, t.RuleName)
	if err != nil {
		return true, err
	}

	req := &twitter.SearchRequest{
		Query:       r.SearchQuery(),
		HighTweetID: r.HighTweetID,
		Language:    r.Language,
		NextPage:    t.nextPage,
	}
	t.logger.Debugf("high tweet id is %d", req.HighTweetID)

	t.stepProcessed = 0
	t.stepCtx = ctx
	opts := twitter.RequestOptions{AllowInit: t.AllowInit, RequestKey: t.RequestKey}
	if err := t.searcher.SearchWithOptions(ctx, req, t.processTweet, opts); err != nil {
		return true, err
	}

	// an unsuccessful search ends the run immediately
	if !req.Successful {
		return true, nil
	}

	// keep the continuation for if we get another shot
	t.nextPage = req.NextPage

	foundTweets := req.NextPage != "" || t.highTweetID > r.HighTweetID
	if foundTweets {
		record, err := t.histories.FindOrCreateToday(ctx, r.RuleName)
		if err != nil {
			return true, err
		}
		record.HighTweetID = t.highTweetID
		record.TotalTweets += t.stepProcessed
		if err := t.histories.Save(ctx, record); err != nil {
			return true, err
		}

		if err := t.rules.Update(ctx, r, t.highTweetID, t.stepProcessed); err != nil {
			return true, err
		}
	}

	return !foundTweets, nil
}

func (t *TwawlTask) Teardown() {
	t.logger.Debugf("twawl task for rule %s processed %d tweets", t.RuleName, t.totalProcessed)
}

// processTweet runs the inspectors over a tweet, saves it when they leave it
// worth saving, and tracks the high watermark. Save and publish failures are
// logged rather than aborting the search; the watermark only advances past a
// tweet that was handled.
func (t *TwawlTask) processTweet(tweet *twitter.Tweet) {
	if tweet == nil {
		return
	}

	t.stepProcessed++
	t.totalProcessed++

	for _, inspector := range t.inspectors {
		inspector(tweet)
	}

	if tweet.WorthSaving {
		if err := t.tweets.SaveTweet(t.stepCtx, tweet, t.RuleName); err != nil {
			t.logger.Errorf("unable to save tweet %d: %v", tweet.ID, err)
			return
		}
		if t.publisher != nil {
			if err := t.publisher.PublishTweet(t.stepCtx, tweet, t.RuleName); err != nil {
				t.logger.Errorf("unable to publish tweet %d: %v", tweet.ID, err)
			}
		}
	}

	if tweet.ID > t.highTweetID {
		t.highTweetID = tweet.ID
	}

	t.logger.Debugf("processed a tweet: %s, tweets processed = %d", tweet, t.totalProcessed)
}
