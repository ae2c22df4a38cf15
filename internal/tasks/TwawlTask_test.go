package tasks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/frankk00/gaetools/internal/log"
	"github.com/frankk00/gaetools/internal/models/history"
	"github.com/frankk00/gaetools/internal/models/rule"
	"github.com/frankk00/gaetools/internal/models/token"
	"github.com/frankk00/gaetools/internal/twitter"
)

// fakeSearcher plays back scripted result pages, keyed by the request continuation.
type fakeSearcher struct {
	pages          map[string]fakePage
	failAll        bool
	searchLog      []string
	lastSince      int64
	lastWasSet     bool
	lastRequestKey string
}

type fakePage struct {
	tweets   []twitter.Tweet
	nextPage string
}

func (f *fakeSearcher) SearchWithOptions(ctx context.Context, req *twitter.SearchRequest, callback func(*twitter.Tweet), opts twitter.RequestOptions) error {
	f.searchLog = append(f.searchLog, req.NextPage)
	f.lastSince = req.HighTweetID
	f.lastWasSet = true
	f.lastRequestKey = opts.RequestKey

	if f.failAll {
		req.Successful = false
		return nil
	}

	// honour the since_id watermark like the real API does
	page := f.pages[req.NextPage]
	returned := 0
	for i := range page.tweets {
		tweet := page.tweets[i]
		if tweet.ID <= req.HighTweetID {
			continue
		}
		if callback != nil {
			callback(&tweet)
		}
		req.Tweets = append(req.Tweets, tweet)
		returned++
	}

	req.NextPage = ""
	if returned > 0 {
		req.NextPage = page.nextPage
	}
	req.Successful = true
	return nil
}

type fakeRuleStore struct {
	rules   map[string]*rule.TwawlRule
	updates []int64
}

func newFakeRuleStore() *fakeRuleStore {
	return &fakeRuleStore{rules: make(map[string]*rule.TwawlRule)}
}

func (f *fakeRuleStore) FindOrCreate(ctx context.Context, name string) (*rule.TwawlRule, error) {
	name = strings.ToLower(name)
	if r, ok := f.rules[name]; ok {
		return r, nil
	}
	r := &rule.TwawlRule{RuleName: name}
	f.rules[name] = r
	return r, nil
}

func (f *fakeRuleStore) Update(ctx context.Context, r *rule.TwawlRule, highTweetID, tweetsIncrement int64) error {
	r.HighTweetID = highTweetID
	r.TotalTweets += tweetsIncrement
	f.updates = append(f.updates, tweetsIncrement)
	return nil
}

type fakeHistoryStore struct {
	records map[string]*history.TwawlHistory
	saves   int
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{records: make(map[string]*history.TwawlHistory)}
}

func (f *fakeHistoryStore) FindOrCreateToday(ctx context.Context, ruleName string) (*history.TwawlHistory, error) {
	ruleName = strings.ToLower(ruleName)
	if record, ok := f.records[ruleName]; ok {
		return record, nil
	}
	return &history.TwawlHistory{RuleName: ruleName, SearchDate: history.DateKey(time.Now())}, nil
}

func (f *fakeHistoryStore) Save(ctx context.Context, record *history.TwawlHistory) error {
	f.records[record.RuleName] = record
	f.saves++
	return nil
}

type fakeTweetStore struct {
	saved []twitter.Tweet
}

func (f *fakeTweetStore) SaveTweet(ctx context.Context, t *twitter.Tweet, ruleName string) error {
	f.saved = append(f.saved, *t)
	return nil
}

type fakePublisher struct {
	published []int64
}

func (f *fakePublisher) PublishTweet(ctx context.Context, t *twitter.Tweet, ruleName string) error {
	f.published = append(f.published, t.ID)
	return nil
}

func tweetWithID(id int64, text string) twitter.Tweet {
	return twitter.Tweet{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		FromUser:    "gopher",
		FromUserID:  7,
		Text:        text,
		WorthSaving: true,
	}
}

// fakeTokenDirectory resolves accounts to canned auth requests.
type fakeTokenDirectory struct {
	records map[string]*token.AuthRequest
}

func (f *fakeTokenDirectory) FindByUserName(ctx context.Context, username string) (*token.AuthRequest, error) {
	if record, ok := f.records[username]; ok {
		return record, nil
	}
	return nil, token.ErrTokenNotFound
}

func newTestService(searcher Searcher, rules *fakeRuleStore, histories *fakeHistoryStore, tweets *fakeTweetStore, publisher Publisher) *Service {
	return NewService(searcher, rules, histories, tweets, nil, publisher, log.NewNop())
}

func TestTwawlFollowsContinuationsAndAggregates(t *testing.T) {
	searcher := &fakeSearcher{
		pages: map[string]fakePage{
			"": {
				tweets:   []twitter.Tweet{tweetWithID(101, "first"), tweetWithID(102, "second")},
				nextPage: "?page=2",
			},
			"?page=2": {
				tweets: []twitter.Tweet{tweetWithID(103, "third")},
			},
		},
	}
	rules := newFakeRuleStore()
	histories := newFakeHistoryStore()
	tweets := &fakeTweetStore{}
	publisher := &fakePublisher{}

	service := newTestService(searcher, rules, histories, tweets, publisher)

	result, err := service.Twawl(context.Background(), "golang", Options{})
	if err != nil {
		t.Fatalf("Twawl failed: %v", err)
	}

	if result.Processed != 3 {
		t.Errorf("expected 3 processed tweets, got %d", result.Processed)
	}
	if result.HighTweetID != 103 {
		t.Errorf("expected high tweet id 103, got %d", result.HighTweetID)
	}
	if len(tweets.saved) != 3 {
		t.Errorf("expected 3 saved tweets, got %d", len(tweets.saved))
	}
	if len(publisher.published) != 3 {
		t.Errorf("expected 3 published tweets, got %d", len(publisher.published))
	}

	r := rules.rules["golang"]
	if r.HighTweetID != 103 {
		t.Errorf("expected the rule watermark to advance to 103, got %d", r.HighTweetID)
	}
	if r.TotalTweets != 3 {
		t.Errorf("expected the rule total to be 3, got %d", r.TotalTweets)
	}

	record := histories.records["golang"]
	if record == nil {
		t.Fatal("expected a history record to be saved")
	}
	if record.TotalTweets != 3 {
		t.Errorf("expected today's history to total 3 tweets, got %d", record.TotalTweets)
	}
	if record.HighTweetID != 103 {
		t.Errorf("expected today's history watermark to be 103, got %d", record.HighTweetID)
	}
}

func TestTwawlSearchesFromRuleWatermark(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string]fakePage{}}
	rules := newFakeRuleStore()
	rules.rules["golang"] = &rule.TwawlRule{RuleName: "golang", HighTweetID: 500}

	service := newTestService(searcher, rules, newFakeHistoryStore(), &fakeTweetStore{}, nil)

	if _, err := service.Twawl(context.Background(), "golang", Options{}); err != nil {
		t.Fatalf("Twawl failed: %v", err)
	}
	if !searcher.lastWasSet || searcher.lastSince != 500 {
		t.Errorf("expected the search to start from since_id 500, got %d", searcher.lastSince)
	}
}

func TestTwawlInspectorVeto(t *testing.T) {
	searcher := &fakeSearcher{
		pages: map[string]fakePage{
			"": {tweets: []twitter.Tweet{tweetWithID(201, "keep me"), tweetWithID(202, "spam spam")}},
		},
	}
	rules := newFakeRuleStore()
	tweets := &fakeTweetStore{}

	service := newTestService(searcher, rules, newFakeHistoryStore(), tweets, nil)
	service.AddInspector(func(tweet *twitter.Tweet) {
		if strings.Contains(tweet.Text, "spam") {
			tweet.WorthSaving = false
		}
	})

	result, err := service.Twawl(context.Background(), "golang", Options{})
	if err != nil {
		t.Fatalf("Twawl failed: %v", err)
	}

	if result.Processed != 2 {
		t.Errorf("expected both tweets to be processed, got %d", result.Processed)
	}
	if len(tweets.saved) != 1 || tweets.saved[0].ID != 201 {
		t.Errorf("expected only the non-spam tweet to be saved, got %+v", tweets.saved)
	}
	// vetoed tweets still advance the watermark
	if result.HighTweetID != 202 {
		t.Errorf("expected high tweet id 202, got %d", result.HighTweetID)
	}
}

func TestTwawlUnsuccessfulSearchCompletesWithoutUpdates(t *testing.T) {
	searcher := &fakeSearcher{failAll: true}
	rules := newFakeRuleStore()
	histories := newFakeHistoryStore()

	service := newTestService(searcher, rules, histories, &fakeTweetStore{}, nil)

	result, err := service.Twawl(context.Background(), "golang", Options{})
	if err != nil {
		t.Fatalf("Twawl failed: %v", err)
	}
	if result.Processed != 0 {
		t.Errorf("expected no tweets processed, got %d", result.Processed)
	}
	if len(rules.updates) != 0 {
		t.Error("expected no rule updates on a failed search")
	}
	if histories.saves != 0 {
		t.Error("expected no history writes on a failed search")
	}
}

func TestTwawlEmptyRuleNameWarnsAndCompletes(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string]fakePage{}}
	service := newTestService(searcher, newFakeRuleStore(), newFakeHistoryStore(), &fakeTweetStore{}, nil)

	result, err := service.Twawl(context.Background(), "", Options{})
	if err != nil {
		t.Fatalf("Twawl failed: %v", err)
	}
	if result.Processed != 0 {
		t.Errorf("expected no processing, got %d", result.Processed)
	}
	if len(searcher.searchLog) != 0 {
		t.Error("expected no search calls for an empty rule name")
	}
}

func TestTwawlNoNewTweetsMakesNoUpdates(t *testing.T) {
	// a successful search that returns nothing newer than the watermark
	searcher := &fakeSearcher{pages: map[string]fakePage{}}
	rules := newFakeRuleStore()
	rules.rules["golang"] = &rule.TwawlRule{RuleName: "golang", HighTweetID: 900, TotalTweets: 10}
	histories := newFakeHistoryStore()

	service := newTestService(searcher, rules, histories, &fakeTweetStore{}, nil)

	if _, err := service.Twawl(context.Background(), "golang", Options{}); err != nil {
		t.Fatalf("Twawl failed: %v", err)
	}
	if len(rules.updates) != 0 {
		t.Error("expected no rule update when nothing new was found")
	}
	if histories.saves != 0 {
		t.Error("expected no history write when nothing new was found")
	}
	if rules.rules["golang"].TotalTweets != 10 {
		t.Error("expected the rule totals to be untouched")
	}
}

func TestTwawlNearlyExhaustedSliceMakesNoAPICall(t *testing.T) {
	searcher := &fakeSearcher{
		pages: map[string]fakePage{
			"": {tweets: []twitter.Tweet{tweetWithID(301, "never seen")}},
		},
	}
	rules := newFakeRuleStore()
	histories := newFakeHistoryStore()

	service := newTestService(searcher, rules, histories, &fakeTweetStore{}, nil)

	// a one second slice is already under the minimum processing interval, so the
	// first step must complete without touching the search API
	result, err := service.Twawl(context.Background(), "golang", Options{MaxInterval: time.Second})
	if err != nil {
		t.Fatalf("Twawl failed: %v", err)
	}

	if len(searcher.searchLog) != 0 {
		t.Errorf("expected no search calls with the slice nearly exhausted, got %d", len(searcher.searchLog))
	}
	if result.Processed != 0 {
		t.Errorf("expected no tweets processed, got %d", result.Processed)
	}
	if histories.saves != 0 || len(rules.updates) != 0 {
		t.Error("expected no store writes with the slice nearly exhausted")
	}
}

func TestTwawlResolvesAccountToRequestKey(t *testing.T) {
	searcher := &fakeSearcher{pages: map[string]fakePage{}}
	tokens := &fakeTokenDirectory{
		records: map[string]*token.AuthRequest{
			"frankk": {UserName: "frankk", RequestKey: "req-key-42"},
		},
	}

	service := NewService(searcher, newFakeRuleStore(), newFakeHistoryStore(), &fakeTweetStore{}, tokens, nil, log.NewNop())

	if _, err := service.Twawl(context.Background(), "golang", Options{Account: "frankk"}); err != nil {
		t.Fatalf("Twawl failed: %v", err)
	}
	if searcher.lastRequestKey != "req-key-42" {
		t.Errorf("expected the account's request key to be used, got %q", searcher.lastRequestKey)
	}

	if _, err := service.Twawl(context.Background(), "golang", Options{Account: "nobody"}); err == nil {
		t.Fatal("expected an error for an account with no stored token")
	}
}
