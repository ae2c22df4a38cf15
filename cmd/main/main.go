package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/frankk00/gaetools/internal/cache"
	"github.com/frankk00/gaetools/internal/capability"
	"github.com/frankk00/gaetools/internal/log"
	"github.com/frankk00/gaetools/internal/models/history"
	"github.com/frankk00/gaetools/internal/models/rule"
	"github.com/frankk00/gaetools/internal/models/token"
	"github.com/frankk00/gaetools/internal/models/tweet"
	"github.com/frankk00/gaetools/internal/models/user"
	"github.com/frankk00/gaetools/internal/proxy"
	"github.com/frankk00/gaetools/internal/services"
	"github.com/frankk00/gaetools/internal/slicer"
	"github.com/frankk00/gaetools/internal/tasks"
	"github.com/frankk00/gaetools/internal/twitter"
	"github.com/frankk00/gaetools/internal/web"
)

func main() {
	// Load environment variables from .env file
	err := godotenv.Load("secrets/.env")
	if err != nil {
		panic(fmt.Sprintf("Error loading .env file: %s", err))
	}

	logger, err := log.NewLogger(os.Getenv("DEVELOPMENT") == "true", os.Getenv("DEBUG") == "true")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Create a MongoDB client
	mongoURI := fmt.Sprintf("mongodb://%s:%s@%s:27017",
		os.Getenv("MONGO_INITDB_ROOT_USERNAME"),
		os.Getenv("MONGO_INITDB_ROOT_PASSWORD"),
		os.Getenv("MONGO_IP"))
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal("Error creating MongoDB client:", err)
	}

	// Pick the cache store. Redis when configured, otherwise an in-process map.
	var store cache.Store
	var redisStore *cache.RedisStore
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisStore = cache.NewRedisStore(addr, os.Getenv("REDIS_PASSWORD"), logger)
		store = redisStore
	} else {
		logger.Info("REDIS_ADDR not set, using the in-process cache store")
		store = cache.NewMemoryStore()
	}

	// Create separate managers with the MongoDB client
	tokenManager := token.NewManager(client, logger)
	ruleManager := rule.NewManager(client, store, logger)
	historyManager := history.NewManager(client, store, logger)
	tweetManager := tweet.NewManager(client, logger)
	userManager := user.NewManager(client, logger)

	// Twitter client with OAuth backed by the token manager
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "conf"
	}
	twitterConfig, err := twitter.LoadConfig(context.Background(), twitter.DefaultConfigName, configDir, store, logger)
	if err != nil {
		logger.Fatal("Error loading twitter configuration:", err)
	}
	auth := twitter.NewAuth(twitterConfig, tokenManager, logger)
	searchClient := twitter.NewClient(twitterConfig, auth, logger)

	// The twawl service ties the search client and the stores together
	twawler := tasks.NewService(searchClient, ruleManager, historyManager, tweetManager, tokenManager, nil, logger)

	// Broker service, optional. When present it publishes saved tweets and accepts
	// on-demand twawl requests.
	var mqService *services.MQService
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		trigger := func(ctx context.Context, ruleName string) error {
			_, err := twawler.Twawl(ctx, ruleName, tasks.Options{})
			return err
		}
		mqService, err = services.NewMQService(amqpURL, trigger, logger)
		if err != nil {
			logger.Fatal("Error initializing the broker service:", err)
		}
		defer mqService.Shutdown()
		twawler.SetPublisher(mqService)
	} else {
		logger.Info("AMQP_URL not set, tweets will not be published to a broker")
	}

	// Periodic twawls over every known rule, replacing the old cron triggers
	scheduler := slicer.NewScheduler(logger)
	interval := 15 * time.Minute
	if v := os.Getenv("TWAWL_INTERVAL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes < 1 {
			logger.Fatal("Invalid TWAWL_INTERVAL_MINUTES:", v)
		}
		interval = time.Duration(minutes) * time.Minute
	}
	scheduler.Add("twawl-all-rules", interval, func(ctx context.Context) error {
		rules, err := ruleManager.List(ctx)
		if err != nil {
			return err
		}
		for _, r := range rules {
			if _, err := twawler.Twawl(ctx, r.RuleName, tasks.Options{}); err != nil {
				logger.Errorf("scheduled twawl for rule %s failed: %v", r.RuleName, err)
			}
		}
		return nil
	})
	scheduler.Start()
	defer scheduler.Stop()

	// Content proxy
	proxyConfig, err := proxy.LoadConfig(context.Background(), proxy.DefaultConfigName, configDir, store, logger)
	if err != nil {
		logger.Fatal("Error loading proxy configuration:", err)
	}
	contentProxy := proxy.NewCachingContentProxy(proxyConfig, store, 0, logger)

	// Capability probes for the /capabilities report
	checker := capability.NewChecker(logger)
	checker.Add("mongodb", func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
	if redisStore != nil {
		checker.Add("redis", redisStore.Ping)
	}
	if mqService != nil {
		checker.Add("rabbitmq", func(ctx context.Context) error {
			if !mqService.Connected() {
				return fmt.Errorf("not connected")
			}
			return nil
		})
	}
	checker.Add("twitter-search", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, twitterConfig.SearchBaseURL, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	})

	// Initialize web server
	jwtSecret := os.Getenv("JWT_SECRET_KEY")
	server := web.NewWebServer(jwtSecret, web.Services{
		Users:     userManager,
		Rules:     ruleManager,
		Histories: historyManager,
		Tweets:    tweetManager,
		Tokens:    tokenManager,
		Twawler:   twawler,
		Auth:      auth,
		Search:    searchClient,
		Proxy:     contentProxy,
		Checker:   checker,
	}, logger)

	fmt.Println("Starting server...")

	// Start the web server
	if err := server.Run(os.Getenv("WEBSERVER_IP"), 5000); err != nil {
		logger.Fatal("Error starting web server:", err)
	}
}
