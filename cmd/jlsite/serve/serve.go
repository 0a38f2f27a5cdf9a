// Package servecmder provides the serve command that runs the site backend.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlsoftware/jlsite/api"
	"github.com/jlsoftware/jlsite/pkg/config"
	"github.com/jlsoftware/jlsite/pkg/eventstream"
	"github.com/jlsoftware/jlsite/pkg/eventstream/kafka"
	"github.com/jlsoftware/jlsite/pkg/eventstream/nop"
	"github.com/jlsoftware/jlsite/pkg/eventstream/redis"
	"github.com/jlsoftware/jlsite/pkg/logger"
	"github.com/jlsoftware/jlsite/pkg/storage"
	"github.com/jlsoftware/jlsite/pkg/storage/inmemory"
	"github.com/jlsoftware/jlsite/pkg/storage/postgres"
	"github.com/jlsoftware/jlsite/pkg/storage/sqlite"
	"github.com/jlsoftware/jlsite/proxy"
)

type ServeCommander struct {
	listen           string
	adminKey         string
	upstream         string
	relayAPIKey      string
	model            string
	systemPromptFile string
	sqlitePath       string
	postgresDSN      string
	brokers          string
	topic            string
	redisURL         string
	redisStream      string
	logFile          string
	debug            bool

	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagAdminKey,
	config.FlagUpstream,
	config.FlagRelayAPIKey,
	config.FlagModel,
	config.FlagSystemPromptFile,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagBrokers,
	config.FlagTopic,
	config.FlagRedisURL,
	config.FlagRedisStream,
}

const serveLongDesc string = `Run the jlsite API server.

The server hosts the chat relay (POST /functions/v1/ai-chat), the quotation
form endpoint (POST /functions/v1/send-quotation-notification) and, when an
admin key is configured, the /admin routes.

Storage is PostgreSQL when --postgres is set, SQLite when --sqlite is set and
in-memory otherwise. Quotation and chat events are published to Kafka when
--kafka-brokers is set, or else to a Redis stream when --redis-url is set.

Examples:
  jlsite serve --sqlite ./jlsite.db --admin-key s3cret
  JLSITE_RELAY_API_KEY=sk-... jlsite serve --upstream https://api.openai.com --model gpt-4o-mini`

const serveShortDesc string = "Run the jlsite API server"

func NewServeCmd() *cobra.Command {
	return newServeCmd(&ServeCommander{})
}

func newServeCmd(cmder *ServeCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.listen = v.GetString("server.listen")
			cmder.adminKey = v.GetString("server.admin_key")
			cmder.upstream = v.GetString("relay.upstream")
			cmder.relayAPIKey = v.GetString("relay.api_key")
			cmder.model = v.GetString("relay.model")
			cmder.systemPromptFile = v.GetString("relay.system_prompt_file")
			cmder.sqlitePath = v.GetString("storage.sqlite_path")
			cmder.postgresDSN = v.GetString("storage.postgres_dsn")
			cmder.brokers = v.GetString("events.brokers")
			cmder.topic = v.GetString("events.topic")
			cmder.redisURL = v.GetString("events.redis_url")
			cmder.redisStream = v.GetString("events.redis_stream")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagAdminKey, &cmder.adminKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagRelayAPIKey, &cmder.relayAPIKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagSystemPromptFile, &cmder.systemPromptFile)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagTopic, &cmder.topic)
	config.AddStringFlag(cmd, config.Flags, config.FlagRedisURL, &cmder.redisURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagRedisStream, &cmder.redisStream)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *ServeCommander) run() error {
	var closeLog func()
	var err error
	c.logger, closeLog, err = c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()

	driver, err := c.newStorageDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := c.newPublisher(ctx)
	if err != nil {
		return err
	}
	defer publisher.Close()

	prompt, closePrompt, err := c.newPromptSource()
	if err != nil {
		return err
	}
	defer closePrompt()

	relay, err := proxy.New(proxy.Config{
		UpstreamURL: c.upstream,
		APIKey:      c.relayAPIKey,
		Model:       c.model,
		Prompt:      prompt,
		Publisher:   publisher,
	}, driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating chat relay: %w", err)
	}

	server := api.NewServer(api.Config{
		ListenAddr:  c.listen,
		AdminKey:    c.adminKey,
		ChatHandler: relay.Handler(),
		Publisher:   publisher,
	}, driver, c.logger)

	c.logger.Info("chat relay configured",
		"upstream", c.upstream,
		"model", c.model,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		relay.Close()
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		c.logger.Warn("API server shutdown", "error", err)
	}

	// Drain recorded turns only after no request can enqueue more.
	relay.Close()
	return nil
}

// newLogger returns a pretty terminal logger, fanned out to a JSON log file
// when --log-file is set. The file always records debug events.
func (c *ServeCommander) newLogger() (*slog.Logger, func(), error) {
	pretty := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))
	if c.logFile == "" {
		return pretty, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	jsonLogger := logger.New(logger.WithLevel(slog.LevelDebug), logger.WithJSON(true), logger.WithWriter(f))
	return logger.Multi(pretty, jsonLogger), func() { _ = f.Close() }, nil
}

func (c *ServeCommander) newStorageDriver(ctx context.Context) (storage.Driver, error) {
	switch {
	case c.postgresDSN != "":
		driver, err := postgres.NewDriver(ctx, c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		c.logger.Info("using PostgreSQL storage")
		return driver, nil

	case c.sqlitePath != "":
		driver, err := sqlite.NewSQLiteDriver(ctx, c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		c.logger.Info("using SQLite storage", "path", c.sqlitePath)
		return driver, nil
	}

	c.logger.Info("using in-memory storage")
	return inmemory.NewDriver(), nil
}

func (c *ServeCommander) newPublisher(ctx context.Context) (eventstream.Publisher, error) {
	brokers := config.SplitBrokers(c.brokers)
	if len(brokers) == 0 {
		if c.redisURL != "" {
			return c.newRedisPublisher(ctx)
		}
		c.logger.Debug("event publishing disabled")
		return nop.NewPublisher(), nil
	}

	publisher, err := kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   c.topic,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating kafka publisher: %w", err)
	}

	c.logger.Info("publishing events to kafka",
		"brokers", brokers,
		"topic", c.topic,
	)
	return publisher, nil
}

func (c *ServeCommander) newRedisPublisher(ctx context.Context) (eventstream.Publisher, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	publisher, err := redis.NewPublisher(ctx, redis.Config{
		URL:    c.redisURL,
		Stream: c.redisStream,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("creating redis publisher: %w", err)
	}

	c.logger.Info("publishing events to redis", "stream", c.redisStream)
	return publisher, nil
}

func (c *ServeCommander) newPromptSource() (proxy.PromptSource, func(), error) {
	if c.systemPromptFile == "" {
		return proxy.StaticPrompt(proxy.DefaultSystemPrompt), func() {}, nil
	}

	fp, err := proxy.NewFilePrompt(c.systemPromptFile, c.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("loading system prompt: %w", err)
	}

	c.logger.Info("watching system prompt", "path", c.systemPromptFile)
	return fp, func() { _ = fp.Close() }, nil
}
