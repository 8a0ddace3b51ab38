package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"dayplan-api/api"
	"dayplan-api/domain"
	"dayplan-api/storage"
)

const defaultCivilTimezone = "America/Los_Angeles"

func envDuration(name string, def time.Duration) time.Duration {
	d, err := parseDurationEnv(name, def)
	if err != nil {
		log.Fatal(err)
	}
	return d
}

func parseDurationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %v", name, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, v)
	}
	return d, nil
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTable := os.Getenv("TASKS_TABLE")
	rolloverQueue := os.Getenv("ROLLOVER_QUEUE")
	if connStr == "" || tasksTable == "" || rolloverQueue == "" {
		log.Fatal("missing storage config")
	}

	zone := os.Getenv("CIVIL_TIMEZONE")
	if zone == "" {
		zone = defaultCivilTimezone
	}
	clock, err := domain.NewDayClock(zone)
	if err != nil {
		log.Fatalf("timezone: %v", err)
	}

	store, err := storage.New(connStr, tasksTable, rolloverQueue)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	cached := storage.NewCache(store, rc, envDuration("DAY_CACHE_TTL", 5*time.Minute))
	deduper := NewRedisDeduper(rc, envDuration("DEDUPE_TTL", 24*time.Hour))
	svc := domain.NewRolloverService(cached, clock)

	updatesChannel := os.Getenv("TASK_UPDATES_CHANNEL")
	if updatesChannel == "" {
		updatesChannel = "task-updates"
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	logger := log.New()
	api.Register(e, cached, svc, api.HeaderAuth{}, logger)

	go runRolloverConsumer(context.Background(), store, svc, clock, deduper, rc, updatesChannel)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}
	log.WithFields(log.Fields{"zone": zone, "addr": listenAddr}).Info("dayplan api starting")
	e.Logger.Fatal(e.Start(listenAddr))
}

// rolloverQueue is the dequeue side of the command queue.
type rolloverQueue interface {
	DequeueRollover(ctx context.Context) (*azqueue.DequeuedMessage, error)
	DeleteRollover(ctx context.Context, id, receipt string) error
}

// runRolloverConsumer drains the rollover command queue. Messages that fail
// to process stay on the queue for redelivery; messages that fail to decode
// are dropped as poison.
func runRolloverConsumer(ctx context.Context, queue rolloverQueue, runner rolloverRunner, clock domain.DayClock, deduper Deduper, rc *redis.Client, channel string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msg, err := queue.DequeueRollover(ctx)
		if err != nil {
			log.WithError(err).Error("dequeue rollover")
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			time.Sleep(time.Second)
			continue
		}
		payload := ""
		if msg.MessageText != nil {
			payload = *msg.MessageText
		}
		var cmd domain.RolloverCommand
		if err := sonic.UnmarshalString(payload, &cmd); err != nil {
			log.WithError(err).Error("dropping malformed rollover command")
		} else if err := processRollover(ctx, runner, clock, deduper, rc, channel, cmd, payload); err != nil {
			log.WithError(err).WithField("user", cmd.UserID).Error("rollover failed; leaving message for retry")
			continue
		}
		if err := queue.DeleteRollover(ctx, *msg.MessageID, *msg.PopReceipt); err != nil {
			log.WithError(err).Error("delete rollover message")
		}
	}
}
