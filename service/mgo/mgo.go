package mgo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"wavechat/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Config for the Mongo connection.
type Config struct {
	URI         string
	Database    string
	MaxPoolSize uint64
}

type manager struct {
	mu        sync.RWMutex
	db        *mongo.Database
	readyCh   chan struct{} // closed once on first successful connect
	readyOnce sync.Once
	lastErr   atomic.Value // error
}

var globalMgr = manager{readyCh: make(chan struct{})}

// StartAsync runs until ctx is done: connects with backoff, closes Ready()
// on first success, health-checks periodically and reconnects on failure.
func StartAsync(ctx context.Context, cfg Config) {
	go func() {
		const (
			baseBackoff = 200 * time.Millisecond
			maxBackoff  = 5 * time.Second
			healthEvery = 10 * time.Second
			failThresh  = 3
		)

		for {
			// ===== connect phase =====
			attempt := 0
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				db, err := connect(ctx, cfg)
				if err == nil {
					globalMgr.mu.Lock()
					globalMgr.db = db
					globalMgr.mu.Unlock()
					globalMgr.readyOnce.Do(func() { close(globalMgr.readyCh) })
					logger.Infof("[mongo] connected uri=%s db=%s", cfg.URI, cfg.Database)
					break
				}

				globalMgr.lastErr.Store(err)
				backoff := baseBackoff << attempt
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1))
				timer := time.NewTimer(backoff - jitter/2)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
				if attempt < 6 {
					attempt++
				}
			}

			// ===== health phase =====
			fail := 0
			ticker := time.NewTicker(healthEvery)
			down := func() bool {
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						disconnect()
						return false
					case <-ticker.C:
						globalMgr.mu.RLock()
						db := globalMgr.db
						globalMgr.mu.RUnlock()
						if db == nil {
							return true
						}
						if err := db.Client().Ping(ctx, readpref.Primary()); err != nil {
							fail++
							globalMgr.lastErr.Store(err)
							if fail >= failThresh {
								logger.Warnf("[mongo] lost connection, reconnecting: %v", err)
								disconnect()
								return true
							}
						} else {
							fail = 0
						}
					}
				}
			}()
			if !down {
				return
			}
		}
	}()
}

func connect(ctx context.Context, cfg Config) (*mongo.Database, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	cli, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, err
	}
	if err := cli.Ping(cctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli.Database(cfg.Database), nil
}

func disconnect() {
	globalMgr.mu.Lock()
	defer globalMgr.mu.Unlock()
	if globalMgr.db != nil {
		_ = globalMgr.db.Client().Disconnect(context.Background())
		globalMgr.db = nil
	}
}

// Ready is closed after the first successful connect.
func Ready() <-chan struct{} { return globalMgr.readyCh }

// WaitReady blocks until the first connect or ctx cancellation.
func WaitReady(ctx context.Context) error {
	globalMgr.mu.RLock()
	connected := globalMgr.db != nil
	globalMgr.mu.RUnlock()
	if connected {
		return nil
	}
	select {
	case <-globalMgr.readyCh:
		return nil
	case <-ctx.Done():
		if err := Err(); err != nil {
			return fmt.Errorf("mongo not ready: %w (last: %v)", ctx.Err(), err)
		}
		return fmt.Errorf("mongo not ready: %w", ctx.Err())
	}
}

// GetDB panics when called before Ready; use TryGetDB on non-critical paths.
func GetDB() *mongo.Database {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		panic("mongo not ready: wait Ready() or use TryGetDB()")
	}
	return globalMgr.db
}

func TryGetDB() (*mongo.Database, bool) {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	return globalMgr.db, globalMgr.db != nil
}

// Err returns the most recent connection error.
func Err() error {
	if v := globalMgr.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}
