package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/npc-engine/internal/logger"
	"github.com/jwebster45206/npc-engine/internal/services/events"
	"github.com/jwebster45206/npc-engine/internal/services/queue"
	"github.com/jwebster45206/npc-engine/pkg/storage"
	"github.com/jwebster45206/npc-engine/pkg/world"
)

const (
	lockTTL     = 30 * time.Second
	saveTimeout = 5 * time.Second
)

// ErrLockLost is returned once another worker owns the world or the lock
// could not be renewed before it expired.
var ErrLockLost = errors.New("world lock lost")

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

var renewScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Options tune the tick loop
type Options struct {
	// TickInterval is both the wall-clock period and the simulated dt.
	TickInterval time.Duration
	// SnapshotInterval is how often the world is saved; 0 saves only on shutdown.
	SnapshotInterval time.Duration
}

// Worker owns one world: it ticks the simulation at a fixed rate, applies
// queued commands between ticks, publishes events and saves snapshots.
type Worker struct {
	id          string
	world       *world.Registry
	storage     storage.Storage
	queue       *queue.CommandQueue
	processor   *CommandProcessor
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	opts        Options
	ctx         context.Context
	cancel      context.CancelFunc

	lastSave   time.Time
	lastRenew  time.Time
	locked     bool
	renewEvery time.Duration
}

// New creates a new worker instance
func New(w *world.Registry, store storage.Storage, commands *queue.CommandQueue, redisClient *redis.Client, log *slog.Logger, workerID string, opts Options) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 50 * time.Millisecond
	}

	return &Worker{
		id:          workerID,
		world:       w,
		storage:     store,
		queue:       commands,
		processor:   NewCommandProcessor(w, log),
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         logger.WithWorld(log, w.ID().String()).With("worker_id", workerID),
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		lastSave:    time.Now(),
		renewEvery:  lockTTL / 3,
	}
}

// ID returns the worker's lock owner id
func (w *Worker) ID() string { return w.id }

// Start runs the tick loop until Stop is called. It fails if another worker
// holds the world.
func (w *Worker) Start() error {
	locked, err := w.acquireWorldLock()
	if err != nil {
		return fmt.Errorf("failed to acquire world lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("world %s is owned by another worker", w.world.ID())
	}
	defer w.releaseWorldLock()

	w.log.Info("Worker starting", "tick_interval", w.opts.TickInterval, "snapshot_interval", w.opts.SnapshotInterval)

	// Publish the world right away so the API can serve it before the first autosave.
	if err := w.Save(); err != nil {
		w.log.Error("Initial save failed", "error", err)
	}

	ticker := time.NewTicker(w.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			if err := w.Save(); err != nil {
				w.log.Error("Final save failed", "error", err)
			}
			return nil
		case <-ticker.C:
			if err := w.Tick(); err != nil {
				if errors.Is(err, ErrLockLost) {
					logger.WithError(w.log, err).Error("Worker lost world ownership, stopping")
					return err
				}
				// Continue ticking even on error
				w.log.Error("Error during tick", "error", err)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// Tick applies queued commands, advances the world by one interval and
// publishes what happened. A held lock is renewed first; when it is lost
// nothing else runs and the error wraps ErrLockLost.
func (w *Worker) Tick() error {
	ctx, cancel := context.WithTimeout(w.ctx, w.opts.TickInterval*4)
	defer cancel()

	if w.locked && time.Since(w.lastRenew) >= w.renewEvery {
		if err := w.renewWorldLock(ctx); err != nil {
			if errors.Is(err, ErrLockLost) {
				return err
			}
			w.log.Warn("Lock renewal failed, retrying next tick", "error", err)
		}
	}

	if err := w.applyCommands(ctx); err != nil {
		w.log.Error("Failed to apply commands", "error", err)
	}

	w.world.UpdateAll(w.opts.TickInterval.Seconds())

	var errs []error
	if evs := w.world.DrainEvents(); len(evs) > 0 {
		if err := w.broadcaster.PublishSimulation(ctx, w.world.ID(), evs); err != nil {
			errs = append(errs, err)
		}
	}

	if w.opts.SnapshotInterval > 0 && time.Since(w.lastSave) >= w.opts.SnapshotInterval {
		if err := w.Save(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (w *Worker) applyCommands(ctx context.Context) error {
	if w.queue == nil {
		return nil
	}
	cmds, err := w.queue.Drain(ctx, w.world.ID())
	if err != nil {
		return err
	}
	for _, cmd := range cmds {
		minute := w.world.Minute()
		if err := w.processor.Apply(cmd); err != nil {
			w.log.Warn("Command rejected", "command_id", cmd.CommandID, "type", cmd.Type, "error", err)
			if pubErr := w.broadcaster.PublishCommandFailed(ctx, w.world.ID(), cmd.CommandID, string(cmd.Type), minute, err.Error()); pubErr != nil {
				w.log.Error("Failed to publish failure event", "error", pubErr)
			}
			continue
		}
		if err := w.broadcaster.PublishCommandApplied(ctx, w.world.ID(), cmd.CommandID, string(cmd.Type), minute); err != nil {
			w.log.Error("Failed to publish command event", "error", err)
		}
	}
	return nil
}

// Save persists a snapshot of the world.
func (w *Worker) Save() error {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	ws := w.world.Snapshot()
	if err := w.storage.SaveWorldState(ctx, ws.ID, ws); err != nil {
		return fmt.Errorf("failed to save world: %w", err)
	}
	w.lastSave = time.Now()
	if err := w.broadcaster.PublishWorldSaved(ctx, ws.ID, ws.Minute, len(ws.NPCs)); err != nil {
		w.log.Error("Failed to publish save event", "error", err)
	}
	w.log.Debug("World saved", "minute", ws.Minute, "npcs", len(ws.NPCs))
	return nil
}

func lockKey(worldID uuid.UUID) string {
	return fmt.Sprintf("world-lock:%s", worldID.String())
}

// acquireWorldLock attempts to acquire a lock for the world
// Returns true if lock was acquired, false if already locked
func (w *Worker) acquireWorldLock() (bool, error) {
	ok, err := w.redisClient.SetNX(w.ctx, lockKey(w.world.ID()), w.id, lockTTL).Result()
	if err != nil || !ok {
		return false, err
	}
	w.locked = true
	w.lastRenew = time.Now()
	return true, nil
}

func (w *Worker) renewWorldLock(ctx context.Context) error {
	n, err := renewScript.Run(ctx, w.redisClient, []string{lockKey(w.world.ID())}, w.id, lockTTL.Milliseconds()).Int()
	if err != nil {
		if time.Since(w.lastRenew) >= lockTTL {
			w.locked = false
			return fmt.Errorf("%w: renewal failed past ttl: %v", ErrLockLost, err)
		}
		return fmt.Errorf("failed to renew world lock: %w", err)
	}
	if n == 0 {
		w.locked = false
		return fmt.Errorf("%w: owned by another worker", ErrLockLost)
	}
	w.lastRenew = time.Now()
	return nil
}

// releaseWorldLock releases the lock for the world
func (w *Worker) releaseWorldLock() {
	w.locked = false
	// Only delete if we own the lock
	if err := releaseScript.Run(context.Background(), w.redisClient, []string{lockKey(w.world.ID())}, w.id).Err(); err != nil {
		w.log.Error("Failed to release world lock", "error", err)
	}
}
