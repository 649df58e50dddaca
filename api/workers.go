package api

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/kdltmhl/mc-ip-scanner/checker"
	"github.com/kdltmhl/mc-ip-scanner/logging"
	"github.com/kdltmhl/mc-ip-scanner/scanner"
)

// neighborhoodSpread is the spread applied around a single-host target,
// matching the CLI behavior for bare addresses.
const neighborhoodSpread = 100

// WorkerDeps carries everything a sweep worker needs besides the store.
type WorkerDeps struct {
	Checker checker.Checker
	// ScanConfig is the per-task template; Count, Port and Realtime are
	// overridden from the task itself.
	ScanConfig scanner.Config
}

// StartWorkers launches background goroutines that pop queued sweep tasks
// and execute them.
func StartWorkers(store TaskStore, deps WorkerDeps, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go workerLoop(store, deps)
	}
}

func workerLoop(store TaskStore, deps WorkerDeps) {
	logger := logging.Logger()
	for {
		taskID, err := store.PopFromQueue()
		if err != nil {
			logger.Error("worker failed to pop task", "error", err)
			time.Sleep(time.Second)
			continue
		}

		task, err := store.GetTask(taskID)
		if err != nil {
			if err == ErrTaskNotFound {
				logger.Warn("worker task disappeared", "task_id", taskID)
				continue
			}
			logger.Error("worker failed to load task", "task_id", taskID, "error", err)
			continue
		}

		task.Status = "running"
		task.Error = ""
		task.Found = nil
		task.Stats = nil
		task.CompletedAt = nil
		if err := store.UpdateTask(task); err != nil {
			logger.Error("worker failed to mark task running", "task_id", taskID, "error", err)
			continue
		}

		source, err := sourceForTask(task)
		if err != nil {
			failTask(task, store, err)
			continue
		}

		cfg := deps.ScanConfig
		cfg.Port = task.Port
		cfg.Count = task.Count
		cfg.Realtime = false

		sweep := scanner.New(cfg, deps.Checker, nil, nil, logger)
		found, err := sweep.Run(context.Background(), source)
		if err != nil {
			failTask(task, store, err)
			continue
		}

		stats := sweep.Stats()
		task.Status = "completed"
		task.Found = found
		task.Stats = &SweepStats{
			IPsScanned:   stats.IPsScanned,
			ServersFound: stats.ServersFound,
			Errors:       stats.Errors,
		}
		if stats.LastAddr.IsValid() {
			task.Stats.LastIP = stats.LastAddr.String()
		}
		now := time.Now().UTC()
		task.CompletedAt = &now

		if err := store.UpdateTask(task); err != nil {
			logger.Error("worker failed to update task", "task_id", task.ID, "error", err)
		}
	}
}

func failTask(task *SweepTask, store TaskStore, err error) {
	logger := logging.Logger()
	logger.Error("worker task failed", "task_id", task.ID, "error", err)
	task.Status = "failed"
	task.Error = err.Error()
	task.Found = nil
	now := time.Now().UTC()
	task.CompletedAt = &now
	if updateErr := store.UpdateTask(task); updateErr != nil {
		logger.Error("worker failed to persist failed task", "task_id", task.ID, "error", updateErr)
	}
}

func sourceForTask(task *SweepTask) (scanner.Source, error) {
	switch task.Mode {
	case ModeCIDR:
		return scanner.FromCIDR(task.Target)
	case ModeHost:
		addr, err := netip.ParseAddr(task.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", scanner.ErrInvalidRange, task.Target, err)
		}
		return scanner.FromNeighborhood(addr, neighborhoodSpread)
	case ModeRandom:
		return scanner.RandomPublic(time.Now().UnixNano()), nil
	default:
		return nil, fmt.Errorf("unsupported sweep mode %q", task.Mode)
	}
}
