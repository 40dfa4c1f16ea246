package workers

import (
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/Yzori/Critvue-sub002/internal/config"
	"github.com/Yzori/Critvue-sub002/internal/logger"
	"github.com/Yzori/Critvue-sub002/internal/models"
	"github.com/Yzori/Critvue-sub002/internal/repositories"
	"github.com/Yzori/Critvue-sub002/internal/services"
)

const sweepBatchSize = 200

// SlotWorker runs the deadline sweeps: hourly it abandons expired claims
// and auto-accepts overdue submissions, daily it refunds stale rejections
// and releases abandoned admin dispute locks.
//
// Candidate queries run without locks; each candidate is then transitioned
// through the state machine, which re-locks and re-validates. A candidate
// that changed state between the query and the transition fails its
// precondition and is skipped, so overlapping or repeated sweeps are
// harmless. One bad row never stops a sweep.
type SlotWorker struct {
	db             *gorm.DB
	machine        *services.SlotMachine
	slotRepo       repositories.SlotRepository
	adminClaimRepo repositories.AdminClaimRepository
	engine         config.EngineConfig
	cron           *cron.Cron
	now            func() time.Time
}

func NewSlotWorker(
	db *gorm.DB,
	machine *services.SlotMachine,
	slotRepo repositories.SlotRepository,
	adminClaimRepo repositories.AdminClaimRepository,
	engine config.EngineConfig,
) *SlotWorker {
	return &SlotWorker{
		db:             db,
		machine:        machine,
		slotRepo:       slotRepo,
		adminClaimRepo: adminClaimRepo,
		engine:         engine,
		now:            time.Now,
	}
}

func (w *SlotWorker) SetClock(now func() time.Time) {
	w.now = now
}

// Start регистрирует cron-задачи и запускает планировщик
func (w *SlotWorker) Start() error {
	w.cron = cron.New()

	if _, err := w.cron.AddFunc(w.engine.HourlySweepCron, func() {
		w.RunExpiredClaimsSweep()
		w.RunAutoAcceptSweep()
	}); err != nil {
		return err
	}

	if _, err := w.cron.AddFunc(w.engine.DailySweepCron, func() {
		w.RunStaleRejectedSweep()
		w.RunStaleAdminClaimsSweep()
	}); err != nil {
		return err
	}

	w.cron.Start()
	logger.Info("Slot worker started")
	return nil
}

func (w *SlotWorker) Stop() {
	if w.cron != nil {
		ctx := w.cron.Stop()
		<-ctx.Done()
	}
	logger.Info("Slot worker stopped")
}

// RunExpiredClaimsSweep abandons claims whose deadline passed without a
// submission.
func (w *SlotWorker) RunExpiredClaimsSweep() int {
	slots, err := w.slotRepo.FindExpiredClaimed(w.db, w.now(), sweepBatchSize)
	if err != nil {
		logger.WorkerLog("slot_worker", "expired claims query", err)
		return 0
	}

	processed := 0
	for i := range slots {
		if _, err := w.machine.Abandon(slots[i].ID, "", true); err != nil {
			logger.WorkerLog("slot_worker", "abandon expired claim "+slots[i].ID, err)
			continue
		}
		processed++
	}
	if processed > 0 {
		logger.WorkerLog("slot_worker", "expired claims sweep", nil)
	}
	return processed
}

// RunAutoAcceptSweep accepts submissions whose review window lapsed with
// no creator action.
func (w *SlotWorker) RunAutoAcceptSweep() int {
	slots, err := w.slotRepo.FindAutoAcceptDue(w.db, w.now(), sweepBatchSize)
	if err != nil {
		logger.WorkerLog("slot_worker", "auto-accept query", err)
		return 0
	}

	processed := 0
	for i := range slots {
		if _, err := w.machine.Accept(slots[i].ID, "", models.AcceptModeAuto, nil); err != nil {
			logger.WorkerLog("slot_worker", "auto-accept slot "+slots[i].ID, err)
			continue
		}
		processed++
	}
	if processed > 0 {
		logger.WorkerLog("slot_worker", "auto-accept sweep", nil)
	}
	return processed
}

// RunStaleRejectedSweep refunds escrow on rejections whose dispute window
// lapsed undisputed.
func (w *SlotWorker) RunStaleRejectedSweep() int {
	cutoff := w.now().Add(-time.Duration(w.engine.DisputeWindowDays) * 24 * time.Hour)
	slots, err := w.slotRepo.FindStaleRejected(w.db, cutoff, sweepBatchSize)
	if err != nil {
		logger.WorkerLog("slot_worker", "stale rejected query", err)
		return 0
	}

	processed := 0
	for i := range slots {
		if err := w.machine.RefundStaleRejected(slots[i].ID); err != nil {
			logger.WorkerLog("slot_worker", "refund stale rejected "+slots[i].ID, err)
			continue
		}
		processed++
	}
	return processed
}

// RunStaleAdminClaimsSweep releases dispute locks held past the admin
// claim TTL, returning those disputes to the queue.
func (w *SlotWorker) RunStaleAdminClaimsSweep() int {
	cutoff := w.now().Add(-time.Duration(w.engine.AdminClaimTTLDays) * 24 * time.Hour)
	claims, err := w.adminClaimRepo.FindStale(w.db, cutoff, sweepBatchSize)
	if err != nil {
		logger.WorkerLog("slot_worker", "stale admin claims query", err)
		return 0
	}

	processed := 0
	for i := range claims {
		if err := w.adminClaimRepo.Release(w.db, claims[i].ID, w.now()); err != nil {
			logger.WorkerLog("slot_worker", "release admin claim "+claims[i].ID, err)
			continue
		}
		processed++
	}
	return processed
}
