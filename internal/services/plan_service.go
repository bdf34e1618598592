package services

import (
	"context"
	"log"
	"strings"
	"time"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/cache"
	"factory-backend/internal/metrics"
	"factory-backend/internal/models"
	"factory-backend/internal/projection"
	"factory-backend/internal/realtime"
	"factory-backend/internal/repositories"
	"factory-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// ShortageNotifier hands shortages to the alerting channel without waiting
type ShortageNotifier interface {
	Notify(planName string, shortages []models.MaterialShortage)
}

type PlanService struct {
	Store  repositories.Store
	Cache  *cache.Cache
	Alerts ShortageNotifier
	Events realtime.Publisher
}

func NewPlanService(store repositories.Store, c *cache.Cache, alerts ShortageNotifier, events realtime.Publisher) *PlanService {
	return &PlanService{
		Store:  store,
		Cache:  c,
		Alerts: alerts,
		Events: events,
	}
}

// CreatePlan inserts the plan and its items and projects shortages, all in one
// transaction. Alerts go out only after the commit.
func (s *PlanService) CreatePlan(ctx context.Context, req *models.CreatePlanRequest) (*models.PlanResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validationf("plan name is required")
	}
	items := make([]models.PlanItem, 0, len(req.Items))
	for i, in := range req.Items {
		item, err := newItem(in, i)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	var result models.PlanResult
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		plan := &models.ProductionPlan{Name: name, Status: models.PlanStatusOpen}
		if err := tx.InsertPlan(ctx, plan); err != nil {
			return err
		}
		for i := range items {
			items[i].PlanID = plan.ID
			if err := requireSemi(ctx, tx, items[i].SemiID); err != nil {
				return err
			}
			if err := tx.InsertPlanItem(ctx, &items[i]); err != nil {
				return err
			}
		}

		stored, err := tx.ListPlanItems(ctx, plan.ID)
		if err != nil {
			return err
		}
		plan.Items = stored
		result.Plan = plan
		result.Shortages = project(ctx, plan, tx)
		return nil
	})
	if err != nil {
		return nil, txFailed("create_plan", err)
	}

	metrics.PlansCreatedTotal.Inc()
	log.Printf("[Plans] Created plan %d %q with %d items, %d shortages", result.Plan.ID, name, len(items), len(result.Shortages))
	s.afterEdit(ctx, realtime.PlanCreated, result.Plan, result.Shortages)
	return &result, nil
}

// UpdatePlan reconciles the submitted items with the stored ones by id:
// matched items are updated in place, stored items that were not submitted are
// deleted (their production records are kept), the rest are inserted.
// Submission order becomes display order.
func (s *PlanService) UpdatePlan(ctx context.Context, id int, req *models.UpdatePlanRequest) (*models.PlanResult, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, apperrors.Validationf("plan name cannot be empty")
	}
	seen := make(map[int]bool)
	for _, in := range req.Items {
		if in.ID == 0 {
			continue
		}
		if seen[in.ID] {
			return nil, apperrors.Validationf("item %d submitted more than once", in.ID)
		}
		seen[in.ID] = true
	}

	var result models.PlanResult
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		plan, err := tx.LockPlan(ctx, id)
		if err != nil {
			return err
		}
		existing, err := tx.LockPlanItems(ctx, id)
		if err != nil {
			return err
		}
		byID := make(map[int]models.PlanItem, len(existing))
		for _, item := range existing {
			byID[item.ID] = item
		}

		kept := make(map[int]bool)
		for i, in := range req.Items {
			stored, ok := byID[in.ID]
			if !ok {
				item, err := newItem(in, i)
				if err != nil {
					return err
				}
				item.PlanID = id
				if err := requireSemi(ctx, tx, item.SemiID); err != nil {
					return err
				}
				if err := tx.InsertPlanItem(ctx, &item); err != nil {
					return err
				}
				continue
			}

			kept[stored.ID] = true
			item, err := mergeItem(stored, in, i)
			if err != nil {
				return err
			}
			if item.SemiID != stored.SemiID {
				if err := requireSemi(ctx, tx, item.SemiID); err != nil {
					return err
				}
			}
			if err := tx.UpdatePlanItem(ctx, &item); err != nil {
				return err
			}
		}

		for _, item := range existing {
			if !kept[item.ID] {
				if err := tx.DeletePlanItem(ctx, item.ID); err != nil {
					return err
				}
			}
		}

		if req.Name != nil {
			plan.Name = strings.TrimSpace(*req.Name)
			if err := tx.UpdatePlanName(ctx, id, plan.Name); err != nil {
				return err
			}
		}

		stored, err := tx.ListPlanItems(ctx, id)
		if err != nil {
			return err
		}
		plan.Items = stored
		result.Plan = plan
		result.Shortages = project(ctx, plan, tx)
		return nil
	})
	if err != nil {
		return nil, txFailed("update_plan", err)
	}

	log.Printf("[Plans] Updated plan %d: %d items, %d shortages", id, len(result.Plan.Items), len(result.Shortages))
	s.afterEdit(ctx, realtime.PlanUpdated, result.Plan, result.Shortages)
	return &result, nil
}

// DeletePlan removes a plan and its items. Production records survive with
// their item reference cleared.
func (s *PlanService) DeletePlan(ctx context.Context, id int) error {
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		return tx.DeletePlan(ctx, id)
	})
	if err != nil {
		return txFailed("delete_plan", err)
	}

	log.Printf("[Plans] Deleted plan %d", id)
	s.Cache.InvalidatePlan(ctx, id)
	publish(s.Events, realtime.Event{Type: realtime.PlanDeleted, PlanID: id})
	return nil
}

func (s *PlanService) GetPlan(ctx context.Context, id int) (*models.ProductionPlan, error) {
	return s.Store.GetPlan(ctx, id)
}

// ListOpenPlans returns plan headers without items
func (s *PlanService) ListOpenPlans(ctx context.Context) ([]*models.ProductionPlan, error) {
	return s.Store.ListOpenPlans(ctx)
}

// SetPlanStatus applies an OPEN/CLOSED transition requested by a planner
func (s *PlanService) SetPlanStatus(ctx context.Context, id int, status string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != models.PlanStatusOpen && status != models.PlanStatusClosed {
		return apperrors.Validationf("status must be %s or %s", models.PlanStatusOpen, models.PlanStatusClosed)
	}
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		return tx.UpdatePlanStatus(ctx, id, status)
	})
	if err != nil {
		return txFailed("set_plan_status", err)
	}

	log.Printf("[Plans] Plan %d is now %s", id, status)
	publish(s.Events, realtime.Event{Type: realtime.PlanUpdated, PlanID: id})
	return nil
}

// GetMaterialShortages projects the plan against current stock. It reads only.
func (s *PlanService) GetMaterialShortages(ctx context.Context, id int) ([]models.MaterialShortage, error) {
	if shortages, ok := s.Cache.GetShortages(ctx, id); ok {
		return shortages, nil
	}

	plan, err := s.Store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	shortages, err := projection.Project(ctx, plan.Items, s.Store)
	metrics.ProjectionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	s.Cache.SetShortages(ctx, id, shortages)
	return shortages, nil
}

// afterEdit runs the post-commit side effects of a create or update. None of
// them can fail the edit.
func (s *PlanService) afterEdit(ctx context.Context, event string, plan *models.ProductionPlan, shortages []models.MaterialShortage) {
	s.Cache.InvalidatePlan(ctx, plan.ID)
	publish(s.Events, realtime.Event{Type: event, PlanID: plan.ID})

	if len(shortages) == 0 {
		return
	}
	metrics.MaterialShortagesDetectedTotal.Add(float64(len(shortages)))
	if s.Alerts != nil {
		s.Alerts.Notify(plan.Name, shortages)
	}
}

// project runs the projector inside the edit transaction, under a savepoint
// so a failed read cannot abort the edit. A projector error is logged and
// yields no shortages; it never fails the edit.
func project(ctx context.Context, plan *models.ProductionPlan, tx repositories.Tx) []models.MaterialShortage {
	var shortages []models.MaterialShortage
	start := time.Now()
	err := tx.Savepoint(ctx, func(sp repositories.Tx) error {
		var err error
		shortages, err = projection.Project(ctx, plan.Items, sp)
		return err
	})
	metrics.ProjectionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("[Plans] Shortage projection failed for plan %d: %v", plan.ID, err)
		return []models.MaterialShortage{}
	}
	return shortages
}

func requireSemi(ctx context.Context, tx repositories.Tx, semiID int) error {
	_, err := tx.GetSemiFinishedGood(ctx, semiID)
	return err
}

func checkQuantities(in models.PlanItemInput) error {
	if in.SemiID <= 0 {
		return apperrors.Validationf("semi_id is required")
	}
	if in.RequiredQty.IsNegative() {
		return apperrors.Validationf("required quantity cannot be negative")
	}
	if in.ShiftRate != nil && in.ShiftRate.IsNegative() {
		return apperrors.Validationf("shift rate cannot be negative")
	}
	return nil
}

func parseStart(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := timeutil.ParseDate(value)
	if err != nil {
		return nil, apperrors.Validationf("invalid start date %q, expected YYYY-MM-DD", value)
	}
	return &d, nil
}

// newItem builds an item from a submitted line; rate defaults to 50 and the
// start date to none
func newItem(in models.PlanItemInput, position int) (models.PlanItem, error) {
	if err := checkQuantities(in); err != nil {
		return models.PlanItem{}, err
	}
	start, err := parseStart(in.StartDate)
	if err != nil {
		return models.PlanItem{}, err
	}
	rate := models.DefaultShiftRate
	if in.ShiftRate != nil {
		rate = rateOrDefault(*in.ShiftRate)
	}
	return models.PlanItem{
		SemiID:      in.SemiID,
		RequiredQty: in.RequiredQty,
		ProducedQty: decimal.Zero,
		ShiftRate:   rate,
		StartDate:   start,
		SortOrder:   position,
	}, nil
}

// rateOrDefault stores a zero rate as the default rate
func rateOrDefault(rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return models.DefaultShiftRate
	}
	return rate
}

// mergeItem applies a submitted line to a stored item. Fields left out of the
// submission keep their stored values; produced quantity is never touched.
func mergeItem(stored models.PlanItem, in models.PlanItemInput, position int) (models.PlanItem, error) {
	if err := checkQuantities(in); err != nil {
		return models.PlanItem{}, err
	}
	item := stored
	item.SemiID = in.SemiID
	item.RequiredQty = in.RequiredQty
	item.SortOrder = position
	if in.ShiftRate != nil {
		item.ShiftRate = rateOrDefault(*in.ShiftRate)
	}
	if in.StartDate != "" {
		start, err := parseStart(in.StartDate)
		if err != nil {
			return models.PlanItem{}, err
		}
		item.StartDate = start
	}
	return item, nil
}

func publish(p realtime.Publisher, ev realtime.Event) {
	if p != nil {
		p.Publish(ev)
	}
}

func txFailed(operation string, err error) error {
	if apperrors.IsKind(err, apperrors.KindTransaction) {
		metrics.TransactionFailuresTotal.WithLabelValues(operation).Inc()
		log.Printf("[Store] %s failed: %v", operation, err)
	}
	return err
}
