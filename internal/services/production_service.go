package services

import (
	"context"
	"log"
	"strings"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/metrics"
	"factory-backend/internal/models"
	"factory-backend/internal/realtime"
	"factory-backend/internal/repositories"
	"factory-backend/internal/timeutil"
)

type ProductionService struct {
	Store  repositories.Store
	Events realtime.Publisher
}

func NewProductionService(store repositories.Store, events realtime.Publisher) *ProductionService {
	return &ProductionService{Store: store, Events: events}
}

// RecordProduction books an operator report against the plan's item for the
// given good. The produced counter and the detail record are written in one
// transaction under the item's row lock.
func (s *ProductionService) RecordProduction(ctx context.Context, planID int, req *models.RecordProductionRequest) (*models.RecordProductionResult, error) {
	if req.SemiID <= 0 {
		return nil, apperrors.Validationf("semi_id is required")
	}
	if req.OperatorID <= 0 {
		return nil, apperrors.Validationf("operator_id is required")
	}
	if req.OKQty.IsNegative() || req.ScrapQty.IsNegative() {
		return nil, apperrors.Validationf("quantities cannot be negative")
	}
	if req.OKQty.IsZero() && req.ScrapQty.IsZero() {
		return nil, apperrors.Validationf("nothing to record: ok and scrap quantities are both zero")
	}
	shift := strings.TrimSpace(req.Shift)
	if shift == "" {
		return nil, apperrors.Validationf("shift is required")
	}
	producedOn := timeutil.Today()
	if req.Date != "" {
		d, err := timeutil.ParseDate(req.Date)
		if err != nil {
			return nil, apperrors.Validationf("invalid date %q, expected YYYY-MM-DD", req.Date)
		}
		producedOn = d
	}

	var result models.RecordProductionResult
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		candidates, err := tx.LockPlanItemsBySemi(ctx, planID, req.SemiID)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			if _, err := tx.LockPlan(ctx, planID); err != nil {
				return err
			}
			return apperrors.NotFoundf("plan %d has no item for semi-finished good %d", planID, req.SemiID)
		}
		if _, err := tx.GetOperator(ctx, req.OperatorID); err != nil {
			return err
		}

		target := resolveItem(candidates)
		produced, err := tx.AddProducedQty(ctx, target.ID, req.OKQty)
		if err != nil {
			return err
		}

		itemID := target.ID
		rec := &models.ProductionRecord{
			PlanItemID:  &itemID,
			SemiID:      req.SemiID,
			OperatorID:  req.OperatorID,
			OKQty:       req.OKQty,
			ScrapQty:    req.ScrapQty,
			ScrapReason: strings.TrimSpace(req.ScrapReason),
			Shift:       shift,
			ProducedOn:  producedOn,
		}
		if err := tx.InsertProductionRecord(ctx, rec); err != nil {
			return err
		}

		result = models.RecordProductionResult{Record: rec, PlanItemID: target.ID, ProducedQty: produced}
		return nil
	})
	if err != nil {
		return nil, txFailed("record_production", err)
	}

	metrics.ProductionRecordedTotal.Inc()
	log.Printf("[Production] Plan %d item %d: +%s ok, %s scrap by operator %d (total %s)",
		planID, result.PlanItemID, req.OKQty, req.ScrapQty, req.OperatorID, result.ProducedQty)
	publish(s.Events, realtime.Event{Type: realtime.ProductionAdded, PlanID: planID, ItemID: result.PlanItemID})
	return &result, nil
}

// resolveItem picks the first item in display order that still needs
// production. When every item is complete the last one absorbs the surplus.
func resolveItem(candidates []models.PlanItem) models.PlanItem {
	for _, item := range candidates {
		if !item.IsComplete() {
			return item
		}
	}
	return candidates[len(candidates)-1]
}

// DeleteProductionRecord reverses a record's ok quantity on its item, if the
// item still exists, and deletes the record. Privileged.
func (s *ProductionService) DeleteProductionRecord(ctx context.Context, recordID int) error {
	planID := 0
	err := s.Store.InTx(ctx, func(tx repositories.Tx) error {
		rec, err := tx.LockProductionRecord(ctx, recordID)
		if err != nil {
			return err
		}
		if rec.PlanItemID != nil {
			item, err := tx.LockPlanItem(ctx, *rec.PlanItemID)
			switch {
			case apperrors.IsNotFound(err):
			case err != nil:
				return err
			default:
				planID = item.PlanID
				if _, err := tx.AddProducedQty(ctx, item.ID, rec.OKQty.Neg()); err != nil {
					return err
				}
			}
		}
		return tx.DeleteProductionRecord(ctx, recordID)
	})
	if err != nil {
		return txFailed("delete_production_record", err)
	}

	log.Printf("[Production] Deleted production record %d", recordID)
	if planID != 0 {
		publish(s.Events, realtime.Event{Type: realtime.ProductionAdded, PlanID: planID})
	}
	return nil
}

// ListProductionRecords returns the records booked against a plan's items
func (s *ProductionService) ListProductionRecords(ctx context.Context, planID int) ([]*models.ProductionRecord, error) {
	if _, err := s.Store.GetPlan(ctx, planID); err != nil {
		return nil, err
	}
	return s.Store.ListProductionRecords(ctx, planID)
}
