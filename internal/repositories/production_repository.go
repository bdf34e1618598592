package repositories

import (
	"context"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"
)

type ProductionRepository struct {
	DB querier
}

func NewProductionRepository(db querier) *ProductionRepository {
	return &ProductionRepository{DB: db}
}

const productionRecordColumns = `id, plan_item_id, semi_id, operator_id, ok_qty, scrap_qty,
	COALESCE(scrap_reason, ''), shift, produced_on, created_at`

func (r *ProductionRepository) InsertProductionRecord(ctx context.Context, rec *models.ProductionRecord) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO production_records(plan_item_id, semi_id, operator_id, ok_qty, scrap_qty, scrap_reason, shift, produced_on)
		 VALUES($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		 RETURNING id, created_at`,
		rec.PlanItemID, rec.SemiID, rec.OperatorID, rec.OKQty, rec.ScrapQty,
		rec.ScrapReason, rec.Shift, rec.ProducedOn,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// ListProductionRecords returns the records booked against items of a plan,
// newest first. Records whose item was deleted no longer belong to any plan.
func (r *ProductionRepository) ListProductionRecords(ctx context.Context, planID int) ([]*models.ProductionRecord, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT pr.id, pr.plan_item_id, pr.semi_id, pr.operator_id, pr.ok_qty, pr.scrap_qty,
		        COALESCE(pr.scrap_reason, ''), pr.shift, pr.produced_on, pr.created_at
		 FROM production_records pr
		 JOIN plan_items pi ON pi.id = pr.plan_item_id
		 WHERE pi.plan_id = $1
		 ORDER BY pr.produced_on DESC, pr.id DESC`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.ProductionRecord, 0)
	for rows.Next() {
		rec := &models.ProductionRecord{}
		if err := rows.Scan(&rec.ID, &rec.PlanItemID, &rec.SemiID, &rec.OperatorID, &rec.OKQty, &rec.ScrapQty,
			&rec.ScrapReason, &rec.Shift, &rec.ProducedOn, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *ProductionRepository) LockProductionRecord(ctx context.Context, id int) (*models.ProductionRecord, error) {
	rec := &models.ProductionRecord{}
	err := r.DB.QueryRow(ctx,
		`SELECT `+productionRecordColumns+` FROM production_records WHERE id = $1 FOR UPDATE`, id,
	).Scan(&rec.ID, &rec.PlanItemID, &rec.SemiID, &rec.OperatorID, &rec.OKQty, &rec.ScrapQty,
		&rec.ScrapReason, &rec.Shift, &rec.ProducedOn, &rec.CreatedAt)
	if err != nil {
		return nil, notFound(err, "production record", id)
	}
	return rec, nil
}

func (r *ProductionRepository) DeleteProductionRecord(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM production_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("production record %d not found", id)
	}
	return nil
}

// ReassignProductionRecords moves records from one item to another, used when
// two items are merged.
func (r *ProductionRepository) ReassignProductionRecords(ctx context.Context, fromItemID, toItemID int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE production_records SET plan_item_id = $2 WHERE plan_item_id = $1`, fromItemID, toItemID)
	return err
}

func (r *ProductionRepository) GetOperator(ctx context.Context, id int) (*models.Operator, error) {
	op := &models.Operator{}
	err := r.DB.QueryRow(ctx, `SELECT id, name FROM operators WHERE id = $1`, id).Scan(&op.ID, &op.Name)
	if err != nil {
		return nil, notFound(err, "operator", id)
	}
	return op, nil
}
