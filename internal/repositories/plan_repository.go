package repositories

import (
	"context"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type PlanRepository struct {
	DB querier
}

func NewPlanRepository(db querier) *PlanRepository {
	return &PlanRepository{DB: db}
}

const planItemColumns = `pi.id, pi.plan_id, pi.semi_id, COALESCE(s.code, ''), COALESCE(s.name, ''),
	pi.required_qty, pi.produced_qty, pi.shift_rate, pi.start_date, pi.sort_order, pi.split_from_id`

func scanPlanItem(row pgx.Row, item *models.PlanItem) error {
	return row.Scan(&item.ID, &item.PlanID, &item.SemiID, &item.SemiCode, &item.SemiName,
		&item.RequiredQty, &item.ProducedQty, &item.ShiftRate, &item.StartDate, &item.SortOrder, &item.SplitFromID)
}

func collectPlanItems(rows pgx.Rows) ([]models.PlanItem, error) {
	defer rows.Close()

	items := make([]models.PlanItem, 0)
	for rows.Next() {
		var item models.PlanItem
		if err := scanPlanItem(rows, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Plan operations

func (r *PlanRepository) InsertPlan(ctx context.Context, plan *models.ProductionPlan) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO production_plans(name, status) VALUES($1, $2) RETURNING id, created_at`,
		plan.Name, plan.Status,
	).Scan(&plan.ID, &plan.CreatedAt)
}

// GetPlan returns the plan header with its items in display order
func (r *PlanRepository) GetPlan(ctx context.Context, id int) (*models.ProductionPlan, error) {
	plan := &models.ProductionPlan{}
	err := r.DB.QueryRow(ctx,
		`SELECT id, name, status, created_at FROM production_plans WHERE id = $1`, id,
	).Scan(&plan.ID, &plan.Name, &plan.Status, &plan.CreatedAt)
	if err != nil {
		return nil, notFound(err, "plan", id)
	}

	items, err := r.ListPlanItems(ctx, id)
	if err != nil {
		return nil, err
	}
	plan.Items = items
	return plan, nil
}

func (r *PlanRepository) LockPlan(ctx context.Context, id int) (*models.ProductionPlan, error) {
	plan := &models.ProductionPlan{}
	err := r.DB.QueryRow(ctx,
		`SELECT id, name, status, created_at FROM production_plans WHERE id = $1 FOR UPDATE`, id,
	).Scan(&plan.ID, &plan.Name, &plan.Status, &plan.CreatedAt)
	if err != nil {
		return nil, notFound(err, "plan", id)
	}
	return plan, nil
}

// ListOpenPlans returns open plan headers, newest first
func (r *PlanRepository) ListOpenPlans(ctx context.Context) ([]*models.ProductionPlan, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, status, created_at FROM production_plans
		 WHERE status = $1 ORDER BY created_at DESC, id DESC`, models.PlanStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]*models.ProductionPlan, 0)
	for rows.Next() {
		plan := &models.ProductionPlan{}
		if err := rows.Scan(&plan.ID, &plan.Name, &plan.Status, &plan.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) UpdatePlanName(ctx context.Context, id int, name string) error {
	tag, err := r.DB.Exec(ctx, `UPDATE production_plans SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("plan %d not found", id)
	}
	return nil
}

func (r *PlanRepository) UpdatePlanStatus(ctx context.Context, id int, status string) error {
	tag, err := r.DB.Exec(ctx, `UPDATE production_plans SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("plan %d not found", id)
	}
	return nil
}

// DeletePlan removes the plan. Items go with it (ON DELETE CASCADE); their
// production records stay, with plan_item_id set to NULL.
func (r *PlanRepository) DeletePlan(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM production_plans WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("plan %d not found", id)
	}
	return nil
}

// Item operations

func (r *PlanRepository) ListPlanItems(ctx context.Context, planID int) ([]models.PlanItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+planItemColumns+`
		 FROM plan_items pi LEFT JOIN semi_finished_goods s ON s.id = pi.semi_id
		 WHERE pi.plan_id = $1 ORDER BY pi.sort_order, pi.id`, planID)
	if err != nil {
		return nil, err
	}
	return collectPlanItems(rows)
}

func (r *PlanRepository) GetPlanItem(ctx context.Context, id int) (*models.PlanItem, error) {
	var item models.PlanItem
	row := r.DB.QueryRow(ctx,
		`SELECT `+planItemColumns+`
		 FROM plan_items pi LEFT JOIN semi_finished_goods s ON s.id = pi.semi_id
		 WHERE pi.id = $1`, id)
	if err := scanPlanItem(row, &item); err != nil {
		return nil, notFound(err, "plan item", id)
	}
	return &item, nil
}

// LockPlanItems locks every item of a plan. Used when the whole item set is
// reconciled or renumbered.
func (r *PlanRepository) LockPlanItems(ctx context.Context, planID int) ([]models.PlanItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+planItemColumns+`
		 FROM plan_items pi LEFT JOIN semi_finished_goods s ON s.id = pi.semi_id
		 WHERE pi.plan_id = $1 ORDER BY pi.sort_order, pi.id
		 FOR UPDATE OF pi`, planID)
	if err != nil {
		return nil, err
	}
	return collectPlanItems(rows)
}

func (r *PlanRepository) LockPlanItem(ctx context.Context, id int) (*models.PlanItem, error) {
	var item models.PlanItem
	row := r.DB.QueryRow(ctx,
		`SELECT `+planItemColumns+`
		 FROM plan_items pi LEFT JOIN semi_finished_goods s ON s.id = pi.semi_id
		 WHERE pi.id = $1 FOR UPDATE OF pi`, id)
	if err := scanPlanItem(row, &item); err != nil {
		return nil, notFound(err, "plan item", id)
	}
	return &item, nil
}

// LockPlanItemsBySemi locks only the items of one good, so recordings against
// other items of the same plan are not serialized behind it.
func (r *PlanRepository) LockPlanItemsBySemi(ctx context.Context, planID, semiID int) ([]models.PlanItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+planItemColumns+`
		 FROM plan_items pi LEFT JOIN semi_finished_goods s ON s.id = pi.semi_id
		 WHERE pi.plan_id = $1 AND pi.semi_id = $2 ORDER BY pi.sort_order, pi.id
		 FOR UPDATE OF pi`, planID, semiID)
	if err != nil {
		return nil, err
	}
	return collectPlanItems(rows)
}

func (r *PlanRepository) InsertPlanItem(ctx context.Context, item *models.PlanItem) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO plan_items(plan_id, semi_id, required_qty, produced_qty, shift_rate, start_date, sort_order, split_from_id)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		item.PlanID, item.SemiID, item.RequiredQty, item.ProducedQty, item.ShiftRate,
		item.StartDate, item.SortOrder, item.SplitFromID,
	).Scan(&item.ID)
}

// UpdatePlanItem writes every mutable column of an item
func (r *PlanRepository) UpdatePlanItem(ctx context.Context, item *models.PlanItem) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE plan_items
		 SET semi_id = $2, required_qty = $3, produced_qty = $4, shift_rate = $5,
		     start_date = $6, sort_order = $7, split_from_id = $8
		 WHERE id = $1`,
		item.ID, item.SemiID, item.RequiredQty, item.ProducedQty, item.ShiftRate,
		item.StartDate, item.SortOrder, item.SplitFromID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("plan item %d not found", item.ID)
	}
	return nil
}

// DeletePlanItem removes an item; its production records are kept with a NULL
// plan_item_id (ON DELETE SET NULL).
func (r *PlanRepository) DeletePlanItem(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM plan_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("plan item %d not found", id)
	}
	return nil
}

// AddProducedQty applies delta to the produced counter in place and returns the
// new total. The counter never goes below zero.
func (r *PlanRepository) AddProducedQty(ctx context.Context, itemID int, delta decimal.Decimal) (decimal.Decimal, error) {
	var produced decimal.Decimal
	err := r.DB.QueryRow(ctx,
		`UPDATE plan_items SET produced_qty = GREATEST(produced_qty + $2, 0)
		 WHERE id = $1 RETURNING produced_qty`, itemID, delta,
	).Scan(&produced)
	if err != nil {
		return decimal.Zero, notFound(err, "plan item", itemID)
	}
	return produced, nil
}
