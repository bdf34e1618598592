package repositories

import (
	"context"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

type LaneRepository struct {
	DB querier
}

func NewLaneRepository(db querier) *LaneRepository {
	return &LaneRepository{DB: db}
}

func (r *LaneRepository) InsertLane(ctx context.Context, lane *models.ScheduleLane) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO schedule_lanes(plan_id, name, origin_date) VALUES($1, $2, $3) RETURNING id`,
		lane.PlanID, lane.Name, lane.OriginDate,
	).Scan(&lane.ID)
}

// GetLane returns a lane with its cells and blocks
func (r *LaneRepository) GetLane(ctx context.Context, id int) (*models.ScheduleLane, error) {
	lane := &models.ScheduleLane{}
	err := r.DB.QueryRow(ctx,
		`SELECT id, plan_id, name, origin_date FROM schedule_lanes WHERE id = $1`, id,
	).Scan(&lane.ID, &lane.PlanID, &lane.Name, &lane.OriginDate)
	if err != nil {
		return nil, notFound(err, "lane", id)
	}
	if err := r.loadLaneContents(ctx, lane); err != nil {
		return nil, err
	}
	return lane, nil
}

// LockLane locks the lane row so placement and locking on it serialize
func (r *LaneRepository) LockLane(ctx context.Context, id int) (*models.ScheduleLane, error) {
	lane := &models.ScheduleLane{}
	err := r.DB.QueryRow(ctx,
		`SELECT id, plan_id, name, origin_date FROM schedule_lanes WHERE id = $1 FOR UPDATE`, id,
	).Scan(&lane.ID, &lane.PlanID, &lane.Name, &lane.OriginDate)
	if err != nil {
		return nil, notFound(err, "lane", id)
	}
	if err := r.loadLaneContents(ctx, lane); err != nil {
		return nil, err
	}
	return lane, nil
}

func (r *LaneRepository) ListLanes(ctx context.Context, planID int) ([]*models.ScheduleLane, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, plan_id, name, origin_date FROM schedule_lanes WHERE plan_id = $1 ORDER BY id`, planID)
	if err != nil {
		return nil, err
	}
	lanes := make([]*models.ScheduleLane, 0)
	for rows.Next() {
		lane := &models.ScheduleLane{}
		if err := rows.Scan(&lane.ID, &lane.PlanID, &lane.Name, &lane.OriginDate); err != nil {
			rows.Close()
			return nil, err
		}
		lanes = append(lanes, lane)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, lane := range lanes {
		if err := r.loadLaneContents(ctx, lane); err != nil {
			return nil, err
		}
	}
	return lanes, nil
}

func (r *LaneRepository) loadLaneContents(ctx context.Context, lane *models.ScheduleLane) error {
	rows, err := r.DB.Query(ctx,
		`SELECT lane_id, day_index, plan_item_id, value FROM lane_cells
		 WHERE lane_id = $1 ORDER BY day_index`, lane.ID)
	if err != nil {
		return err
	}
	lane.Cells, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LaneCell, error) {
		var c models.LaneCell
		err := row.Scan(&c.LaneID, &c.DayIndex, &c.PlanItemID, &c.Value)
		return c, err
	})
	if err != nil {
		return err
	}

	rows, err = r.DB.Query(ctx,
		`SELECT id, lane_id, start_index, end_index, label FROM lane_blocks
		 WHERE lane_id = $1 ORDER BY start_index`, lane.ID)
	if err != nil {
		return err
	}
	lane.Blocks, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.LaneBlock, error) {
		var b models.LaneBlock
		err := row.Scan(&b.ID, &b.LaneID, &b.StartIndex, &b.EndIndex, &b.Label)
		return b, err
	})
	return err
}

// DeleteLane removes the lane; cells and blocks cascade
func (r *LaneRepository) DeleteLane(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM schedule_lanes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("lane %d not found", id)
	}
	return nil
}

// UpsertLaneCells writes cells, replacing whatever occupied the same days
func (r *LaneRepository) UpsertLaneCells(ctx context.Context, cells []models.LaneCell) error {
	if len(cells) == 0 {
		return nil
	}
	for _, c := range cells {
		if _, err := r.DB.Exec(ctx,
			`INSERT INTO lane_cells(lane_id, day_index, plan_item_id, value) VALUES($1, $2, $3, $4)
			 ON CONFLICT (lane_id, day_index) DO UPDATE SET plan_item_id = EXCLUDED.plan_item_id, value = EXCLUDED.value`,
			c.LaneID, c.DayIndex, c.PlanItemID, c.Value); err != nil {
			return err
		}
	}
	return nil
}

// DeleteLaneCells clears the inclusive day range [start, end]
func (r *LaneRepository) DeleteLaneCells(ctx context.Context, laneID, start, end int) error {
	_, err := r.DB.Exec(ctx,
		`DELETE FROM lane_cells WHERE lane_id = $1 AND day_index BETWEEN $2 AND $3`, laneID, start, end)
	return err
}

func (r *LaneRepository) InsertLaneBlock(ctx context.Context, block *models.LaneBlock) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO lane_blocks(lane_id, start_index, end_index, label) VALUES($1, $2, $3, $4) RETURNING id`,
		block.LaneID, block.StartIndex, block.EndIndex, block.Label,
	).Scan(&block.ID)
}

func (r *LaneRepository) DeleteLaneBlock(ctx context.Context, laneID, blockID int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM lane_blocks WHERE lane_id = $1 AND id = $2`, laneID, blockID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundf("block %d not found on lane %d", blockID, laneID)
	}
	return nil
}
