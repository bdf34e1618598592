package repositories

import (
	"context"

	"factory-backend/internal/models"
)

// BOMRepository reads the engineering master data. The planning core never
// writes these tables.
type BOMRepository struct {
	DB querier
}

func NewBOMRepository(db querier) *BOMRepository {
	return &BOMRepository{DB: db}
}

// GetSemiFinishedGood returns the good with its per-location stock
func (r *BOMRepository) GetSemiFinishedGood(ctx context.Context, id int) (*models.SemiFinishedGood, error) {
	g := &models.SemiFinishedGood{}
	err := r.DB.QueryRow(ctx,
		`SELECT id, code, name FROM semi_finished_goods WHERE id = $1`, id,
	).Scan(&g.ID, &g.Code, &g.Name)
	if err != nil {
		return nil, notFound(err, "semi-finished good", id)
	}

	rows, err := r.DB.Query(ctx,
		`SELECT location, qty FROM semi_finished_stock WHERE semi_id = $1 ORDER BY location`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s models.LocationStock
		if err := rows.Scan(&s.Location, &s.Qty); err != nil {
			return nil, err
		}
		g.Stock = append(g.Stock, s)
	}
	return g, rows.Err()
}

func (r *BOMRepository) GetSemiToMaterialRecipe(ctx context.Context, semiID int) ([]models.SemiToMaterialEdge, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT semi_id, material_id, qty_per_unit FROM semi_material_recipes
		 WHERE semi_id = $1 ORDER BY material_id`, semiID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []models.SemiToMaterialEdge
	for rows.Next() {
		var e models.SemiToMaterialEdge
		if err := rows.Scan(&e.SemiID, &e.MaterialID, &e.QtyPerUnit); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (r *BOMRepository) GetRawMaterial(ctx context.Context, id int) (*models.RawMaterial, error) {
	m := &models.RawMaterial{}
	err := r.DB.QueryRow(ctx,
		`SELECT id, code, name, current_stock, minimum_stock FROM raw_materials WHERE id = $1`, id,
	).Scan(&m.ID, &m.Code, &m.Name, &m.CurrentStock, &m.MinimumStock)
	if err != nil {
		return nil, notFound(err, "raw material", id)
	}
	return m, nil
}
