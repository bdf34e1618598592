package repositories

import (
	"context"
	"errors"
	"log"

	"factory-backend/internal/apperrors"
	"factory-backend/internal/models"
	"factory-backend/internal/projection"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Reader is the set of plain reads available both on the store and inside a
// transaction.
type Reader interface {
	projection.BOMSource

	GetPlan(ctx context.Context, id int) (*models.ProductionPlan, error)
	ListOpenPlans(ctx context.Context) ([]*models.ProductionPlan, error)
	ListPlanItems(ctx context.Context, planID int) ([]models.PlanItem, error)
	GetPlanItem(ctx context.Context, id int) (*models.PlanItem, error)
	ListProductionRecords(ctx context.Context, planID int) ([]*models.ProductionRecord, error)
	GetOperator(ctx context.Context, id int) (*models.Operator, error)
	ListLanes(ctx context.Context, planID int) ([]*models.ScheduleLane, error)
	GetLane(ctx context.Context, id int) (*models.ScheduleLane, error)
}

// Tx is one all-or-nothing unit of work. Lock* reads take row locks that are
// held until the transaction ends.
type Tx interface {
	Reader

	InsertPlan(ctx context.Context, plan *models.ProductionPlan) error
	UpdatePlanName(ctx context.Context, id int, name string) error
	UpdatePlanStatus(ctx context.Context, id int, status string) error
	DeletePlan(ctx context.Context, id int) error
	LockPlan(ctx context.Context, id int) (*models.ProductionPlan, error)

	LockPlanItems(ctx context.Context, planID int) ([]models.PlanItem, error)
	LockPlanItem(ctx context.Context, id int) (*models.PlanItem, error)
	LockPlanItemsBySemi(ctx context.Context, planID, semiID int) ([]models.PlanItem, error)
	InsertPlanItem(ctx context.Context, item *models.PlanItem) error
	UpdatePlanItem(ctx context.Context, item *models.PlanItem) error
	DeletePlanItem(ctx context.Context, id int) error
	AddProducedQty(ctx context.Context, itemID int, delta decimal.Decimal) (decimal.Decimal, error)

	InsertProductionRecord(ctx context.Context, rec *models.ProductionRecord) error
	LockProductionRecord(ctx context.Context, id int) (*models.ProductionRecord, error)
	DeleteProductionRecord(ctx context.Context, id int) error
	ReassignProductionRecords(ctx context.Context, fromItemID, toItemID int) error

	InsertLane(ctx context.Context, lane *models.ScheduleLane) error
	LockLane(ctx context.Context, id int) (*models.ScheduleLane, error)
	DeleteLane(ctx context.Context, id int) error
	UpsertLaneCells(ctx context.Context, cells []models.LaneCell) error
	DeleteLaneCells(ctx context.Context, laneID, start, end int) error
	InsertLaneBlock(ctx context.Context, block *models.LaneBlock) error
	DeleteLaneBlock(ctx context.Context, laneID, blockID int) error

	// Savepoint runs fn in a nested transaction. An error from fn undoes only
	// fn's work and leaves the outer transaction usable.
	Savepoint(ctx context.Context, fn func(tx Tx) error) error
}

// Store is the persistence boundary of the planning core
type Store interface {
	Reader
	// InTx runs fn in a transaction. Any error from fn rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repos struct {
	*PlanRepository
	*ProductionRepository
	*BOMRepository
	*LaneRepository
}

func newRepos(db querier) repos {
	return repos{
		PlanRepository:       NewPlanRepository(db),
		ProductionRepository: NewProductionRepository(db),
		BOMRepository:        NewBOMRepository(db),
		LaneRepository:       NewLaneRepository(db),
	}
}

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	repos
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{repos: newRepos(pool), pool: pool}
}

type pgTx struct {
	repos
	tx pgx.Tx
}

// Savepoint uses a pgx nested transaction (SAVEPOINT / ROLLBACK TO SAVEPOINT),
// so a failed statement inside fn does not abort the outer transaction.
func (t *pgTx) Savepoint(ctx context.Context, fn func(tx Tx) error) error {
	nested, err := t.tx.Begin(ctx)
	if err != nil {
		return apperrors.Transaction(err)
	}
	if err := fn(&pgTx{repos: newRepos(nested), tx: nested}); err != nil {
		if rbErr := nested.Rollback(ctx); rbErr != nil {
			log.Printf("[Store] Rollback to savepoint failed: %v", rbErr)
		}
		return classify(err)
	}
	if err := nested.Commit(ctx); err != nil {
		return apperrors.Transaction(err)
	}
	return nil
}

// InTx begins a transaction, runs fn and commits. The deferred rollback is a
// no-op after a successful commit.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperrors.Transaction(err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Printf("[Store] Rollback failed: %v", rbErr)
		}
	}()

	if err := fn(&pgTx{repos: newRepos(tx), tx: tx}); err != nil {
		return classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.Transaction(err)
	}
	return nil
}

// classify maps Postgres failures onto the error taxonomy. Errors that are
// already classified pass through.
func classify(err error) error {
	if apperrors.KindOf(err) != apperrors.KindInternal {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return apperrors.Transaction(err)
		case "23503":
			return &apperrors.Error{Kind: apperrors.KindValidation, Message: "referenced record does not exist", Err: err}
		case "23514", "23505":
			return &apperrors.Error{Kind: apperrors.KindValidation, Message: "constraint violated", Err: err}
		}
	}
	return err
}

// notFound turns pgx.ErrNoRows into a NotFound error for the named entity
func notFound(err error, entity string, id int) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFoundf("%s %d not found", entity, id)
	}
	return err
}

// Ping checks the database connection
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
