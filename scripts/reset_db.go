package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"factory-backend/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// planningTables hold plan data; the catalogue (goods, materials, recipes,
// operators) is kept unless -catalogue is given
var planningTables = []string{
	"lane_blocks",
	"lane_cells",
	"schedule_lanes",
	"production_records",
	"plan_items",
	"production_plans",
}

var catalogueTables = []string{
	"semi_material_recipes",
	"product_semi_recipes",
	"semi_finished_stock",
	"products",
	"raw_materials",
	"semi_finished_goods",
	"operators",
}

func main() {
	catalogue := flag.Bool("catalogue", false, "Also clear goods, materials, recipes and operators")
	yes := flag.Bool("yes", false, "Skip the confirmation prompt")
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("   Reset Planning Data")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This deletes all plans, production records and lanes.")
	if *catalogue {
		fmt.Println("         The material catalogue is cleared as well.")
	}
	fmt.Println()

	if !*yes {
		fmt.Print("Type 'yes' to confirm: ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" {
			fmt.Println("Reset cancelled.")
			return
		}
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	tables := planningTables
	if *catalogue {
		tables = append(append([]string{}, planningTables...), catalogueTables...)
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, table := range tables {
			if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
				return fmt.Errorf("truncate %s: %w", table, err)
			}
			fmt.Printf("  - Cleared %s\n", table)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Reset failed: %v\n", err)
	}

	fmt.Println()
	fmt.Println("Reset complete.")
}
