package memory

import (
	"log"

	"factory-backend/internal/models"

	"github.com/shopspring/decimal"
)

// SeedDemo loads a small bill of materials and a few operators so the memory
// driver is usable without a database.
func (s *Store) SeedDemo() {
	d := decimal.NewFromInt

	steel := s.AddRawMaterial("RM-STEEL", "Steel sheet 2mm", d(1200), d(200))
	paint := s.AddRawMaterial("RM-PAINT", "Powder coat", d(300), d(50))
	bolts := s.AddRawMaterial("RM-BOLT", "M8 bolt", d(5000), d(1000))

	bracket := s.AddSemiFinishedGood("SF-BRACKET", "Mounting bracket",
		models.LocationStock{Location: "WH-A", Qty: d(40)})
	panel := s.AddSemiFinishedGood("SF-PANEL", "Side panel",
		models.LocationStock{Location: "WH-A", Qty: d(12)},
		models.LocationStock{Location: "WH-B", Qty: d(30)})

	s.AddRecipeLine(bracket, steel, decimal.NewFromFloat(0.4))
	s.AddRecipeLine(bracket, bolts, d(4))
	s.AddRecipeLine(panel, steel, decimal.NewFromFloat(1.5))
	s.AddRecipeLine(panel, paint, decimal.NewFromFloat(0.2))

	s.AddOperator("Line operator 1")
	s.AddOperator("Line operator 2")

	log.Printf("[Memory] Seeded demo data: 3 raw materials, 2 semi-finished goods, 2 operators")
}
