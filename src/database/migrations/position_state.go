package migrations

import (
	"fmt"

	"gorm.io/gorm"
)

// normalizePositionState makes stored rows honour qty > 0 <=> LONG and resets the
// average price of empty positions. Rows written before the state column existed
// carry the column default.
func normalizePositionState(tx *gorm.DB) error {
	if err := tx.Exec(`UPDATE positions SET state = 'LONG' WHERE qty > 0 AND state <> 'LONG'`).Error; err != nil {
		return fmt.Errorf("mark long positions: %w", err)
	}
	if err := tx.Exec(`UPDATE positions SET state = 'FLAT', qty = 0, avg_price = 0 WHERE qty <= 0 AND (state <> 'FLAT' OR avg_price <> 0 OR qty < 0)`).Error; err != nil {
		return fmt.Errorf("mark flat positions: %w", err)
	}
	return nil
}

// uppercaseOrderSymbols brings order and drift rows written with lower-case market
// codes in line with the normalized codes every lookup uses.
func uppercaseOrderSymbols(tx *gorm.DB) error {
	for _, table := range []string{"trading_orders", "position_drift_snapshots"} {
		if err := tx.Exec(`UPDATE ` + table + ` SET symbol = UPPER(TRIM(symbol)) WHERE symbol <> UPPER(TRIM(symbol))`).Error; err != nil {
			return fmt.Errorf("uppercase %s symbols: %w", table, err)
		}
	}
	return nil
}
