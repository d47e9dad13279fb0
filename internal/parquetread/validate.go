package parquetread

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/cbgtariff/internal/model"
)

// ValidateSchema checks that the Parquet schema contains every column the
// reference table requires.
func ValidateSchema(schema *parquet.Schema, table model.RefTable) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}

	var missing []string
	for _, col := range table.Required {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required column(s): %s", table.Name, strings.Join(missing, ", "))
	}
	return nil
}
