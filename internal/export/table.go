package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/cramly/internal/domain"
)

const sheetName = "Cards"

// writeCSV emits one front,back record per card with no header row, the
// layout flashcard importers expect.
func writeCSV(w io.Writer, cards []domain.Card) error {
	cw := csv.NewWriter(w)
	for _, c := range cards {
		if err := cw.Write([]string{c.Front, c.Back}); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, cards []domain.Card) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &[]any{"Front", "Back"}); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	for i, c := range cards {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &[]any{c.Front, c.Back}); err != nil {
			return fmt.Errorf("export xlsx: row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return nil
}
