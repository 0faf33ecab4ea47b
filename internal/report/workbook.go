// Package report renders a project ledger as an Excel workbook.
package report

import (
	"fmt"

	"interior-ledger/internal/ledger"
	"interior-ledger/internal/payments"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetStages       = "Stages"
	SheetTransactions = "Transactions"
	SheetExtraWork    = "Extra work"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func money(v decimal.Decimal) float64 {
	return v.Round(2).InexactFloat64()
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// LedgerWorkbook builds a workbook with one sheet per ledger section. Stage
// figures include carry-forward; raw paid amounts sit next to them.
func LedgerWorkbook(view payments.LedgerView) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetStages); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeStages(f, view); err != nil {
		f.Close()
		return nil, fmt.Errorf("write stages: %w", err)
	}
	if err := writeTransactions(f, view); err != nil {
		f.Close()
		return nil, fmt.Errorf("write transactions: %w", err)
	}
	if err := writeExtraWork(f, view); err != nil {
		f.Close()
		return nil, fmt.Errorf("write extra work: %w", err)
	}
	return f, nil
}

func stageLabel(s ledger.AllocatedStage) string {
	if def, ok := ledger.Definition(s.Stage); ok {
		return def.Label
	}
	return string(s.Stage)
}

func writeStages(f *excelize.File, view payments.LedgerView) error {
	headers := []string{"Stage", "Percentage", "Required", "Paid", "Effective paid", "Balance", "Status", "Carry-forward"}
	if err := writeHeader(f, SheetStages, headers); err != nil {
		return err
	}
	row := 2
	for _, s := range view.Stages {
		carry := ""
		if s.HasCarryForward {
			carry = "yes"
		}
		if err := writeRow(f, SheetStages, row,
			stageLabel(s), s.Percentage, money(s.RequiredAmount), money(s.PaidAmount),
			money(s.EffectivePaid), money(s.EffectiveBalance), string(s.EffectiveStatus), carry,
		); err != nil {
			return err
		}
		row++
	}

	row++
	if view.Cost != nil {
		if err := writeRow(f, SheetStages, row, "Contract value", nil, money(view.Cost.TotalCost)); err != nil {
			return err
		}
		row++
	}
	summary := []struct {
		label string
		value decimal.Decimal
	}{
		{"Received (ledger)", view.LedgerTotals.Received},
		{"Pending (ledger)", view.LedgerTotals.Pending},
		{"Received (effective)", view.EffectiveTotals.Received},
		{"Pending (effective)", view.EffectiveTotals.Pending},
		{"Unallocated", view.UnallocatedExcess},
	}
	for _, line := range summary {
		if err := writeRow(f, SheetStages, row, line.label, nil, money(line.value)); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeTransactions(f *excelize.File, view payments.LedgerView) error {
	if _, err := f.NewSheet(SheetTransactions); err != nil {
		return err
	}
	headers := []string{"ID", "Stage ID", "Date", "Amount", "Method", "Reference", "Notes", "Recorded by"}
	if err := writeHeader(f, SheetTransactions, headers); err != nil {
		return err
	}
	for i, t := range view.Transactions {
		if err := writeRow(f, SheetTransactions, i+2,
			t.ID, t.StageID, t.PaymentDate.Format("02.01.2006"), money(t.Amount),
			t.PaymentMethod, t.ReferenceNumber, t.Notes, t.RecordedBy,
		); err != nil {
			return err
		}
	}
	return nil
}

func writeExtraWork(f *excelize.File, view payments.LedgerView) error {
	if _, err := f.NewSheet(SheetExtraWork); err != nil {
		return err
	}
	headers := []string{"ID", "Description", "Amount", "Paid", "Status", "Payments"}
	if err := writeHeader(f, SheetExtraWork, headers); err != nil {
		return err
	}
	for i, w := range view.ExtraWork {
		if err := writeRow(f, SheetExtraWork, i+2,
			w.ID, w.Description, money(w.Amount), money(w.PaidAmount), string(w.Status), len(w.Payments),
		); err != nil {
			return err
		}
	}
	return nil
}
