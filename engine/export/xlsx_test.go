package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/WessleyAI/wessley-inspect/engine/domain"
)

func TestWriteXLSX(t *testing.T) {
	vehicles, inspections := dataset(t)
	table := Build(vehicles, inspections, domain.DefaultLocale)

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, table); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("unexpected sheets %v", sheets)
	}
	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(inspections)+1 {
		t.Fatalf("expected %d rows incl. header, got %d", len(inspections)+1, len(rows))
	}
	if rows[0][0] != "ID" || rows[0][7] != "brake" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[2][6] != "Defect" || rows[2][8] != "worn" {
		t.Fatalf("unexpected second data row %v", rows[2])
	}
	if v, _ := f.GetCellValue(SheetName, "E2"); v != "1200" {
		t.Fatalf("mileage cell = %q", v)
	}

	w, err := f.GetColWidth(SheetName, "F")
	if err != nil || w != 40 {
		t.Fatalf("remark width = %v (%v)", w, err)
	}
	panes, err := f.GetPanes(SheetName)
	if err != nil || !panes.Freeze || panes.YSplit != 1 {
		t.Fatalf("header not frozen: %+v (%v)", panes, err)
	}
}
