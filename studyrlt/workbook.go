package studyrlt

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/mfauto/mfauto/data"
	"github.com/xuri/excelize/v2"
)

const workbookSheet = "Sheet1"

// nonMesh writes a non-mesh result to <name>.xlsx with a scatter chart
// when an output file is set
func (e *Exporter) nonMesh(res *data.Result, name string) error {
	if len(res.Times) != len(res.Series) {
		return fmt.Errorf("%v: %v times for %v values: %w", name,
			len(res.Times), len(res.Series), data.ErrParse)
	}

	if e.OutFile == "" {
		return nil
	}

	out := filepath.Join(e.Dir(), data.IOName(name)+".xlsx")
	if err := WriteWorkbook(out, res, name); err != nil {
		return fmt.Errorf("Error writing workbook: %w", err)
	}

	e.record(data.ArtifactResult, out)
	return nil
}

// WriteWorkbook writes a non-mesh result as a table of time and values
// with a chart of every component against time
func WriteWorkbook(path string, res *data.Result, name string) error {
	f := excelize.NewFile()
	defer f.Close()

	label := name
	if res.Unit != "" {
		label = fmt.Sprintf("%v (%v)", name, res.Unit)
	}

	header := []interface{}{"Time (s)"}
	for c := 0; c < res.Components; c++ {
		if res.Components == 1 {
			header = append(header, label)
		} else {
			header = append(header, fmt.Sprintf("%v [%d]", label, c))
		}
	}

	if err := f.SetSheetRow(workbookSheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(workbookSheet, "A1", last, bold); err != nil {
		return err
	}

	for i, t := range res.Times {
		row := make([]interface{}, 0, len(header))
		row = append(row, t)
		for _, v := range res.Series[i] {
			if math.IsNaN(v) {
				row = append(row, nil)
			} else {
				row = append(row, v)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(workbookSheet, cell, &row); err != nil {
			return err
		}
	}

	n := len(res.Times)
	if n > 0 {
		chart := &excelize.Chart{
			Type:      excelize.Scatter,
			Dimension: excelize.ChartDimension{Width: 960, Height: 576},
			Legend:    excelize.ChartLegend{Position: "none"},
			XAxis: excelize.ChartAxis{
				MajorGridLines: true,
				Title:          []excelize.RichTextRun{{Text: "Time (s)"}},
			},
			YAxis: excelize.ChartAxis{
				Title: []excelize.RichTextRun{{Text: label}},
			},
		}

		for c := 1; c < len(header); c++ {
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return err
			}
			chart.Series = append(chart.Series, excelize.ChartSeries{
				Name:       fmt.Sprintf("%v!$%v$1", workbookSheet, col),
				Categories: fmt.Sprintf("%v!$A$2:$A$%d", workbookSheet, n+1),
				Values:     fmt.Sprintf("%v!$%v$2:$%v$%d", workbookSheet, col, col, n+1),
				Marker:     excelize.ChartMarker{Symbol: "none"},
			})
		}

		if err := f.AddChart(workbookSheet, "E2", chart); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
