// Package excel loads a spreadsheet into a frame so screening can run
// against real tables instead of only synthetic ones. The first row is the
// header; one named column carries the class labels and every other column
// must parse as numeric.
package excel

import (
	"context"
	"strconv"

	"github.com/xuri/excelize/v2"

	"permsig/domain/core"
	"permsig/domain/frame"
	"permsig/internal/errors"
)

// Reader implements ports.FrameReader for .xlsx files
type Reader struct{}

// NewReader creates a spreadsheet reader
func NewReader() *Reader {
	return &Reader{}
}

// Read loads the first sheet of the workbook at path
func (r *Reader) Read(ctx context.Context, path string, labelColumn core.FeatureKey) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open workbook %s", path)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.InvalidInput("workbook has no sheets")
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %s", sheets[0])
	}
	if len(rows) < 2 {
		return nil, errors.InvalidInput("sheet needs a header row and at least one data row")
	}

	header := rows[0]
	labelIdx := -1
	for i, name := range header {
		if core.FeatureKey(name) == labelColumn {
			labelIdx = i
			break
		}
	}
	if labelIdx < 0 {
		return nil, core.NewFeatureError(labelColumn, core.ErrUnknownFeature)
	}

	data := rows[1:]
	labels := make([]string, len(data))
	columns := make([][]float64, len(header))
	for i := range columns {
		if i != labelIdx {
			columns[i] = make([]float64, len(data))
		}
	}

	for rowIdx, row := range data {
		if len(row) > len(header) {
			return nil, errors.ValidationError(
				"row " + strconv.Itoa(rowIdx+2) + " is wider than the header")
		}
		// GetRows trims trailing empty cells, so a short row means trailing
		// blanks, not a malformed sheet; missing cells read as empty.
		for colIdx := range header {
			cell := ""
			if colIdx < len(row) {
				cell = row[colIdx]
			}
			if colIdx == labelIdx {
				if cell == "" {
					return nil, errors.ValidationError(
						"empty label in row " + strconv.Itoa(rowIdx+2))
				}
				labels[rowIdx] = cell
				continue
			}
			if cell == "" {
				return nil, errors.ValidationError(
					"empty value in column " + header[colIdx] + " row " + strconv.Itoa(rowIdx+2))
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "non-numeric value %q in column %s row %d",
					cell, header[colIdx], rowIdx+2)
			}
			columns[colIdx][rowIdx] = value
		}
	}

	f := frame.New(labels)
	for i, name := range header {
		if i == labelIdx {
			continue
		}
		if err := f.AddColumn(core.FeatureKey(name), columns[i]); err != nil {
			return nil, err
		}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
