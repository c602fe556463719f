package ml

import "fmt"

// Frame is a minimal named-column table. Cells hold string, int or float64.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// Matrix is a dense row-major float32 matrix, the shape ONNX models consume.
type Matrix [][]float32

// Rows returns the number of rows.
func (m Matrix) Rows() int { return len(m) }

// Cols returns the width of the first row, or 0 for an empty matrix.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Validate checks that the matrix is non-empty and rectangular.
func (m Matrix) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("empty matrix")
	}
	width := len(m[0])
	if width == 0 {
		return fmt.Errorf("matrix has zero columns")
	}
	for i, row := range m {
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, expected %d", i, len(row), width)
		}
	}
	return nil
}

// Proba holds per-class probabilities, one row per input row. It is kept in
// float64 so values decoded from JSON near the decision threshold are not
// collapsed by a float32 round trip.
type Proba [][]float64

// Rows returns the number of rows.
func (p Proba) Rows() int { return len(p) }

// Validate checks that the probabilities are non-empty and rectangular.
func (p Proba) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("empty probabilities")
	}
	width := len(p[0])
	if width == 0 {
		return fmt.Errorf("probabilities have zero columns")
	}
	for i, row := range p {
		if len(row) != width {
			return fmt.Errorf("row %d has %d columns, expected %d", i, len(row), width)
		}
	}
	return nil
}

// ProbaFromMatrix widens a float32 classifier output.
func ProbaFromMatrix(m Matrix) Proba {
	out := make(Proba, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = float64(v)
		}
	}
	return out
}

// Flatten returns the matrix as a single contiguous slice.
func (m Matrix) Flatten() []float32 {
	out := make([]float32, 0, m.Rows()*m.Cols())
	for _, row := range m {
		out = append(out, row...)
	}
	return out
}

// Reshape splits flat data into rows of width cols.
func Reshape(data []float32, cols int) (Matrix, error) {
	if cols <= 0 || len(data)%cols != 0 {
		return nil, fmt.Errorf("cannot reshape %d values into rows of %d", len(data), cols)
	}
	out := make(Matrix, 0, len(data)/cols)
	for i := 0; i < len(data); i += cols {
		row := make([]float32, cols)
		copy(row, data[i:i+cols])
		out = append(out, row)
	}
	return out, nil
}

// ColumnIndex returns the position of name in the frame, or -1.
func (f Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}
