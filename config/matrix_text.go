package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

const matrixCommentChar = "#"

// ReadMatrixText reads a matrix written one row per line with whitespace or comma separated
// values, the format numpy's loadtxt and savetxt use. Text after # is ignored, as are blank
// lines. No rows give an empty matrix.
func ReadMatrixText(r io.Reader) (*mat.Dense, error) {
	var data []float64
	cols, rows := 0, 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line, _, _ := strings.Cut(scanner.Text(), matrixCommentChar)
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\r'
		})
		if len(fields) == 0 {
			continue
		}
		if rows == 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, errors.Errorf("line %d has %d values, expected %d", lineNum, len(fields), cols)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNum)
			}
			data = append(data, v)
		}
		rows++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if rows == 0 {
		return &mat.Dense{}, nil
	}
	return mat.NewDense(rows, cols, data), nil
}

// ReadMatrixTextFile reads the matrix text file at path.
func ReadMatrixTextFile(path string) (*mat.Dense, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	m, err := ReadMatrixText(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return m, nil
}

// WriteMatrixText writes m one row per line, values in numpy's default %.18e format. An empty
// matrix writes nothing.
func WriteMatrixText(w io.Writer, m mat.Matrix) error {
	if m == nil {
		return nil
	}
	if d, ok := m.(*mat.Dense); ok && (d == nil || d.IsEmpty()) {
		return nil
	}
	bw := bufio.NewWriter(w)
	rows, cols := m.Dims()
	buf := make([]byte, 0, 32)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}
			buf = strconv.AppendFloat(buf[:0], m.At(i, j), 'e', 18, 64)
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteMatrixTextFile writes m to a new file at path.
func WriteMatrixTextFile(path string, m mat.Matrix) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return WriteMatrixText(f, m)
}
