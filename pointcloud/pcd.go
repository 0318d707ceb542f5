// Package pointcloud reads and writes reconstructed points as PCD files.
package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/spatialmath"
	"github.com/sksurgery/stereovision/utils"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

// PCDTypeFromString parses "ascii" or "binary".
func PCDTypeFromString(s string) (PCDType, error) {
	switch s {
	case "ascii":
		return PCDAscii, nil
	case "binary":
		return PCDBinary, nil
	default:
		return PCDAscii, errors.Errorf("unsupported pcd data type %q", s)
	}
}

// FinitePoints returns the first three columns of every row of points whose coordinates are
// all finite, dropping the rows triangulation left undefined.
func FinitePoints(points mat.Matrix) ([]r3.Vector, error) {
	if utils.IsEmpty(points) {
		return nil, nil
	}
	rows, cols := points.Dims()
	if cols < 3 {
		return nil, utils.NewDimensionsError("points", rows, cols, -1, 3)
	}
	out := make([]r3.Vector, 0, rows)
	for i := 0; i < rows; i++ {
		if p := spatialmath.RowVector(points, i); utils.IsFinite(p.X, p.Y, p.Z) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ToPCD writes the first three columns of points as x y z in the points' own units. Rows with
// an undefined coordinate are skipped.
func ToPCD(points mat.Matrix, out io.Writer, outputType PCDType) error {
	vs, err := FinitePoints(points)
	if err != nil {
		return err
	}
	var data string
	switch outputType {
	case PCDAscii:
		data = "ascii"
	case PCDBinary:
		data = "binary"
	case PCDCompressed:
		return errors.New("compressed PCD not yet implemented")
	default:
		return errors.Errorf("unsupported pcd data type %d", outputType)
	}

	w := bufio.NewWriter(out)
	_, err = fmt.Fprintf(w, "VERSION .7\n"+
		"FIELDS x y z\n"+
		"SIZE 4 4 4\n"+
		"TYPE F F F\n"+
		"COUNT 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT 1\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		len(vs), len(vs), data)
	if err != nil {
		return err
	}
	buf := make([]byte, 12)
	for _, v := range vs {
		switch outputType {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(v.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(v.Z)))
			_, err = w.Write(buf)
		default:
			_, err = fmt.Fprintf(w, "%f %f %f\n", v.X, v.Y, v.Z)
		}
		if err != nil {
			return err
		}
	}
	return w.Flush()
}

// WriteToPCDFile writes points to a new file at fn.
func WriteToPCDFile(points mat.Matrix, fn string, outputType PCDType) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return ToPCD(points, f, outputType)
}

type pcdHeader struct {
	fields int
	size   []uint64
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch value {
		case "x y z", "x y z rgb":
			header.fields = len(tokens)
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != header.fields {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil || header.size[i] != 4 {
				return errors.Errorf("invalid SIZE field %s", token)
			}
		}
	case "TYPE":
		if len(tokens) != header.fields {
			return errors.New("unexpected number of fields in TYPE line")
		}
		for i := 0; i < 3; i++ {
			if tokens[i] != "F" {
				return errors.Errorf("coordinate %d must be a float, got %s", i, tokens[i])
			}
		}
	case "COUNT":
		if len(tokens) != header.fields {
			return errors.New("unexpected number of fields in COUNT line")
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
	case "POINTS":
		header.points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if header.points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", header.points, header.width*header.height)
		}
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}
	return nil
}

// ReadPCD reads the x y z of every point of a pcd file into an Nx3 matrix. A file without
// points gives an empty matrix.
func ReadPCD(inRaw io.Reader) (*mat.Dense, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	if header.points == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(int(header.points), 3, nil)
	var err error
	switch header.data {
	case PCDAscii:
		err = readPCDAscii(in, header, out)
	case PCDBinary:
		err = readPCDBinary(in, header, out)
	default:
		err = errors.New("compressed pcd not yet supported")
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadPCDFile reads the pcd file at fn.
func ReadPCDFile(fn string) (*mat.Dense, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	return ReadPCD(f)
}

func readPCDAscii(in *bufio.Reader, header pcdHeader, out *mat.Dense) error {
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return errors.Wrapf(err, "reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != header.fields {
			return errors.Errorf("unexpected number of fields in point %d", i)
		}
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(tokens[j], 64)
			if err != nil {
				return errors.Wrapf(err, "invalid point %d field %s", i, tokens[j])
			}
			out.Set(i, j, v)
		}
	}
	return nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader, out *mat.Dense) error {
	buf := make([]byte, 4*header.fields)
	for i := 0; i < int(header.points); i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			return errors.Wrapf(err, "reading point %d", i)
		}
		for j := 0; j < 3; j++ {
			out.Set(i, j, float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))))
		}
	}
	return nil
}
