package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/config"
	"github.com/sksurgery/stereovision/logging"
	"github.com/sksurgery/stereovision/pointcloud"
)

const loggerName = "sksurgery"

// setGlobalLogger installs the logger every command logs through, at debug level when
// --debug is set.
func setGlobalLogger(c *cli.Context) error {
	level := logging.INFO
	if c.Bool(generalFlagDebug) {
		level = logging.DEBUG
	}
	logging.ReplaceGlobal(logging.NewLoggerAtLevel(loggerName, level))
	return nil
}

func newLogger(c *cli.Context) logging.Logger {
	return logging.Global().Sublogger(c.Command.Name)
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	_, _ = fmt.Fprintf(w, format+"\n", a...)
}

// writeResult writes m to the --out file, or to the app's writer when none is given.
func writeResult(c *cli.Context, m mat.Matrix) error {
	if path := c.Path(flagOut); path != "" {
		return config.WriteMatrixTextFile(path, m)
	}
	return config.WriteMatrixText(c.App.Writer, m)
}

// writePCD writes the finite points of m to the --pcd file when one is given.
func writePCD(c *cli.Context, m mat.Matrix) error {
	path := c.Path(flagPCD)
	if path == "" {
		return nil
	}
	pcdType, err := pointcloud.PCDTypeFromString(c.String(flagPCDType))
	if err != nil {
		return err
	}
	if err := pointcloud.WriteToPCDFile(m, path, pcdType); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// parseIntList parses a comma separated list of integers.
func parseIntList(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid integer %q", field)
		}
		out = append(out, v)
	}
	return out, nil
}
