package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/sksurgery/stereovision/config"
	"github.com/sksurgery/stereovision/rimage"
	"github.com/sksurgery/stereovision/vision/masking"
)

// MaskAction keeps the x y rows of a point table that land on a mask.
func MaskAction(c *cli.Context) error {
	logger := newLogger(c)
	points, err := config.ReadMatrixTextFile(c.Path(flagPoints))
	if err != nil {
		return err
	}
	mask, err := rimage.NewGrayFromFile(c.Path(flagMask))
	if err != nil {
		return err
	}
	kept, err := masking.MaskPoints(points, mask)
	if err != nil {
		return err
	}
	logger.Infow("masked points", "points", points.RawMatrix().Rows, "kept", kept.RawMatrix().Rows)
	return writeResult(c, kept)
}

// MaskStereoAction keeps the xl yl xr yr rows of a match table whose left and right pixels
// land on their masks.
func MaskStereoAction(c *cli.Context) error {
	logger := newLogger(c)
	points, err := config.ReadMatrixTextFile(c.Path(flagPoints))
	if err != nil {
		return err
	}
	leftMask, err := rimage.NewGrayFromFile(c.Path(flagLeftMask))
	if err != nil {
		return err
	}
	rightMask, err := rimage.NewGrayFromFile(c.Path(flagRightMask))
	if err != nil {
		return err
	}
	kept, err := masking.MaskStereoPoints(points, leftMask, rightMask)
	if err != nil {
		return err
	}
	logger.Infow("masked points", "points", points.RawMatrix().Rows, "kept", kept.RawMatrix().Rows)
	return writeResult(c, kept)
}
