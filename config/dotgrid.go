package config

import (
	"github.com/pkg/errors"

	"github.com/sksurgery/stereovision/utils"
	"github.com/sksurgery/stereovision/vision/dotgrid"
)

// DotGridModel describes a dot calibration target: a Rows x Cols grid of dots SpacingMM apart,
// drawn SpacingPx apart on its reference image, with four larger fiducial dots.
type DotGridModel struct {
	Rows      int     `json:"rows"`
	Cols      int     `json:"cols"`
	SpacingPx float64 `json:"spacing_px"`
	SpacingMM float64 `json:"spacing_mm"`
	// Fiducials are the grid indexes of the top-left, top-right, bottom-left and bottom-right
	// fiducial dots.
	Fiducials []int `json:"fiducials"`
}

// DefaultDotGridModel is the 18 x 25 laparoscope calibration target with 5 mm spacing.
func DefaultDotGridModel() DotGridModel {
	return DotGridModel{
		Rows:      18,
		Cols:      25,
		SpacingPx: 50,
		SpacingMM: 5,
		Fiducials: []int{133, 141, 308, 316},
	}
}

// Validate checks the grid is not empty and its fiducials lie on it.
func (m DotGridModel) Validate() error {
	if m.Rows <= 0 || m.Cols <= 0 {
		return errors.Errorf("dot grid must have rows and columns, got %d x %d", m.Rows, m.Cols)
	}
	if m.SpacingPx <= 0 || m.SpacingMM <= 0 {
		return errors.Errorf("dot grid spacing must be positive, got %v px and %v mm", m.SpacingPx, m.SpacingMM)
	}
	if len(m.Fiducials) != dotgrid.NumFiducials {
		return utils.NewDimensionsError("fiducials", len(m.Fiducials), 1, dotgrid.NumFiducials, 1)
	}
	for _, idx := range m.Fiducials {
		if idx < 0 || idx >= m.Rows*m.Cols {
			return errors.Errorf("fiducial index %d outside grid of %d points", idx, m.Rows*m.Cols)
		}
	}
	return nil
}

// Grid returns the target's reference grid points.
func (m DotGridModel) Grid() []dotgrid.GridPoint {
	return dotgrid.RegularGrid(m.Rows, m.Cols, m.SpacingPx, m.SpacingMM)
}
