// Package cli contains the sksurgery command line tools.
package cli

import (
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sksurgery/stereovision/config"
	"github.com/sksurgery/stereovision/vision/stereo"
)

const (
	generalFlagDebug = "debug"

	flagPoints      = "points"
	flagCalibration = "calibration"
	flagMethod      = "method"
	flagOut         = "out"
	flagPCD         = "pcd"
	flagPCDType     = "pcd-type"
	flagUndistort   = "undistort"

	flagMask      = "mask"
	flagLeftMask  = "left-mask"
	flagRightMask = "right-mask"

	flagLeft           = "left"
	flagRight          = "right"
	flagWindowSize     = "window-size"
	flagNumDisparities = "num-disparities"
	flagStep           = "step"
	flagDisparity      = "disparity"

	flagImage      = "image"
	flagIntrinsics = "intrinsics"
	flagDistortion = "distortion"
	flagGrid       = "grid"
	flagRows       = "rows"
	flagCols       = "cols"
	flagSpacingPx  = "spacing-px"
	flagSpacingMM  = "spacing-mm"
	flagFiducials  = "fiducials"
	flagAnnotate   = "annotate"
)

var (
	defaultDotGrid      = config.DefaultDotGridModel()
	defaultBlockMatcher = stereo.DefaultBlockMatcherConfig()
)

var outFlag = &cli.PathFlag{
	Name:  flagOut,
	Usage: "write the result table to `FILE` instead of stdout",
}

var methodFlag = &cli.StringFlag{
	Name:  flagMethod,
	Value: "hartley",
	Usage: "triangulation method: midpoint or hartley",
}

var pcdFlags = []cli.Flag{
	&cli.PathFlag{
		Name:  flagPCD,
		Usage: "also write the finite points to a PCD `FILE`",
	},
	&cli.StringFlag{
		Name:  flagPCDType,
		Value: "ascii",
		Usage: "PCD data encoding: ascii or binary",
	},
}

var app = &cli.App{
	Name:            "sksurgery",
	Usage:           "stereo reconstruction and calibration tools for surgical video",
	HideHelpCommand: true,
	Before:          setGlobalLogger,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "triangulate",
			Usage: "triangulate matched left and right pixels into 3D points",
			Flags: append([]cli.Flag{
				&cli.PathFlag{
					Name:     flagPoints,
					Required: true,
					Usage:    "`FILE` holding one xl yl xr yr row per match",
				},
				&cli.PathFlag{
					Name:     flagCalibration,
					Required: true,
					Usage:    "stereo calibration YAML or JSON `FILE`",
				},
				methodFlag,
				&cli.BoolFlag{
					Name:  flagUndistort,
					Usage: "undistort the pixels with the calibrated distortion first",
				},
				outFlag,
			}, pcdFlags...),
			Action: TriangulateAction,
		},
		{
			Name:  "reconstruct",
			Usage: "block match a rectified image pair and triangulate every match",
			Flags: append([]cli.Flag{
				&cli.PathFlag{
					Name:     flagLeft,
					Required: true,
					Usage:    "left image `FILE`",
				},
				&cli.PathFlag{
					Name:     flagRight,
					Required: true,
					Usage:    "right image `FILE`",
				},
				&cli.PathFlag{
					Name:     flagCalibration,
					Required: true,
					Usage:    "stereo calibration YAML or JSON `FILE`",
				},
				methodFlag,
				&cli.IntFlag{
					Name:  flagWindowSize,
					Value: defaultBlockMatcher.WindowSize,
					Usage: "odd block matching window size in pixels",
				},
				&cli.IntFlag{
					Name:  flagNumDisparities,
					Value: defaultBlockMatcher.NumDisparities,
					Usage: "number of disparities searched",
				},
				&cli.IntFlag{
					Name:  flagStep,
					Value: defaultBlockMatcher.Step,
					Usage: "pixel stride between reported matches",
				},
				&cli.PathFlag{
					Name:  flagDisparity,
					Usage: "also write the disparity map as an image to `FILE`",
				},
				outFlag,
			}, pcdFlags...),
			Action: ReconstructAction,
		},
		{
			Name:  "mask",
			Usage: "keep the points that land on a mask",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagPoints,
					Required: true,
					Usage:    "`FILE` holding one x y row per point",
				},
				&cli.PathFlag{
					Name:     flagMask,
					Required: true,
					Usage:    "mask image `FILE`, non-zero pixels are kept",
				},
				outFlag,
			},
			Action: MaskAction,
		},
		{
			Name:  "mask-stereo",
			Usage: "keep the matches whose left and right pixels land on their masks",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagPoints,
					Required: true,
					Usage:    "`FILE` holding one xl yl xr yr row per match",
				},
				&cli.PathFlag{
					Name:     flagLeftMask,
					Required: true,
					Usage:    "left mask image `FILE`",
				},
				&cli.PathFlag{
					Name:     flagRightMask,
					Required: true,
					Usage:    "right mask image `FILE`",
				},
				outFlag,
			},
			Action: MaskStereoAction,
		},
		{
			Name:  "extract-dots",
			Usage: "find and label the dots of a calibration target",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagImage,
					Required: true,
					Usage:    "distorted image `FILE` of the target",
				},
				&cli.PathFlag{
					Name:     flagIntrinsics,
					Required: true,
					Usage:    "`FILE` holding the 3x3 camera matrix",
				},
				&cli.PathFlag{
					Name:     flagDistortion,
					Required: true,
					Usage:    "`FILE` holding the k1 k2 p1 p2 k3 distortion row",
				},
				&cli.PathFlag{
					Name:  flagGrid,
					Usage: "`FILE` holding the id x y X Y Z reference grid, overriding the grid flags",
				},
				&cli.IntFlag{
					Name:  flagRows,
					Value: defaultDotGrid.Rows,
					Usage: "dot rows on the target",
				},
				&cli.IntFlag{
					Name:  flagCols,
					Value: defaultDotGrid.Cols,
					Usage: "dot columns on the target",
				},
				&cli.Float64Flag{
					Name:  flagSpacingPx,
					Value: defaultDotGrid.SpacingPx,
					Usage: "dot spacing on the reference image in pixels",
				},
				&cli.Float64Flag{
					Name:  flagSpacingMM,
					Value: defaultDotGrid.SpacingMM,
					Usage: "physical dot spacing in millimeters",
				},
				&cli.StringFlag{
					Name:  flagFiducials,
					Value: "133,141,308,316",
					Usage: "grid indexes of the top-left, top-right, bottom-left and bottom-right fiducials",
				},
				&cli.PathFlag{
					Name:  flagAnnotate,
					Usage: "also draw the labeled dots over the image into `FILE`",
				},
				outFlag,
			},
			Action: ExtractDotsAction,
		},
		{
			Name:            "calibration",
			Usage:           "work with stereo calibrations",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:  "show",
					Usage: "validate a calibration file and print it",
					Flags: []cli.Flag{
						&cli.PathFlag{
							Name:     flagCalibration,
							Required: true,
							Usage:    "stereo calibration YAML or JSON `FILE`",
						},
					},
					Action: ShowCalibrationAction,
				},
			},
		},
		{
			Name:      "schema",
			Usage:     "print the JSON schema of a configuration document",
			ArgsUsage: "<" + strings.Join(config.SchemaNames(), "|") + ">",
			Action:    SchemaAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
