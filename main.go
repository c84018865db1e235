/*
 * This file is part of the geotile_transform distribution.
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ecopia-map/geotile_transform/internal/coords"
	"github.com/ecopia-map/geotile_transform/internal/tiler"
	"github.com/ecopia-map/geotile_transform/pkg"
	"github.com/ecopia-map/geotile_transform/pkg/algorithm_manager"
	"github.com/ecopia-map/geotile_transform/tools"
)

const VERSION = "1.0.0"

const logo = `
              _   _ _        _                            __
  __ _  ___  | |_(_) | ___  | |_ _ __ __ _ _ __  ___  ___ / _| ___  _ __ _ __ ___
 / _  |/ _ \ | __| | |/ _ \ | __| '__/ _  | '_ \/ __|/ _ \ |_ / _ \| '__| '_   _ \
| (_| |  __/ | |_| | |  __/ | |_| | | (_| | | | \__ \  __/  _| (_) | |  | | | | | |
 \__, |\___|  \__|_|_|\___|  \__|_|  \__,_|_| |_|___/\___|_|  \___/|_|  |_| |_| |_|
  __| | A geodetic 3D Tiles point cloud tiler written in golang
 |___/
`

func main() {
	log.SetPrefix("[geotile_transform] ")
	log.SetFlags(log.LUTC | log.Ldate | log.Lmicroseconds | log.Lshortfile)

	flagsGlobal := tools.ParseFlagsGlobal()
	log.Println(tools.FmtJSONString(flagsGlobal))

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("Please specify a subcommand [index].")
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case tools.CommandIndex:
		mainCommandIndex(args)
	default:
		log.Fatalf("Unrecognized command [%q]. Command must be [index]", cmd)
	}
}

func mainCommandIndex(args []string) {
	flags := tools.ParseFlagsForCommandIndex(args)

	if *flags.Help {
		showHelp()
		return
	}

	if *flags.Version {
		printVersion()
		return
	}

	if *flags.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	if !*flags.LogTimestamp {
		tools.DisableLoggerTimestamp()
	}

	opts := tiler.TilerOptions{
		Input:            *flags.Input,
		Output:           *flags.Output,
		FolderProcessing: *flags.FolderProcessing,
		Recursive:        *flags.RecursiveFolderProcessing,

		EPSGCode: *flags.EPSGCode,
		WKT:      *flags.WKT,
		ZUp:      *flags.ZUp,

		OriginLon:    *flags.OriginLon,
		OriginLat:    *flags.OriginLat,
		OriginHeight: *flags.OriginHeight,

		ENU:             *flags.ENU,
		ENUOriginLon:    *flags.ENUOriginLon,
		ENUOriginLat:    *flags.ENUOriginLat,
		ENUOriginHeight: *flags.ENUOriginHeight,
		ENUOffsetX:      *flags.ENUOffsetX,
		ENUOffsetY:      *flags.ENUOffsetY,
		ENUOffsetZ:      *flags.ENUOffsetZ,

		EnableGeoidCorrection: *flags.GeoidCorrection,
		GeoidModel:            *flags.GeoidModel,
		GeoidDataPath:         *flags.GeoidDataPath,

		ZOffset: *flags.ZOffset,

		EightBitColors: *flags.EightBitColors,

		MinNumPointsPerNode: int32(*flags.MinNumPoints),
		MaxNumPointsPerNode: int32(*flags.MaxNumPoints),
		CellMinSize:         *flags.GridCellMinSize,
		CellMaxSize:         *flags.GridCellMaxSize,
		RefineMode:          tiler.ParseRefineMode(*flags.RefineMode),

		Draco:            *flags.Draco,
		DracoEncoderPath: *flags.DracoEncoderPath,

		UseEdgeCalculateGeometricError: *flags.UseEdgeCalculateGeometricError,
	}

	if msg, ok := validateOptionsForCommandIndex(&opts); !ok {
		log.Fatal("Error parsing input parameters: " + msg)
	}

	transformer, err := buildTransformer(&opts)
	if err != nil {
		log.Fatal("Error building coordinate transformer: ", err)
	}
	defer transformer.Close()

	algorithmManager := algorithm_manager.NewStandardAlgorithmManager(&opts)
	err = pkg.NewTiler(tools.NewStandardFileFinder(), algorithmManager, transformer).RunTiler(&opts)

	if err != nil {
		log.Fatal("Error while tiling: ", err)
	} else {
		tools.LogOutput("Conversion Completed")
	}
}

// buildTransformer turns the CLI's flat set of geo-referencing options
// into a CoordinateSystem and the CoordinateTransformer built over it,
// wiring in a real PROJ-backed ProjectionService and, if requested, a
// grid-backed GeoidService.
func buildTransformer(opts *tiler.TilerOptions) (*coords.CoordinateTransformer, error) {
	datum := coords.Ellipsoidal
	if opts.EnableGeoidCorrection {
		datum = coords.Orthometric
	}

	var cs coords.CoordinateSystem
	switch {
	case opts.ENU:
		cs = coords.NewENU(opts.ENUOriginLon, opts.ENUOriginLat, opts.ENUOriginHeight, opts.ENUOffsetX, opts.ENUOffsetY, opts.ENUOffsetZ)
	case opts.WKT != "":
		cs = coords.NewWKT(opts.WKT, 0, 0, 0, datum)
	case opts.EPSGCode != 0:
		cs = coords.NewEPSG(opts.EPSGCode, 0, 0, 0, datum)
	default:
		upAxis := coords.YUp
		if opts.ZUp {
			upAxis = coords.ZUp
		}
		cs = coords.NewLocalCartesian(upAxis, coords.RightHanded)
	}

	geoRef := coords.NewGeoReference(opts.OriginLon, opts.OriginLat, opts.OriginHeight, datum)

	projSvc := coords.NewProjProjectionService()

	geoidConfig := coords.DisabledGeoidConfig()
	var geoidSvc coords.GeoidService
	if opts.EnableGeoidCorrection {
		model := coords.ParseGeoidModel(opts.GeoidModel)
		geoidConfig = coords.NewGeoidConfig(model, opts.GeoidDataPath)
		grid := coords.NewGridGeoidService()
		if err := grid.Initialize(model, opts.GeoidDataPath); err != nil {
			return nil, fmt.Errorf("initializing geoid service: %w", err)
		}
		geoidSvc = grid
	}

	return coords.NewWithGeoidConfig(cs, geoRef, geoidConfig, projSvc, geoidSvc), nil
}

func validateOptionsForCommandIndex(opts *tiler.TilerOptions) (string, bool) {
	if _, err := os.Stat(opts.Input); os.IsNotExist(err) {
		return "Input file/folder not found", false
	}
	if _, err := os.Stat(opts.Output); os.IsNotExist(err) {
		return "Output folder not found", false
	}

	if opts.CellMinSize > opts.CellMaxSize {
		return "grid-max-size parameter cannot be lower than grid-min-size parameter", false
	}

	if opts.MaxNumPointsPerNode < 8*opts.MinNumPointsPerNode {
		return "-points-max-num should be at least 8 times -points-min-num", false
	}

	if opts.RefineMode == "" {
		return "refine-mode should be either ADD or REPLACE", false
	}

	if opts.EPSGCode != 0 && opts.WKT != "" {
		return "", true // WKT takes precedence, both set is not an error
	}

	return "", true
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(logo)
}

func showHelp() {
	printLogo()
	fmt.Println("***")
	fmt.Println("geotile_transform reads point cloud files and reprojects them into a local ENU 3D Tiles tileset consumable by Cesium.js")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Command line flags: ")
	flag.CommandLine.SetOutput(os.Stdout)
	flag.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
