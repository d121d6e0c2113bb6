// Command loam-odometry-demo replays a recorded sequence of feature sweeps
// through the odometry estimator and logs the accumulated world pose after
// each one. It exists to exercise LaserOdometry end-to-end outside of a
// test binary; it is not part of the ingestion pipeline itself.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/baoxianzhang/loam-note/odometry"
	"github.com/baoxianzhang/loam-note/pointcloud"
)

var logger = golog.NewDevelopmentLogger("loam_odometry_demo")

// Arguments are the command's flags.
type Arguments struct {
	ScenarioPath string `flag:"scenario,usage=path to a JSON sweep sequence"`
	ConfigPath   string `flag:"config,usage=optional path to an odometry config JSON file"`
}

func main() {
	if err := mainWithArgs(context.Background(), os.Args[1:]); err != nil {
		logger.Fatal(err)
	}
}

func mainWithArgs(ctx context.Context, args []string) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.ScenarioPath == "" {
		return errors.New("must supply -scenario")
	}

	cfg := odometry.DefaultConfig()
	if argsParsed.ConfigPath != "" {
		loaded, err := odometry.LoadConfig(argsParsed.ConfigPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	scenario, err := loadScenario(argsParsed.ScenarioPath)
	if err != nil {
		return err
	}

	laserOdom := odometry.NewLaserOdometry(cfg, logger)
	for i, sweep := range scenario.Sweeps {
		laserOdom.UpdateCornerPointsSharp(sweep.cornerSharp())
		laserOdom.UpdateCornerPointsLessSharp(sweep.cornerLessSharp())
		laserOdom.UpdateSurfPointsFlat(sweep.surfFlat())
		laserOdom.UpdateSurfPointsLessFlat(sweep.surfLessFlat())
		laserOdom.UpdateIMU(sweep.imuPoints())

		laserOdom.Process()

		sum := laserOdom.TransformSum()
		logger.Infow("sweep processed",
			"index", i,
			"frame", laserOdom.FrameCount(),
			"rot_x", sum.Rot.RotX.Rad(),
			"rot_y", sum.Rot.RotY.Rad(),
			"rot_z", sum.Rot.RotZ.Rad(),
			"pos_x", sum.Pos.X,
			"pos_y", sum.Pos.Y,
			"pos_z", sum.Pos.Z,
		)
	}

	return nil
}

// featurePointRecord is a single [x, y, z, ring, relTime] tuple as it
// appears in a scenario file.
type featurePointRecord [5]float64

func (r featurePointRecord) toFeaturePoint() pointcloud.FeaturePoint {
	return pointcloud.NewFeaturePoint(r3.Vector{X: r[0], Y: r[1], Z: r[2]}, int(r[3]), r[4])
}

func toCloud(records []featurePointRecord) pointcloud.FeatureCloud {
	out := make(pointcloud.FeatureCloud, len(records))
	for i, r := range records {
		out[i] = r.toFeaturePoint()
	}
	return out
}

// sweepRecord is one sweep's worth of feature clouds and IMU hint, as
// decoded from a scenario file.
type sweepRecord struct {
	CornerSharp     []featurePointRecord `json:"corner_sharp"`
	CornerLessSharp []featurePointRecord `json:"corner_less_sharp"`
	SurfFlat        []featurePointRecord `json:"surf_flat"`
	SurfLessFlat    []featurePointRecord `json:"surf_less_flat"`
	IMU             [4][3]float64        `json:"imu"`
}

func (s sweepRecord) cornerSharp() pointcloud.FeatureCloud     { return toCloud(s.CornerSharp) }
func (s sweepRecord) cornerLessSharp() pointcloud.FeatureCloud { return toCloud(s.CornerLessSharp) }
func (s sweepRecord) surfFlat() pointcloud.FeatureCloud        { return toCloud(s.SurfFlat) }
func (s sweepRecord) surfLessFlat() pointcloud.FeatureCloud    { return toCloud(s.SurfLessFlat) }

func (s sweepRecord) imuPoints() []r3.Vector {
	points := make([]r3.Vector, 4)
	for i, p := range s.IMU {
		points[i] = r3.Vector{X: p[0], Y: p[1], Z: p[2]}
	}
	return points
}

type scenario struct {
	Sweeps []sweepRecord `json:"sweeps"`
}

func loadScenario(path string) (*scenario, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "opening scenario file")
	}
	defer f.Close() //nolint:errcheck

	var s scenario
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decoding scenario file")
	}
	return &s, nil
}
