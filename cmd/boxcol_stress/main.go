// Stress test comparing the dual-axis spatial index against a naive O(n²) overlap scan
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"kartcol/internal/boxcol"
	"kartcol/internal/logging"
)

var logger = logging.For("stress")

type options struct {
	frames   int
	seed     int64
	maxSpeed float32
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:           "boxcol_stress",
		Short:         "Check the spatial index against brute force while units move",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.SetLevel(opts.logLevel); err != nil {
				return err
			}

			failed := 0
			// The pool holds MaxUnits including the two bound units.
			for _, count := range []int{8, 32, 64, 128, boxcol.MaxUnits - 2} {
				failed += run(count, opts)
			}
			if failed > 0 {
				logger.Error("index disagrees with brute force", "mismatches", failed)
				return fmt.Errorf("%d mismatches", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.frames, "frames", 60, "frames to simulate per unit count")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "random seed")
	cmd.Flags().Float32Var(&opts.maxSpeed, "max-speed", 4, "largest per-frame move of a unit")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level")
	return cmd
}

type body struct {
	unit *boxcol.Unit
	vel  rl.Vector3
}

func run(count int, opts options) int {
	rng := rand.New(rand.NewSource(opts.seed))

	// Spawn on a square whose size grows with count to keep density reasonable
	spawnSize := float32(200) + float32(count)*2
	positions := make([]rl.Vector3, count)
	m := boxcol.NewManager(func(h boxcol.Handle) rl.Vector3 { return positions[h] })

	bodies := make([]body, count)
	for i := range bodies {
		positions[i] = rl.Vector3{
			X: rng.Float32()*spawnSize - spawnSize/2,
			Z: rng.Float32()*spawnSize - spawnSize/2,
		}
		radius := 2 + rng.Float32()*8
		var u *boxcol.Unit
		if i%2 == 0 {
			u = m.InsertDriver(radius, opts.maxSpeed, boxcol.Handle(i), true)
		} else {
			u = m.InsertObject(radius, opts.maxSpeed, boxcol.Handle(i), true)
		}
		if u == nil {
			logger.Error("pool full", "inserted", i)
			return 1
		}
		bodies[i] = body{unit: u, vel: randomVel(rng, opts.maxSpeed)}
	}

	flag := boxcol.NewFlag(boxcol.Driver, boxcol.Object)
	var indexTime, naiveTime time.Duration
	mismatches, pairs := 0, 0

	for frame := 0; frame < opts.frames; frame++ {
		for i := range bodies {
			positions[i] = rl.Vector3Add(positions[i], bodies[i].vel)
			if frame%10 == 0 {
				bodies[i].vel = randomVel(rng, opts.maxSpeed)
			}
		}

		start := time.Now()
		m.Calc()
		found := make([][]boxcol.Handle, count)
		for i, b := range bodies {
			m.Search(b.unit, flag)
			found[i] = handles(m.Results())
		}
		indexTime += time.Since(start)

		start = time.Now()
		expected := make([][]boxcol.Handle, count)
		for i := range bodies {
			expected[i] = naiveOverlaps(positions, bodies, i)
		}
		naiveTime += time.Since(start)

		for i := range bodies {
			pairs += len(expected[i])
			missing, extra := lo.Difference(expected[i], found[i])
			if len(missing) > 0 || len(extra) > 0 {
				mismatches++
				logger.Warn("unit search mismatch", "frame", frame, "unit", i, "missing", missing, "extra", extra)
			}
		}

		mismatches += checkPointSearch(m, positions, bodies, rng, spawnSize, frame)
	}

	speedup := float64(naiveTime) / float64(indexTime)
	fmt.Printf("%4d units: index %10v | naive %10v | %6d pairs | %.1fx speedup | %d mismatches\n",
		count, (indexTime / time.Duration(opts.frames)).Round(time.Microsecond),
		(naiveTime / time.Duration(opts.frames)).Round(time.Microsecond),
		pairs/2, speedup, mismatches)
	return mismatches
}

func randomVel(rng *rand.Rand, maxSpeed float32) rl.Vector3 {
	return rl.Vector3{X: (rng.Float32()*2 - 1) * maxSpeed, Z: (rng.Float32()*2 - 1) * maxSpeed}
}

func checkPointSearch(m *boxcol.Manager, positions []rl.Vector3, bodies []body, rng *rand.Rand, spawnSize float32, frame int) int {
	pos := rl.Vector3{
		X: rng.Float32()*spawnSize - spawnSize/2,
		Z: rng.Float32()*spawnSize - spawnSize/2,
	}
	radius := 5 + rng.Float32()*40

	m.SearchPoint(radius, pos, boxcol.NewFlag(boxcol.Driver, boxcol.Object))
	found := handles(m.Results())

	var expected []boxcol.Handle
	for i, b := range bodies {
		if overlaps(positions[i], b.unit, pos.X-radius, pos.X+radius, pos.Z-radius, pos.Z+radius) {
			expected = append(expected, b.unit.Handle())
		}
	}

	missing, extra := lo.Difference(expected, found)
	if len(missing) > 0 || len(extra) > 0 {
		logger.Warn("point search mismatch", "frame", frame, "pos", pos, "radius", radius, "missing", missing, "extra", extra)
		return 1
	}
	return 0
}

func handles(units []*boxcol.Unit) []boxcol.Handle {
	return lo.Map(units, func(u *boxcol.Unit, _ int) boxcol.Handle { return u.Handle() })
}

// extent is the square a unit covers after Calc.
func extent(pos rl.Vector3, u *boxcol.Unit) (xLow, xHigh, zLow, zHigh float32) {
	r := u.Range()
	return pos.X - r, pos.X + r, pos.Z - r, pos.Z + r
}

func overlaps(pos rl.Vector3, u *boxcol.Unit, xLow, xHigh, zLow, zHigh float32) bool {
	uxLow, uxHigh, uzLow, uzHigh := extent(pos, u)
	return uxHigh >= xLow && uxLow <= xHigh && uzHigh >= zLow && uzLow <= zHigh
}

func naiveOverlaps(positions []rl.Vector3, bodies []body, i int) []boxcol.Handle {
	xLow, xHigh, zLow, zHigh := extent(positions[i], bodies[i].unit)

	var out []boxcol.Handle
	for j, b := range bodies {
		if j != i && overlaps(positions[j], b.unit, xLow, xHigh, zLow, zHigh) {
			out = append(out, b.unit.Handle())
		}
	}
	return out
}
