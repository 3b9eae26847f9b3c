// Package main is the entry point for the voxtool world utility.
//
// voxtool imports MagicaVoxel models into a chunked voxel world, extracts
// render meshes, casts picking rays and round-trips the world through the
// on-disk store.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/voxelworld/internal/config"
	"github.com/Faultbox/voxelworld/internal/logger"
	"github.com/Faultbox/voxelworld/pkg/formats"
	"github.com/Faultbox/voxelworld/pkg/math"
	"github.com/Faultbox/voxelworld/pkg/voxel"
	"github.com/Faultbox/voxelworld/pkg/voxel/mesh"
	"github.com/Faultbox/voxelworld/pkg/voxel/raycast"
	"github.com/Faultbox/voxelworld/pkg/voxel/store"
	"github.com/Faultbox/voxelworld/pkg/voxel/world"
)

var (
	flagImport = flag.String("import", "", "Import a MagicaVoxel .vox file into the world")
	flagLoad   = flag.Bool("load", false, "Load the world from the store file first")
	flagSave   = flag.Bool("save", false, "Save the world to the store file when done")
	flagMesh   = flag.Bool("mesh", false, "Extract meshes for all loaded chunks and report stats")
	flagRay    = flag.String("ray", "", "Cast a ray, format 'ox,oy,oz:dx,dy,dz'")
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== voxtool ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	grid, err := openGrid(cfg)
	if err != nil {
		logger.Error("failed to open world", zap.Error(err))
		os.Exit(1)
	}

	if *flagImport != "" {
		if err := importVOX(grid, *flagImport); err != nil {
			logger.Error("import failed", zap.String("file", *flagImport), zap.Error(err))
			os.Exit(1)
		}
	}

	if *flagMesh {
		extractAll(grid, cfg)
	}

	if *flagRay != "" {
		if err := castRay(grid, *flagRay); err != nil {
			logger.Error("raycast failed", zap.String("ray", *flagRay), zap.Error(err))
			os.Exit(1)
		}
	}

	if *flagSave {
		if err := saveGrid(grid, cfg.Store.Path); err != nil {
			logger.Error("save failed", zap.String("path", cfg.Store.Path), zap.Error(err))
			os.Exit(1)
		}
		logger.Info("world saved",
			zap.String("path", cfg.Store.Path), zap.Int("chunks", grid.Len()))
	}
}

// openGrid builds the working grid, reading it back from the store when
// requested.
func openGrid(cfg *config.Config) (*world.Grid, error) {
	if *flagLoad {
		f, err := os.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		grid, err := store.LoadGrid(f)
		if err != nil {
			return nil, err
		}
		logger.Info("world loaded",
			zap.String("path", cfg.Store.Path), zap.Int("chunks", grid.Len()))
		return grid, nil
	}

	d := cfg.World.ChunkDim
	return world.NewGrid(world.Options{
		ChunkDims: [3]int{d, d, d},
		Log:       logger.Log,
	})
}

// importVOX tiles every model of a .vox file over the grid's chunks,
// starting at the world origin.
func importVOX(grid *world.Grid, path string) error {
	vox, err := formats.ParseVOXFile(path)
	if err != nil {
		return err
	}
	dims := grid.ChunkDims()

	for mi := range vox.Models {
		model := &vox.Models[mi]
		sx, sy, sz := int(model.SizeX), int(model.SizeY), int(model.SizeZ)

		for cz := 0; cz*dims[2] < sz; cz++ {
			for cy := 0; cy*dims[1] < sy; cy++ {
				for cx := 0; cx*dims[0] < sx; cx++ {
					materials := make([]voxel.Material, dims[0]*dims[1]*dims[2])
					filled := 0
					for z := 0; z < dims[2]; z++ {
						for y := 0; y < dims[1]; y++ {
							for x := 0; x < dims[0]; x++ {
								idx := model.Index(cx*dims[0]+x, cy*dims[1]+y, cz*dims[2]+z)
								if idx == 0 {
									continue
								}
								materials[x+y*dims[0]+z*dims[0]*dims[1]] = voxel.Material(idx)
								filled++
							}
						}
					}
					if filled == 0 {
						continue
					}
					ch, err := voxel.FromGrid(dims[0], dims[1], dims[2], materials)
					if err != nil {
						return err
					}
					coord := world.Coord{X: cx, Y: cy, Z: cz}
					if err := grid.LoadChunk(coord, ch); err != nil {
						return err
					}
				}
			}
		}
		logger.Info("model imported",
			zap.Int("model", mi),
			zap.Int("width", sx), zap.Int("height", sy), zap.Int("depth", sz))
	}

	logger.Info("import complete",
		zap.String("file", path), zap.Int("chunks", grid.Len()))
	return nil
}

// extractAll rebuilds the mesh of every loaded chunk and logs totals.
func extractAll(grid *world.Grid, cfg *config.Config) {
	policy := mesh.BoundaryOpen
	if cfg.World.Boundary == "solid" {
		policy = mesh.BoundarySolid
	}
	dims := grid.ChunkDims()

	var vertices, indices, quads int
	for _, coord := range grid.Coords() {
		ch, release, ok := grid.Acquire(coord)
		if !ok {
			continue
		}
		buf := mesh.Extract(ch, mesh.Options{
			Neighborhood:     grid.Neighborhood(coord, policy),
			Policy:           policy,
			AmbientOcclusion: cfg.Mesh.AmbientOcclusion,
			Origin: [3]float32{
				float32(coord.X * dims[0]),
				float32(coord.Y * dims[1]),
				float32(coord.Z * dims[2]),
			},
		})
		release()

		vertices += len(buf.Vertices)
		indices += len(buf.Indices)
		quads += buf.Quads()
		logger.Debug("chunk meshed",
			zap.Int("x", coord.X), zap.Int("y", coord.Y), zap.Int("z", coord.Z),
			zap.Int("quads", buf.Quads()))
	}

	logger.Info("mesh extracted",
		zap.Int("chunks", grid.Len()),
		zap.Int("vertices", vertices),
		zap.Int("indices", indices),
		zap.Int("quads", quads))
}

// castRay parses 'ox,oy,oz:dx,dy,dz' and casts it through the grid.
func castRay(grid *world.Grid, arg string) error {
	origin, dir, err := parseRay(arg)
	if err != nil {
		return err
	}

	hit, ok := raycast.CastGrid(grid, raycast.Ray{Origin: origin, Dir: dir})
	if !ok {
		logger.Info("ray missed",
			zap.Float64s("origin", []float64{origin.X, origin.Y, origin.Z}),
			zap.Float64s("dir", []float64{dir.X, dir.Y, dir.Z}))
		return nil
	}

	logger.Info("ray hit",
		zap.Float64s("point", []float64{hit.Point.X, hit.Point.Y, hit.Point.Z}),
		zap.Float64s("normal", []float64{hit.Normal.X, hit.Normal.Y, hit.Normal.Z}),
		zap.Float64("distance", hit.Distance),
		zap.Uint16("material", uint16(hit.Material)),
		zap.Int("chunk_x", hit.Chunk.X),
		zap.Int("chunk_y", hit.Chunk.Y),
		zap.Int("chunk_z", hit.Chunk.Z))
	return nil
}

func parseRay(arg string) (origin, dir math.Vec3, err error) {
	parts := strings.Split(arg, ":")
	if len(parts) != 2 {
		return origin, dir, fmt.Errorf("ray %q: want 'ox,oy,oz:dx,dy,dz'", arg)
	}
	if origin, err = parseVec3(parts[0]); err != nil {
		return origin, dir, err
	}
	if dir, err = parseVec3(parts[1]); err != nil {
		return origin, dir, err
	}
	return origin, dir, nil
}

func parseVec3(s string) (math.Vec3, error) {
	var v math.Vec3
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("vector %q: want three comma-separated numbers", s)
	}
	var c [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v, fmt.Errorf("vector %q: %w", s, err)
		}
		c[i] = f
	}
	return math.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

func saveGrid(grid *world.Grid, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := store.SaveGrid(f, grid); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
