// Package config reads the JSON settings shared by the command line tools.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

var ErrInvalid = errors.New("config: invalid value")

const (
	DefaultLogLevel   = "info"
	DefaultArchiveDir = "."
	DefaultCourse     = "course"
)

type Config struct {
	LogLevel   string         `json:"logLevel,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,description=Log level for every subsystem"`
	ArchiveDir string         `json:"archiveDir,omitempty" jsonschema:"description=Directory holding the terrain files"`
	Course     string         `json:"course,omitempty" jsonschema:"description=Name of the course terrain inside the archive"`
	KCLScale   float32        `json:"kclScale,omitempty" jsonschema:"description=Uniform scale applied to course queries"`
	Objects    []ObjectConfig `json:"objects,omitempty" jsonschema:"description=Drivable objects placed on the course"`
}

// ObjectConfig places one drivable terrain object. Rotation is in degrees
// and is applied before the translation.
type ObjectConfig struct {
	Name     string     `json:"name" jsonschema:"required,description=Name of the object terrain inside the archive"`
	Position [3]float32 `json:"position"`
	Rotation [3]float32 `json:"rotation,omitempty"`
	Scale    float32    `json:"scale,omitempty"`
	Velocity [3]float32 `json:"velocity,omitempty" jsonschema:"description=Road velocity handed to karts standing on the object"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = DefaultArchiveDir
	}
	if c.Course == "" {
		c.Course = DefaultCourse
	}
	if c.KCLScale == 0 {
		c.KCLScale = 1
	}
	for i := range c.Objects {
		if c.Objects[i].Scale == 0 {
			c.Objects[i].Scale = 1
		}
	}
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("failed to validate logLevel %q: %w", c.LogLevel, ErrInvalid)
	}
	if !positive(c.KCLScale) {
		return fmt.Errorf("failed to validate kclScale %v: %w", c.KCLScale, ErrInvalid)
	}
	for i, o := range c.Objects {
		if o.Name == "" {
			return fmt.Errorf("failed to validate object %d: missing name: %w", i, ErrInvalid)
		}
		if !positive(o.Scale) {
			return fmt.Errorf("failed to validate object %d scale %v: %w", i, o.Scale, ErrInvalid)
		}
	}
	return nil
}

func positive(v float32) bool {
	return v > 0 && !math32.IsInf(v, 1)
}

// Matrix is the object's model matrix.
func (o ObjectConfig) Matrix() rl.Matrix {
	rot := rl.MatrixRotateXYZ(rl.Vector3{
		X: o.Rotation[0] * rl.Deg2rad,
		Y: o.Rotation[1] * rl.Deg2rad,
		Z: o.Rotation[2] * rl.Deg2rad,
	})
	trans := rl.MatrixTranslate(o.Position[0], o.Position[1], o.Position[2])
	return rl.MatrixMultiply(rot, trans)
}

func (o ObjectConfig) Vel() rl.Vector3 {
	return rl.Vector3{X: o.Velocity[0], Y: o.Velocity[1], Z: o.Velocity[2]}
}

// Schema describes the configuration file format.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{}
	schema := reflector.Reflect(new(Config))
	schema.Title = "kartcol configuration"
	schema.Description = "Course archive, terrain and drivable object placement for the collision tools"
	return schema
}
