package pipeline

import(
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"starphot/pkg/flux"
	"starphot/pkg/photom"
	"starphot/pkg/segment"
	"starphot/pkg/track"
)

/* Example config file ...

background:
  tilesize: 64
  cropmargin: 0
  glowmodel: radial
  glowthreshold: 1.0

segmentation:
  patchsize: 256
  overlapmargin: 16
  minrefinesize: 10

tracking:
  minoverlap: 0.3
  maxmissed: 3

photometry:
  annulusmargin: 5

workers: 0

*/

// Config is the read-only knob set shared by all workers of a run.
type Config struct {
	Background   photom.Options  `yaml:"background"`
	Segmentation segment.Options `yaml:"segmentation"`
	Tracking     track.Options   `yaml:"tracking"`
	Photometry   flux.Options    `yaml:"photometry"`

	Workers   int `yaml:"workers"`   // frame-level workers, 0 = auto
	Verbosity int `yaml:"verbosity"`
}

func NewConfig() Config {
	return Config{
		Background:   photom.DefaultOptions(),
		Segmentation: segment.DefaultOptions(),
		Tracking:     track.DefaultOptions(),
		Photometry:   flux.DefaultOptions(),
	}
}

func LoadConfig(filename string) (Config, error) {
	c := NewConfig()

	contents, err := os.ReadFile(filename)
	if err != nil {
		return c, fmt.Errorf("read '%s': %v", filename, err)
	}
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return c, fmt.Errorf("parse '%s': %v", filename, err)
	}
	return c, nil
}

func (c Config)AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("can't marshal config: %v", err)
	}
	return string(b)
}
