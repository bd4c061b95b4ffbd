package sources

// Extraction strategy names accepted in source configuration.
const (
	ExtractionHeuristic   = "heuristic"
	ExtractionReadability = "readability"
)

// Config describes one upstream source, loaded from a YAML file in the
// sources directory. Name derives from the file name.
type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Category string         `yaml:"category"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled    bool   `yaml:"enabled"`
	MaxItems   int    `yaml:"max_items"`
	Timeout    int    `yaml:"timeout"`    // seconds
	Extraction string `yaml:"extraction"` // heuristic | readability
}
