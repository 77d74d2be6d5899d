package field

// Panel groups sections in the customizer.
type Panel struct {
	ID          string `yaml:"id" toml:"id"`
	Title       string `yaml:"title" toml:"title"`
	Description string `yaml:"description" toml:"description"`
	Priority    int    `yaml:"priority" toml:"priority"`
}

// Section groups fields. Panel is optional.
type Section struct {
	ID          string `yaml:"id" toml:"id"`
	Title       string `yaml:"title" toml:"title"`
	Description string `yaml:"description" toml:"description"`
	Panel       string `yaml:"panel" toml:"panel"`
	Type        string `yaml:"type" toml:"type"` // e.g. "outer", "link"
}

// Field is a single customizer control. Only Type is read by telemetry.
type Field struct {
	ID          string `yaml:"id" toml:"id"`
	Type        string `yaml:"type" toml:"type"`
	Section     string `yaml:"section" toml:"section"`
	Label       string `yaml:"label" toml:"label"`
	Description string `yaml:"description" toml:"description"`
	Default     any    `yaml:"default" toml:"default"`
}
