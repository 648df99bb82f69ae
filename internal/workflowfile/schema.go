package workflowfile

// File represents the structure of a taskflow workflow definition file
// (conventionally named taskflow.yaml).
type File struct {
	Version string             `yaml:"version"`
	Cache   *CacheDTO          `yaml:"cache"`
	Tasks   map[string]*TaskDTO  `yaml:"tasks"`
	Groups  map[string]*GroupDTO `yaml:"groups"`
}

// TaskDTO is a single task entry in a workflow file.
type TaskDTO struct {
	Type      string         `yaml:"type"`
	Config    map[string]any `yaml:"config"`
	DependsOn []string       `yaml:"depends_on"`
}

// GroupDTO is a fan-out task group entry in a workflow file: one child task
// of Type is created per element of the list output by ForEach.
type GroupDTO struct {
	Type             string         `yaml:"type"`
	ForEach          string         `yaml:"for_each"`
	ConfigTemplate   map[string]any `yaml:"config_template"`
	MaxConcurrent    int            `yaml:"max_concurrent"`
	StreamingEnabled bool           `yaml:"streaming"`
}

// CacheDTO configures the workflow-wide cache backend. Individual tasks
// still opt in via their own cache_enabled config key.
type CacheDTO struct {
	Backend   string `yaml:"backend"` // "memory", "file", "redis", or "" (disabled)
	Dir       string `yaml:"dir"`     // required for backend: file
	MaxSize   int    `yaml:"max_size"`
	TTL       string `yaml:"ttl"`        // duration string, e.g. "10m"
	RedisAddr string `yaml:"redis_addr"` // required for backend: redis, e.g. "localhost:6379"
}
