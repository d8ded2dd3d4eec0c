package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// EnvPrefix prefixes every rules override variable, e.g.
// GOBLINBALL_PLAYS_PER_GAME.
const EnvPrefix = "GOBLINBALL_"

// extensions are tried in order when resolving a ruleset name.
var extensions = []string{".yaml", ".yml", ".json"}

//go:embed schema/rules.schema.json
var rulesSchema []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("rules.schema.json", bytes.NewReader(rulesSchema)); err != nil {
		return nil, err
	}
	return c.Compile("rules.schema.json")
})

// document is the on-disk shape of a ruleset.
type document struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Rules       *engine.Rules `json:"rules"`
}

// Manager handles ruleset loading and caching
type Manager struct {
	configDir   string
	defaultName string
	env         map[string]string
	useEnv      bool
	defaultSet  *service.Ruleset
	configs     map[string]*service.Ruleset
	mu          sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultName picks the ruleset GetDefault returns. It falls back to the
// first valid file, then to the built-in rules.
func WithDefaultName(name string) Option {
	return func(m *Manager) { m.defaultName = trimExt(name) }
}

// WithEnvOverrides applies GOBLINBALL_* overrides to every loaded ruleset.
// A nil environ reads the process environment.
func WithEnvOverrides(environ map[string]string) Option {
	return func(m *Manager) { m.useEnv, m.env = true, environ }
}

// NewManager creates a new configuration manager
func NewManager(configDir string, opts ...Option) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}
	if _, err := compileSchema(); err != nil {
		return nil, fmt.Errorf("failed to compile rules schema: %w", err)
	}

	m := &Manager{
		configDir:   configDir,
		defaultName: "default",
		configs:     make(map[string]*service.Ruleset),
	}
	for _, opt := range opts {
		opt(m)
	}

	def, err := m.resolveDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}
	m.defaultSet = def
	return m, nil
}

// LoadConfig loads a ruleset by name, with or without its extension.
func (m *Manager) LoadConfig(name string) (*service.Ruleset, error) {
	name = trimExt(name)
	m.mu.RLock()
	// Check cache first
	if rs, ok := m.configs[name]; ok {
		m.mu.RUnlock()
		return rs, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(name)
}

func (m *Manager) loadLocked(name string) (*service.Ruleset, error) {
	// Double-check after acquiring write lock
	if rs, ok := m.configs[name]; ok {
		return rs, nil
	}
	if !validName(name) {
		return nil, fmt.Errorf("%w: bad name %q", ErrInvalidConfig, name)
	}
	path, ok := m.find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	rs, err := m.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	m.configs[name] = rs
	return rs, nil
}

// Decode parses a YAML or JSON rules document, checks it against the schema,
// lays it over the default rules, applies env overrides and validates the
// result.
func (m *Manager) Decode(data []byte) (*service.Ruleset, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if m.useEnv {
		if err := ApplyEnv(doc.Rules, m.env); err != nil {
			return nil, err
		}
	}
	if err := doc.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &service.Ruleset{Name: doc.Name, Description: doc.Description, Rules: doc.Rules}, nil
}

// ValidateDocument runs the schema and rule checks on one document without a
// manager.
func ValidateDocument(data []byte) error {
	_, err := ParseDocument(data)
	return err
}

// ParseDocument decodes and validates one document without env overrides.
func ParseDocument(data []byte) (*service.Ruleset, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &service.Ruleset{Name: doc.Name, Description: doc.Description, Rules: doc.Rules}, nil
}

func decodeDocument(data []byte) (*document, error) {
	// YAML is a superset of JSON, so one decoder serves both formats.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	var tree any
	if err := json.Unmarshal(normalized, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	doc := document{Rules: engine.DefaultRules()}
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc.Rules == nil {
		doc.Rules = engine.DefaultRules()
	}
	return &doc, nil
}

// ApplyEnv overrides rule fields from GOBLINBALL_* variables. A nil environ
// reads the process environment.
func ApplyEnv(r *engine.Rules, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(r, opts); err != nil {
		return fmt.Errorf("%w: env overrides: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ListConfigs returns information about all valid rulesets, in file order.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*service.ConfigInfo
	for _, entry := range entries {
		if entry.IsDir() || !supported(entry.Name()) {
			continue
		}
		name := trimExt(entry.Name())
		if seen[name] {
			continue
		}
		seen[name] = true

		// Skip invalid configs
		rs, err := m.LoadConfig(name)
		if err != nil {
			continue
		}
		configs = append(configs, &service.ConfigInfo{
			Filename:     entry.Name(),
			ConfigID:     name,
			Name:         rs.Name,
			Description:  rs.Description,
			GridWidth:    rs.Rules.GridWidth,
			GridHeight:   rs.Rules.GridHeight,
			RosterSize:   rs.Rules.RosterSize,
			PlaysPerGame: rs.Rules.PlaysPerGame,
		})
	}
	return configs, nil
}

// GetDefault returns the default ruleset
func (m *Manager) GetDefault() *service.Ruleset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultSet
}

// SetDefault sets the default ruleset by name
func (m *Manager) SetDefault(name string) error {
	rs, err := m.LoadConfig(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = trimExt(name)
	m.defaultSet = rs
	return nil
}

// RefreshCache drops every cached ruleset and reloads the default.
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*service.Ruleset)
	m.mu.Unlock()

	def, err := m.resolveDefault()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.defaultSet = def
	m.mu.Unlock()
	return nil
}

// ReloadConfig drops one cached ruleset and loads it again from disk.
func (m *Manager) ReloadConfig(name string) error {
	name = trimExt(name)
	m.mu.Lock()
	delete(m.configs, name)
	m.mu.Unlock()
	_, err := m.LoadConfig(name)
	return err
}

func (m *Manager) resolveDefault() (*service.Ruleset, error) {
	m.mu.RLock()
	name := m.defaultName
	m.mu.RUnlock()
	if rs, err := m.LoadConfig(name); err == nil {
		return rs, nil
	}
	configs, err := m.ListConfigs()
	if err == nil && len(configs) > 0 {
		if rs, err := m.LoadConfig(configs[0].ConfigID); err == nil {
			return rs, nil
		}
	}
	return m.builtin()
}

// builtin is the ruleset used when the directory holds no valid file.
func (m *Manager) builtin() (*service.Ruleset, error) {
	rules := engine.DefaultRules()
	if m.useEnv {
		if err := ApplyEnv(rules, m.env); err != nil {
			return nil, err
		}
		if err := rules.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return &service.Ruleset{Name: "default", Description: "Built-in rules", Rules: rules}, nil
}

// SaveConfig writes a ruleset to disk. An existing file keeps its format;
// new files are written as YAML.
func (m *Manager) SaveConfig(name string, rs *service.Ruleset) error {
	name = trimExt(name)
	if !validName(name) {
		return fmt.Errorf("%w: bad name %q", ErrInvalidConfig, name)
	}
	if rs == nil || rs.Rules == nil {
		return fmt.Errorf("%w: rules are required", ErrInvalidConfig)
	}
	if err := rs.Rules.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	doc := document{Name: rs.Name, Description: rs.Description, Rules: rs.Rules}
	if doc.Name == "" {
		doc.Name = name
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path, exists := m.find(name)
	if !exists {
		path = filepath.Join(m.configDir, name+".yaml")
	}
	data, err := encode(doc, filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	m.configs[name] = &service.Ruleset{Name: doc.Name, Description: doc.Description, Rules: rs.Rules.Clone()}
	return nil
}

func encode(doc document, ext string) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil || ext == ".json" {
		return data, err
	}
	// Go through a generic tree so YAML keys match the JSON names.
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

func (m *Manager) find(name string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func supported(filename string) bool {
	ext := filepath.Ext(filename)
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func trimExt(name string) string {
	if supported(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && name != "." && name != ".."
}
