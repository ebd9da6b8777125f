// Package config loads and validates the grader's YAML configuration.
//
// Every setting has a default; an absent file or empty document yields the
// standard course setup (R1..R6, strict 80% policy, javac/java toolchain).
// Documents are checked against the embedded JSON schema before decoding, so
// typos in key names fail loudly instead of silently falling back to
// defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	graderrors "github.com/Sankatt/cruisegrader/internal/errors"
	"github.com/Sankatt/cruisegrader/internal/requirement"
	"github.com/Sankatt/cruisegrader/internal/schema"
	"github.com/Sankatt/cruisegrader/internal/subject"
)

// Grading policy modes.
const (
	ModeStrict  = "strict"  // requirement satisfied only at or above the pass threshold
	ModeLenient = "lenient" // any passing test satisfies the requirement
)

// Config is the full grader configuration.
type Config struct {
	Grading   Grading   `yaml:"grading"`
	Toolchain Toolchain `yaml:"toolchain"`
	Output    Output    `yaml:"output"`
}

// Grading holds the grade policy settings. PassThreshold is a pointer so an
// explicit 0 (schema-legal) survives defaulting; nil means unset.
type Grading struct {
	MaxGrade           float64            `yaml:"max_grade"`
	PassThreshold      *float64           `yaml:"pass_threshold"`
	Mode               string             `yaml:"mode"`
	FullCoverageBonus  float64            `yaml:"full_coverage_bonus"`
	ActiveRequirements []string           `yaml:"active_requirements"`
	Weights            map[string]float64 `yaml:"weights"`
}

// Toolchain holds the external build/run commands and their time bounds.
type Toolchain struct {
	BuildCommand        []string `yaml:"build_command"`
	RunCommand          []string `yaml:"run_command"`
	BuildTimeoutSeconds int      `yaml:"build_timeout_seconds"`
	RunTimeoutSeconds   int      `yaml:"run_timeout_seconds"`
}

// Output holds report destinations.
type Output struct {
	ResultsDir        string `yaml:"results_dir"`
	SummaryFile       string `yaml:"summary_file"`
	PendingReviewFile string `yaml:"pending_review_file"`
}

func floatp(v float64) *float64 { return &v }

// Default returns the standard course configuration.
func Default() *Config {
	active := make([]string, len(requirement.DefaultActive))
	for i, id := range requirement.DefaultActive {
		active[i] = string(id)
	}
	return &Config{
		Grading: Grading{
			MaxGrade:           10.0,
			PassThreshold:      floatp(80),
			Mode:               ModeStrict,
			ActiveRequirements: active,
		},
		Toolchain: Toolchain{
			BuildCommand:        []string{"javac"},
			RunCommand:          []string{"java", "-cp", "."},
			BuildTimeoutSeconds: 30,
			RunTimeoutSeconds:   10,
		},
		Output: Output{
			ResultsDir:        "results",
			SummaryFile:       "grading_summary.json",
			PendingReviewFile: "pending_review.yaml",
		},
	}
}

// Load reads a YAML configuration file, applies defaults, and validates it.
// The returned warnings are advisory (the configuration is still usable).
func Load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, graderrors.Configf("read config file: %v", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes. Split from Load so the
// `config validate` command can report on stdin input.
func Parse(data []byte) (*Config, []string, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, graderrors.Configf("parse config: %v", err)
	}
	if doc != nil {
		if err := schema.ValidateConfig(doc); err != nil {
			return nil, nil, graderrors.Config(err.Error())
		}
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, graderrors.Configf("decode config: %v", err)
	}

	applyDefaults(cfg)

	warnings, err := validate(cfg)
	if err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// applyDefaults fills unset fields from the default configuration.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Grading.MaxGrade == 0 {
		cfg.Grading.MaxGrade = def.Grading.MaxGrade
	}
	if cfg.Grading.PassThreshold == nil {
		cfg.Grading.PassThreshold = def.Grading.PassThreshold
	}
	if cfg.Grading.Mode == "" {
		cfg.Grading.Mode = def.Grading.Mode
	}
	if len(cfg.Grading.ActiveRequirements) == 0 {
		cfg.Grading.ActiveRequirements = def.Grading.ActiveRequirements
	}
	if len(cfg.Toolchain.BuildCommand) == 0 {
		cfg.Toolchain.BuildCommand = def.Toolchain.BuildCommand
	}
	if len(cfg.Toolchain.RunCommand) == 0 {
		cfg.Toolchain.RunCommand = def.Toolchain.RunCommand
	}
	if cfg.Toolchain.BuildTimeoutSeconds == 0 {
		cfg.Toolchain.BuildTimeoutSeconds = def.Toolchain.BuildTimeoutSeconds
	}
	if cfg.Toolchain.RunTimeoutSeconds == 0 {
		cfg.Toolchain.RunTimeoutSeconds = def.Toolchain.RunTimeoutSeconds
	}
	if cfg.Output.ResultsDir == "" {
		cfg.Output.ResultsDir = def.Output.ResultsDir
	}
	if cfg.Output.SummaryFile == "" {
		cfg.Output.SummaryFile = def.Output.SummaryFile
	}
	if cfg.Output.PendingReviewFile == "" {
		cfg.Output.PendingReviewFile = def.Output.PendingReviewFile
	}
}

// validate applies the semantic checks the JSON schema cannot express.
func validate(cfg *Config) ([]string, error) {
	var warnings []string

	for _, raw := range cfg.Grading.ActiveRequirements {
		if !requirement.Known(requirement.ID(raw)) {
			return warnings, graderrors.Configf("unknown requirement %q in active_requirements", raw)
		}
	}

	active := make(map[string]bool, len(cfg.Grading.ActiveRequirements))
	for _, raw := range cfg.Grading.ActiveRequirements {
		active[raw] = true
	}
	for raw := range cfg.Grading.Weights {
		if !requirement.Known(requirement.ID(raw)) {
			warnings = append(warnings, fmt.Sprintf("weight for unknown requirement %q ignored", raw))
			continue
		}
		if !active[raw] {
			warnings = append(warnings, fmt.Sprintf("weight for inactive requirement %q has no effect", raw))
		}
	}

	if cfg.Grading.FullCoverageBonus > cfg.Grading.MaxGrade {
		warnings = append(warnings, "full_coverage_bonus exceeds max_grade; the grade cap makes it partially unreachable")
	}

	return warnings, nil
}

// ActiveIDs returns the configured active requirement set in catalog order.
func (c *Config) ActiveIDs() []requirement.ID {
	ids := make([]requirement.ID, len(c.Grading.ActiveRequirements))
	for i, raw := range c.Grading.ActiveRequirements {
		ids[i] = requirement.ID(raw)
	}
	requirement.SortIDs(ids)
	return ids
}

// WeightFor returns the effective weight for a requirement: the configured
// override when present, the catalog default otherwise.
func (c *Config) WeightFor(id requirement.ID) float64 {
	if w, ok := c.Grading.Weights[string(id)]; ok {
		return w
	}
	return requirement.Get(id).Weight
}

// RuntimeToolchain converts the declarative toolchain settings into the
// runner's form.
func (c *Config) RuntimeToolchain() subject.Toolchain {
	return subject.Toolchain{
		BuildCommand: c.Toolchain.BuildCommand,
		RunCommand:   c.Toolchain.RunCommand,
		BuildTimeout: time.Duration(c.Toolchain.BuildTimeoutSeconds) * time.Second,
		RunTimeout:   time.Duration(c.Toolchain.RunTimeoutSeconds) * time.Second,
	}
}
