package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/slidegen/internal/domain"
)

// Config holds the slidegen service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Summary   SummaryConfig   `yaml:"summary"`
	Quiz      QuizConfig      `yaml:"quiz"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`

	// MaxConcurrent caps in-flight generations; requests beyond it get 429.
	MaxConcurrent int   `yaml:"max_concurrent"`
	MaxBodyBytes  int64 `yaml:"max_body_bytes"`
}

// CacheConfig holds the embedding cache store settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, redis, valkey (default: none)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLHours         int      `yaml:"ttl_hours"` // 0 keeps vectors forever
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether an external cache store is configured.
func (c CacheConfig) Enabled() bool {
	return c.Driver != "none"
}

// EmbeddingConfig holds the keyword embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // local, openai (default: local)
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	Instruction string `yaml:"instruction"` // prefixed to every embedded text

	// MaxBatchSize splits candidate batches sent to the provider. 0 sends one batch.
	MaxBatchSize int `yaml:"max_batch_size"`
}

// PipelineConfig describes the models.
type PipelineConfig struct {
	HiddenDim      int               `yaml:"hidden_dim"`
	Seed           uint64            `yaml:"seed"`
	VocabPath      string            `yaml:"vocab_path"`
	MaxInputTokens int               `yaml:"max_input_tokens"`
	PadToMaxLength bool              `yaml:"pad_to_max_length"`
	Keywords       KeywordsConfig    `yaml:"keywords"`
	Vision         VisionConfig      `yaml:"vision"`
	Fusion         FusionConfig      `yaml:"fusion"`
	Manifests      map[string]string `yaml:"manifests"` // stage -> manifest path
}

// KeywordsConfig holds keyword extraction settings.
type KeywordsConfig struct {
	TopN          int      `yaml:"top_n"`
	Diversity     *float64 `yaml:"diversity"`
	Policy        string   `yaml:"policy"` // nouns, noun_ngrams, ngrams
	CandidatePool int      `yaml:"candidate_pool"`
}

// VisionConfig holds visual encoder settings.
type VisionConfig struct {
	ImageSize int `yaml:"image_size"`
	PatchSize int `yaml:"patch_size"`
}

// FusionConfig holds cross-attention settings.
type FusionConfig struct {
	Layers      int    `yaml:"layers"`
	Heads       int    `yaml:"heads"`
	Seed        uint64 `yaml:"seed"`
	WeightsPath string `yaml:"weights_path"`
}

// SummaryConfig holds the summarisation policy.
type SummaryConfig struct {
	Variant     string            `yaml:"variant"` // multimodal, text
	Instruction string            `yaml:"instruction"`
	ForcedStart *bool             `yaml:"forced_start"`
	Constraints ConstraintsConfig `yaml:"constraints"`
}

// QuizConfig holds the two-stage quiz policy.
type QuizConfig struct {
	QuestionInstruction string            `yaml:"question_instruction"`
	AnswerInstruction   string            `yaml:"answer_instruction"`
	Question            ConstraintsConfig `yaml:"question"`
	Answer              ConstraintsConfig `yaml:"answer"`
}

// ConstraintsConfig is the YAML form of domain.GenerationConstraints.
type ConstraintsConfig struct {
	BeamWidth         int     `yaml:"beam_width"`
	MaxNewTokens      int     `yaml:"max_new_tokens"`
	MinTokens         int     `yaml:"min_tokens"`
	NoRepeatNgramSize *int    `yaml:"no_repeat_ngram_size"`
	RepetitionPenalty float64 `yaml:"repetition_penalty"`
	LengthPenalty     float64 `yaml:"length_penalty"`
	EarlyStopping     *bool   `yaml:"early_stopping"`
}

// Constraints converts to the decoder's constraint bundle.
func (c ConstraintsConfig) Constraints() domain.GenerationConstraints {
	out := domain.GenerationConstraints{
		BeamWidth:         c.BeamWidth,
		MaxNewTokens:      c.MaxNewTokens,
		MinTokens:         c.MinTokens,
		RepetitionPenalty: c.RepetitionPenalty,
		LengthPenalty:     c.LengthPenalty,
		EarlyStopping:     true,
	}
	if c.NoRepeatNgramSize != nil {
		out.NoRepeatNgramSize = *c.NoRepeatNgramSize
	}
	if c.EarlyStopping != nil {
		out.EarlyStopping = *c.EarlyStopping
	}
	return out
}

// withDefaults fills unset fields from d.
func (c ConstraintsConfig) withDefaults(d domain.GenerationConstraints) ConstraintsConfig {
	if c.BeamWidth <= 0 {
		c.BeamWidth = d.BeamWidth
	}
	if c.MaxNewTokens <= 0 {
		c.MaxNewTokens = d.MaxNewTokens
	}
	if c.NoRepeatNgramSize == nil {
		n := d.NoRepeatNgramSize
		c.NoRepeatNgramSize = &n
	}
	if c.RepetitionPenalty == 0 {
		c.RepetitionPenalty = d.RepetitionPenalty
	}
	if c.LengthPenalty == 0 {
		c.LengthPenalty = d.LengthPenalty
	}
	if c.EarlyStopping == nil {
		e := d.EarlyStopping
		c.EarlyStopping = &e
	}
	return c
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// Reference generation settings per stage.
var (
	summaryMultimodalDefaults = domain.GenerationConstraints{
		BeamWidth: 6, MaxNewTokens: 200, NoRepeatNgramSize: 2,
		RepetitionPenalty: 1.2, LengthPenalty: 1.1, EarlyStopping: true,
	}
	summaryTextDefaults = domain.GenerationConstraints{
		BeamWidth: 5, MaxNewTokens: 256, NoRepeatNgramSize: 6,
		RepetitionPenalty: 1, LengthPenalty: 1, EarlyStopping: true,
	}
	questionDefaults = domain.GenerationConstraints{
		BeamWidth: 4, MaxNewTokens: 384, NoRepeatNgramSize: 3,
		RepetitionPenalty: 1.5, LengthPenalty: 1, EarlyStopping: true,
	}
	answerDefaults = domain.GenerationConstraints{
		BeamWidth: 4, MaxNewTokens: 256, NoRepeatNgramSize: 3,
		RepetitionPenalty: 1.5, LengthPenalty: 1, EarlyStopping: true,
	}
)

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxConcurrent <= 0 {
		c.HTTP.MaxConcurrent = runtime.NumCPU()
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 16 << 20
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "none"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "local"
	}

	p := &c.Pipeline
	if p.HiddenDim <= 0 {
		p.HiddenDim = 64
	}
	if p.Seed == 0 {
		p.Seed = 1
	}
	if p.MaxInputTokens <= 0 {
		p.MaxInputTokens = 512
	}
	if p.Keywords.TopN <= 0 {
		p.Keywords.TopN = 5
	}
	if p.Keywords.Diversity == nil {
		d := 0.7
		p.Keywords.Diversity = &d
	}
	if p.Keywords.Policy == "" {
		p.Keywords.Policy = "noun_ngrams"
	}
	if p.Keywords.CandidatePool <= 0 {
		p.Keywords.CandidatePool = 3 * p.Keywords.TopN
	}
	if p.Vision.ImageSize <= 0 {
		p.Vision.ImageSize = 224
	}
	if p.Vision.PatchSize <= 0 {
		p.Vision.PatchSize = 16
	}
	if p.Fusion.Layers <= 0 {
		p.Fusion.Layers = 2
	}
	if p.Fusion.Heads <= 0 {
		p.Fusion.Heads = 8
	}

	if c.Summary.Variant == "" {
		c.Summary.Variant = "multimodal"
	}
	if c.Summary.ForcedStart == nil {
		on := c.Summary.Variant == "multimodal"
		c.Summary.ForcedStart = &on
	}
	sd := summaryMultimodalDefaults
	if c.Summary.Variant == "text" {
		sd = summaryTextDefaults
	}
	c.Summary.Constraints = c.Summary.Constraints.withDefaults(sd)
	c.Quiz.Question = c.Quiz.Question.withDefaults(questionDefaults)
	c.Quiz.Answer = c.Quiz.Answer.withDefaults(answerDefaults)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Cache.Driver {
	case "none":
	case "redis", "valkey":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be \"none\", \"redis\" or \"valkey\", got %q", c.Cache.Driver)
	}
	switch c.Embedding.Provider {
	case "local":
	case "openai":
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required for provider \"openai\"")
		}
	default:
		return fmt.Errorf("embedding.provider must be \"local\" or \"openai\", got %q", c.Embedding.Provider)
	}
	switch c.Pipeline.Keywords.Policy {
	case "nouns", "noun_ngrams", "ngrams":
	default:
		return fmt.Errorf("pipeline.keywords.policy must be nouns, noun_ngrams or ngrams, got %q",
			c.Pipeline.Keywords.Policy)
	}
	if d := *c.Pipeline.Keywords.Diversity; d < 0 || d > 1 {
		return fmt.Errorf("pipeline.keywords.diversity must be in [0, 1], got %g", d)
	}
	if c.Pipeline.HiddenDim%c.Pipeline.Fusion.Heads != 0 {
		return fmt.Errorf("pipeline.fusion.heads (%d) must divide pipeline.hidden_dim (%d)",
			c.Pipeline.Fusion.Heads, c.Pipeline.HiddenDim)
	}
	if c.Pipeline.Vision.ImageSize%c.Pipeline.Vision.PatchSize != 0 {
		return fmt.Errorf("pipeline.vision.image_size (%d) must be a multiple of patch_size (%d)",
			c.Pipeline.Vision.ImageSize, c.Pipeline.Vision.PatchSize)
	}
	switch c.Summary.Variant {
	case "multimodal", "text":
	default:
		return fmt.Errorf("summary.variant must be \"multimodal\" or \"text\", got %q", c.Summary.Variant)
	}
	for name, cc := range map[string]ConstraintsConfig{
		"summary.constraints": c.Summary.Constraints,
		"quiz.question":       c.Quiz.Question,
		"quiz.answer":         c.Quiz.Answer,
	} {
		if err := cc.Constraints().Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
