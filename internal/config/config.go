package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"imagedetect/internal/models"
)

const (
	DefaultConfigPath   string  = "config.json"
	DefaultEnvPath      string  = ".env"
	DefaultDetectorAddr string  = "localhost:8080"
	DefaultConfidence   float32 = 0.25
	DefaultTimeout              = 60 * time.Second

	envPrefix = "DETECT_"
)

type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

type DetectorConfig struct {
	Addr          string   `json:"addr"`
	Model         string   `json:"model"`
	Confidence    float32  `json:"confidence"`
	Timeout       Duration `json:"timeout"`
	MaxUploadSide uint     `json:"max_upload_side"`
	ClassNames    string   `json:"class_names"`
}

type SpeechConfig struct {
	Engine    string `json:"engine"`
	Language  string `json:"language"`
	Required  bool   `json:"required"`
	QueueSize int    `json:"queue_size"`
	Rate      int    `json:"rate"`
}

type Config struct {
	mu sync.RWMutex

	Detector DetectorConfig `json:"detector"`
	Speech   SpeechConfig   `json:"speech"`

	LogLevel string `json:"log_level"`
	LastDir  string `json:"last_dir"`
}

func (c *Config) GetModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Detector.Model
}

func (c *Config) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if model == "" {
		model = models.DefaultModel
	}
	c.Detector.Model = model
}

func (c *Config) GetConfidence() float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Detector.Confidence
}

func (c *Config) SetConfidence(conf float32) error {
	if conf < 0 || conf > 1 {
		return fmt.Errorf("confidence %.2f out of range [0,1]", conf)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Detector.Confidence = conf
	return nil
}

func (c *Config) GetTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Detector.Timeout)
}

func (c *Config) GetLastDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LastDir
}

func (c *Config) SetLastDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastDir = dir
}

func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func (c *Config) SaveByDefault() error {
	return c.Save(DefaultConfigPath)
}

// LoadConfigFile reads path over the defaults, then applies DETECT_* environment
// overrides (including any found in .env). A missing or broken file yields defaults.
func LoadConfigFile(path string) *Config {
	cfg := NewDefaultConfig()

	if f, err := os.Open(path); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			cfg = NewDefaultConfig()
		}
	}

	_ = godotenv.Load(DefaultEnvPath)
	cfg.applyEnv()
	cfg.normalize()

	return cfg
}

func (c *Config) applyEnv() {
	c.Detector.Addr = getEnv("DETECTOR_ADDR", c.Detector.Addr)
	c.Detector.Model = getEnv("MODEL", c.Detector.Model)
	c.Detector.ClassNames = getEnv("CLASS_NAMES", c.Detector.ClassNames)
	c.Detector.Confidence = getEnvAsFloat32("CONFIDENCE", c.Detector.Confidence)
	c.Detector.Timeout = Duration(getEnvAsDuration("TIMEOUT", time.Duration(c.Detector.Timeout)))
	c.Speech.Engine = getEnv("SPEECH_ENGINE", c.Speech.Engine)
	c.Speech.Language = getEnv("SPEECH_LANGUAGE", c.Speech.Language)
	c.Speech.Required = getEnvAsBool("SPEECH_REQUIRED", c.Speech.Required)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) normalize() {
	def := NewDefaultConfig()
	if c.Detector.Addr == "" {
		c.Detector.Addr = def.Detector.Addr
	}
	if c.Detector.Model == "" {
		c.Detector.Model = models.DefaultModel
	}
	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		c.Detector.Confidence = def.Detector.Confidence
	}
	if c.Detector.Timeout <= 0 {
		c.Detector.Timeout = def.Detector.Timeout
	}
	if c.Detector.MaxUploadSide == 0 {
		c.Detector.MaxUploadSide = def.Detector.MaxUploadSide
	}
	if c.Speech.QueueSize <= 0 {
		c.Speech.QueueSize = def.Speech.QueueSize
	}
}

func NewDefaultConfig() *Config {
	return &Config{
		Detector: DetectorConfig{
			Addr:          DefaultDetectorAddr,
			Model:         models.DefaultModel,
			Confidence:    DefaultConfidence,
			Timeout:       Duration(DefaultTimeout),
			MaxUploadSide: 1280,
		},
		Speech: SpeechConfig{
			Engine:    "auto",
			Required:  true,
			QueueSize: 4,
		},
		LogLevel: "info",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(envPrefix + key); value != "" {
		if v, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(v)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(envPrefix + key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(envPrefix + key); value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return defaultValue
}
