// Package persona renders an optional configuration document into the
// system instruction applied to every chat session.
package persona

import (
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Personality   string   `yaml:"personality"`
	Manners       []string `yaml:"manners"`
	Rules         []string `yaml:"rules"`
	BasicTraining string   `yaml:"basicTraining"`
}

// Load reads the persona document at name. A missing, unreadable or
// malformed file is not an error: the service keeps running without an
// instruction, and the problem is logged at warn level.
func Load(log *slog.Logger, name string) (c Config) {
	data, err := os.ReadFile(name)
	if err != nil {
		log.Warn("continuing without persona config", slog.String("file", name), slog.Any("error", err))
		return c
	}
	if err = yaml.Unmarshal(data, &c); err != nil {
		log.Warn("continuing without persona config", slog.String("file", name), slog.Any("error", err))
		return Config{}
	}
	return c
}

// Instruction renders the labelled clauses in a fixed field order and
// reports whether any field contributed text. Callers must omit the system
// instruction entirely when ok is false.
func (c Config) Instruction() (s string, ok bool) {
	var sb strings.Builder
	if c.Personality != "" {
		sb.WriteString("Personality: " + c.Personality + ". ")
	}
	if len(c.Manners) > 0 {
		sb.WriteString("Manners: " + strings.Join(c.Manners, ", ") + ". ")
	}
	if len(c.Rules) > 0 {
		sb.WriteString("Rules: " + strings.Join(c.Rules, ", ") + ". ")
	}
	if c.BasicTraining != "" {
		sb.WriteString("Basic Training: " + c.BasicTraining + ". ")
	}
	s = strings.TrimSpace(sb.String())
	return s, s != ""
}
