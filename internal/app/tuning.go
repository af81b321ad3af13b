package app

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/felixgeelhaar/gritline/internal/grit/application/services"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/formula"
	"github.com/felixgeelhaar/gritline/internal/grit/domain/trigger"
	"github.com/felixgeelhaar/gritline/pkg/config"
	"gopkg.in/yaml.v3"
)

// Tuning holds the engine parameters that may be overridden by the tuning file.
type Tuning struct {
	Formula   formula.Config     `yaml:"formula"`
	Triggers  trigger.Thresholds `yaml:"triggers"`
	Scheduler SchedulerTuning    `yaml:"scheduler"`

	// Sections lists the top-level sections the tuning file set.
	Sections []string `yaml:"-"`
}

// SchedulerTuning holds the popup firing limits.
type SchedulerTuning struct {
	Cooldown      time.Duration `yaml:"cooldown"`
	DailyCap      int           `yaml:"daily_cap"`
	HistoryWindow int           `yaml:"history_window"`
}

// DefaultTuning returns the built-in engine parameters.
func DefaultTuning() Tuning {
	sched := services.DefaultSchedulerConfig()
	return Tuning{
		Formula:  formula.DefaultConfig(),
		Triggers: trigger.DefaultThresholds(),
		Scheduler: SchedulerTuning{
			Cooldown:      sched.Cooldown,
			DailyCap:      sched.DailyCap,
			HistoryWindow: sched.HistoryWindow,
		},
	}
}

// LoadTuning resolves the engine parameters: built-in defaults, then the
// tuning file named by cfg.TuningFile, then the environment overrides in cfg.
func LoadTuning(cfg *config.Config) (Tuning, error) {
	t := DefaultTuning()
	if cfg.TuningFile != "" {
		if err := mergeTuningFile(&t, cfg.TuningFile); err != nil {
			return Tuning{}, err
		}
	}

	if cfg.TriggerCooldown > 0 {
		t.Scheduler.Cooldown = cfg.TriggerCooldown
	}
	if cfg.DailyCap > 0 {
		t.Scheduler.DailyCap = cfg.DailyCap
	}
	if cfg.HistoryWindow > 0 {
		t.Scheduler.HistoryWindow = cfg.HistoryWindow
	}

	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// mergeTuningFile decodes path over t. Keys missing from the file keep
// their current value.
func mergeTuningFile(t *Tuning, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read tuning %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return fmt.Errorf("parse tuning %s: %w", path, err)
	}

	for section := range raw {
		t.Sections = append(t.Sections, section)
	}
	sort.Strings(t.Sections)
	return nil
}

// Validate checks the curve anchors and firing limits.
func (t Tuning) Validate() error {
	if err := t.Formula.Validate(); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}
	if t.Scheduler.Cooldown < 0 {
		return fmt.Errorf("tuning: scheduler.cooldown must not be negative")
	}
	if t.Scheduler.DailyCap < 0 {
		return fmt.Errorf("tuning: scheduler.daily_cap must not be negative")
	}
	return nil
}

// SchedulerConfig converts the firing limits for the trigger scheduler.
func (t Tuning) SchedulerConfig() services.SchedulerConfig {
	return services.SchedulerConfig{
		Cooldown:      t.Scheduler.Cooldown,
		DailyCap:      t.Scheduler.DailyCap,
		HistoryWindow: t.Scheduler.HistoryWindow,
	}
}
