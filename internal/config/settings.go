package config

import (
	"fmt"
	"strings"

	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/spf13/viper"
)

// NetworkSettings tunes the bundled feedforward trainer.
type NetworkSettings struct {
	HiddenNeurons int     `mapstructure:"hidden_neurons"`
	MaxEpochs     int     `mapstructure:"max_epochs"`
	Holdback      float64 `mapstructure:"holdback"`
	Patience      int     `mapstructure:"patience"`
}

// Settings is the full set of options recognised by the lifecycle.
type Settings struct {
	TrainingFilePath         string          `mapstructure:"training_file_path"`
	AnalysisFilePath         string          `mapstructure:"analysis_file_path"`
	ModelFilePath            string          `mapstructure:"model_file_path"`
	DatabasePath             string          `mapstructure:"database_path"`
	MetricsFile              string          `mapstructure:"metrics_file"`
	Network                  NetworkSettings `mapstructure:"network"`
	MinimumAccuracyThreshold float64         `mapstructure:"minimum_accuracy_threshold"`
	TrainingFolds            int             `mapstructure:"training_folds"`
	MaxIterations            int             `mapstructure:"max_iterations"`
	Seed                     int64           `mapstructure:"seed"`
	PersistModel             bool            `mapstructure:"persist_model"`
	RetrainModel             bool            `mapstructure:"retrain_model"`
	VerboseMode              bool            `mapstructure:"verbose_mode"`
}

// SetDefaults registers default values for every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("minimum_accuracy_threshold", 0.95)
	v.SetDefault("model_file_path", "$HOME/.local/share/frauddetect/model.fdnn")
	v.SetDefault("persist_model", true)
	v.SetDefault("retrain_model", false)
	v.SetDefault("training_folds", 5)
	v.SetDefault("verbose_mode", false)
	v.SetDefault("max_iterations", 0)
	v.SetDefault("seed", 0)
	v.SetDefault("database_path", "$HOME/.local/share/frauddetect/history.db")
	v.SetDefault("network.hidden_neurons", 25)
	v.SetDefault("network.max_epochs", 200)
	v.SetDefault("network.holdback", 0.3)
	v.SetDefault("network.patience", 20)
}

// Load reads Settings from v, expands paths and validates the result.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}

	s.TrainingFilePath = ExpandPath(s.TrainingFilePath)
	s.AnalysisFilePath = ExpandPath(s.AnalysisFilePath)
	s.ModelFilePath = ExpandPath(s.ModelFilePath)
	s.DatabasePath = ExpandPath(s.DatabasePath)
	s.MetricsFile = ExpandPath(s.MetricsFile)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks ranges and required paths.
func (s *Settings) Validate() error {
	var problems []string

	if s.MinimumAccuracyThreshold <= 0 || s.MinimumAccuracyThreshold > 1 {
		problems = append(problems, fmt.Sprintf("minimum_accuracy_threshold must be in (0,1], got %v", s.MinimumAccuracyThreshold))
	}
	if strings.TrimSpace(s.TrainingFilePath) == "" {
		problems = append(problems, "training_file_path is required")
	}
	if strings.TrimSpace(s.AnalysisFilePath) == "" {
		problems = append(problems, "analysis_file_path is required")
	}
	if strings.TrimSpace(s.ModelFilePath) == "" {
		problems = append(problems, "model_file_path is required")
	}
	if s.TrainingFolds <= 0 {
		problems = append(problems, fmt.Sprintf("training_folds must be positive, got %d", s.TrainingFolds))
	}
	if s.MaxIterations < 0 {
		problems = append(problems, fmt.Sprintf("max_iterations cannot be negative, got %d", s.MaxIterations))
	}
	if s.Network.HiddenNeurons <= 0 {
		problems = append(problems, "network.hidden_neurons must be positive")
	}
	if s.Network.MaxEpochs <= 0 {
		problems = append(problems, "network.max_epochs must be positive")
	}
	if s.Network.Holdback < 0 || s.Network.Holdback >= 1 {
		problems = append(problems, "network.holdback must be in [0,1)")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
