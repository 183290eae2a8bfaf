package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var ErrUnknownProfile = errors.New("unknown profile")

// profileOverlay points at the sections of a Strategy that a profile may override.
type profileOverlay struct {
	Thresholds     *Thresholds `yaml:"thresholds"`
	TightMode      *TightMode  `yaml:"tight_mode"`
	Trading        *Trading    `yaml:"trading"`
	Risk           *Risk       `yaml:"risk"`
	Scheduler      *Scheduler  `yaml:"scheduler"`
	ADXH1Threshold *float64    `yaml:"adx_h1_threshold"`
}

// LoadFile reads the strategy file at path. An empty profile keeps the
// file's active_profile.
func LoadFile(path string, profile string) (*Strategy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategy file %s: %w", path, err)
	}
	return Parse(raw, profile)
}

// Parse decodes raw YAML over the defaults, applies the selected profile and validates the result.
func Parse(raw []byte, profile string) (*Strategy, error) {
	s := Default()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("decode strategy: %w", err)
	}

	if profile != "" {
		s.ActiveProfile = profile
	}
	if err := s.applyProfile(); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("invalid strategy: %w", err)
	}
	if err := s.checkWeights(); err != nil {
		return nil, fmt.Errorf("invalid strategy: %w", err)
	}
	return s, nil
}

func (s *Strategy) applyProfile() error {
	if s.ActiveProfile == "" {
		return nil
	}
	node, ok := s.Profiles[s.ActiveProfile]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, s.ActiveProfile)
	}

	overlay := profileOverlay{
		Thresholds:     &s.Thresholds,
		TightMode:      &s.TightMode,
		Trading:        &s.Trading,
		Risk:           &s.Risk,
		Scheduler:      &s.Scheduler,
		ADXH1Threshold: &s.ADXH1Threshold,
	}
	if err := node.Decode(&overlay); err != nil {
		return fmt.Errorf("decode profile %s: %w", s.ActiveProfile, err)
	}

	logger.WithFields(map[string]interface{}{
		"profile":    s.ActiveProfile,
		"m15":        s.Thresholds.M15,
		"h1":         s.Thresholds.H1,
		"adx_h1":     s.ADXH1Threshold,
		"interval_s": s.Scheduler.IntervalSec,
	}).Info("Strategy profile applied")
	return nil
}
