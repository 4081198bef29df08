package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"bidwhist/internal/domain"
)

// DefaultPath is where the table configuration is read from, relative to the
// Nakama data directory or the standalone server's working directory.
const DefaultPath = "data/table_config.json"

// Runtime environment keys that override the file.
const (
	EnvTurnDuration      = "bidwhist_turn_duration_sec"
	EnvEmptyTableTimeout = "bidwhist_empty_table_timeout_sec"
	EnvVivoxSecret       = "vivox_secret"
)

type TableConfig struct {
	DefaultPointsToWin  int   `json:"default_points_to_win"`
	AllowedPointsToWin  []int `json:"allowed_points_to_win"`
	TurnDurationSeconds int   `json:"turn_duration_seconds"`
	ForceDealerBid      *bool `json:"force_dealer_bid,omitempty"`
	// EmptyTableTimeoutSeconds ends a running table nobody is connected to.
	EmptyTableTimeoutSeconds int    `json:"empty_table_timeout_seconds"`
	VivoxIssuer              string `json:"vivox_issuer"`
	VivoxDomain              string `json:"vivox_domain"`
	VivoxSecret              string `json:"-"`
}

var (
	cfg      *TableConfig
	loadOnce sync.Once
	loadErr  error
)

// Default returns the configuration used when no file is present.
func Default() TableConfig {
	force := true
	return TableConfig{
		DefaultPointsToWin:       21,
		AllowedPointsToWin:       []int{11, 21},
		TurnDurationSeconds:      30,
		ForceDealerBid:           &force,
		EmptyTableTimeoutSeconds: 120,
	}
}

// Parse decodes a configuration, filling unset fields from Default.
func Parse(data []byte) (TableConfig, error) {
	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return TableConfig{}, fmt.Errorf("failed to unmarshal table config: %w", err)
	}
	if len(c.AllowedPointsToWin) == 0 {
		c.AllowedPointsToWin = Default().AllowedPointsToWin
	}
	if c.ForceDealerBid == nil {
		c.ForceDealerBid = Default().ForceDealerBid
	}
	if !c.allows(c.DefaultPointsToWin) {
		return TableConfig{}, fmt.Errorf("default_points_to_win %d is not allowed", c.DefaultPointsToWin)
	}
	return c, nil
}

// LoadTableConfig loads the table configuration from path once per process.
func LoadTableConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read table config: %w", err)
			return
		}
		c, err := Parse(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = &c
	})
	return loadErr
}

// Get returns a copy of the loaded configuration, or Default when nothing was
// loaded.
func Get() TableConfig {
	if cfg == nil {
		return Default()
	}
	c := *cfg
	c.AllowedPointsToWin = append([]int{}, cfg.AllowedPointsToWin...)
	return c
}

// WithEnv applies runtime environment overrides. Malformed numbers are
// ignored.
func (c TableConfig) WithEnv(env map[string]string) TableConfig {
	if v, ok := env[EnvTurnDuration]; ok {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			c.TurnDurationSeconds = i
		}
	}
	if v, ok := env[EnvEmptyTableTimeout]; ok {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			c.EmptyTableTimeoutSeconds = i
		}
	}
	if v, ok := env[EnvVivoxSecret]; ok {
		c.VivoxSecret = v
	}
	return c
}

// Rules returns the game rules for a table asking for pointsToWin. Zero
// selects the default.
func (c TableConfig) Rules(pointsToWin int) (domain.Rules, error) {
	if pointsToWin == 0 {
		pointsToWin = c.DefaultPointsToWin
	}
	if !c.allows(pointsToWin) {
		return domain.Rules{}, domain.ErrInvalidPointsToWin
	}
	rules := domain.Rules{PointsToWin: pointsToWin, ForceDealerBid: true}
	if c.ForceDealerBid != nil {
		rules.ForceDealerBid = *c.ForceDealerBid
	}
	return rules, rules.Validate()
}

// TurnDuration is how long a decision may stay pending before it is forced.
func (c TableConfig) TurnDuration() time.Duration {
	return time.Duration(c.TurnDurationSeconds) * time.Second
}

// EmptyTableTimeout is how long a running table may have nobody connected.
func (c TableConfig) EmptyTableTimeout() time.Duration {
	return time.Duration(c.EmptyTableTimeoutSeconds) * time.Second
}

func (c TableConfig) allows(points int) bool {
	for _, p := range c.AllowedPointsToWin {
		if p == points {
			return true
		}
	}
	return false
}
