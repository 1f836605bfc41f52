package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ligun0805/reward-bridge/internal/rewardtoken"
)

// rewardEntry keeps points untyped so that one malformed value only
// disqualifies its own entry.
type rewardEntry struct {
	Address string `yaml:"address" toml:"address"`
	Points  any    `yaml:"points" toml:"points"`
}

type rewardFile struct {
	Rewards []rewardEntry `yaml:"rewards" toml:"rewards"`
}

// invalidPoints marks an entry whose points are not a whole non-negative
// number; Plan reports it as invalid_amount at its original index.
const invalidPoints = -1

func (e rewardEntry) request() rewardtoken.RewardRequest {
	r := rewardtoken.RewardRequest{Address: e.Address, Points: invalidPoints}
	switch v := e.Points.(type) {
	case int:
		r.Points = int64(v)
	case int64:
		r.Points = v
	case uint64:
		if v <= math.MaxInt64 {
			r.Points = int64(v)
		}
	case float64:
		if p, err := rewardtoken.PointsFromFloat(v); err == nil {
			r.Points = p
		}
	}
	return r
}

// loadRewardFile reads a list of {address, points}. YAML files (and JSON,
// being a subset of YAML) may hold a bare list or a "rewards" key; TOML files
// use [[rewards]] tables. Points written as 2500.0 count as 2500; fractional,
// negative or non-numeric points make only that entry invalid.
func loadRewardFile(path string) ([]rewardtoken.RewardRequest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []rewardEntry
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var f rewardFile
		if _, err := toml.Decode(string(b), &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		entries = f.Rewards
	} else if err := yaml.Unmarshal(b, &entries); err != nil {
		var f rewardFile
		if err := yaml.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		entries = f.Rewards
	}

	reqs := make([]rewardtoken.RewardRequest, len(entries))
	for i, e := range entries {
		reqs[i] = e.request()
	}
	return reqs, nil
}
