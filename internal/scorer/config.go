// Package scorer computes per-cluster metrics and the composite score used
// to rank keyword clusters.
package scorer

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sells-group/keyword-cli/internal/model"
)

// Weight keys.
const (
	WeightVolume = "volume"
	WeightKD     = "kd"
	WeightCPC    = "cpc"
	WeightBrand  = "brand"
	WeightIntent = "intent"
)

// WeightKeys lists every required weight.
var WeightKeys = []string{WeightVolume, WeightKD, WeightCPC, WeightBrand, WeightIntent}

// DefaultWeights returns the stock weighting. Weights sum to 1.
func DefaultWeights() model.Weights {
	return model.Weights{
		WeightVolume: 0.35,
		WeightKD:     0.25,
		WeightCPC:    0.15,
		WeightBrand:  0.15,
		WeightIntent: 0.10,
	}
}

// ValidateWeights checks that all five keys are present, finite, and that
// no unknown keys are set. Weights need not sum to 1.
func ValidateWeights(w model.Weights) error {
	var errs []string

	for _, k := range WeightKeys {
		v, ok := w[k]
		switch {
		case !ok:
			errs = append(errs, fmt.Sprintf("missing weight %q", k))
		case math.IsNaN(v) || math.IsInf(v, 0):
			errs = append(errs, fmt.Sprintf("weight %q must be finite", k))
		}
	}

	var unknown []string
	for k := range w {
		if !isWeightKey(k) {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		errs = append(errs, fmt.Sprintf("unknown weight %q", k))
	}

	if len(errs) > 0 {
		return model.NewError(model.KindInvalidWeights, "scorer: %s", strings.Join(errs, "; "))
	}
	return nil
}

func isWeightKey(k string) bool {
	for _, key := range WeightKeys {
		if k == key {
			return true
		}
	}
	return false
}

type weightsFile struct {
	Weights model.Weights `yaml:"weights"`
}

// LoadWeightsFile reads a YAML file with a top-level weights mapping and
// validates it.
func LoadWeightsFile(path string) (model.Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapError(model.KindInvalidWeights, err, "read weights file %s", path)
	}

	var f weightsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, model.WrapError(model.KindInvalidWeights, err, "parse weights file %s", path)
	}
	if err := ValidateWeights(f.Weights); err != nil {
		return nil, err
	}
	return f.Weights, nil
}
