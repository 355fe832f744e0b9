package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/snapledger/pkg/scenario"
	"github.com/dshills/snapledger/pkg/validation"
)

// resolveScenarioPath maps a command argument to a scenario file.
//
// Arguments that look like a file (a .yaml/.yml suffix or a path separator)
// are used as given. Anything else is a scenario name looked up in the
// scenarios directory.
func resolveScenarioPath(arg string) (string, error) {
	ext := strings.ToLower(filepath.Ext(arg))
	if ext == ".yaml" || ext == ".yml" || strings.ContainsAny(arg, `/\`) {
		if _, err := os.Stat(arg); err != nil {
			return "", fmt.Errorf("scenario file not found: %s", arg)
		}
		return arg, nil
	}

	if !validation.IsValidName(arg) {
		return "", fmt.Errorf("invalid scenario name: %s", arg)
	}

	path, err := validation.ResolveWithin(GetScenariosDir(), arg+".yaml")
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("scenario not found: %s\n\nLooked in: %s", arg, path)
	}
	return path, nil
}

// loadScenario resolves and parses a scenario, then fills in the history
// and policy defaults from config.yaml.
func loadScenario(arg string) (*scenario.Scenario, string, error) {
	path, err := resolveScenarioPath(arg)
	if err != nil {
		return nil, "", err
	}

	sc, err := scenario.Load(path)
	if err != nil {
		return nil, path, err
	}
	applyDefaults(sc, GlobalConfig.File)
	return sc, path, nil
}

func applyDefaults(sc *scenario.Scenario, cfg FileConfig) {
	if sc.Capacity == 0 {
		sc.Capacity = cfg.History.Capacity
	}
	if sc.Policy.Kind == "" && sc.Policy.Floor == 0 && sc.Policy.Deposit == "" && sc.Policy.Withdraw == "" {
		sc.Policy = cfg.Policy
	}
}
