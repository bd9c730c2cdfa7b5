package fleet

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"iot-fabric/internal/errs"
)

// PeripheralSpec is one configured device.
type PeripheralSpec struct {
	Address           string `yaml:"address"`
	ServiceUUID       string `yaml:"service_uuid"`
	CharacteristicUUID string `yaml:"characteristic_uuid"`
}

type fleetFile struct {
	Peripherals []PeripheralSpec `yaml:"peripherals"`
}

// LoadConfig reads the fleet's ordered peripheral list from a YAML file.
// Addresses are normalized (upper-cased, whitespace-trimmed) so scan
// results and config entries compare equal, and rejected if duplicated.
func LoadConfig(path string) ([]PeripheralSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.Config, "reading fleet config", err)
	}

	var f fleetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errs.New(errs.Config, "parsing fleet config", err)
	}

	seen := make(map[string]bool, len(f.Peripherals))
	for i := range f.Peripherals {
		f.Peripherals[i].Address = normalizeAddress(f.Peripherals[i].Address)
		addr := f.Peripherals[i].Address
		if seen[addr] {
			return nil, errs.New(errs.Config, "duplicate peripheral address: "+addr, nil)
		}
		seen[addr] = true
	}

	return f.Peripherals, nil
}

// normalizeAddress upper-cases a station address so that scan results
// and config entries compare equal regardless of case.
func normalizeAddress(addr string) string {
	return strings.ToUpper(strings.TrimSpace(addr))
}
