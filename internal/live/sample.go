package live

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sample is one line of the intake controller's serial output.
//
// Two layouts are sent, depending on firmware:
//
//	sea|lake|waste   e.g. 2.41|0.87|35
//	head|waste       e.g. 154|35 (head in centimetres)
//
// Head is always stored in metres. waste is the debris sensor intensity, an
// integer.
type Sample struct {
	Sea, Lake float64
	Head      float64
	Waste     int
	// HasLevels is false for head|waste lines.
	HasLevels bool
}

// ParseLine decodes a single device line. Surrounding whitespace and the
// trailing CR LF are ignored.
func ParseLine(line string) (Sample, error) {
	parts := strings.Split(strings.TrimSpace(line), "|")
	switch len(parts) {
	case 3:
		sea, err := parseLevel(parts[0], "sea")
		if err != nil {
			return Sample{}, err
		}
		lake, err := parseLevel(parts[1], "lake")
		if err != nil {
			return Sample{}, err
		}
		waste, err := parseWaste(parts[2])
		if err != nil {
			return Sample{}, err
		}
		return Sample{Sea: sea, Lake: lake, Head: math.Abs(sea - lake), Waste: waste, HasLevels: true}, nil
	case 2:
		headCM, err := parseLevel(parts[0], "head")
		if err != nil {
			return Sample{}, err
		}
		waste, err := parseWaste(parts[1])
		if err != nil {
			return Sample{}, err
		}
		return Sample{Head: headCM / 100, Waste: waste}, nil
	}
	return Sample{}, fmt.Errorf("live: expected 2 or 3 fields, got %d in %q", len(parts), line)
}

func parseLevel(s, name string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("live: parsing %s %q: %w", name, s, err)
	}
	return v, nil
}

func parseWaste(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("live: parsing waste %q: %w", s, err)
	}
	return v, nil
}

// SampleLines stand in for the device when neither it nor a replay file is
// available.
var SampleLines = []string{
	"2.41|0.87|12",
	"2.38|0.88|15",
	"2.30|0.90|31",
	"2.22|0.93|48",
	"2.15|0.95|40",
	"2.09|0.97|22",
	"2.04|0.99|14",
	"2.00|1.01|9",
}
