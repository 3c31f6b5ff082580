package analysis

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// BaselineFileVersion is the artifact schema written by SaveBaseline.
const BaselineFileVersion = 1

type baselineFile struct {
	Version     int                 `yaml:"version"`
	GeneratedAt time.Time           `yaml:"generated_at,omitempty"`
	Source      string              `yaml:"source,omitempty"`
	Global      float64             `yaml:"global"`
	Buckets     []baselineFileEntry `yaml:"buckets"`
}

type baselineFileEntry struct {
	Head       float64 `yaml:"head"`
	Efficiency float64 `yaml:"efficiency"`
	Count      int     `yaml:"count,omitempty"`
}

// ArtifactInfo describes where a saved baseline came from.
type ArtifactInfo struct {
	GeneratedAt time.Time
	Source      string
}

// SaveBaseline writes b as a versioned YAML artifact.
func SaveBaseline(w io.Writer, b *Baseline, info ArtifactInfo) error {
	f := baselineFile{
		Version:     BaselineFileVersion,
		GeneratedAt: info.GeneratedAt.UTC(),
		Source:      info.Source,
		Global:      b.Global(),
	}
	for _, p := range b.Points() {
		f.Buckets = append(f.Buckets, baselineFileEntry{
			Head:       float64(p.Bucket),
			Efficiency: p.Efficiency,
			Count:      p.Count,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}
	return enc.Close()
}

// LoadBaseline reads an artifact written by SaveBaseline.
func LoadBaseline(r io.Reader) (*Baseline, ArtifactInfo, error) {
	var f baselineFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, ArtifactInfo{}, fmt.Errorf("decoding baseline: %w", err)
	}
	if f.Version != BaselineFileVersion {
		return nil, ArtifactInfo{}, fmt.Errorf("%w: %d", ErrBaselineVersion, f.Version)
	}

	points := make([]BucketMean, 0, len(f.Buckets))
	for _, e := range f.Buckets {
		points = append(points, BucketMean{Bucket: Bucket(e.Head), Efficiency: e.Efficiency, Count: e.Count})
	}
	b, err := NewBaseline(points, f.Global)
	if err != nil {
		return nil, ArtifactInfo{}, err
	}
	return b, ArtifactInfo{GeneratedAt: f.GeneratedAt, Source: f.Source}, nil
}
