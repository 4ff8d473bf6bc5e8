// Package worker runs background flood risk refreshes for a fixed set of
// Vietnamese locations and publishes the resulting reports.
package worker

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTargets is returned when a targets file cannot be used.
var ErrInvalidTargets = errors.New("invalid refresh targets")

// RefreshTarget represents a province or city to refresh.
type RefreshTarget struct {
	// Name is the human-readable name of the target.
	Name string `yaml:"name"`

	// Points are the locations to evaluate. Typically the city center
	// plus the districts that flood first.
	Points []Point `yaml:"points"`

	// Priority determines refresh order (lower = higher priority).
	Priority int `yaml:"priority"`
}

// Point is one location to evaluate.
type Point struct {
	// Name is used as the provider query when set, otherwise "lat,lon".
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// Query returns the provider query for the point.
func (p Point) Query() string {
	if p.Name != "" {
		return p.Name
	}
	return strconv.FormatFloat(p.Lat, 'f', 4, 64) + "," + strconv.FormatFloat(p.Lon, 'f', 4, 64)
}

// RefreshConfig holds configuration for the risk refresh job.
type RefreshConfig struct {
	// Targets are the regions to refresh.
	// If empty, uses DefaultRefreshTargets.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each point.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:     DefaultRefreshTargets(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultRefreshTargets returns the default refresh targets: the large
// cities plus the central provinces that flood most often.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{
			Name:     "Hà Nội",
			Priority: 1,
			Points: []Point{
				{Name: "Hanoi", Lat: 21.0285, Lon: 105.8542},
			},
		},
		{
			Name:     "Hồ Chí Minh",
			Priority: 1,
			Points: []Point{
				{Name: "Ho Chi Minh City", Lat: 10.8231, Lon: 106.6297},
			},
		},
		{
			Name:     "Thừa Thiên Huế",
			Priority: 1,
			Points: []Point{
				{Name: "Hue", Lat: 16.4637, Lon: 107.5909},
			},
		},
		{
			Name:     "Đà Nẵng",
			Priority: 1,
			Points: []Point{
				{Name: "Da Nang", Lat: 16.0544, Lon: 108.2022},
			},
		},
		{
			Name:     "Quảng Nam",
			Priority: 2,
			Points: []Point{
				{Name: "Hoi An", Lat: 15.8801, Lon: 108.3380},
				{Name: "Tam Ky", Lat: 15.5736, Lon: 108.4740},
			},
		},
		{
			Name:     "Quảng Ngãi",
			Priority: 2,
			Points: []Point{
				{Name: "Quang Ngai", Lat: 15.1214, Lon: 108.8044},
			},
		},
		{
			Name:     "Quảng Bình",
			Priority: 2,
			Points: []Point{
				{Name: "Dong Hoi", Lat: 17.4689, Lon: 106.6223},
			},
		},
		{
			Name:     "Quảng Trị",
			Priority: 2,
			Points: []Point{
				{Name: "Dong Ha", Lat: 16.8163, Lon: 107.1003},
			},
		},
		{
			Name:     "Nghệ An",
			Priority: 3,
			Points: []Point{
				{Name: "Vinh", Lat: 18.6796, Lon: 105.6813},
			},
		},
		{
			Name:     "Hà Tĩnh",
			Priority: 3,
			Points: []Point{
				{Name: "Ha Tinh", Lat: 18.3559, Lon: 105.8877},
			},
		},
		{
			Name:     "Cần Thơ",
			Priority: 3,
			Points: []Point{
				{Name: "Can Tho", Lat: 10.0452, Lon: 105.7469},
			},
		},
	}
}

// LoadRefreshTargets reads targets from a YAML file of the form
//
//	targets:
//	  - name: Huế
//	    priority: 1
//	    points:
//	      - name: Hue
func LoadRefreshTargets(path string) ([]RefreshTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets file: %w", err)
	}

	var file struct {
		Targets []RefreshTarget `yaml:"targets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTargets, err)
	}

	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("%w: no targets in %s", ErrInvalidTargets, path)
	}
	for _, t := range file.Targets {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: target without a name", ErrInvalidTargets)
		}
		if len(t.Points) == 0 {
			return nil, fmt.Errorf("%w: target %q has no points", ErrInvalidTargets, t.Name)
		}
	}
	return file.Targets, nil
}

// AllPoints returns all points from all targets, ordered by priority.
func (c RefreshConfig) AllPoints() []Point {
	targets := make([]RefreshTarget, len(c.Targets))
	copy(targets, c.Targets)
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Priority < targets[j].Priority
	})

	var points []Point
	for _, target := range targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the total number of points to refresh.
func (c RefreshConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
