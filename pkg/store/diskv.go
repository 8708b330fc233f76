package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

const layoutISO = "2006-01-02"

// DayTotal is the number of steps walked on one calendar day.
type DayTotal struct {
	Day       string    `json:"day" yaml:"day"`
	Steps     int64     `json:"steps" yaml:"steps"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Persistence stores per-day step totals.
type Persistence interface {
	// Add increases the total for the day containing t by steps.
	Add(t time.Time, steps int64) (DayTotal, error)
	// Day returns the total for the day containing t; missing days are zero.
	Day(t time.Time) (DayTotal, error)
	// History lists every recorded day, oldest first.
	History(ctx context.Context) []DayTotal
	Watch(ctx context.Context) (<-chan Event, error)
}

// BaseConfig is the part of Config the store needs.
type BaseConfig interface {
	BasePath() string
}

// Load creates a Persistence backed by diskv. A nil cfg loads the default
// configuration.
func Load(cfg BaseConfig) (Persistence, error) {
	if cfg == nil {
		c, err := LoadConfig()
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	basePath := cfg.BasePath()
	if basePath == "" {
		return nil, errors.New("store: history path is empty")
	}
	return &persistence{d: diskv.New(diskv.Options{
		BasePath:          basePath,
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      64 * 1024,
	}), basePath: basePath}, nil
}

type persistence struct {
	mu       sync.Mutex
	d        *diskv.Diskv
	basePath string
}

func (p *persistence) read(key string) (DayTotal, error) {
	val, err := p.d.Read(key)
	if err != nil {
		return DayTotal{}, err
	}
	var dt DayTotal
	if err := json.Unmarshal(val, &dt); err != nil {
		return DayTotal{}, fmt.Errorf("store: decode %s: %w", key, err)
	}
	dt.Day = key
	return dt, nil
}

func (p *persistence) Day(t time.Time) (DayTotal, error) {
	key := toKey(t)
	dt, err := p.read(key)
	if errors.Is(err, os.ErrNotExist) {
		return DayTotal{Day: key}, nil
	}
	return dt, err
}

func (p *persistence) Add(t time.Time, steps int64) (DayTotal, error) {
	if steps < 0 {
		return DayTotal{}, fmt.Errorf("store: cannot add negative steps %d", steps)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	dt, err := p.Day(t)
	if err != nil {
		return DayTotal{}, err
	}
	if steps == 0 {
		return dt, nil
	}
	dt.Steps += steps
	dt.UpdatedAt = t
	data, err := json.Marshal(dt)
	if err != nil {
		return DayTotal{}, err
	}
	if err := p.d.Write(dt.Day, data); err != nil {
		return DayTotal{}, fmt.Errorf("store: write %s: %w", dt.Day, err)
	}
	return dt, nil
}

func (p *persistence) History(ctx context.Context) []DayTotal {
	all := make([]DayTotal, 0)
	for key := range p.d.Keys(ctx.Done()) {
		if !isDayKey(key) {
			continue
		}
		dt, err := p.read(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s\n", key, err)
			continue
		}
		all = append(all, dt)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Day < all[j].Day })
	return all
}

// keyToPathTransform stores 2025-10-19 as 2025/10/19.
func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, "-")
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return fmt.Sprintf("%s-%s", strings.Join(pathKey.Path, "-"), pathKey.FileName)
}

func toKey(t time.Time) string {
	return t.Format(layoutISO)
}

func isDayKey(key string) bool {
	_, err := time.Parse(layoutISO, key)
	return err == nil
}
