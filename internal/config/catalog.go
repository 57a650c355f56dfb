package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gosimple/slug"
	"github.com/spf13/viper"
)

// CatalogEntry describes a hosted workspace product creators can turn into portals.
type CatalogEntry struct {
	Name        string `mapstructure:"name" json:"name" yaml:"name"`
	Domain      string `mapstructure:"domain" json:"domain" yaml:"domain"`
	Description string `mapstructure:"description" json:"description" yaml:"description"`
}

// Slug is the catalog key of the entry.
func (e CatalogEntry) Slug() string {
	return slug.Make(e.Name)
}

// Catalog is an immutable snapshot of the known app types.
type Catalog struct {
	entries []CatalogEntry
	byKey   map[string]CatalogEntry
}

func DefaultCatalogEntries() []CatalogEntry {
	return []CatalogEntry{
		{Name: "Coda", Domain: "coda.io", Description: "Docs that work like apps."},
		{Name: "Hex", Domain: "hex.tech", Description: "Collaborative data notebooks."},
		{Name: "Figma", Domain: "figma.com", Description: "Design files and prototypes."},
		{Name: "Obsidian", Domain: "obsidian.md", Description: "Published knowledge bases."},
		{Name: "Miro", Domain: "miro.com", Description: "Visual collaboration boards."},
		{Name: "Cal.com", Domain: "cal.com", Description: "Scheduling pages."},
		{Name: "Clay", Domain: "clay.com", Description: "Data enrichment tables."},
		{Name: "Folk", Domain: "folk.app", Description: "Relationship management."},
		{Name: "Observable", Domain: "observablehq.com", Description: "Data visualization notebooks."},
	}
}

// NewCatalog indexes entries by slug. Later duplicates are rejected.
func NewCatalog(entries []CatalogEntry) (Catalog, error) {
	if len(entries) == 0 {
		return Catalog{}, errors.New("catalog cannot be empty")
	}
	cat := Catalog{
		entries: make([]CatalogEntry, 0, len(entries)),
		byKey:   make(map[string]CatalogEntry, len(entries)),
	}
	for i, entry := range entries {
		entry.Name = strings.TrimSpace(entry.Name)
		entry.Domain = strings.ToLower(strings.TrimSpace(entry.Domain))
		if entry.Name == "" {
			return Catalog{}, fmt.Errorf("catalog[%d]: name is required", i)
		}
		if entry.Domain == "" {
			return Catalog{}, fmt.Errorf("catalog[%d]: domain is required", i)
		}
		key := entry.Slug()
		if _, exists := cat.byKey[key]; exists {
			return Catalog{}, fmt.Errorf("catalog[%d]: duplicate app %q", i, entry.Name)
		}
		cat.byKey[key] = entry
		cat.entries = append(cat.entries, entry)
	}
	return cat, nil
}

// Lookup finds a catalog entry by display name, case and punctuation insensitive.
func (c Catalog) Lookup(name string) (CatalogEntry, bool) {
	entry, ok := c.byKey[slug.Make(strings.TrimSpace(name))]
	return entry, ok
}

// Entries returns the catalog in declaration order.
func (c Catalog) Entries() []CatalogEntry {
	return append([]CatalogEntry(nil), c.entries...)
}

type CatalogHolder struct {
	current atomic.Value // holds Catalog
}

// NewStaticCatalogHolder wraps a fixed catalog, mostly for tests.
func NewStaticCatalogHolder(cat Catalog) *CatalogHolder {
	holder := &CatalogHolder{}
	holder.current.Store(cat)
	return holder
}

func NewCatalogHolder(cfg Config) (*CatalogHolder, error) {
	v := viper.New()

	if cfg.AppCatalogPath != "" {
		v.SetConfigFile(cfg.AppCatalogPath)
	} else {
		v.SetConfigName("apps")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/happybase")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HAPPYBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
		v.SetDefault("catalog", DefaultCatalogEntries())
	}

	cat, err := unmarshalCatalog(v)
	if err != nil {
		return nil, err
	}

	holder := &CatalogHolder{}
	holder.current.Store(cat)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalCatalog(v)
			if err != nil {
				log.Printf("[app-catalog] invalid catalog ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[app-catalog] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *CatalogHolder) Get() Catalog {
	return h.current.Load().(Catalog)
}

func unmarshalCatalog(v *viper.Viper) (Catalog, error) {
	var entries []CatalogEntry
	if err := v.UnmarshalKey("catalog", &entries); err != nil {
		return Catalog{}, err
	}
	return NewCatalog(entries)
}
