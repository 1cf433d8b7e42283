package services

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Service is a downstream web application registered for SSO
type Service struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"` // Base URL; any URL below it may start a handoff
	Logo string `yaml:"logo" json:"-"`   // Object key in the logo store
}

type catalogueFile struct {
	Services []Service `yaml:"services"`
}

// Catalogue holds the registered services. It is safe for concurrent use and can be
// reloaded from its file while serving.
type Catalogue struct {
	path     string
	lock     sync.RWMutex
	services map[string]Service
}

// NewCatalogue creates an in-memory catalogue
func NewCatalogue(svcs ...Service) (*Catalogue, error) {
	c := &Catalogue{}
	if err := c.set(svcs); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalogue reads the yaml catalogue at path
func LoadCatalogue(path string) (*Catalogue, error) {
	c := &Catalogue{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewEmptyCatalogue creates a catalogue bound to path without reading it. Watch loads the
// file once it appears.
func NewEmptyCatalogue(path string) *Catalogue {
	return &Catalogue{path: path, services: map[string]Service{}}
}

// Reload re-reads the catalogue file. The previous services stay active on failure.
func (c *Catalogue) Reload() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("[Catalogue Reload] failed to read %s: %w", c.path, err)
	}
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("[Catalogue Reload] failed to parse %s: %w", c.path, err)
	}
	return c.set(file.Services)
}

func (c *Catalogue) set(svcs []Service) error {
	byID := make(map[string]Service, len(svcs))
	for _, s := range svcs {
		if s.ID == "" {
			return fmt.Errorf("service without id")
		}
		if _, dup := byID[s.ID]; dup {
			return fmt.Errorf("duplicate service id %q", s.ID)
		}
		u, err := url.Parse(s.URL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("service %q has invalid url %q", s.ID, s.URL)
		}
		byID[s.ID] = s
	}

	c.lock.Lock()
	c.services = byID
	c.lock.Unlock()
	return nil
}

// Lookup finds the service whose base URL covers serviceURL
func (c *Catalogue) Lookup(serviceURL string) (*Service, bool) {
	candidate, err := url.Parse(serviceURL)
	if err != nil || candidate.Host == "" {
		return nil, false
	}

	c.lock.RLock()
	defer c.lock.RUnlock()

	for _, s := range c.services {
		base, err := url.Parse(s.URL)
		if err != nil {
			continue
		}
		if !strings.EqualFold(base.Scheme, candidate.Scheme) || !strings.EqualFold(base.Host, candidate.Host) {
			continue
		}
		if pathCovers(base.Path, candidate.Path) {
			found := s
			return &found, true
		}
	}
	return nil, false
}

// Get returns a service by id
func (c *Catalogue) Get(id string) (*Service, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	s, ok := c.services[id]
	if !ok {
		return nil, false
	}
	return &s, true
}

// List returns every service ordered by id
func (c *Catalogue) List() []Service {
	c.lock.RLock()
	defer c.lock.RUnlock()

	out := make([]Service, 0, len(c.services))
	for _, s := range c.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// Origins returns the scheme://host of every service, for CORS
func (c *Catalogue) Origins() []string {
	seen := map[string]struct{}{}
	var origins []string
	for _, s := range c.List() {
		u, err := url.Parse(s.URL)
		if err != nil {
			continue
		}
		origin := u.Scheme + "://" + u.Host
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}

// IsAllowedOrigin reports whether origin belongs to a registered service
func (c *Catalogue) IsAllowedOrigin(origin string) bool {
	for _, o := range c.Origins() {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// pathCovers compares against the dot-segment free path a browser would navigate to
func pathCovers(base, candidate string) bool {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return true
	}
	candidate = path.Clean("/" + candidate)
	return candidate == base || strings.HasPrefix(candidate, base+"/")
}
