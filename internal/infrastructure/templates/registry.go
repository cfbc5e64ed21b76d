package templates

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Duration decodes "12h" style strings from YAML. Plain integers are taken
// as nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return perr
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

// Template describes one known content type. Persona text and prompt wording
// live in the file, not in code, so editors can tune them without a deploy.
type Template struct {
	ContentType      string   `yaml:"content_type"`
	DefaultPersona   string   `yaml:"default_persona"`
	LeadTime         Duration `yaml:"lead_time"`
	MaxMessages      int      `yaml:"max_messages"`
	TargetSelection  string   `yaml:"target_selection"` // all, featured, top_activity
	OffTopicKeywords []string `yaml:"off_topic_keywords"`
	CreditCost       int      `yaml:"credit_cost"`
}

type registryFile struct {
	Templates []Template `yaml:"templates"`
}

// Registry holds the known content types. Reads are lock-protected because
// the fsnotify watcher swaps the map on file change.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
	path      string
	watcher   *fsnotify.Watcher
	logger    *zap.Logger
}

// Defaults returns the built-in registry used when no file is configured.
func Defaults() map[string]Template {
	defs := []Template{
		{ContentType: "weekly_recap", DefaultPersona: "beat_writer", LeadTime: Duration(12 * time.Hour), MaxMessages: 8, TargetSelection: "featured", CreditCost: 5},
		{ContentType: "power_rankings", DefaultPersona: "hot_take_columnist", LeadTime: Duration(12 * time.Hour), MaxMessages: 8, TargetSelection: "top_activity", CreditCost: 5},
		{ContentType: "matchup_preview", DefaultPersona: "beat_writer", LeadTime: Duration(6 * time.Hour), MaxMessages: 6, TargetSelection: "featured", CreditCost: 3},
		{ContentType: "season_outlook", DefaultPersona: "historian", LeadTime: Duration(24 * time.Hour), MaxMessages: 10, TargetSelection: "all", CreditCost: 8},
	}
	m := make(map[string]Template, len(defs))
	for _, t := range defs {
		m[t.ContentType] = t
	}
	return m
}

// NewRegistry loads the template file. A missing or unparsable file falls
// back to built-in defaults rather than failing startup.
func NewRegistry(path string, logger *zap.Logger) *Registry {
	r := &Registry{
		templates: Defaults(),
		path:      path,
		logger:    logger.With(zap.String("component", "template-registry")),
	}

	if path != "" {
		if err := r.reload(); err != nil {
			r.logger.Warn("Template file load failed, using defaults",
				zap.String("path", path),
				zap.Error(err),
			)
		}
	}

	return r
}

// Lookup returns the template for a content type.
func (r *Registry) Lookup(contentType string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[contentType]
	return t, ok
}

// ContentTypes lists the registered type names.
func (r *Registry) ContentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	return names
}

// Watch hot-reloads the registry when the file changes. Blocks until the
// watcher is closed via Stop.
func (r *Registry) Watch() error {
	if r.path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	r.watcher = w

	if err := w.Add(r.path); err != nil {
		return fmt.Errorf("watch %s: %w", r.path, err)
	}

	r.logger.Info("Watching template registry", zap.String("path", r.path))

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				if err := r.reload(); err != nil {
					r.logger.Warn("Template reload failed", zap.Error(err))
				} else {
					r.logger.Info("Template registry reloaded")
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("Template watcher error", zap.Error(err))
		}
	}
}

// Stop closes the watcher.
func (r *Registry) Stop() {
	if r.watcher != nil {
		_ = r.watcher.Close()
	}
}

func (r *Registry) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return err
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	if len(file.Templates) == 0 {
		return fmt.Errorf("template file has no entries")
	}

	m := make(map[string]Template, len(file.Templates))
	for _, t := range file.Templates {
		if t.ContentType == "" {
			continue
		}
		m[t.ContentType] = t
	}

	r.mu.Lock()
	r.templates = m
	r.mu.Unlock()
	return nil
}
