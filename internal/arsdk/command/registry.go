package command

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrSpecExists     = errors.New("command spec already exists")
	ErrInvalidSpec    = errors.New("invalid command spec")
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidParam   = errors.New("invalid command parameter")
)

// Params carries named textual arguments from the CLI or HTTP surface.
type Params map[string]string

// BuildFunc turns textual params into a feature.
type BuildFunc func(Params) (Feature, error)

// Spec describes one named entry of the feature catalogue.
type Spec struct {
	ID          string
	Description string
	Project     Project
	Class       uint8
	Command     uint16
	Build       BuildFunc
}

// Registry stores command specs by stable identifier.
type Registry struct {
	items map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Spec)}
}

// ValidateSpec checks required fields and id format.
func ValidateSpec(spec Spec) error {
	id := strings.TrimSpace(spec.ID)
	if id == "" || strings.TrimSpace(spec.Description) == "" {
		return fmt.Errorf("%w: id and description are required", ErrInvalidSpec)
	}
	if !isValidID(id) {
		return fmt.Errorf("%w: invalid id format %q", ErrInvalidSpec, id)
	}
	if spec.Build == nil {
		return fmt.Errorf("%w: %s has no builder", ErrInvalidSpec, id)
	}
	return nil
}

// Register adds specs as one batch: if any spec is invalid or taken, none
// are added.
func (r *Registry) Register(specs ...Spec) error {
	batch := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if err := ValidateSpec(spec); err != nil {
			return err
		}
		_, taken := r.items[spec.ID]
		_, repeated := batch[spec.ID]
		if taken || repeated {
			return fmt.Errorf("%w: %s", ErrSpecExists, spec.ID)
		}
		batch[spec.ID] = struct{}{}
	}
	for _, spec := range specs {
		r.items[spec.ID] = spec
	}
	return nil
}

func (r *Registry) Resolve(id string) (Spec, bool) {
	spec, ok := r.items[strings.TrimSpace(id)]
	return spec, ok
}

// Build resolves id and builds its feature from params.
func (r *Registry) Build(id string, params Params) (Feature, error) {
	spec, ok := r.Resolve(id)
	if !ok {
		return Feature{}, fmt.Errorf("%w: %q", ErrUnknownCommand, id)
	}
	f, err := spec.Build(params)
	if err != nil {
		return Feature{}, fmt.Errorf("build %s: %w", spec.ID, err)
	}
	return f, nil
}

// Name returns the catalogue id matching the feature header, if any.
func (r *Registry) Name(f Feature) (string, bool) {
	for id, spec := range r.items {
		if spec.Project == f.Project && spec.Class == f.Class && spec.Command == f.Command {
			return id, true
		}
	}
	return "", false
}

// List returns specs ordered by id.
func (r *Registry) List() []Spec {
	list := make([]Spec, 0, len(r.items))
	for _, spec := range r.items {
		list = append(list, spec)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID < list[j].ID
	})
	return list
}

// Int parses an integer param within [min, max]. Missing keys yield def.
func (p Params) Int(key string, def, min, max int64) (int64, error) {
	raw, ok := p[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, raw)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%w: %s=%d out of range [%d, %d]", ErrInvalidParam, key, v, min, max)
	}
	return v, nil
}

func (p Params) Float(key string, def float32) (float32, error) {
	raw, ok := p[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParam, key, raw)
	}
	return float32(v), nil
}

// Enum maps a named param onto one of names, returning its index.
func (p Params) Enum(key string, def uint32, names ...string) (uint32, error) {
	raw, ok := p[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	raw = strings.ToLower(strings.TrimSpace(raw))
	for i, name := range names {
		if name == raw {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s=%q (want one of %s)", ErrInvalidParam, key, raw, strings.Join(names, ", "))
}

func (p Params) String(key, def string) string {
	raw, ok := p[key]
	if !ok {
		return def
	}
	return raw
}

func isValidID(id string) bool {
	if id == "" {
		return false
	}
	lastSep := false
	for i := 0; i < len(id); i++ {
		c := id[i]
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		isSep := c == '.' || c == '-' || c == '_'
		if !(isLower || isDigit || isSep) {
			return false
		}
		if (i == 0 || i == len(id)-1) && isSep {
			return false
		}
		if isSep && lastSep {
			return false
		}
		lastSep = isSep
	}
	return true
}
