package convert

import "fmt"

// Registry owns the profile table and the default-value side table shared by
// every converter it builds. Pass one Registry to the compiler and the
// dispatchers of a process.
type Registry struct {
	profiles map[string]*TypeProfile
	defaults *DefaultTable
}

// NewRegistry returns a registry over the built-in profiles.
func NewRegistry() *Registry {
	r, err := NewRegistryWith(DefaultProfiles())
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistryWith returns a registry over the given profiles.
func NewRegistryWith(profiles []*TypeProfile) (*Registry, error) {
	r := &Registry{
		profiles: make(map[string]*TypeProfile, len(profiles)),
		defaults: NewDefaultTable(),
	}
	for _, p := range profiles {
		if err := validateProfile(p); err != nil {
			return nil, err
		}
		if _, dup := r.profiles[p.Name]; dup {
			return nil, fmt.Errorf("profile %q registered twice", p.Name)
		}
		r.profiles[p.Name] = p
	}
	return r, nil
}

func validateProfile(p *TypeProfile) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("profile without a name")
	case p.Mandatory&^p.Allowed != 0:
		return fmt.Errorf("profile %q: mandatory flags %s not allowed", p.Name, p.Mandatory)
	case p.Default&^p.Allowed != 0:
		return fmt.Errorf("profile %q: default flags %s not allowed", p.Name, p.Default)
	case p.Default != 0 && p.Mandatory&^p.Default != 0:
		return fmt.Errorf("profile %q: default flags %s miss mandatory %s", p.Name, p.Default, p.Mandatory)
	}
	return nil
}

// Profile returns the profile registered under name.
func (r *Registry) Profile(name string) (*TypeProfile, bool) {
	p, ok := r.profiles[name]
	return p, ok
}

// Defaults returns the side table holding non-literal defaults.
func (r *Registry) Defaults() *DefaultTable { return r.defaults }
