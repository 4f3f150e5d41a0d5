package config

import "reflect"

const envPrefix = "LAMPO"

// EnvVar documents one environment variable understood by LoadConfig.
type EnvVar struct {
	Name        string // short name under the LAMPO_ prefix (e.g., "CHARGE_URL")
	FullName    string // e.g., "LAMPO_CHARGE_URL"
	Type        string // human-readable type
	Default     string // default value as a string ("" if none)
	Description string // one-liner for docs
}

// EnvSpecs lists every environment variable, derived from the Config
// struct tags so docs cannot drift from the loader.
func EnvSpecs() []EnvVar {
	t := reflect.TypeOf(Config{})
	specs := make([]EnvVar, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Tag.Get("mapstructure")
		specs = append(specs, EnvVar{
			Name:        name,
			FullName:    envPrefix + "_" + name,
			Type:        f.Type.String(),
			Default:     f.Tag.Get("envDefault"),
			Description: f.Tag.Get("envInfo"),
		})
	}
	return specs
}

//go:generate go run ../../tools/gen-env-doc/main.go
