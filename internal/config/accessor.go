package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Settings are addressed as "section.setting" using the JSON names from
// config.json, e.g. "poll.maxRepliesPerRun" or "webhook.port".

// GetByPath returns the value of a setting, or a whole section when path
// names only the section ("poll").
func GetByPath(cfg *Config, path string) (any, error) {
	section, setting, _ := strings.Cut(path, ".")
	sv, ok := lookup(reflect.ValueOf(cfg).Elem(), section)
	if !ok {
		return nil, fmt.Errorf("unknown config section %q", section)
	}
	if setting == "" {
		return sv.Interface(), nil
	}
	fv, err := settingField(sv, section, setting)
	if err != nil {
		return nil, err
	}
	return fv.Interface(), nil
}

// SetByPath parses value for the setting's type and stores it in cfg.
// The result is not validated; callers run Validate before saving.
func SetByPath(cfg *Config, path, value string) error {
	section, setting, ok := strings.Cut(path, ".")
	if !ok || setting == "" {
		return fmt.Errorf("config path %q must be section.setting, e.g. poll.limit", path)
	}
	sv, found := lookup(reflect.ValueOf(cfg).Elem(), section)
	if !found {
		return fmt.Errorf("unknown config section %q", section)
	}
	fv, err := settingField(sv, section, setting)
	if err != nil {
		return err
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s expects a whole number, got %q", path, value)
		}
		fv.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s expects true or false, got %q", path, value)
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("%s cannot be set from the command line", path)
	}
	return nil
}

// Sanitize returns a copy of the config with credentials masked.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.GroupMe.Token = maskString(out.GroupMe.Token)
	out.GroupMe.BotID = maskString(out.GroupMe.BotID)
	out.Webhook.Secret = maskString(out.Webhook.Secret)
	return &out
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns every setting with its current value, including
// settings left empty in config.json.
func ListPaths(cfg *Config) map[string]any {
	result := make(map[string]any)
	root := reflect.ValueOf(cfg).Elem()
	for i := range root.NumField() {
		section := jsonName(root.Type().Field(i))
		sv := root.Field(i)
		for j := range sv.NumField() {
			result[section+"."+jsonName(sv.Type().Field(j))] = sv.Field(j).Interface()
		}
	}
	return result
}

func settingField(sv reflect.Value, section, setting string) (reflect.Value, error) {
	if strings.Contains(setting, ".") {
		return reflect.Value{}, fmt.Errorf("%s.%s: settings have no sub-keys", section, setting)
	}
	fv, ok := lookup(sv, setting)
	if !ok {
		return reflect.Value{}, fmt.Errorf("unknown setting %q in section %q", setting, section)
	}
	return fv, nil
}

// lookup finds the struct field of v whose JSON name is name.
func lookup(v reflect.Value, name string) (reflect.Value, bool) {
	if name == "" {
		return reflect.Value{}, false
	}
	t := v.Type()
	for i := range t.NumField() {
		if jsonName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}
