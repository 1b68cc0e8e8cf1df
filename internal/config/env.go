package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// EnvPrefix starts every environment variable name. The rest is the
// upper-cased yaml path joined by underscores, e.g. AZDOAUTH_PROVIDER_CLIENTID.
const EnvPrefix = "AZDOAUTH"

// LoadEnv overlays environment variables onto cfg
func LoadEnv(cfg *Config) error {
	return loadEnvStruct(reflect.ValueOf(cfg).Elem(), EnvPrefix)
}

// envKey derives the variable name for a struct field, or "" when the
// field has no yaml name.
func envKey(prefix string, field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "" || tag == "-" {
		return ""
	}
	name := strings.Split(tag, ",")[0]
	return prefix + "_" + strings.ToUpper(name)
}

func loadEnvStruct(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		key := envKey(prefix, t.Field(i))
		if key == "" {
			continue
		}

		switch field.Kind() {
		case reflect.Struct:
			if err := loadEnvStruct(field, key); err != nil {
				return err
			}

		case reflect.Ptr:
			if field.Type().Elem().Kind() != reflect.Struct {
				continue
			}
			if field.IsNil() {
				if !hasEnvVarsWithPrefix(key) {
					continue
				}
				field.Set(reflect.New(field.Type().Elem()))
			}
			if err := loadEnvStruct(field.Elem(), key); err != nil {
				return err
			}

		case reflect.Map:
			// maps are file-only
			continue

		default:
			val, ok := os.LookupEnv(key)
			if !ok || val == "" {
				continue
			}
			if err := setField(field, key, val); err != nil {
				return err
			}
		}
	}

	return nil
}

func setField(field reflect.Value, key, val string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(val)

	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int value for %s: %w", key, err)
		}
		field.SetInt(n)

	case reflect.Float64:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float value for %s: %w", key, err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool value for %s: %w", key, err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(val, ",")
		slice := reflect.MakeSlice(field.Type(), 0, len(parts))
		for _, part := range parts {
			if part = strings.TrimSpace(part); part != "" {
				slice = reflect.Append(slice, reflect.ValueOf(part))
			}
		}
		field.Set(slice)
	}
	return nil
}

func hasEnvVarsWithPrefix(prefix string) bool {
	prefix = prefix + "_"
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, prefix) {
			return true
		}
	}
	return false
}

// EnvExample lists every supported variable with a placeholder value
func EnvExample(cfg *Config) []string {
	var examples []string
	generateEnvExamples(reflect.TypeOf(cfg).Elem(), EnvPrefix, &examples)
	return examples
}

func generateEnvExamples(t reflect.Type, prefix string, examples *[]string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := envKey(prefix, field)
		if key == "" {
			continue
		}

		switch field.Type.Kind() {
		case reflect.String:
			*examples = append(*examples, key+"=value")
		case reflect.Int, reflect.Int64:
			*examples = append(*examples, key+"=123")
		case reflect.Float64:
			*examples = append(*examples, key+"=1.5")
		case reflect.Bool:
			*examples = append(*examples, key+"=true")
		case reflect.Slice:
			if field.Type.Elem().Kind() == reflect.String {
				*examples = append(*examples, key+"=value1,value2")
			}
		case reflect.Struct:
			generateEnvExamples(field.Type, key, examples)
		case reflect.Ptr:
			if field.Type.Elem().Kind() == reflect.Struct {
				generateEnvExamples(field.Type.Elem(), key, examples)
			}
		}
	}
}
