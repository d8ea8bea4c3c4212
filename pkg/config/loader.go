package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/n8n-cli/n8nctl/engine/core"
	"github.com/n8n-cli/n8nctl/pkg/logger"
)

// envToPath maps recognized environment variables to config keys. Anything
// else in the environment is ignored.
var envToPath = map[string]string{
	"N8N_HOST":                   "host",
	"N8N_API_KEY":                "apiKey",
	"N8N_TIMEOUT_MS":             "timeout",
	"N8N_CLI_DB_PATH":            "dbPath",
	"N8N_INSECURE_HTTPS":         "insecureHttps",
	"N8N_CLI_CLEANUP_TIMEOUT_MS": "cleanupTimeoutMs",
	"N8N_CLI_STRICT_PERMISSIONS": "strictPermissions",
}

// groupWorldBits are the permission bits a private config file must not carry.
const groupWorldBits = 0o077

// Loader resolves configuration from defaults, an optional JSON file, and
// the environment.
type Loader struct {
	koanf    *koanf.Koanf
	validate *validator.Validate
}

func NewLoader() *Loader {
	return &Loader{
		koanf:    koanf.New("."),
		validate: validator.New(),
	}
}

// Load resolves the configuration. filePath selects the config file; empty
// means the default location, and a missing file is not an error. An
// explicitly named file that does not exist is.
func (l *Loader) Load(ctx context.Context, filePath string) (*Config, error) {
	if err := l.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, core.NewKindError(core.KindConfigInvalid, err, "CONFIG_DEFAULTS_FAILED",
			"could not load built-in defaults", nil)
	}
	if err := l.loadFile(ctx, filePath); err != nil {
		return nil, err
	}
	if err := l.loadEnv(); err != nil {
		return nil, err
	}
	return l.unmarshalAndValidate()
}

func (l *Loader) loadFile(ctx context.Context, filePath string) error {
	explicit := filePath != ""
	if !explicit {
		filePath = DefaultFilePath()
		if filePath == "" {
			return nil
		}
	}
	info, err := os.Stat(filePath)
	if errors.Is(err, os.ErrNotExist) {
		if explicit {
			return core.NewKindError(core.KindConfigInvalid, err, "CONFIG_FILE_NOT_FOUND",
				fmt.Sprintf("config file %s does not exist", filePath), nil)
		}
		return nil
	}
	if err != nil {
		return core.NewKindError(core.KindConfigInvalid, err, "CONFIG_FILE_UNREADABLE",
			fmt.Sprintf("config file %s could not be read", filePath), nil)
	}
	if err := l.checkPermissions(ctx, filePath, info.Mode().Perm()); err != nil {
		return err
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return core.NewKindError(core.KindConfigInvalid, err, "CONFIG_FILE_UNREADABLE",
			fmt.Sprintf("config file %s could not be read", filePath), nil)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return core.NewKindError(core.KindConfigInvalid, err, "CONFIG_FILE_INVALID",
			fmt.Sprintf("config file %s is not valid JSON", filePath), nil)
	}
	if err := l.koanf.Load(rawMap(data), nil); err != nil {
		return core.NewKindError(core.KindConfigInvalid, err, "CONFIG_FILE_INVALID",
			fmt.Sprintf("config file %s could not be applied", filePath), nil)
	}
	return nil
}

// checkPermissions enforces the private-file policy. Strict mode comes
// from the environment because it must act before the file is trusted.
func (l *Loader) checkPermissions(ctx context.Context, path string, perm os.FileMode) error {
	if perm&groupWorldBits == 0 {
		return nil
	}
	if envBool("N8N_CLI_STRICT_PERMISSIONS") {
		return core.NewKindError(core.KindPermissionDenied, nil, "CONFIG_FILE_PERMISSIVE",
			fmt.Sprintf("config file %s is readable by other users (mode %o); chmod 600 it or unset N8N_CLI_STRICT_PERMISSIONS", path, perm),
			map[string]any{"path": path, "mode": fmt.Sprintf("%o", perm)})
	}
	logger.FromContext(ctx).Warn("config file is readable by other users",
		"path", path, "mode", fmt.Sprintf("%o", perm))
	return nil
}

func (l *Loader) loadEnv() error {
	err := l.koanf.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			if path, ok := envToPath[key]; ok && value != "" {
				return path, value
			}
			return "", nil
		},
	}), nil)
	if err != nil {
		return core.NewKindError(core.KindConfigInvalid, err, "CONFIG_ENV_FAILED",
			"could not load environment overrides", nil)
	}
	return nil
}

func (l *Loader) unmarshalAndValidate() (*Config, error) {
	cfg := &Config{}
	err := l.koanf.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				millisecondsDecodeHook,
				sensitiveStringDecodeHook,
			),
		},
	})
	if err != nil {
		return nil, core.NewKindError(core.KindConfigInvalid, err, "CONFIG_DECODE_FAILED",
			"configuration could not be decoded", nil)
	}
	if err := l.validate.Struct(cfg); err != nil {
		return nil, core.NewKindError(core.KindConfigInvalid, err, "CONFIG_INVALID",
			describeValidationError(err), nil)
	}
	return cfg, nil
}

// millisecondsDecodeHook turns bare numbers (the file and env carry
// timeouts in milliseconds) and duration strings into time.Duration.
func millisecondsDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v) * time.Millisecond, nil
	case string:
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
		return time.ParseDuration(v)
	default:
		return data, nil
	}
}

func sensitiveStringDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(SensitiveString("")) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SensitiveString(v), nil
	case []byte:
		return SensitiveString(v), nil
	default:
		return data, nil
	}
}

func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "configuration is invalid"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "invalid configuration: " + strings.Join(fields, ", ")
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// rawMap adapts a decoded JSON object to koanf's provider interface.
type rawMap map[string]any

func (m rawMap) Read() (map[string]any, error) { return m, nil }

func (m rawMap) ReadBytes() ([]byte, error) {
	return nil, errors.New("rawMap provider does not support ReadBytes")
}
