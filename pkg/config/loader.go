package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfig 按顺序合并 base.yaml 与 <env>.yaml，然后替换 ${VAR} 占位符。
// 占位符先从 configDir/secrets.env 取值，再回退到进程环境变量，都没有时为空串。
func LoadConfig(env string, configDir string) (map[string]any, error) {
	if configDir == "" {
		configDir = "config"
	}

	merged, err := readYAML(filepath.Join(configDir, "base.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load base.yaml: %w", err)
	}

	if env != "" && env != "base" {
		overlay, err := readYAML(filepath.Join(configDir, env+".yaml"))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to load %s.yaml: %w", env, err)
		default:
			merge(merged, overlay)
		}
	}

	secrets, err := godotenv.Read(filepath.Join(configDir, "secrets.env"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load secrets.env: %w", err)
	}

	lookup := func(key string) string {
		if v, ok := secrets[key]; ok {
			return v
		}
		return os.Getenv(key)
	}
	return expand(merged, lookup).(map[string]any), nil
}

// Decode 将合并后的 map 转换为目标结构
func Decode(cfgMap map[string]any, out any) error {
	data, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func readYAML(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// merge 把 src 递归覆盖到 dst 上
func merge(dst, src map[string]any) {
	for k, v := range src {
		dstMap, dstOK := dst[k].(map[string]any)
		srcMap, srcOK := v.(map[string]any)
		if dstOK && srcOK {
			merge(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
}

// 只替换 ${VAR}，bcrypt 哈希里的 $ 原样保留
var placeholder = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}`)

func expand(v any, lookup func(string) string) any {
	switch val := v.(type) {
	case string:
		return placeholder.ReplaceAllStringFunc(val, func(m string) string {
			return lookup(m[2 : len(m)-1])
		})
	case map[string]any:
		for k, item := range val {
			val[k] = expand(item, lookup)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = expand(item, lookup)
		}
		return val
	default:
		return v
	}
}

// GetEnv 获取环境变量，如果未设置则返回默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetConfigEnv 获取配置环境（从环境变量 CONFIG_ENV，默认为 local）
func GetConfigEnv() string {
	return GetEnv("CONFIG_ENV", "local")
}
