package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ErrUnsupportedFormat 配置文件扩展名不受支持
var ErrUnsupportedFormat = errors.New("unsupported config format")

var fileFormats = map[string]string{
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".toml": "toml",
}

// FileSource 文件配置数据源，格式由扩展名决定
type FileSource struct {
	path     string
	priority int
	required bool
}

// NewFileSource 创建可选文件数据源，文件不存在时视为空配置
func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{path: path, priority: priority}
}

// NewRequiredFileSource 文件不存在时 Load 返回错误
func NewRequiredFileSource(path string, priority int) *FileSource {
	return &FileSource{path: path, priority: priority, required: true}
}

// Name 数据源名称
func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Priority 优先级
func (s *FileSource) Priority() int {
	return s.priority
}

// Load 读取文件并展平为点分 key
func (s *FileSource) Load() (map[string]interface{}, error) {
	format, ok := fileFormats[strings.ToLower(filepath.Ext(s.path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.path)
	}

	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !s.required {
			return make(map[string]interface{}), nil
		}
		return nil, fmt.Errorf("stat config file %s: %w", s.path, err)
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType(format)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", s.path, err)
	}

	flat := make(map[string]interface{})
	flattenInto(flat, "", v.AllSettings())
	return flat, nil
}

// flattenInto {"signal": {"name": "tick"}} -> {"signal.name": "tick"}
func flattenInto(dst map[string]interface{}, prefix string, data map[string]interface{}) {
	for key, value := range data {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			flattenInto(dst, key, nested)
			continue
		}
		dst[key] = value
	}
}
