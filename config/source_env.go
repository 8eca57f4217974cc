package config

import (
	"os"
	"strings"
)

// envLevelSep 分隔配置层级；单下划线属于 key 本身（continue_on_unsubscribe）
const envLevelSep = "__"

// EnvSource 环境变量数据源
//
// 变量名规则：<PREFIX>_<SECTION>__<KEY>，例如
// SIGNAL_SIGNAL__CONTINUE_ON_UNSUBSCRIBE=false -> signal.continue_on_unsubscribe
type EnvSource struct {
	prefix   string
	priority int
	sections map[string]struct{} // 为空时接受所有 section
}

// NewEnvSource 创建环境变量数据源；sections 非空时只接受这些顶层 section
func NewEnvSource(prefix string, priority int, sections ...string) *EnvSource {
	s := &EnvSource{prefix: prefix, priority: priority}
	if len(sections) > 0 {
		s.sections = make(map[string]struct{}, len(sections))
		for _, section := range sections {
			s.sections[strings.ToLower(section)] = struct{}{}
		}
	}
	return s
}

// EnvKey 返回 key 对应的环境变量名
//
//	EnvKey("SIGNAL", "signal.metrics.record_listeners") == "SIGNAL_SIGNAL__METRICS__RECORD_LISTENERS"
func EnvKey(prefix, key string) string {
	name := strings.ToUpper(strings.ReplaceAll(key, ".", envLevelSep))
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// Name 数据源名称
func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

// Priority 优先级
func (s *EnvSource) Priority() int {
	return s.priority
}

// Load 扫描带前缀的环境变量；没有前缀时不读取任何变量
func (s *EnvSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})
	if s.prefix == "" {
		return result, nil
	}

	prefix := s.prefix + "_"
	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}

		key, ok := s.configKey(strings.TrimPrefix(name, prefix))
		if ok {
			result[key] = value
		}
	}

	return result, nil
}

// configKey SIGNAL__METRICS__ENABLED -> signal.metrics.enabled
func (s *EnvSource) configKey(name string) (string, bool) {
	parts := strings.Split(strings.ToLower(name), envLevelSep)
	for _, part := range parts {
		if part == "" {
			return "", false
		}
	}

	if s.sections != nil {
		if _, ok := s.sections[parts[0]]; !ok {
			return "", false
		}
	}
	return strings.Join(parts, "."), true
}
