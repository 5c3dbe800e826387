// internal/adapter/registry.go
package adapter

import (
	"fmt"
	"sort"

	"ShowSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// ========== 全局工厂函数注册表（依赖interfaces包） ==========
var factoryRegistry = make(map[string]interfaces.SourceFactory)

// Register 供来源适配器 init 函数调用，注册工厂函数
func Register(name string, factory interfaces.SourceFactory) {
	if factory == nil {
		panic(fmt.Sprintf("来源%s的工厂函数不能为nil", name))
	}
	if _, exists := factoryRegistry[name]; exists {
		logrus.Warnf("来源%s的适配器已注册，将覆盖原有实现", name)
	}
	factoryRegistry[name] = factory
}

// GetFactory 获取指定来源的工厂函数
func GetFactory(name string) (interfaces.SourceFactory, bool) {
	factory, ok := factoryRegistry[name]
	return factory, ok
}

// ListFactories 列出所有已注册的来源（按名称排序）
func ListFactories() []string {
	names := make([]string, 0, len(factoryRegistry))
	for n := range factoryRegistry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
