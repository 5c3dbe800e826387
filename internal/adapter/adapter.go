package adapter

import (
	"fmt"

	"ShowSync/internal/config"
	"ShowSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// NewSource 按 source.name 从工厂注册表创建来源适配器
func NewSource(cfg *config.SourceConfig, cache interfaces.DocumentCache, logger *logrus.Logger) (interfaces.ShowSource, error) {
	factory, ok := GetFactory(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("未支持的来源: %s（已注册：%v）", cfg.Name, ListFactories())
	}
	src, err := factory(cfg, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化来源%s失败: %w", cfg.Name, err)
	}
	if src.GetName() != cfg.Name {
		logger.WithFields(logrus.Fields{
			"config_source":  cfg.Name,
			"adapter_source": src.GetName(),
		}).Warn("适配器名称与配置不一致")
	}
	logger.WithField("source", cfg.Name).Info("来源适配器初始化成功")
	return src, nil
}
