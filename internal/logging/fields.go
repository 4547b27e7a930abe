package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供 city/请求 ID/降级标记字段，供天气请求日志复用。
func RequestFields(city, requestID string, stale bool) logrus.Fields {
	return logrus.Fields{
		"city":       city,
		"request_id": requestID,
		"stale":      stale,
	}
}
