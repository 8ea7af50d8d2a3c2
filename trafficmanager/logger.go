package trafficmanager

import "github.com/sirupsen/logrus"

// log 交通管理器模块的日志记录器
var log = logrus.WithField("module", "trafficmanager")
