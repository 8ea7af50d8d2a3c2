package main

import (
	"encoding/base64"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"git.fiblab.net/general/common/v2/geometry"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/tsinghua-fib-lab/trafficmanager-oss/entity"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/local"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/trafficmanager"
	"github.com/tsinghua-fib-lab/trafficmanager-oss/utils/config"
)

var (
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")
	// 演示车辆数
	vehicles = flag.Int("vehicles", 8, "number of demo vehicles")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "main")
)

// demoNetwork 演示路网：双车道直路接入一个有信控的路口车道
func demoNetwork() []*entity.LaneDescription {
	return []*entity.LaneDescription{
		{
			ID: 1,
			CenterLine: []geometry.Point{
				{X: 0, Y: 0}, {X: 200, Y: 0},
			},
			MaxV:        13.89,
			RightLaneID: 2,
			Successors:  []int32{3},
		},
		{
			ID: 2,
			CenterLine: []geometry.Point{
				{X: 0, Y: -3.5}, {X: 200, Y: -3.5},
			},
			MaxV:       13.89,
			LeftLaneID: 1,
			Successors: []int32{3},
		},
		{
			ID: 3,
			CenterLine: []geometry.Point{
				{X: 200, Y: 0}, {X: 230, Y: 0},
			},
			MaxV:       8.33,
			InJunction: true,
			LightID:    101,
			Successors: []int32{4},
		},
		{
			ID: 4,
			CenterLine: []geometry.Point{
				{X: 230, Y: 0}, {X: 430, Y: 0},
			},
			MaxV: 13.89,
		},
	}
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置，未指定时使用内置默认值
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
	}
	if err != nil {
		log.Panicf("config load err: %v", err)
	}
	if len(file) > 0 {
		if err := yaml.UnmarshalStrict(file, &c); err != nil {
			log.Panicf("config file load err: %v", err)
		}
	}
	log.Infof("%+v", c)

	// 装配演示世界与交通管理器
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		log.Panicf("config check err: %v", err)
	}
	world := local.NewWorld(rc.Interval, demoNetwork())
	world.AddLight(101, 1, entity.LightStateRed, 100)
	var ids []entity.ActorID
	for i := 0; i < *vehicles; i++ {
		id := entity.ActorID(i + 1)
		y := 0.0
		if i%2 == 1 {
			y = -3.5
		}
		world.AddVehicle(id, geometry.Point{X: float64(i/2) * 20, Y: y}, 0, 13.89)
		ids = append(ids, id)
	}

	tm, err := trafficmanager.New(world, c)
	if err != nil {
		log.Panicf("traffic manager init err: %v", err)
	}
	tm.RegisterVehicles(ids)
	if err := tm.Start(); err != nil {
		log.Panicf("traffic manager start err: %v", err)
	}
	defer tm.Stop()

	if c.Control.Synchronous {
		total := int(c.Control.Step.Total)
		if total <= 0 {
			total = 1000
		}
		for i := 0; i < total; i++ {
			if !tm.SynchronousTick() {
				log.Warnf("tick %d rejected, pipeline stopped", i)
				return
			}
		}
		log.Infof("done: %d synchronous epochs, t=%s", total, tm.Clock())
		return
	}

	// 异步模式：流水线自走，等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Infof("interrupted at epoch %d, t=%s", tm.Clock().Epoch(), tm.Clock())
}
