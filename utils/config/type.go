package config

// ControlStep 指定epoch推进节奏的配置项
type ControlStep struct {
	Interval float64 `yaml:"interval"`          // 每个epoch对应的模拟时间间隔（秒）
	Total    int32   `yaml:"total,omitempty"`   // 演示运行的总epoch数，0表示不限制
	Timeout  float64 `yaml:"timeout,omitempty"` // 阶段间有界等待超时（秒），0使用默认值
}

// Control 交通管理器控制配置
type Control struct {
	Step        ControlStep `yaml:"step"`
	Synchronous bool        `yaml:"synchronous,omitempty"` // 是否以同步模式启动
}

// PID 四组PID系数向量，顺序为[kp, ki, kd]
// 说明：构造后不可变，按车速阈值在城市/高速两组间选择
type PID struct {
	Longitudinal        []float64 `yaml:"longitudinal,omitempty"`         // 纵向（城市）
	LongitudinalHighway []float64 `yaml:"longitudinal_highway,omitempty"` // 纵向（高速）
	Lateral             []float64 `yaml:"lateral,omitempty"`              // 横向（城市）
	LateralHighway      []float64 `yaml:"lateral_highway,omitempty"`      // 横向（高速）
	HighwaySpeed        float64   `yaml:"highway_speed,omitempty"`        // 城市/高速切换车速阈值（米/秒）
}

// Behavior 全局行为默认值，单车未覆盖时生效
type Behavior struct {
	SpeedDifference   float64 `yaml:"speed_difference,omitempty"`    // 相对限速的速度差百分比
	DistanceToLeading float64 `yaml:"distance_to_leading,omitempty"` // 期望跟车距离（米）
}

// Horizon 航点视野配置
type Horizon struct {
	MinDistance float64 `yaml:"min_distance,omitempty"` // 视野的最小前向距离（米）
	TimeFactor  float64 `yaml:"time_factor,omitempty"`  // 视野随车速扩展的时间系数（秒）
	Deviation   float64 `yaml:"deviation,omitempty"`    // 偏离重规划阈值（米）
	Resolution  float64 `yaml:"resolution,omitempty"`   // 路网航点采样间隔（米）
}

// Collision 碰撞检测配置
type Collision struct {
	SafetyRadius float64 `yaml:"safety_radius,omitempty"` // 视野重叠判定的安全半径（米）
}

// Config YAML配置文件的根结构
type Config struct {
	Control   Control   `yaml:"control"`
	PID       PID       `yaml:"pid,omitempty"`
	Behavior  Behavior  `yaml:"behavior,omitempty"`
	Horizon   Horizon   `yaml:"horizon,omitempty"`
	Collision Collision `yaml:"collision,omitempty"`
}
