package entity

// trafficmanager/manager.go的依赖倒置
// 能力接口：注册/注销、参数设置、生命周期与同步tick。
// 当前只有一个流水线实现，未来的替代流水线实现同一接口。
type ITrafficManager interface {
	// 生命周期

	Start() error // 启动流水线，Running状态下再次调用返回error
	Stop()        // 排空在途epoch并停止所有阶段，可从任意状态调用

	// 注册管理

	RegisterVehicles(ids []ActorID)     // 注册车辆（幂等）
	UnregisterVehicles(ids []ActorID)   // 注销车辆（幂等）
	GetRegisteredVehiclesIDs() []ActorID // 当前注册车辆ID快照

	// 行为参数

	SetPercentageSpeedDifference(id ActorID, pct float64) error // 设置单车相对限速的速度差百分比
	SetGlobalPercentageSpeedDifference(pct float64) error       // 设置全局速度差百分比
	SetCollisionDetection(a, b ActorID, enabled bool)           // 设置车辆对之间的碰撞检测开关（对称）
	SetForceLaneChange(id ActorID, direction LaneChangeDirection) // 强制变道（一次性，绕过安全检查）
	SetAutoLaneChange(id ActorID, enabled bool)                 // 自动变道开关
	SetDistanceToLeadingVehicle(id ActorID, distance float64) error // 设置期望跟车距离
	SetPercentageIgnoreActors(id ActorID, pct float64) error    // 设置忽略其他车辆的概率
	SetPercentageRunningLight(id ActorID, pct float64) error    // 设置闯红灯概率

	// 信控与执行模式

	ResetAllTrafficLights() bool   // 重置所有信号灯，阻塞直到冻结确认或超时（软失败）
	SetSynchronousMode(enabled bool) // 设置同步执行模式，必须在依赖SynchronousTick前设置
	SynchronousTick() bool         // 同步模式下推进一个完整epoch，完成前阻塞；管理器停止则返回false
}
