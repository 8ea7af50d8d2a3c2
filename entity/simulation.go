package entity

// 外部模拟边界的依赖倒置。
// 交通管理器只通过这些接口与物理/渲染模拟交互，
// 不关心对端是进程内对象还是RPC客户端。

// IActorQuery 车辆状态查询接口
type IActorQuery interface {
	// 查询车辆的瞬时状态，车辆不存在或查询超时则返回error
	ActorState(id ActorID) (ActorState, error)
}

// ILight 信号灯句柄
// 功能：单个信号灯的状态读写接口，由外部模拟持有所有权
type ILight interface {
	ID() int32            // 信号灯ID
	GroupID() int32       // 所属信号灯组（同一路口的灯共享组ID）
	State() LightState    // 当前状态
	SetState(LightState)  // 设置状态
	Freeze(freeze bool)   // 冻结/解冻状态机
	IsFrozen() bool       // 是否已冻结
}

// ILightQuery 信号灯查询接口
type ILightQuery interface {
	// 输入信号灯ID，查找信号灯，如果不存在则返回error
	Light(id int32) (ILight, error)
	// 获取所有信号灯
	Lights() []ILight
}

// IBatchApplier 批量控制下发接口
type IBatchApplier interface {
	// 将一个epoch内所有车辆的控制指令一次性下发到外部模拟
	ApplyBatch(commands map[ActorID]ControlCommand) error
}

// INetworkProvider 路网描述提供接口
type INetworkProvider interface {
	// 获取外部模拟的全量车道描述，仅在启动前调用一次
	NetworkDescription() []*LaneDescription
}

// ISimulation 外部模拟边界
// 功能：聚合交通管理器所需的全部外部协作能力
type ISimulation interface {
	IActorQuery
	ILightQuery
	IBatchApplier
	INetworkProvider
}
