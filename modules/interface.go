package modules

type Module interface {
	Init() error
	Configure(config map[string]interface{}) error
	Status() Status
	Parameters() interface{}
	OnUpdate()
}

type DefaultModule struct{}

func (*DefaultModule) Init() error {
	return nil
}

func (*DefaultModule) Configure(config map[string]interface{}) error {
	return nil
}

func (*DefaultModule) Status() Status {
	return StatusIdle
}

func (*DefaultModule) Parameters() interface{} {
	return nil
}

func (*DefaultModule) OnUpdate() {}
