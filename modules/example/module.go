package example

import (
	"fmt"
	"time"

	"github.com/tr4cks/firmod/modules"
)

// Reserved for fault handling. Nothing reads these yet.
const (
	MaxRetries     = 3
	DefaultTimeout = 100 * time.Millisecond
)

type Data struct {
	ExampleValue uint16  `json:"example-value" mapstructure:"example-value"`
	ExampleRate  float32 `json:"example-rate" mapstructure:"example-rate"`
	IsEnabled    bool    `json:"is-enabled" mapstructure:"is-enabled"`
}

// UpdateHandler receives a copy of the current parameters when OnUpdate fires.
// It must not block.
type UpdateHandler func(data Data)

// ExampleModule holds a single parameter snapshot. It is not safe for
// concurrent use; callers are expected to serialize access.
type ExampleModule struct {
	modules.DefaultModule
	status  modules.Status
	data    Data
	handler UpdateHandler
}

func New() modules.Module {
	return &ExampleModule{}
}

func (m *ExampleModule) Init() error {
	m.reset()
	return nil
}

func (m *ExampleModule) reset() {
	m.status = modules.StatusIdle
	m.data = Data{}
}

// SetParameters replaces the held parameters wholesale and marks the module
// active. A nil input leaves the module untouched.
func (m *ExampleModule) SetParameters(data *Data) error {
	if data == nil {
		return fmt.Errorf("error setting %q module parameters: %w", "example", modules.ErrInvalidArgument)
	}
	m.data = *data
	m.status = modules.StatusActive
	return nil
}

// Configure decodes the parameters from config and sets them. Inputs that do
// not fit Data are rejected with ErrInvalidArgument and leave the module untouched.
func (m *ExampleModule) Configure(config map[string]interface{}) error {
	if config == nil {
		return fmt.Errorf("error configuring %q module: %w", "example", modules.ErrInvalidArgument)
	}
	var data Data
	err := modules.Validate(config, &data)
	if err != nil {
		return fmt.Errorf("error validating %q module configuration: %w: %w", "example", modules.ErrInvalidArgument, err)
	}
	return m.SetParameters(&data)
}

func (m *ExampleModule) Status() modules.Status {
	return m.status
}

func (m *ExampleModule) Data() Data {
	return m.data
}

func (m *ExampleModule) Parameters() interface{} {
	return m.data
}

// HandleUpdate installs the handler run by OnUpdate. Passing nil restores
// the no-op default.
func (m *ExampleModule) HandleUpdate(handler UpdateHandler) {
	m.handler = handler
}

func (m *ExampleModule) OnUpdate() {
	if m.handler == nil {
		return
	}
	m.handler(m.data)
}
