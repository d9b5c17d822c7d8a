package params

import "time"

type WebDaemonConfig struct {
	ListenerConfig `mapstructure:",squash"`

	// RenderWidth and RenderHeight are the default frame size of /render.png.
	RenderWidth  int `mapstructure:"renderWidth"`
	RenderHeight int `mapstructure:"renderHeight"`

	// SettleTimeout is how long a render request keeps drawing frames
	// while tiles are still loading, before returning what it has.
	SettleTimeout time.Duration `mapstructure:"settleTimeout"`

	// FrameInterval is the pause between frames while settling.
	FrameInterval time.Duration `mapstructure:"frameInterval"`
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:3000",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: DefaultWebListenerConfig(),
		RenderWidth:    800,
		RenderHeight:   600,
		SettleTimeout:  5 * time.Second,
		FrameInterval:  50 * time.Millisecond,
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	d := DefaultWebDaemonConfig()
	d.Address = "localhost:3333"
	d.RenderWidth = 64
	d.RenderHeight = 64
	d.SettleTimeout = 2 * time.Second
	d.FrameInterval = 10 * time.Millisecond
	return d
}
