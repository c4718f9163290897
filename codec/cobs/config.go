package cobs

type Config struct {
	maxFrame int
}

type ConfigFunc = func(c *Config)

// MaxFrame limits the escaped length of a frame, delimiter excluded. Zero means no limit.
func (c *Config) MaxFrame(n int) {
	if n < 0 {
		panic("max frame can't be < 0")
	}
	c.maxFrame = n
}
