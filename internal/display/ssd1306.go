package display

import (
	"fmt"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// Device is a panel the Console can draw on and release.
type Device interface {
	display.Drawer
	io.Closer
}

// OLED is an SSD1306 panel on its own I2C bus.
type OLED struct {
	*ssd1306.Dev
	bus i2c.BusCloser
}

// OpenOLED initializes the SSD1306 on busName ("" selects the first bus).
func OpenOLED(busName string, logger *zap.SugaredLogger) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to initialize display: %w", err), bus.Close())
	}
	logger.Infof("display initialized (%v)", dev.Bounds())
	return &OLED{Dev: dev, bus: bus}, nil
}

// Close blanks the panel and releases the bus.
func (o *OLED) Close() error {
	return multierr.Combine(o.Halt(), o.bus.Close())
}
