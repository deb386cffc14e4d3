// Command avea allows performing basic operations on Avea bulbs over BLE
package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/k0rventen/avea"
	"github.com/k0rventen/avea/device"
	"github.com/k0rventen/avea/transport/bluez"
)

var (
	client *avea.Client

	flagTimeout  time.Duration
	flagLogLevel string
	flagAddress  string

	logger = logrus.New()
	app    = &cobra.Command{
		Use: `avea`,
		PersistentPreRun: func(c *cobra.Command, args []string) {
			setLogger()
		},
	}
)

func init() {
	avea.SetLogger(logger)

	app.PersistentFlags().DurationVarP(&flagTimeout, `timeout`, `t`, avea.DefaultScanTimeout, `timeout for scan and discovery lookups`)
	app.PersistentFlags().StringVarP(&flagLogLevel, `log-level`, `L`, `info`, `log level, one of: [debug,info,warn,error]`)
	app.PersistentFlags().StringVarP(&flagAddress, `address`, `a`, ``, `bulb address, the first discovered bulb is used when empty`)

	app.AddCommand(cmdScan)
	app.AddCommand(cmdBrightness)
	app.AddCommand(cmdColor)
	app.AddCommand(cmdRGB)
	app.AddCommand(cmdName)
	app.AddCommand(cmdTransition)
	app.AddCommand(cmdFirmware)
}

func main() {
	_ = app.Execute()
}

func setupClient(c *cobra.Command, args []string) {
	t, err := bluez.New()
	if err != nil {
		logger.WithField(`error`, err).Fatalln(`Failed initializing BlueZ transport`)
	}
	client = avea.NewClient(t)
}

// selectBulb resolves the target bulb from the address flag, falling back to
// a discovery scan when no address was supplied
func selectBulb() *device.Bulb {
	if flagAddress != `` {
		return client.NewBulb(flagAddress)
	}

	bulbs, err := client.Discover(flagTimeout)
	if err != nil {
		logger.WithField(`error`, err).Fatalln(`Discovery failed`)
	}
	if len(bulbs) == 0 {
		logger.Fatalln(`No bulb found`)
	}
	return bulbs[0]
}

func setLogger() {
	switch flagLogLevel {
	case `debug`:
		logger.Level = logrus.DebugLevel
	case `info`:
		logger.Level = logrus.InfoLevel
	case `warn`:
		logger.Level = logrus.WarnLevel
	case `error`:
		logger.Level = logrus.ErrorLevel
	default:
		logger.Level = logrus.InfoLevel
	}
}
