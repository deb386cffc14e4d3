package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/k0rventen/avea/protocol"
)

var (
	flagDuration time.Duration
	flagFPS      int

	cmdScan = &cobra.Command{
		Use:    `scan`,
		Short:  `scan for nearby Avea bulbs`,
		PreRun: setupClient,
		Run:    scan,
	}

	cmdBrightness = &cobra.Command{
		Use:    `brightness [level]`,
		Short:  `get or set the bulb brightness (0-4095)`,
		PreRun: setupClient,
		Run:    brightness,
	}

	cmdColor = &cobra.Command{
		Use:    `color [white red green blue]`,
		Short:  `get or set the bulb color channels (0-4095 each)`,
		PreRun: setupClient,
		Run:    color,
	}

	cmdRGB = &cobra.Command{
		Use:    `rgb [red green blue]`,
		Short:  `get or set the bulb color as 8-bit RGB`,
		PreRun: setupClient,
		Run:    rgb,
	}

	cmdName = &cobra.Command{
		Use:    `name [new-name]`,
		Short:  `get or set the bulb name`,
		PreRun: setupClient,
		Run:    name,
	}

	cmdTransition = &cobra.Command{
		Use:    `transition <red> <green> <blue>`,
		Short:  `smoothly transition to an 8-bit RGB color`,
		PreRun: setupClient,
		Run:    transition,
	}

	cmdFirmware = &cobra.Command{
		Use:    `fw`,
		Short:  `print the bulb firmware version`,
		PreRun: setupClient,
		Run:    firmware,
	}
)

func init() {
	cmdTransition.Flags().DurationVarP(&flagDuration, `duration`, `d`, 4*time.Second, `transition duration`)
	cmdTransition.Flags().IntVarP(&flagFPS, `fps`, `f`, 5, `color updates per second, capped at 5`)
}

func scan(c *cobra.Command, args []string) {
	bulbs, err := client.Discover(flagTimeout)
	if err != nil {
		logger.WithField(`error`, err).Fatalln(`Scan failed`)
	}
	if len(bulbs) == 0 {
		logger.Infoln(`No bulbs found`)
		return
	}
	for _, bulb := range bulbs {
		fmt.Printf("%s\t%s\n", bulb.Address(), bulb.AdvertisedName())
	}
}

func brightness(c *cobra.Command, args []string) {
	bulb := selectBulb()
	if len(args) == 0 {
		fmt.Println(bulb.GetBrightness())
		return
	}
	if !bulb.SetBrightness(int(protocol.ParseValue(args[0]))) {
		logger.Fatalln(`Failed setting brightness`)
	}
}

func color(c *cobra.Command, args []string) {
	bulb := selectBulb()
	if len(args) == 0 {
		w, r, g, b := bulb.GetColor()
		fmt.Printf("white=%d red=%d green=%d blue=%d\n", w, r, g, b)
		return
	}
	if len(args) != 4 {
		_ = c.Usage()
		logger.Fatalln(`Expected four channel values`)
	}
	ok := bulb.SetColor(
		int(protocol.ParseValue(args[0])),
		int(protocol.ParseValue(args[1])),
		int(protocol.ParseValue(args[2])),
		int(protocol.ParseValue(args[3])),
	)
	if !ok {
		logger.Fatalln(`Failed setting color`)
	}
}

func rgb(c *cobra.Command, args []string) {
	bulb := selectBulb()
	if len(args) == 0 {
		r, g, b := bulb.GetRGB()
		fmt.Printf("red=%d green=%d blue=%d\n", r, g, b)
		return
	}
	if len(args) != 3 {
		_ = c.Usage()
		logger.Fatalln(`Expected three channel values`)
	}
	ok := bulb.SetRGB(
		int(protocol.ParseValue(args[0])),
		int(protocol.ParseValue(args[1])),
		int(protocol.ParseValue(args[2])),
	)
	if !ok {
		logger.Fatalln(`Failed setting color`)
	}
}

func name(c *cobra.Command, args []string) {
	bulb := selectBulb()
	if len(args) == 0 {
		fmt.Println(bulb.GetName())
		return
	}
	if !bulb.SetName(args[0]) {
		logger.Fatalln(`Failed setting name`)
	}
}

func transition(c *cobra.Command, args []string) {
	if len(args) != 3 {
		_ = c.Usage()
		logger.Fatalln(`Expected three channel values`)
	}
	bulb := selectBulb()
	ok := bulb.SetSmoothTransition(
		int(protocol.ParseValue(args[0])),
		int(protocol.ParseValue(args[1])),
		int(protocol.ParseValue(args[2])),
		flagDuration,
		flagFPS,
	)
	if !ok {
		logger.Fatalln(`Transition failed`)
	}
}

func firmware(c *cobra.Command, args []string) {
	bulb := selectBulb()
	version := bulb.GetFirmwareVersion()
	if version == `` {
		logger.Fatalln(`Could not read firmware version`)
	}
	fmt.Println(version)
}
