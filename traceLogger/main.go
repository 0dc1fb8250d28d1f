// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bbnote/gocoresight"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	exitProgram chan bool
	fileHandle  *os.File

	logger *logrus.Logger
)

// Fixed Cortex-M debug component addresses; the trace memory controller is
// vendor specific and passed on the command line.
const (
	itmAddress  = 0xE0000000
	dwtAddress  = 0xE0001000
	tpiuAddress = 0xE0040000
)

func traceDataHandler(data []byte) {
	if len(data) == 0 {
		return
	}

	if fileHandle != nil {
		fileHandle.Write(data)
	} else {
		os.Stdout.Write(data)
	}
}

func setUpSignalHandler() {
	signals := make(chan os.Signal, 1)
	exitProgram = make(chan bool, 1)

	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		exitProgram <- true
	}()

}

func initLogger() {
	formatter := &prefixed.TextFormatter{
		DisableColors:   false,
		TimestampFormat: "15:04:05",
		FullTimestamp:   true,
		ForceFormatting: true,
	}

	logger = logrus.New()

	logger.SetFormatter(formatter)
	logger.SetOutput(os.Stderr)
}

func main() {
	initLogger()
	gocoresight.SetLogger(logger)

	logger.Info("Welcome to the gocoresight ITM trace logger...")

	flagLogLevel := flag.Int("LogLevel", int(logrus.InfoLevel), "Logging verbosity [0 - 7]")
	flagSerial := flag.String("Serial", "", "Serial number of the ST-Link to use")
	flagTmcAddress := flag.Uint64("TMCAddress", 0, "Base address of the trace memory controller")
	flagWatchAddress := flag.Uint64("WatchAddress", 0, "Optional data address to trace via DWT unit 0")

	flag.Parse()

	logger.SetLevel(logrus.Level(*flagLogLevel))

	fileHandle = nil

	if len(flag.Args()) == 1 {
		file, err := os.Create(flag.Args()[0])

		if err != nil {
			logger.Fatal(err)
		}

		fileHandle = file

		defer fileHandle.Close()
	}

	if *flagTmcAddress == 0 {
		logger.Error("a trace memory controller address is required (-TMCAddress)")
		os.Exit(-1)
	}

	err := gocoresight.InitializeUSB()
	if err != nil {
		logger.Panic(err)
	}

	setUpSignalHandler()

	config := gocoresight.NewStLinkConfig(gocoresight.StLinkAllVids, gocoresight.StLinkAllPids, *flagSerial)

	stLink, err := gocoresight.NewStLink(config)

	if err != nil {
		logger.Fatal("error while scanning for st-links on your computer: ", err)
	}

	components := []gocoresight.Component{
		{Kind: gocoresight.PeripheralItm, BaseAddress: itmAddress},
		{Kind: gocoresight.PeripheralDwt, BaseAddress: dwtAddress},
		{Kind: gocoresight.PeripheralTpiu, BaseAddress: tpiuAddress},
		{Kind: gocoresight.PeripheralTmc, BaseAddress: uint32(*flagTmcAddress)},
	}

	controller := gocoresight.NewTraceController(stLink, components)

	sink := gocoresight.TraceSink{Type: gocoresight.SinkTraceMemory}

	if err := controller.ConfigureSink(sink); err != nil {
		logger.Error("error during trace sink configuration: ", err)

		stLink.Close()
		gocoresight.CloseUSB()

		os.Exit(-1)
	}

	if *flagWatchAddress != 0 {
		if err := controller.AddDataTrace(0, uint32(*flagWatchAddress)); err != nil {
			logger.Error("could not enable data trace: ", err)
		}
	}

	if err := controller.EnableTracing(); err != nil {
		logger.Fatal("could not enable tracing: ", err)
	}

	exitLoop := false

	for exitLoop == false {
		data, err := controller.ReadTraceMemory()

		if err != nil {
			logger.Error(err)
		}

		traceDataHandler(data)

		select {
		case <-exitProgram:
			exitLoop = true
		default:

		}

		time.Sleep(50 * time.Millisecond)
	}

	if err := controller.DisableTracing(); err != nil {
		logger.Error(err)
	}

	stLink.Close()
	gocoresight.CloseUSB()

	os.Exit(0)
}
