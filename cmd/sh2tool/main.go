// Command sh2tool opens a sensor hub over serial, I2C, or an in-memory
// loopback and drives a handful of sh2 facade operations from the
// command line, mirroring the teacher's cmd/ublk-mem: flag-parsed
// bring-up, structured logging, and (for -cmd=watch) a service loop
// driven until Ctrl+C or the -duration elapses.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hillcrestlabs/sh2go/hal/i2c"
	"github.com/hillcrestlabs/sh2go/hal/loopback"
	"github.com/hillcrestlabs/sh2go/hal/serial"
	"github.com/hillcrestlabs/sh2go/internal/constants"
	"github.com/hillcrestlabs/sh2go/internal/hal"
	"github.com/hillcrestlabs/sh2go/internal/logging"
	"github.com/hillcrestlabs/sh2go/sh2"
)

func main() {
	var (
		transport = flag.String("transport", "loopback", "transport to use: loopback, serial, i2c")
		device    = flag.String("device", "/dev/ttyUSB0", "serial device path or i2c bus path")
		baud      = flag.Uint("baud", 115200, "serial baud rate")
		addrStr   = flag.String("addr", "0x4a", "i2c slave address (hex)")
		cmd       = flag.String("cmd", "prodids", "operation: prodids, config, tare, errors, counts, watch")
		sensor    = flag.Uint("sensor", uint(sh2.SensorRotationVector), "sensor ID for config/counts")
		verbose   = flag.Bool("v", false, "verbose logging")
		watchSecs = flag.Duration("duration", 5*time.Second, "how long to watch for in -cmd=watch")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	h, err := openTransport(*transport, *device, uint32(*baud), *addrStr)
	if err != nil {
		logger.Error("failed to build transport", "error", err)
		os.Exit(1)
	}

	if err := h.Open(); err != nil {
		logger.Error("failed to open transport", "transport", *transport, "device", *device, "error", err)
		os.Exit(1)
	}
	defer h.Close()

	session, err := sh2.Open(h, &sh2.Options{
		Logger: logger,
		EventCallback: func(_ any, ev sh2.AsyncEvent) {
			logger.Info("async event", "id", ev.ID)
		},
	})
	if err != nil {
		logger.Error("failed to open session", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	switch *cmd {
	case "prodids":
		runProdIDs(logger, session)
	case "config":
		runConfig(logger, session, sh2.SensorID(*sensor))
	case "tare":
		runTare(logger, session)
	case "errors":
		runErrors(logger, session)
	case "counts":
		runCounts(logger, session, sh2.SensorID(*sensor))
	case "watch":
		runWatch(logger, session, sigCh, *watchSecs)
	default:
		fmt.Fprintf(os.Stderr, "unknown -cmd %q\n", *cmd)
		os.Exit(2)
	}
}

func openTransport(transport, device string, baud uint32, addrStr string) (hal.HAL, error) {
	switch transport {
	case "loopback":
		return loopback.New(), nil
	case "serial":
		return serial.New(device, baud), nil
	case "i2c":
		addr, err := strconv.ParseUint(addrStr, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid -addr %q: %w", addrStr, err)
		}
		return i2c.New(device, uint16(addr)), nil
	default:
		return nil, fmt.Errorf("unknown -transport %q (want loopback, serial, or i2c)", transport)
	}
}

func runProdIDs(logger *logging.Logger, s *sh2.Session) {
	ids, err := s.GetProdIds()
	if err != nil {
		logger.Error("GetProdIds failed", "error", err)
		os.Exit(1)
	}
	for i, id := range ids {
		fmt.Printf("product %d: reset_cause=%d sw=%d.%d.%d part=%d build=%d\n",
			i, id.ResetCause, id.SWVersionMajor, id.SWVersionMinor, id.SWVersionPatch, id.SWPartNumber, id.SWBuildNumber)
	}
}

func runConfig(logger *logging.Logger, s *sh2.Session, sensorID sh2.SensorID) {
	cfg, err := s.GetSensorConfig(sensorID)
	if err != nil {
		logger.Error("GetSensorConfig failed", "sensor", sensorID, "error", err)
		os.Exit(1)
	}
	fmt.Printf("sensor %d: report_interval=%dus batch_interval=%dus wakeup=%v always_on=%v\n",
		sensorID, cfg.ReportInterval, cfg.BatchInterval, cfg.WakeupEnabled, cfg.AlwaysOnEnabled)
}

func runTare(logger *logging.Logger, s *sh2.Session) {
	if err := s.SetTareNow(sh2.TareAxisAll, sh2.TareBasisRotationVector); err != nil {
		logger.Error("SetTareNow failed", "error", err)
		os.Exit(1)
	}
	logger.Info("tare applied")
}

func runErrors(logger *logging.Logger, s *sh2.Session) {
	recs, err := s.GetErrors(0)
	if err != nil {
		logger.Error("GetErrors failed", "error", err)
		os.Exit(1)
	}
	for _, r := range recs {
		fmt.Printf("severity=%d seq=%d source=%d error=%d module=%d code=%d\n",
			r.Severity, r.Sequence, r.Source, r.Error, r.Module, r.Code)
	}
}

func runCounts(logger *logging.Logger, s *sh2.Session, sensorID sh2.SensorID) {
	c, err := s.GetCounts(sensorID)
	if err != nil {
		logger.Error("GetCounts failed", "sensor", sensorID, "error", err)
		os.Exit(1)
	}
	fmt.Printf("sensor %d: offered=%d accepted=%d on=%d attempted=%d\n",
		sensorID, c.Offered, c.Accepted, c.On, c.Attempted)
}

func runWatch(logger *logging.Logger, s *sh2.Session, sigCh chan os.Signal, duration time.Duration) {
	var reports int
	s.SetSensorCallback(func(_ any, ev sh2.SensorEvent) {
		reports++
		logger.Debug("sensor report", "bytes", len(ev.Report), "timestamp_us", ev.TimestampUS)
	}, nil)

	deadline := time.After(duration)
	ticker := time.NewTicker(constants.ServicePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			printMetrics(s)
			return
		case <-deadline:
			logger.Info("watch duration elapsed", "reports", reports)
			printMetrics(s)
			return
		case <-ticker.C:
			if err := s.Service(); err != nil {
				logger.Error("service error", "error", err)
				return
			}
		}
	}
}

func printMetrics(s *sh2.Session) {
	m := s.Metrics()
	fmt.Printf("tx: sent=%d discards=%d too_large=%d bad_chan=%d\n",
		m.TxPayloadsSent.Load(), m.TxDiscards.Load(), m.TxTooLargePayloads.Load(), m.BadTxChan.Load())
	fmt.Printf("rx: delivered=%d short=%d interrupted=%d too_large=%d bad_chan=%d bad_seq=%d\n",
		m.RxPayloadsDelivered.Load(), m.RxShortFragments.Load(), m.RxInterruptedPayloads.Load(),
		m.RxTooLargePayloads.Load(), m.RxBadChan.Load(), m.RxBadSeq.Load())
}
