package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	runtimeDebug "runtime/debug"
	"syscall"
	"time"

	"github.com/sagernet/sing-edge"
	C "github.com/sagernet/sing-edge/constant"
	"github.com/sagernet/sing-edge/log"
	"github.com/sagernet/sing-edge/option"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/spf13/cobra"
)

var commandRun = &cobra.Command{
	Use:   "run",
	Short: "Run service",
	Run: func(cmd *cobra.Command, args []string) {
		err := run()
		if err != nil {
			log.Fatal(err)
		}
	},
	Args: cobra.NoArgs,
}

func init() {
	mainCommand.AddCommand(commandRun)
}

func readConfigAt(path string) (option.Options, error) {
	var options option.Options
	if path == "" {
		return options, nil
	}
	var (
		configContent []byte
		err           error
	)
	if path == "stdin" {
		configContent, err = io.ReadAll(os.Stdin)
	} else {
		configContent, err = os.ReadFile(path)
	}
	if err != nil {
		return options, E.Cause(err, "read config at ", path)
	}
	err = options.UnmarshalJSONContext(context.Background(), configContent)
	if err != nil {
		return options, E.Cause(err, "decode config at ", path)
	}
	return options, nil
}

// readOptions loads the config file, then applies environment overrides.
func readOptions() (option.Options, error) {
	options, err := readConfigAt(configPath)
	if err != nil {
		return option.Options{}, err
	}
	err = options.ApplyEnvironment(os.LookupEnv)
	if err != nil {
		return option.Options{}, E.Cause(err, "read environment")
	}
	err = option.CheckOptions(&options)
	if err != nil {
		return option.Options{}, err
	}
	if disableColor {
		if options.Log == nil {
			options.Log = &option.LogOptions{}
		}
		options.Log.DisableColor = true
	}
	return options, nil
}

func create() (*box.Box, context.CancelFunc, error) {
	options, err := readOptions()
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	instance, err := box.New(box.Options{
		Context: ctx,
		Options: options,
	})
	if err != nil {
		cancel()
		return nil, nil, E.Cause(err, "create service")
	}
	err = instance.Start()
	if err != nil {
		cancel()
		instance.Close()
		return nil, nil, E.Cause(err, "start service")
	}
	return instance, cancel, nil
}

func run() error {
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(osSignals)
	for {
		instance, cancel, err := create()
		if err != nil {
			return err
		}
		runtimeDebug.FreeOSMemory()
		for {
			osSignal := <-osSignals
			if osSignal == syscall.SIGHUP {
				err = check()
				if err != nil {
					log.Error(E.Cause(err, "reload service"))
					continue
				}
			}
			cancel()
			closeCtx, closed := context.WithCancel(context.Background())
			go closeMonitor(closeCtx)
			instance.Close()
			closed()
			if osSignal != syscall.SIGHUP {
				return nil
			}
			break
		}
	}
}

func closeMonitor(ctx context.Context) {
	time.Sleep(C.StopTimeout + time.Second)
	select {
	case <-ctx.Done():
		return
	default:
	}
	log.Fatal("sing-edge did not close!")
}
